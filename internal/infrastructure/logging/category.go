package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	Connection      Category = "Connection"
	Frame           Category = "Frame"
	Transfer        Category = "Transfer"
	Internal        Category = "Internal"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
)

const (
	// General
	Startup      SubCategory = "Startup"
	Shutdown     SubCategory = "Shutdown"
	RateLimiting SubCategory = "RateLimiting"

	// Connection
	Dial      SubCategory = "Dial"
	Switch    SubCategory = "Switch"
	Close     SubCategory = "Close"
	Reconnect SubCategory = "Reconnect"
	Send      SubCategory = "Send"

	// Frame
	Classify SubCategory = "Classify"
	Append   SubCategory = "Append"

	// Transfer
	Upload   SubCategory = "Upload"
	Announce SubCategory = "Announce"

	ExternalService SubCategory = "ExternalService"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	RoomID       ExtraKey = "RoomId"
	ClientID     ExtraKey = "ClientId"
	Generation   ExtraKey = "Generation"
	State        ExtraKey = "State"
	Kind         ExtraKey = "Kind"
	FileID       ExtraKey = "FileId"
	FileName     ExtraKey = "FileName"
	URL          ExtraKey = "Url"
	Attempt      ExtraKey = "Attempt"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	ErrorMessage ExtraKey = "ErrorMessage"
)
