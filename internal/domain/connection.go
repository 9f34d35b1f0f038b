package domain

type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session identifies one room selection. Generation increases on every
// SelectRoom and Close, so work started under an older session can tell
// that the room it was started for is no longer active.
type Session struct {
	RoomID     string `json:"roomId"`
	ClientID   string `json:"clientId"`
	Generation uint64 `json:"generation"`
}

func (s Session) Active() bool {
	return s.RoomID != "" && s.ClientID != ""
}

type CloseReason string

const (
	CloseReasonSwitch   CloseReason = "room_switch"
	CloseReasonRemote   CloseReason = "remote"
	CloseReasonLocal    CloseReason = "local"
	CloseReasonDialFail CloseReason = "dial_failed"
)

type StateChange struct {
	From    ConnectionState
	To      ConnectionState
	Session Session
	Reason  CloseReason
	Err     error
}
