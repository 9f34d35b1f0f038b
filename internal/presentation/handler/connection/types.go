package connection

type connectionResponse struct {
	State      string `json:"state"`
	RoomID     string `json:"roomId,omitempty"`
	ClientID   string `json:"clientId,omitempty"`
	Generation uint64 `json:"generation"`
}
