package messages

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}
