package rooms

import (
	"time"

	"github.com/hilthontt/studyroom/internal/domain"
)

type selectRoomResponse struct {
	RoomID   string `json:"roomId"`
	ClientID string `json:"clientId"`
	State    string `json:"state"`
}

type fileResponse struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
}

type messageResponse struct {
	ID         string        `json:"id"`
	Sequence   uint64        `json:"sequence"`
	Kind       domain.Kind   `json:"kind"`
	Text       string        `json:"text"`
	File       *fileResponse `json:"file,omitempty"`
	ReceivedAt time.Time     `json:"receivedAt"`
}

type roomMessagesResponse struct {
	RoomID   string            `json:"roomId"`
	Exists   bool              `json:"exists"`
	Messages []messageResponse `json:"messages"`
}

type roomsResponse struct {
	Rooms []string `json:"rooms"`
}

func toMessageResponses(events []domain.MessageEvent, downloadURL func(string) string) []messageResponse {
	out := make([]messageResponse, 0, len(events))
	for _, ev := range events {
		msg := messageResponse{
			ID:         ev.ID,
			Sequence:   ev.Sequence,
			Kind:       ev.Kind,
			Text:       ev.RawText,
			ReceivedAt: ev.ReceivedAt,
		}
		if ev.File != nil {
			msg.File = &fileResponse{
				FileID:      ev.File.ID,
				FileName:    ev.File.Name,
				DownloadURL: downloadURL(ev.File.ID),
			}
		}
		out = append(out, msg)
	}
	return out
}
