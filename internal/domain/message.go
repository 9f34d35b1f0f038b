package domain

import (
	"context"
	"time"
)

type Kind string

const (
	KindOutbound      Kind = "outbound"
	KindNotification  Kind = "notification"
	KindFileReference Kind = "file"
	KindPlain         Kind = "plain"
)

func (k Kind) String() string {
	return string(k)
}

// FileRef points at a file held by the upload service. The bytes are
// resolved through the download endpoint, never by the messaging core.
type FileRef struct {
	ID   string `json:"fileId"`
	Name string `json:"fileName"`
}

// MessageEvent is a classified frame. File is set iff Kind is KindFileReference.
type MessageEvent struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	Sequence   uint64    `json:"sequence"`
	RawText    string    `json:"rawText"`
	Kind       Kind      `json:"kind"`
	File       *FileRef  `json:"file,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type MessageLog interface {
	EnsureRoom(ctx context.Context, roomID string) error
	Append(ctx context.Context, roomID string, event *MessageEvent) error
	Events(ctx context.Context, roomID string) ([]MessageEvent, bool, error)
	Since(ctx context.Context, roomID string, afterSequence uint64) ([]MessageEvent, error)
	Rooms(ctx context.Context) []string
}
