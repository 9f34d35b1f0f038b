package messages

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/json"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
)

type Sender interface {
	Send(ctx context.Context, text string) error
	ActiveRoom() string
}

type Handler struct {
	sender Sender
	logger logging.Logger
}

func NewHandler(sender Sender, logger logging.Logger) *Handler {
	return &Handler{
		sender: sender,
		logger: logger,
	}
}

// SendMessageHandler writes content to the live connection as is. The message
// shows up in the room log only once the server echoes it back.
func (h *Handler) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.Read(r, &req); err != nil {
		json.WriteValidationError(w, err)
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		json.WriteBadRequestError(w, "content cannot be empty")
		return
	}

	roomID := h.sender.ActiveRoom()
	if err := h.sender.Send(r.Context(), req.Content); err != nil {
		if errors.Is(err, domain.ErrNotReady) {
			json.WriteError(w, http.StatusConflict, json.CodeNotConnected, "Not connected to a room")
			return
		}
		h.logger.Error(logging.Connection, logging.Send, "failed to send message", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteError(w, http.StatusBadGateway, json.CodeConnectFailed, "The message could not be delivered")
		return
	}

	json.Write(w, http.StatusAccepted, sendMessageResponse{
		RoomID:  roomID,
		Content: req.Content,
	})
}
