package rooms

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/json"
	"github.com/hilthontt/studyroom/internal/infrastructure/logging"
	"github.com/hilthontt/studyroom/internal/presentation/utils"
)

type Connector interface {
	SelectRoom(ctx context.Context, roomID, clientID string) error
	State() domain.ConnectionState
}

type Linker interface {
	DownloadURL(fileID string) string
}

type Handler struct {
	conn       Connector
	messageLog domain.MessageLog
	links      Linker
	logger     logging.Logger
}

func NewHandler(
	conn Connector,
	messageLog domain.MessageLog,
	links Linker,
	logger logging.Logger,
) *Handler {
	return &Handler{
		conn:       conn,
		messageLog: messageLog,
		links:      links,
		logger:     logger,
	}
}

// SelectRoomHandler switches the live connection to roomId. It answers once
// the connection is open or has failed.
func (h *Handler) SelectRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteBadRequestError(w, "room ID is missing")
		return
	}

	clientID := utils.GetClientID(w, r)

	if err := h.conn.SelectRoom(r.Context(), roomID, clientID); err != nil {
		var connectErr *domain.ConnectError
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			json.WriteValidationError(w, err)
		case errors.Is(err, domain.ErrSuperseded):
			json.WriteError(w, http.StatusConflict, json.CodeSuperseded, "The connection attempt was cancelled")
		case errors.As(err, &connectErr):
			json.WriteError(w, http.StatusBadGateway, json.CodeConnectFailed, "Could not connect to the room")
		default:
			h.logger.Error(logging.Connection, logging.Switch, "unexpected room selection failure", map[logging.ExtraKey]any{
				logging.RoomID:       roomID,
				logging.ErrorMessage: err.Error(),
			})
			json.WriteInternalError(w)
		}
		return
	}

	json.Write(w, http.StatusOK, selectRoomResponse{
		RoomID:   roomID,
		ClientID: clientID,
		State:    h.conn.State().String(),
	})
}

// GetMessagesHandler returns a room's log in arrival order. With ?after=N only
// events with a larger sequence are returned.
func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteBadRequestError(w, "room ID is missing")
		return
	}

	ctx := r.Context()

	var (
		events []domain.MessageEvent
		exists bool
		err    error
	)
	if raw := r.URL.Query().Get("after"); raw != "" {
		after, parseErr := strconv.ParseUint(raw, 10, 64)
		if parseErr != nil {
			json.WriteBadRequestError(w, "after must be a non-negative integer")
			return
		}
		events, err = h.messageLog.Since(ctx, roomID, after)
		exists = slices.Contains(h.messageLog.Rooms(ctx), roomID)
	} else {
		events, exists, err = h.messageLog.Events(ctx, roomID)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			json.WriteValidationError(w, err)
			return
		}
		json.WriteInternalError(w)
		return
	}

	json.Write(w, http.StatusOK, roomMessagesResponse{
		RoomID:   roomID,
		Exists:   exists,
		Messages: toMessageResponses(events, h.links.DownloadURL),
	})
}

func (h *Handler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	json.Write(w, http.StatusOK, roomsResponse{Rooms: h.messageLog.Rooms(r.Context())})
}
