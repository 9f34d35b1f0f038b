package connection

import (
	"net/http"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/json"
)

type Connection interface {
	State() domain.ConnectionState
	Session() domain.Session
	Close() error
}

type Handler struct {
	conn Connection
}

func NewHandler(conn Connection) *Handler {
	return &Handler{conn: conn}
}

func (h *Handler) GetConnectionHandler(w http.ResponseWriter, r *http.Request) {
	session := h.conn.Session()
	json.Write(w, http.StatusOK, connectionResponse{
		State:      h.conn.State().String(),
		RoomID:     session.RoomID,
		ClientID:   session.ClientID,
		Generation: session.Generation,
	})
}

func (h *Handler) CloseConnectionHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.conn.Close(); err != nil {
		json.WriteInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
