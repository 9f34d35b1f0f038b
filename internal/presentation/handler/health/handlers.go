package health

import (
	"net/http"
	"time"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/hilthontt/studyroom/internal/infrastructure/json"
)

type StateReader interface {
	State() domain.ConnectionState
}

type Handler struct {
	startedAt time.Time
	conn      StateReader
}

func NewHandler(conn StateReader) *Handler {
	return &Handler{
		startedAt: time.Now(),
		conn:      conn,
	}
}

// GetHealth reports the process as healthy whatever the room connection is
// doing; the connection state is informational.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	data := healthResponse{
		Status:     "ok",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Connection: h.conn.State().String(),
	}
	json.Write(w, http.StatusOK, data)
}
