package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// connWrapper serializes writes; gorilla allows one concurrent writer only.
// Close may run alongside a blocked read or write.
type connWrapper struct {
	conn      *websocket.Conn
	mutex     sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newConnWrapper(c *websocket.Conn, readLimit int64) *connWrapper {
	if readLimit > 0 {
		c.SetReadLimit(readLimit)
	}
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteText(text string, timeout time.Duration) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}
	return w.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (w *connWrapper) ReadText() (string, error) {
	_, raw, err := w.conn.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (w *connWrapper) Close() error {
	w.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		w.closeErr = w.conn.Close()
	})
	return w.closeErr
}
