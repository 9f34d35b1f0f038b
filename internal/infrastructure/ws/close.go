package ws

import (
	"errors"
	"net"

	"github.com/gorilla/websocket"
)

// isExpectedClose reports closes that are part of a normal lifecycle: the
// server ending the session or the local side tearing down the socket.
func isExpectedClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return errors.Is(err, net.ErrClosed)
}
