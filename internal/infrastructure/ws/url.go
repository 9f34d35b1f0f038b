package ws

import (
	"fmt"
	"net/url"
	"strings"
)

// RoomURL addresses the live connection for a room: {base}/{room}/{clientId}.
// http(s) bases are converted to ws(s).
func RoomURL(base, roomID, clientID string) (string, error) {
	wsBase := strings.TrimRight(base, "/")
	if after, ok := strings.CutPrefix(wsBase, "https://"); ok {
		wsBase = "wss://" + after
	} else if after, ok := strings.CutPrefix(wsBase, "http://"); ok {
		wsBase = "ws://" + after
	}

	u, err := url.Parse(wsBase)
	if err != nil {
		return "", fmt.Errorf("invalid websocket base url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid websocket base url scheme %q", u.Scheme)
	}

	return fmt.Sprintf("%s/%s/%s", wsBase, url.PathEscape(roomID), url.PathEscape(clientID)), nil
}
