package ratelimiter

import (
	"net"
	"net/http"
	"time"
)

const DefaultSourceHeader = "X-Client-ID"

type Limiter interface {
	// Allow counts one request for key. When it is refused, retryAfter is the
	// time left in the current window.
	Allow(key string) (allowed bool, retryAfter time.Duration)
	Remaining(key string) int
	Limit() int
	Close()
}

// SourceKey identifies the caller: the client id header when present,
// otherwise the remote host.
func SourceKey(r *http.Request) string {
	if id := r.Header.Get(DefaultSourceHeader); id != "" {
		return "client:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "addr:" + r.RemoteAddr
	}
	return "addr:" + host
}
