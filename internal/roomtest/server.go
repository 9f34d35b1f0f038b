// Package roomtest runs an in-process room server speaking the same wire
// protocol as the real one, for tests.
package roomtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type EchoMode int

const (
	// EchoPrefixed replies "You: {text}" to the sender and relays
	// "{clientId}: {text}" to everyone else, like the production server.
	EchoPrefixed EchoMode = iota
	// EchoVerbatim sends the text unchanged to every member, sender included.
	EchoVerbatim
	// EchoNone swallows inbound frames.
	EchoNone
)

type Upload struct {
	RoomID   string
	ClientID string
	FileName string
	Content  []byte
}

type member struct {
	roomID   string
	clientID string
	conn     *websocket.Conn
	writeMu  sync.Mutex
}

func (m *member) write(text string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = m.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

type Server struct {
	*httptest.Server

	upgrader websocket.Upgrader

	mu           sync.Mutex
	echo         EchoMode
	uploadStatus int
	announce     bool
	members      map[*member]struct{}
	received     []string
	uploads      []Upload
	dials        int
	nextFile     int
}

func NewServer() *Server {
	s := &Server{
		members:  make(map[*member]struct{}),
		nextFile: 1,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	r := chi.NewRouter()
	r.Get("/ws/{room}/{clientId}", s.handleWS)
	r.Post("/upload/{room}/{clientId}", s.handleUpload)
	s.Server = httptest.NewServer(r)

	return s
}

func (s *Server) SetEcho(mode EchoMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.echo = mode
}

// SetUploadStatus makes uploads fail with status when it is not 2xx.
func (s *Server) SetUploadStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadStatus = status
}

// SetAnnounce broadcasts join/leave notices to the other members.
func (s *Server) SetAnnounce(announce bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announce = announce
}

// WSBaseURL is the base the client appends /{room}/{clientId} to.
func (s *Server) WSBaseURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	m := &member{roomID: chi.URLParam(r, "room"), clientID: chi.URLParam(r, "clientId"), conn: conn}

	s.mu.Lock()
	s.members[m] = struct{}{}
	s.dials++
	announce := s.announce
	s.mu.Unlock()

	if announce {
		s.broadcast(m.roomID, fmt.Sprintf("---User %s has entered Room %s---", m.clientID, m.roomID), m)
	}

	defer func() {
		s.mu.Lock()
		delete(s.members, m)
		s.mu.Unlock()
		_ = conn.Close()

		if announce {
			s.broadcast(m.roomID, fmt.Sprintf("---User %s has left Room %s---", m.clientID, m.roomID), m)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		text := string(raw)

		s.mu.Lock()
		s.received = append(s.received, text)
		echo := s.echo
		s.mu.Unlock()

		switch echo {
		case EchoPrefixed:
			m.write("You: " + text)
			s.broadcast(m.roomID, m.clientID+": "+text, m)
		case EchoVerbatim:
			s.broadcast(m.roomID, text, nil)
		}
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.uploadStatus
	s.mu.Unlock()

	if status != 0 && (status < 200 || status > 299) {
		http.Error(w, "upload rejected", status)
		return
	}

	file, header, err := r.FormFile("upload")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	id := s.nextFile
	s.nextFile++
	s.uploads = append(s.uploads, Upload{
		RoomID:   chi.URLParam(r, "room"),
		ClientID: chi.URLParam(r, "clientId"),
		FileName: header.Filename,
		Content:  content,
	})
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"file_id": id, "filename": header.Filename})
}

// Push sends text to every member of roomID.
func (s *Server) Push(roomID, text string) {
	s.broadcast(roomID, text, nil)
}

func (s *Server) broadcast(roomID, text string, except *member) {
	s.mu.Lock()
	targets := make([]*member, 0, len(s.members))
	for m := range s.members {
		if m.roomID == roomID && m != except {
			targets = append(targets, m)
		}
	}
	s.mu.Unlock()

	for _, m := range targets {
		m.write(text)
	}
}

// DropAll closes every member connection from the server side.
func (s *Server) DropAll() {
	s.mu.Lock()
	targets := make([]*member, 0, len(s.members))
	for m := range s.members {
		targets = append(targets, m)
	}
	s.mu.Unlock()

	for _, m := range targets {
		_ = m.conn.Close()
	}
}

// Members returns "room/client" for each open connection.
func (s *Server) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m.roomID+"/"+m.clientID)
	}
	return out
}

func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) Dials() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dials
}
