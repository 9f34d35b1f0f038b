package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/studyroom/internal/domain"
)

const DefaultLogCapacity = 500

type roomLog struct {
	events  []domain.MessageEvent
	nextSeq uint64
}

// Per-room ordered event log. Oldest events are evicted when capacity is exceeded.
type messageLog struct {
	rooms    map[string]*roomLog // roomID -> log
	capacity uint
	mu       *sync.RWMutex
}

func NewMessageLog(capacity uint) domain.MessageLog {
	if capacity == 0 {
		capacity = DefaultLogCapacity
	}
	return &messageLog{
		capacity: capacity,
		rooms:    make(map[string]*roomLog),
		mu:       &sync.RWMutex{},
	}
}

func (l *messageLog) EnsureRoom(ctx context.Context, roomID string) error {
	if roomID == "" {
		return domain.ErrInvalidInput
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.bucket(roomID)
	return nil
}

// bucket must be called with the write lock held.
func (l *messageLog) bucket(roomID string) *roomLog {
	room, exists := l.rooms[roomID]
	if !exists {
		room = &roomLog{
			events:  make([]domain.MessageEvent, 0, min(l.capacity, 64)),
			nextSeq: 1,
		}
		l.rooms[roomID] = room
	}
	return room
}

func (l *messageLog) Append(ctx context.Context, roomID string, event *domain.MessageEvent) error {
	if event == nil || roomID == "" {
		return domain.ErrInvalidInput
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now()
	}
	event.RoomID = roomID

	l.mu.Lock()
	defer l.mu.Unlock()

	room := l.bucket(roomID)
	event.Sequence = room.nextSeq
	room.nextSeq++

	// Readers hold copies of earlier slices, so eviction reslices instead of
	// shifting elements in place.
	room.events = append(room.events, *event)
	if len(room.events) > int(l.capacity) {
		excess := len(room.events) - int(l.capacity)
		room.events = room.events[excess:]
	}

	return nil
}

func (l *messageLog) Events(ctx context.Context, roomID string) ([]domain.MessageEvent, bool, error) {
	if roomID == "" {
		return nil, false, domain.ErrInvalidInput
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	room, exists := l.rooms[roomID]
	if !exists {
		return []domain.MessageEvent{}, false, nil
	}

	cpy := make([]domain.MessageEvent, len(room.events))
	copy(cpy, room.events)

	return cpy, true, nil
}

func (l *messageLog) Since(ctx context.Context, roomID string, afterSequence uint64) ([]domain.MessageEvent, error) {
	if roomID == "" {
		return nil, domain.ErrInvalidInput
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	room, exists := l.rooms[roomID]
	if !exists {
		return []domain.MessageEvent{}, nil
	}

	// Sequences are strictly increasing within a room.
	i := sort.Search(len(room.events), func(i int) bool {
		return room.events[i].Sequence > afterSequence
	})

	cpy := make([]domain.MessageEvent, len(room.events)-i)
	copy(cpy, room.events[i:])

	return cpy, nil
}

func (l *messageLog) Rooms(ctx context.Context) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.rooms))
	for id := range l.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}
