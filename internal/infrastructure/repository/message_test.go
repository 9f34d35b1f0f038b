package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/hilthontt/studyroom/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLog_EnsureRoomDistinguishesEmptyFromMissing(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(10)

	events, exists, err := log.Events(ctx, "42")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, events)

	require.NoError(t, log.EnsureRoom(ctx, "42"))
	require.NoError(t, log.EnsureRoom(ctx, "42"))

	events, exists, err = log.Events(ctx, "42")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Empty(t, events)
}

func TestMessageLog_AppendKeepsArrivalOrder(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(10)

	for i := 0; i < 3; i++ {
		ev := &domain.MessageEvent{RawText: fmt.Sprintf("msg %d", i), Kind: domain.KindPlain}
		require.NoError(t, log.Append(ctx, "42", ev))
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.ReceivedAt.IsZero())
		assert.Equal(t, uint64(i+1), ev.Sequence)
	}

	events, exists, err := log.Events(ctx, "42")
	require.NoError(t, err)
	require.True(t, exists)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("msg %d", i), ev.RawText)
		assert.Equal(t, "42", ev.RoomID)
	}
}

func TestMessageLog_RoomsAreIndependent(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(10)

	require.NoError(t, log.Append(ctx, "a", &domain.MessageEvent{RawText: "in a"}))
	require.NoError(t, log.Append(ctx, "b", &domain.MessageEvent{RawText: "in b"}))
	require.NoError(t, log.Append(ctx, "a", &domain.MessageEvent{RawText: "in a again"}))

	a, _, err := log.Events(ctx, "a")
	require.NoError(t, err)
	b, _, err := log.Events(ctx, "b")
	require.NoError(t, err)

	assert.Len(t, a, 2)
	assert.Len(t, b, 1)
	assert.Equal(t, uint64(1), b[0].Sequence)
	assert.Equal(t, []string{"a", "b"}, log.Rooms(ctx))
}

func TestMessageLog_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(3)

	for i := 1; i <= 5; i++ {
		require.NoError(t, log.Append(ctx, "r", &domain.MessageEvent{RawText: fmt.Sprint(i)}))
	}

	events, _, err := log.Events(ctx, "r")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "3", events[0].RawText)
	assert.Equal(t, uint64(3), events[0].Sequence)
	assert.Equal(t, uint64(5), events[2].Sequence)
}

func TestMessageLog_Since(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(10)

	for i := 1; i <= 4; i++ {
		require.NoError(t, log.Append(ctx, "r", &domain.MessageEvent{RawText: fmt.Sprint(i)}))
	}

	events, err := log.Since(ctx, "r", 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "3", events[0].RawText)

	events, err = log.Since(ctx, "r", 4)
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = log.Since(ctx, "missing", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestMessageLog_ReturnedSliceIsACopy(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(10)
	require.NoError(t, log.Append(ctx, "r", &domain.MessageEvent{RawText: "original"}))

	events, _, err := log.Events(ctx, "r")
	require.NoError(t, err)
	events[0].RawText = "changed"

	events, _, err = log.Events(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "original", events[0].RawText)
}

func TestMessageLog_InvalidInput(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(0)

	assert.ErrorIs(t, log.EnsureRoom(ctx, ""), domain.ErrInvalidInput)
	assert.ErrorIs(t, log.Append(ctx, "", &domain.MessageEvent{}), domain.ErrInvalidInput)
	assert.ErrorIs(t, log.Append(ctx, "r", nil), domain.ErrInvalidInput)

	_, _, err := log.Events(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMessageLog_ConcurrentReadersDuringAppend(t *testing.T) {
	ctx := context.Background()
	log := NewMessageLog(50)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = log.Append(ctx, "r", &domain.MessageEvent{RawText: fmt.Sprint(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			events, _, _ := log.Events(ctx, "r")
			for j := 1; j < len(events); j++ {
				if events[j].Sequence != events[j-1].Sequence+1 {
					t.Errorf("sequence gap: %d then %d", events[j-1].Sequence, events[j].Sequence)
				}
			}
		}
	}()
	wg.Wait()

	events, _, err := log.Events(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, events, 50)
	assert.Equal(t, uint64(200), events[49].Sequence)
}
