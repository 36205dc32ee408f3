package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestHubDeliversToSinks(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	runID := UUIDToBytes(uuid.New())
	for i := 0; i < 5; i++ {
		hub.Emit(Event{RunID: runID, TS: time.Now().UTC(), Stage: StageDatasetFound, Count: int64(i)})
	}
	require.NoError(t, hub.Close(context.Background()))

	events := sink.snapshot()
	require.Len(t, events, 5)
	require.Equal(t, StageDatasetFound, events[0].Stage)
	require.True(t, sink.closed)
}

func TestHubDropsInvalidEvents(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{Stage: StageRunStart}) // no run ID or timestamp
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.snapshot())
}

func TestHubEmitAfterClose(t *testing.T) {
	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(Event{RunID: UUIDToBytes(uuid.New()), TS: time.Now().UTC(), Stage: StageRunStart})
	require.Empty(t, sink.snapshot())

	// A second close is a no-op.
	require.NoError(t, hub.Close(context.Background()))
}

func TestHubNilSafe(t *testing.T) {
	var hub *Hub
	hub.Emit(Event{})
	require.NoError(t, hub.Close(context.Background()))
}
