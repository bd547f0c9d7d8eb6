package events

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"bidvault/core/types"
)

const streamHistoryLimit = 1024

// StreamUpdate is one event as delivered to a stream subscriber. The cursor
// is the string form of the sequence number and can be handed back to
// Subscribe to resume after a disconnect.
type StreamUpdate struct {
	Sequence uint64
	Cursor   string
	Event    *types.Event
}

func cloneStreamUpdate(update StreamUpdate) StreamUpdate {
	cloned := update
	if update.Event != nil {
		evt := &types.Event{Type: update.Event.Type}
		if len(update.Event.Attributes) > 0 {
			evt.Attributes = make(map[string]string, len(update.Event.Attributes))
			for k, v := range update.Event.Attributes {
				evt.Attributes[k] = v
			}
		}
		cloned.Event = evt
	}
	return cloned
}

// Stream fans emitted events out to live subscribers while retaining a
// bounded history so a reconnecting subscriber can replay what it missed.
// It satisfies Emitter, so it plugs straight into the engine.
type Stream struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan StreamUpdate
	history []StreamUpdate
}

// NewStream creates an event stream with no subscribers.
func NewStream() *Stream {
	return &Stream{subs: make(map[uint64]chan StreamUpdate)}
}

// Emit implements the Emitter interface. Slow subscribers are skipped rather
// than blocking the emitting operation; they catch up via the history replay
// on their next Subscribe.
func (s *Stream) Emit(evt Event) {
	if s == nil || evt == nil {
		return
	}
	payload, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		return
	}
	record := payload.Event()
	if record == nil {
		return
	}

	s.mu.Lock()
	s.seq++
	update := StreamUpdate{Sequence: s.seq, Cursor: strconv.FormatUint(s.seq, 10), Event: record}
	s.history = append(s.history, cloneStreamUpdate(update))
	if len(s.history) > streamHistoryLimit {
		excess := len(s.history) - streamHistoryLimit
		trimmed := make([]StreamUpdate, streamHistoryLimit)
		copy(trimmed, s.history[excess:])
		s.history = trimmed
	}
	targets := make([]chan StreamUpdate, 0, len(s.subs))
	for _, ch := range s.subs {
		targets = append(targets, ch)
	}
	s.mu.Unlock()

	for _, ch := range targets {
		select {
		case ch <- cloneStreamUpdate(update):
		default:
		}
	}
}

// Subscribe registers a subscriber for events after the supplied cursor. The
// returned backlog holds the retained history past the cursor; subsequent
// events arrive on the channel. The cancel function releases the
// subscription and is also invoked when ctx is done.
func (s *Stream) Subscribe(ctx context.Context, cursor string) (<-chan StreamUpdate, func(), []StreamUpdate, error) {
	if s == nil {
		return nil, nil, nil, errors.New("events: stream not initialised")
	}

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, errors.New("events: invalid cursor")
		}
		since = parsed
	}

	updates := make(chan StreamUpdate, 32)

	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[uint64]chan StreamUpdate)
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = updates
	backlog := make([]StreamUpdate, 0, len(s.history))
	for _, entry := range s.history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneStreamUpdate(entry))
		}
	}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if ch, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
			s.mu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}
