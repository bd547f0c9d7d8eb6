package events

import (
	"context"
	"testing"
	"time"

	"bidvault/core/types"
)

type stubEvent struct {
	evt *types.Event
}

func (e stubEvent) EventType() string   { return e.evt.Type }
func (e stubEvent) Event() *types.Event { return e.evt }

func emitStub(s *Stream, eventType string) {
	s.Emit(stubEvent{evt: &types.Event{Type: eventType, Attributes: map[string]string{}}})
}

func TestStreamReplaysHistoryAfterCursor(t *testing.T) {
	stream := NewStream()
	emitStub(stream, "a")
	emitStub(stream, "b")
	emitStub(stream, "c")

	_, cancel, backlog, err := stream.Subscribe(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()

	if len(backlog) != 2 {
		t.Fatalf("expected 2 backlog entries past cursor, got %d", len(backlog))
	}
	if backlog[0].Event.Type != "b" || backlog[1].Event.Type != "c" {
		t.Fatalf("unexpected backlog order: %q, %q", backlog[0].Event.Type, backlog[1].Event.Type)
	}
	if backlog[1].Cursor != "3" {
		t.Fatalf("expected cursor 3, got %q", backlog[1].Cursor)
	}
}

func TestStreamDeliversLiveUpdates(t *testing.T) {
	stream := NewStream()
	updates, cancel, backlog, err := stream.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cancel()
	if len(backlog) != 0 {
		t.Fatalf("expected empty backlog, got %d entries", len(backlog))
	}

	emitStub(stream, "live")

	select {
	case update := <-updates:
		if update.Event.Type != "live" {
			t.Fatalf("unexpected event type %q", update.Event.Type)
		}
		if update.Sequence != 1 {
			t.Fatalf("expected sequence 1, got %d", update.Sequence)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for live update")
	}
}

func TestStreamCancelClosesChannel(t *testing.T) {
	stream := NewStream()
	updates, cancel, _, err := stream.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}

	// Emitting after cancel must not panic or deliver.
	emitStub(stream, "after")
}

func TestStreamRejectsMalformedCursor(t *testing.T) {
	stream := NewStream()
	if _, _, _, err := stream.Subscribe(context.Background(), "not-a-number"); err == nil {
		t.Fatal("expected error for malformed cursor")
	}
}
