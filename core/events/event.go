package events

import (
	"sync"

	"bidvault/core/types"
)

// Event represents a structured state change emitted by the escrow engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Collector buffers emitted events in memory for after-the-fact inspection.
// It is the simpler alternative to Stream when no live subscribers exist,
// chiefly in tests asserting on what a state transition produced.
type Collector struct {
	mu     sync.Mutex
	events []*types.Event
}

// Emit implements the Emitter interface.
func (c *Collector) Emit(evt Event) {
	if c == nil || evt == nil {
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
	c.mu.Lock()
	c.events = append(c.events, record)
	c.mu.Unlock()
}

// Drain returns the buffered events and resets the collector.
func (c *Collector) Drain() []*types.Event {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	drained := c.events
	c.events = nil
	return drained
}
