package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"bidvault/core/events"
)

const wsWriteTimeout = 10 * time.Second

// eventFrame is the wire form of one escrow event on the websocket stream.
type eventFrame struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SetEvents wires the engine's event stream into the server so the websocket
// endpoint can serve it.
func (s *Server) SetEvents(stream *events.Stream) { s.events = stream }

// EventStreamHandler upgrades the connection to a websocket and streams escrow
// lifecycle events as JSON frames. A cursor query parameter resumes delivery
// after the given sequence number.
func (s *Server) EventStreamHandler(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.events == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	if !s.allow(r) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor string) error {
	updates, cancel, backlog, err := s.events.Subscribe(ctx, cursor)
	if err != nil {
		return err
	}
	defer cancel()

	for _, update := range backlog {
		if err := writeEventFrame(ctx, conn, update); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEventFrame(ctx, conn, update); err != nil {
				return err
			}
		}
	}
}

func writeEventFrame(ctx context.Context, conn *websocket.Conn, update events.StreamUpdate) error {
	frame := eventFrame{Sequence: update.Sequence, Cursor: update.Cursor}
	if update.Event != nil {
		frame.Type = update.Event.Type
		frame.Attributes = update.Event.Attributes
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
