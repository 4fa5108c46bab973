// Package progress carries analysis updates to connected listeners.
//
// A Channel wraps one listener connection and serializes the wire envelope
// {type, message, data?, timestamp}. A Registry tracks the live channels so
// the status endpoint can report connection counts and service notices can
// be broadcast. Neither is a singleton; callers inject them.
package progress

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Message kinds on the wire.
const (
	KindProgress = "progress"
	KindResult   = "result"
	KindError    = "error"
	KindPong     = "pong"
)

// Sink is the write half of a listener connection.
type Sink interface {
	WriteMessage(data []byte) error
}

// Envelope is the wire shape of every listener message.
type Envelope struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Channel delivers envelopes to a single listener. The first write failure
// marks the channel closed; later sends are dropped without surfacing an
// error, so a vanished listener never aborts a running analysis.
type Channel struct {
	sink Sink
	now  func() time.Time

	mu     sync.Mutex
	closed bool
}

func NewChannel(sink Sink) *Channel {
	return &Channel{sink: sink, now: time.Now}
}

// Send writes one envelope of the given kind. data may be nil.
func (c *Channel) Send(kind, message string, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	blob, err := json.Marshal(Envelope{
		Type:      kind,
		Message:   message,
		Data:      data,
		Timestamp: c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Printf("progress envelope_marshal_failed kind=%s err=%v", kind, err)
		return
	}
	if err := c.sink.WriteMessage(blob); err != nil {
		log.Printf("progress channel_write_failed kind=%s err=%v", kind, err)
		c.closed = true
	}
}

// Progress reports a pipeline checkpoint. extra keys are merged into the
// data map alongside step and progress.
func (c *Channel) Progress(step string, percent int, message string, extra map[string]any) {
	data := map[string]any{"step": step, "progress": percent}
	for k, v := range extra {
		data[k] = v
	}
	c.Send(KindProgress, message, data)
}

// Result delivers the terminal payload of a successful run.
func (c *Channel) Result(message string, result any) {
	c.Send(KindResult, message, map[string]any{
		"step":     "completed",
		"progress": 100,
		"result":   result,
	})
}

func (c *Channel) Error(message string) {
	c.Send(KindError, message, nil)
}

func (c *Channel) Pong() {
	c.Send(KindPong, "pong", nil)
}

// Closed reports whether a write has already failed.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Registry is the set of live listener channels.
type Registry struct {
	mu    sync.Mutex
	conns map[*Channel]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: map[*Channel]struct{}{}}
}

func (r *Registry) Add(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[ch] = struct{}{}
}

func (r *Registry) Remove(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, ch)
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Broadcast sends one envelope to every registered channel. Channels that
// have already failed drop it silently.
func (r *Registry) Broadcast(kind, message string, data map[string]any) {
	r.mu.Lock()
	targets := make([]*Channel, 0, len(r.conns))
	for ch := range r.conns {
		targets = append(targets, ch)
	}
	r.mu.Unlock()

	for _, ch := range targets {
		ch.Send(kind, message, data)
	}
}
