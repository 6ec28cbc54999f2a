// Package testutil provides in-memory transport doubles for tests.
package testutil

import (
	"fmt"
	"sync"

	"nvivas/backend/tictactoe-rooms/pkg/models"
)

// Conn is an in-memory interfaces.Conn that records every frame pushed to it.
type Conn struct {
	id string

	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	fail     bool
	failNext int
}

// NewConn creates an open Conn.
func NewConn(id string) *Conn {
	return &Conn{id: id}
}

// ID returns the connection ID.
func (c *Conn) ID() string { return c.id }

// Push records frame, or fails if the conn is closed or set to fail.
func (c *Conn) Push(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("conn %s is closed", c.id)
	}
	if c.fail {
		return fmt.Errorf("conn %s buffer full", c.id)
	}
	if c.failNext > 0 {
		c.failNext--
		return fmt.Errorf("conn %s buffer full", c.id)
	}
	c.frames = append(c.frames, frame)
	return nil
}

// Close marks the conn closed. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// FailPushes makes subsequent Push calls fail (or succeed again).
func (c *Conn) FailPushes(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = fail
}

// FailNext makes the next n Push calls fail.
func (c *Conn) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

// Events decodes every recorded frame. Frames that do not decode panic,
// since the registry only ever pushes models.Encode output.
func (c *Conn) Events() []models.Outbound {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Outbound, 0, len(c.frames))
	for _, f := range c.frames {
		ev, err := models.DecodeOutbound(f)
		if err != nil {
			panic(fmt.Sprintf("conn %s: undecodable frame %s: %v", c.id, f, err))
		}
		out = append(out, ev)
	}
	return out
}

// Named returns the recorded events with the given wire name.
func (c *Conn) Named(name string) []models.Outbound {
	var out []models.Outbound
	for _, ev := range c.Events() {
		if ev.Name() == name {
			out = append(out, ev)
		}
	}
	return out
}

// Reset drops recorded frames.
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}
