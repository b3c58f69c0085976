// Package display hands annotated frames from the pipeline to the live view.
package display

import (
	"sync"

	"cctvstation/internal/model"
)

// Mailbox is a single-slot buffer: Offer never blocks and a newer frame replaces an
// unconsumed one. Next blocks until a frame arrives or the mailbox is closed.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *model.Frame
	drops  uint64
	closed bool
	onDrop func()
}

// NewMailbox creates an empty mailbox. onDrop, if set, runs (under the lock) for every replaced frame.
func NewMailbox(onDrop func()) *Mailbox {
	m := &Mailbox{onDrop: onDrop}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Offer publishes frame, replacing any frame not yet taken.
func (m *Mailbox) Offer(frame *model.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if m.frame != nil {
		m.drops++
		if m.onDrop != nil {
			m.onDrop()
		}
	}
	m.frame = frame
	m.cond.Signal()
}

// Next returns the latest frame, blocking while the slot is empty. ok is false once closed.
func (m *Mailbox) Next() (frame *model.Frame, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.frame == nil && !m.closed {
		m.cond.Wait()
	}
	if m.closed {
		return nil, false
	}
	frame = m.frame
	m.frame = nil
	return frame, true
}

// Drops is the number of frames replaced before being taken.
func (m *Mailbox) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}

// Close wakes a blocked Next. Further offers are ignored.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
