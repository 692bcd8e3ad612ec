package camera

import (
	"sync"
	"sync/atomic"
)

// Mailbox is a single-slot, most-recent-wins hand-off between the capture
// worker and the render loop. Publishing replaces any unconsumed frame;
// taking is non-blocking. At most one undelivered frame exists at a time,
// which bounds memory and keeps render latency low at the cost of dropped
// source frames under load. Frames that are delivered come out in publish
// order; skipped frames are simply never seen.
type Mailbox struct {
	mu    sync.Mutex
	frame *DecodedFrame
	drops uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores the frame, replacing any unconsumed one. Never blocks.
// The frame's Data must not be modified after publishing.
func (m *Mailbox) Publish(f *DecodedFrame) {
	m.mu.Lock()
	if m.frame != nil {
		atomic.AddUint64(&m.drops, 1)
	}
	m.frame = f
	m.mu.Unlock()
}

// TryTake removes and returns the latest frame, or nil if nothing new has
// been published since the last take. Never blocks.
func (m *Mailbox) TryTake() *DecodedFrame {
	m.mu.Lock()
	f := m.frame
	m.frame = nil
	m.mu.Unlock()
	return f
}

// Drops returns the number of frames discarded because the consumer had
// not taken the previous one yet.
func (m *Mailbox) Drops() uint64 {
	return atomic.LoadUint64(&m.drops)
}
