package camera

import (
	"testing"
	"time"
)

func decoded(tag byte) *DecodedFrame {
	return &DecodedFrame{Width: 1, Height: 1, Data: []byte{tag, 0, 0, 255}, Timestamp: time.Now()}
}

func TestMailboxMostRecentWins(t *testing.T) {
	m := NewMailbox()

	m.Publish(decoded('A'))
	m.Publish(decoded('B'))
	m.Publish(decoded('C'))

	got := m.TryTake()
	if got == nil {
		t.Fatal("TryTake() returned nil after publishes")
	}
	if got.Data[0] != 'C' {
		t.Errorf("TryTake() = frame %q, want latest frame 'C'", got.Data[0])
	}

	// Only one undelivered frame may exist: the rest were discarded.
	if again := m.TryTake(); again != nil {
		t.Errorf("TryTake() returned a second frame %q, mailbox queued instead of replacing", again.Data[0])
	}
	if drops := m.Drops(); drops != 2 {
		t.Errorf("Drops() = %d, want 2 (A replaced by B, B replaced by C)", drops)
	}
}

func TestMailboxTryTakeNonBlocking(t *testing.T) {
	m := NewMailbox()
	if f := m.TryTake(); f != nil {
		t.Fatalf("TryTake() on empty mailbox = %+v, want nil", f)
	}
}

func TestMailboxPublishNonBlocking(t *testing.T) {
	m := NewMailbox()

	// No consumer at all; publishing must still return promptly.
	start := time.Now()
	for i := 0; i < 1000; i++ {
		m.Publish(decoded(byte(i)))
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("1000 publishes took %v, expected well under 100ms", elapsed)
	}
}

func TestMailboxDeliveryOrder(t *testing.T) {
	m := NewMailbox()

	// Alternating publish/take must deliver in publish order.
	var taken []byte
	for i := byte(0); i < 10; i++ {
		m.Publish(decoded(i))
		if f := m.TryTake(); f != nil {
			taken = append(taken, f.Data[0])
		}
	}
	for i := 1; i < len(taken); i++ {
		if taken[i] <= taken[i-1] {
			t.Fatalf("frames delivered out of order: %v", taken)
		}
	}
	if m.Drops() != 0 {
		t.Errorf("Drops() = %d, want 0 when consumer keeps up", m.Drops())
	}
}
