package notice

import (
	"sync"
	"time"
)

// DefaultTTL is how long a message stays visible
const DefaultTTL = 1800 * time.Millisecond

// Message is the currently visible confirmation
type Message struct {
	Text     string    `json:"text"`
	PostedAt time.Time `json:"postedAt"`
}

// Board holds at most one short-lived message. A new post replaces the
// previous one and restarts the clear timer.
type Board struct {
	ttl time.Duration

	mu      sync.Mutex
	current *Message
	timer   *time.Timer
	seq     uint64
}

// NewBoard creates a board. A non-positive ttl uses DefaultTTL.
func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{ttl: ttl}
}

// Post shows message until the ttl elapses
func (b *Board) Post(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
	}

	b.seq++
	seq := b.seq
	b.current = &Message{Text: message, PostedAt: time.Now()}
	b.timer = time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// a later post owns the board now
		if b.seq == seq {
			b.current = nil
			b.timer = nil
		}
	})
}

// Current returns the visible message, if any
func (b *Board) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

// Close stops the pending clear timer
func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.current = nil
}
