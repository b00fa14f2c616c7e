package internal

import (
	"sync"
	"time"
)

// SendThrottle caps outbound sends per conversation over a sliding window so
// a stuck key or paste flood does not spam the socket.
type SendThrottle struct {
	mu     sync.Mutex
	hits   map[ConversationRef][]time.Time
	limit  int
	window time.Duration
}

func NewSendThrottle(limit int, window time.Duration) *SendThrottle {
	return &SendThrottle{
		hits:   make(map[ConversationRef][]time.Time),
		limit:  limit,
		window: window,
	}
}

func (t *SendThrottle) Allow(ref ConversationRef) bool {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	windowStart := now.Add(-t.window)
	slice := t.hits[ref]
	idx := 0
	for _, ts := range slice {
		if ts.After(windowStart) {
			slice[idx] = ts
			idx++
		}
	}
	slice = slice[:idx]
	if len(slice) >= t.limit {
		t.hits[ref] = slice
		return false
	}
	slice = append(slice, now)
	t.hits[ref] = slice
	return true
}
