package internal

import "sync"

// UnreadTracker keeps per-conversation counts of messages that arrived while
// the conversation was not on screen.
type UnreadTracker struct {
	mu     sync.Mutex
	counts map[ConversationRef]int
}

func NewUnreadTracker() *UnreadTracker {
	return &UnreadTracker{counts: make(map[ConversationRef]int)}
}

func (u *UnreadTracker) Increment(ref ConversationRef) int {
	if ref.IsZero() {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.counts[ref]++
	return u.counts[ref]
}

// Clear drops the count for a conversation, called when it is opened.
func (u *UnreadTracker) Clear(ref ConversationRef) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.counts, ref)
}

func (u *UnreadTracker) Count(ref ConversationRef) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.counts[ref]
}

func (u *UnreadTracker) Total() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	total := 0
	for _, n := range u.counts {
		total += n
	}
	return total
}
