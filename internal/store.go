package internal

import "sync"

// ConversationStore holds the selected conversation and its message list.
// The list is append-only in arrival order; past entries are never reordered
// and duplicate ids are not filtered (the backend owns delivery semantics).
type ConversationStore struct {
	mu       sync.Mutex
	active   ConversationRef
	messages []Message
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

// Select replaces the active conversation. Switching to a different identity
// clears the message list; the history fetch repopulates it. Re-selecting
// the same conversation keeps what is already loaded.
func (s *ConversationStore) Select(ref ConversationRef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref != s.active {
		s.messages = nil
	}
	s.active = ref
}

// Active returns the currently selected conversation, or the zero ref when
// no conversation is open.
func (s *ConversationStore) Active() ConversationRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetHistory replaces the list with a fetched history for ref. The history
// is ignored when the selection moved on while the fetch was in flight.
func (s *ConversationStore) SetHistory(ref ConversationRef, messages []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ref != s.active {
		return
	}
	s.messages = append([]Message(nil), messages...)
}

// Append adds one inbound message to the end of the list.
func (s *ConversationStore) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Reset clears the selection and the message list. Used when the chat view
// closes entirely.
func (s *ConversationStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ConversationRef{}
	s.messages = nil
}

// Messages returns a snapshot of the list in arrival order.
func (s *ConversationStore) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
