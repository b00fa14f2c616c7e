package internal

import "sync"

// RecencyList keeps the sidebar's contacts and channels ordered
// most-recently-active first. Position encodes recency; there is no
// secondary sort key, the latest bump always wins the head slot.
type RecencyList struct {
	mu       sync.Mutex
	contacts []UserRef
	channels []ChannelEntry
}

func NewRecencyList() *RecencyList {
	return &RecencyList{}
}

// SetContacts seeds the DM contact list from the backend, already ordered.
func (l *RecencyList) SetContacts(contacts []UserRef) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contacts = append([]UserRef(nil), contacts...)
}

// SetChannels seeds the channel list from the backend.
func (l *RecencyList) SetChannels(channels []ChannelEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append([]ChannelEntry(nil), channels...)
}

// BumpContact moves the contact to the head of the list. A contact we have
// never messaged before is inserted at the head using the identity carried
// in the event payload; known contacts keep their stored display metadata.
func (l *RecencyList) BumpContact(contact UserRef) {
	if contact.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.contacts {
		if existing.ID == contact.ID {
			l.contacts = append(l.contacts[:i], l.contacts[i+1:]...)
			l.contacts = append([]UserRef{existing}, l.contacts...)
			return
		}
	}
	l.contacts = append([]UserRef{contact}, l.contacts...)
}

// BumpChannel moves a known channel to the head of the list. Channels we are
// not a member of never appear in an event, so unknown ids are ignored.
func (l *RecencyList) BumpChannel(channelID string) {
	if channelID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.channels {
		if existing.ID == channelID {
			l.channels = append(l.channels[:i], l.channels[i+1:]...)
			l.channels = append([]ChannelEntry{existing}, l.channels...)
			return
		}
	}
}

// AddChannel inserts a freshly created channel at the head.
func (l *RecencyList) AddChannel(channel ChannelEntry) {
	if channel.ID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels = append([]ChannelEntry{channel}, l.channels...)
}

// Contacts returns a snapshot in recency order.
func (l *RecencyList) Contacts() []UserRef {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]UserRef(nil), l.contacts...)
}

// Channels returns a snapshot in recency order.
func (l *RecencyList) Channels() []ChannelEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ChannelEntry(nil), l.channels...)
}
