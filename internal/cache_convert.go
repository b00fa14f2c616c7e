package internal

import "nexuschat/internal/storage"

// Conversions between the wire-facing types and the storage rows. The cache
// keeps only what offline rendering needs, so the mapping is lossy: a
// rehydrated direct message carries the conversation's contact as its
// recipient rather than the original populated pair.

func messageToCache(msg Message) storage.CachedMessage {
	return storage.CachedMessage{
		ID:          msg.ID,
		SenderID:    msg.Senders.ID,
		MessageType: msg.MessageType,
		Content:     msg.Content,
		FileURL:     msg.FileURL,
		Timestamp:   msg.Timestamp,
	}
}

func messagesToCache(messages []Message) []storage.CachedMessage {
	cached := make([]storage.CachedMessage, 0, len(messages))
	for _, msg := range messages {
		cached = append(cached, messageToCache(msg))
	}
	return cached
}

func messagesFromCache(ref ConversationRef, cached []storage.CachedMessage) []Message {
	messages := make([]Message, 0, len(cached))
	for _, row := range cached {
		msg := Message{
			ID:          row.ID,
			Senders:     UserRef{ID: row.SenderID},
			MessageType: row.MessageType,
			Content:     row.Content,
			FileURL:     row.FileURL,
			Timestamp:   row.Timestamp,
		}
		switch ref.Kind {
		case KindChannel:
			msg.ChannelID = ref.ID
		case KindContact:
			if row.SenderID != ref.ID {
				msg.Recipient = UserRef{ID: ref.ID}
			}
		}
		messages = append(messages, msg)
	}
	return messages
}

func contactsToCache(contacts []UserRef) []storage.CachedContact {
	cached := make([]storage.CachedContact, 0, len(contacts))
	for _, contact := range contacts {
		cached = append(cached, storage.CachedContact{
			ID:             contact.ID,
			Name:           contact.Name,
			ProfilePicture: contact.ProfilePicture,
		})
	}
	return cached
}

func contactsFromCache(cached []storage.CachedContact) []UserRef {
	contacts := make([]UserRef, 0, len(cached))
	for _, row := range cached {
		contacts = append(contacts, UserRef{
			ID:             row.ID,
			Name:           row.Name,
			ProfilePicture: row.ProfilePicture,
		})
	}
	return contacts
}

func channelsToCache(channels []ChannelEntry) []storage.CachedChannel {
	cached := make([]storage.CachedChannel, 0, len(channels))
	for _, channel := range channels {
		cached = append(cached, storage.CachedChannel{ID: channel.ID, Name: channel.Name})
	}
	return cached
}

func channelsFromCache(cached []storage.CachedChannel) []ChannelEntry {
	channels := make([]ChannelEntry, 0, len(cached))
	for _, row := range cached {
		channels = append(channels, ChannelEntry{ID: row.ID, Name: row.Name})
	}
	return channels
}
