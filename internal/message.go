package internal

import (
	"encoding/json"
	"fmt"
	"time"
)

// Socket event names. The "recieve" spelling is the backend's wire name and
// must be kept as-is.
const (
	EventReceiveDirect  = "recieveMessage"
	EventReceiveChannel = "recieve-channel-message"
	EventSendDirect     = "sendMessage"
	EventSendChannel    = "send-channel-message"
)

const (
	MessageText = "text"
	MessageFile = "file"
)

// UserRef is the populated sender/recipient sub-object the backend attaches
// to delivered messages.
type UserRef struct {
	ID             string `json:"_id"`
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// ChannelEntry is the lightweight channel identity held in the sidebar list.
type ChannelEntry struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Message mirrors the backend's message document. Exactly one of Content or
// FileURL is set, selected by MessageType.
type Message struct {
	ID          string    `json:"_id"`
	Senders     UserRef   `json:"senders"`
	Recipient   UserRef   `json:"recipient,omitempty"`
	ChannelID   string    `json:"channelId,omitempty"`
	MessageType string    `json:"messageType"`
	Content     string    `json:"content,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Counterpart returns whichever of sender/recipient is not me. Messages we
// sent ourselves come back over the socket too, and the sidebar must bump the
// other participant, never our own entry.
func (m Message) Counterpart(selfID string) UserRef {
	if m.Senders.ID == selfID {
		return m.Recipient
	}
	return m.Senders
}

// Body returns the displayable payload regardless of message type.
func (m Message) Body() string {
	if m.MessageType == MessageFile {
		return m.FileURL
	}
	return m.Content
}

// ConversationKind discriminates direct-message conversations from channels.
type ConversationKind int

const (
	KindNone ConversationKind = iota
	KindContact
	KindChannel
)

func (k ConversationKind) String() string {
	switch k {
	case KindContact:
		return "contact"
	case KindChannel:
		return "channel"
	default:
		return "none"
	}
}

// ConversationRef identifies the currently selected conversation. The zero
// value means no conversation is open.
type ConversationRef struct {
	Kind ConversationKind
	ID   string
}

func ContactRef(userID string) ConversationRef {
	return ConversationRef{Kind: KindContact, ID: userID}
}

func ChannelRef(channelID string) ConversationRef {
	return ConversationRef{Kind: KindChannel, ID: channelID}
}

func (ref ConversationRef) IsZero() bool {
	return ref.Kind == KindNone
}

// Matches reports whether an inbound event belongs to this conversation.
// Direct events match when either end of the message is the selected contact,
// so the active pane picks up our own echoed sends as well.
func (ref ConversationRef) Matches(ev ConversationEvent) bool {
	if ref.Kind != ev.Kind {
		return false
	}
	switch ref.Kind {
	case KindContact:
		return ref.ID == ev.Message.Senders.ID || ref.ID == ev.Message.Recipient.ID
	case KindChannel:
		return ref.ID == ev.Message.ChannelID
	default:
		return false
	}
}

// ConversationEvent is an inbound socket delivery, validated and tagged at
// the connection boundary so downstream code never sniffs payload shapes.
type ConversationEvent struct {
	Kind    ConversationKind
	Message Message
}

// socketEnvelope frames every socket payload as {event, data}.
type socketEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// SendMessagePayload is the outbound shape for direct sends.
type SendMessagePayload struct {
	Senders     string `json:"senders"`
	Content     string `json:"content,omitempty"`
	Recipient   string `json:"recipient"`
	MessageType string `json:"messageType"`
	FileURL     string `json:"fileUrl,omitempty"`
}

// SendChannelMessagePayload is the outbound shape for channel sends.
type SendChannelMessagePayload struct {
	Senders     string `json:"senders"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"messageType"`
	FileURL     string `json:"fileUrl,omitempty"`
	ChannelID   string `json:"channelId"`
}

// ParseConversationEvent decodes a raw socket frame into a tagged event.
// Frames carrying events other than the two delivery events return
// (zero, false, nil) so callers can skip presence pings and the like.
func ParseConversationEvent(frame []byte) (ConversationEvent, bool, error) {
	var env socketEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return ConversationEvent{}, false, fmt.Errorf("socket: bad frame: %w", err)
	}

	var kind ConversationKind
	switch env.Event {
	case EventReceiveDirect:
		kind = KindContact
	case EventReceiveChannel:
		kind = KindChannel
	default:
		return ConversationEvent{}, false, nil
	}

	var msg Message
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return ConversationEvent{}, false, fmt.Errorf("socket: bad %s payload: %w", env.Event, err)
	}

	ev := ConversationEvent{Kind: kind, Message: msg}
	if err := validateEvent(ev); err != nil {
		return ConversationEvent{}, false, err
	}
	return ev, true, nil
}

func validateEvent(ev ConversationEvent) error {
	msg := ev.Message
	if msg.Senders.ID == "" {
		return fmt.Errorf("socket: %s event missing sender id", ev.Kind)
	}
	switch ev.Kind {
	case KindContact:
		if msg.Recipient.ID == "" {
			return fmt.Errorf("socket: direct message %s missing recipient id", msg.ID)
		}
	case KindChannel:
		if msg.ChannelID == "" {
			return fmt.Errorf("socket: channel message %s missing channel id", msg.ID)
		}
	}
	switch msg.MessageType {
	case MessageText:
		if msg.Content == "" {
			return fmt.Errorf("socket: text message %s has no content", msg.ID)
		}
	case MessageFile:
		if msg.FileURL == "" {
			return fmt.Errorf("socket: file message %s has no fileUrl", msg.ID)
		}
	default:
		return fmt.Errorf("socket: message %s has unknown type %q", msg.ID, msg.MessageType)
	}
	return nil
}
