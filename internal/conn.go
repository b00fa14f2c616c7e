package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// Session is the authenticated identity the socket is scoped to. Created on
// login, destroyed on logout; the socket never outlives it.
type Session struct {
	UserID    string
	AuthToken string
}

// ConnState tracks the socket lifecycle. There is no automatic transition out
// of StateConnectedError: a failed socket stays dead until the session ends.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateConnectedError
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateConnectedError:
		return "connection error"
	default:
		return "disconnected"
	}
}

var errNotConnected = errors.New("socket not connected")

// Conn owns the one realtime connection for a session. It is an explicit
// handle injected into whoever needs to emit or consume events; inbound
// frames are decoded on a single reader goroutine and delivered in arrival
// order on the Events channel.
type Conn struct {
	socketURL string

	mu      sync.Mutex
	ws      *websocket.Conn
	state   ConnState
	lastErr error
	closing bool

	events chan ConversationEvent
}

func NewConn(socketURL string) *Conn {
	return &Conn{socketURL: socketURL}
}

// Connect dials the socket endpoint with the session's user id in the
// handshake query so the server can route deliveries. A dial failure is
// logged and leaves the connection in the dead error state; nothing retries
// automatically.
func (c *Conn) Connect(session Session) error {
	c.mu.Lock()
	if c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return fmt.Errorf("socket: already %s", c.state)
	}
	c.state = StateConnecting
	c.closing = false
	c.mu.Unlock()

	dialURL, err := buildSocketURL(c.socketURL, session.UserID)
	if err != nil {
		c.fail(err)
		return err
	}
	ws, _, err := websocket.DefaultDialer.Dial(dialURL, http.Header{})
	if err != nil {
		c.fail(err)
		return err
	}

	c.mu.Lock()
	// a Disconnect that raced the dial wins: the session is over, so the
	// fresh socket is closed instead of adopted
	if c.closing {
		c.state = StateDisconnected
		c.mu.Unlock()
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = ws.Close()
		return errNotConnected
	}
	c.ws = ws
	c.state = StateConnected
	c.lastErr = nil
	c.events = make(chan ConversationEvent, 64)
	c.mu.Unlock()

	go c.readLoop(ws, c.events)
	return nil
}

// Disconnect tears the socket down. Must be called on session end so the
// connection is not leaked; safe to call when already disconnected.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.state = StateDisconnected
	c.closing = true
	c.mu.Unlock()

	if ws != nil {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = ws.Close()
	}
}

// Emit writes one structured event frame. The mutex serializes writers; the
// reader goroutine never writes, so emit and receive cannot race.
func (c *Conn) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(socketEnvelope{Event: event, Data: data})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil || c.state != StateConnected {
		return errNotConnected
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Events returns the ordered inbound delivery channel for the current
// connection. The channel is closed when the socket dies or disconnects.
func (c *Conn) Events() <-chan ConversationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that killed the connection, if any.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Conn) fail(err error) {
	log.Printf("socket: connection error: %v", err)
	c.mu.Lock()
	c.state = StateConnectedError
	c.lastErr = err
	c.mu.Unlock()
}

// readLoop pulls frames off the wire one at a time. Undecodable frames are
// logged and skipped; a read error ends the loop and closes the event
// channel so the consumer can observe the death.
func (c *Conn) readLoop(ws *websocket.Conn, events chan<- ConversationEvent) {
	defer close(events)
	for {
		messageType, frame, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			expected := c.closing
			c.mu.Unlock()
			if !expected {
				c.fail(err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		ev, ok, err := ParseConversationEvent(frame)
		if err != nil {
			log.Printf("socket: dropping frame: %v", err)
			continue
		}
		if !ok {
			continue
		}
		events <- ev
	}
}

func buildSocketURL(base string, userID string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("invalid scheme for websocket: %s", parsed.Scheme)
	}
	query := parsed.Query()
	query.Set("userId", userID)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
