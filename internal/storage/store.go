package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Cache wraps the local SQLite handle used for offline state: the saved
// session, per-conversation message history, and the sidebar seed.
type Cache struct {
	db *sql.DB
}

// CachedMessage is the storage-facing message row. The internal package
// converts to and from its own wire type.
type CachedMessage struct {
	ID          string
	SenderID    string
	MessageType string
	Content     string
	FileURL     string
	Timestamp   time.Time
}

// CachedContact is a sidebar contact row in recency order.
type CachedContact struct {
	ID             string
	Name           string
	ProfilePicture string
}

// CachedChannel is a sidebar channel row in recency order.
type CachedChannel struct {
	ID   string
	Name string
}

// ErrNoSession is returned when no session has been saved locally.
var ErrNoSession = errors.New("no saved session")

// Open initializes the SQLite cache at the provided path. Call Close when done.
func Open(path string) (*Cache, error) {
	if path == "" {
		path = "nexuschat.db"
	}
	db, err := sql.Open("sqlite", buildDSN(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying DB connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d&_pragma=foreign_keys=ON", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (c *Cache) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			user_id TEXT NOT NULL,
			token TEXT NOT NULL,
			saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			conversation_kind INTEGER NOT NULL,
			conversation_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			message_type TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			file_url TEXT NOT NULL DEFAULT '',
			timestamp DATETIME NOT NULL,
			seq INTEGER PRIMARY KEY AUTOINCREMENT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_kind, conversation_id, seq);`,
		`CREATE TABLE IF NOT EXISTS contacts (
			user_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			profile_picture TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS channels (
			channel_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL
		);`,
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaveSession stores the single local session, replacing any previous one.
func (c *Cache) SaveSession(ctx context.Context, userID, token string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO session(id, user_id, token, saved_at) VALUES(1, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id, token=excluded.token, saved_at=excluded.saved_at`,
		userID, token)
	return err
}

// LoadSession returns the saved session or ErrNoSession.
func (c *Cache) LoadSession(ctx context.Context) (userID, token string, err error) {
	row := c.db.QueryRowContext(ctx, `SELECT user_id, token FROM session WHERE id = 1`)
	if err = row.Scan(&userID, &token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNoSession
		}
		return "", "", err
	}
	return userID, token, nil
}

// ClearSession removes the saved session (used for logout).
func (c *Cache) ClearSession(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`)
	return err
}

// ReplaceMessages swaps the cached history for one conversation.
func (c *Cache) ReplaceMessages(ctx context.Context, kind int, conversationID string, messages []CachedMessage) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_kind=? AND conversation_id=?`,
		kind, conversationID); err != nil {
		return err
	}
	for _, msg := range messages {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO messages(conversation_kind, conversation_id, message_id, sender_id, message_type, content, file_url, timestamp)
			 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
			kind, conversationID, msg.ID, msg.SenderID, msg.MessageType, msg.Content, msg.FileURL, msg.Timestamp.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// AppendMessage adds one delivered message to a conversation's cache.
func (c *Cache) AppendMessage(ctx context.Context, kind int, conversationID string, msg CachedMessage) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO messages(conversation_kind, conversation_id, message_id, sender_id, message_type, content, file_url, timestamp)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		kind, conversationID, msg.ID, msg.SenderID, msg.MessageType, msg.Content, msg.FileURL, msg.Timestamp.UTC())
	return err
}

// ListMessages returns the cached history for a conversation in insertion
// order.
func (c *Cache) ListMessages(ctx context.Context, kind int, conversationID string) ([]CachedMessage, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT message_id, sender_id, message_type, content, file_url, timestamp
		FROM messages
		WHERE conversation_kind = ? AND conversation_id = ?
		ORDER BY seq ASC
	`, kind, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []CachedMessage
	for rows.Next() {
		var msg CachedMessage
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.MessageType, &msg.Content, &msg.FileURL, &msg.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ReplaceContacts swaps the cached sidebar contacts, position = list index.
func (c *Cache) ReplaceContacts(ctx context.Context, contacts []CachedContact) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM contacts`); err != nil {
		return err
	}
	for i, contact := range contacts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO contacts(user_id, name, profile_picture, position) VALUES(?, ?, ?, ?)`,
			contact.ID, contact.Name, contact.ProfilePicture, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListContacts returns cached contacts in recency order.
func (c *Cache) ListContacts(ctx context.Context) ([]CachedContact, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT user_id, name, profile_picture FROM contacts ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []CachedContact
	for rows.Next() {
		var contact CachedContact
		if err := rows.Scan(&contact.ID, &contact.Name, &contact.ProfilePicture); err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

// ReplaceChannels swaps the cached sidebar channels, position = list index.
func (c *Cache) ReplaceChannels(ctx context.Context, channels []CachedChannel) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM channels`); err != nil {
		return err
	}
	for i, channel := range channels {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO channels(channel_id, name, position) VALUES(?, ?, ?)`,
			channel.ID, channel.Name, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListChannels returns cached channels in recency order.
func (c *Cache) ListChannels(ctx context.Context) ([]CachedChannel, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT channel_id, name FROM channels ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []CachedChannel
	for rows.Next() {
		var channel CachedChannel
		if err := rows.Scan(&channel.ID, &channel.Name); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}
