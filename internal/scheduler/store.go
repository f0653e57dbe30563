package scheduler

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Store provides durable Conversation persistence across restarts. It is
// optional: the Scheduler always keeps Conversations in memory and only
// consults a Store when one is configured.
type Store interface {
	Load(chatID string) (*Conversation, bool, error)
	LoadAll() (map[string]*Conversation, error)
	Save(c *Conversation) error
	Close() error
}

// SQLiteStore persists Conversations as JSON blobs keyed by chat_id in a
// single table, using the pure Go modernc.org/sqlite driver so the binary
// stays CGo-free.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path
// and ensures its schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS conversations (
		chat_id TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

type conversationRow struct {
	ChatID          string                  `json:"chat_id"`
	Messages        json.RawMessage         `json:"messages"`
	MessageIDs      []string                `json:"message_ids"`
	TotalTokens     int                     `json:"total_tokens"`
	PreviousSummary string                  `json:"previous_summary"`
}

// Load fetches one conversation by chat_id.
func (s *SQLiteStore) Load(chatID string) (*Conversation, bool, error) {
	row := s.db.QueryRow(`SELECT data FROM conversations WHERE chat_id = ?`, chatID)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load conversation %s: %w", chatID, err)
	}
	c, err := decodeConversation(data)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// LoadAll loads every persisted conversation, used to warm the in-memory
// map on startup.
func (s *SQLiteStore) LoadAll() (map[string]*Conversation, error) {
	rows, err := s.db.Query(`SELECT data FROM conversations`)
	if err != nil {
		return nil, fmt.Errorf("load all conversations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Conversation)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		c, err := decodeConversation(data)
		if err != nil {
			return nil, err
		}
		out[c.ChatID] = c
	}
	return out, rows.Err()
}

// Save upserts c.
func (s *SQLiteStore) Save(c *Conversation) error {
	data, err := encodeConversation(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO conversations (chat_id, data) VALUES (?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET data = excluded.data`, c.ChatID, data)
	if err != nil {
		return fmt.Errorf("save conversation %s: %w", c.ChatID, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeConversation(c *Conversation) (string, error) {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return "", fmt.Errorf("marshal conversation messages: %w", err)
	}
	ids := make([]string, 0, len(c.MessageIDs))
	for id := range c.MessageIDs {
		ids = append(ids, id)
	}
	row := conversationRow{
		ChatID:          c.ChatID,
		Messages:        messages,
		MessageIDs:      ids,
		TotalTokens:     c.TotalTokens,
		PreviousSummary: c.PreviousSummary,
	}
	data, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("marshal conversation row: %w", err)
	}
	return string(data), nil
}

func decodeConversation(data string) (*Conversation, error) {
	var row conversationRow
	if err := json.Unmarshal([]byte(data), &row); err != nil {
		return nil, fmt.Errorf("unmarshal conversation row: %w", err)
	}
	c := NewConversation(row.ChatID)
	c.TotalTokens = row.TotalTokens
	c.PreviousSummary = row.PreviousSummary
	for _, id := range row.MessageIDs {
		c.MarkSeen(id)
	}
	if len(row.Messages) > 0 {
		if err := json.Unmarshal(row.Messages, &c.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal conversation messages: %w", err)
		}
	}
	return c, nil
}
