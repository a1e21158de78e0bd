package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codemates/mates"
	"github.com/codemates/mates/media"
)

// Message is immutable once persisted; there is no edit path. Stored means
// delivered: the realtime push that may follow is an optimization only.
type Message struct {
	ID         string        `json:"id"`
	SenderID   string        `json:"sender"`
	ReceiverID string        `json:"receiver"`
	Text       string        `json:"text"`
	Media      media.BlobRef `json:"media"`
	MediaType  string        `json:"mediaType"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// CreateMessage appends a message record, assigning id and timestamp.
func (s *Store) CreateMessage(ctx context.Context, m *Message) error {
	if strings.TrimSpace(m.Text) == "" && m.Media.IsZero() {
		return fmt.Errorf("%w: message needs text or media", mates.ErrValidationFailed)
	}
	if m.MediaType == "" {
		m.MediaType = media.KindText
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, text, media_url, media_key, media_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SenderID, m.ReceiverID, m.Text, m.Media.URL, m.Media.StorageKey,
		m.MediaType, formatTime(m.CreatedAt))
	return err
}

// Conversation returns the full message history between two identities, both
// directions, oldest first.
func (s *Store) Conversation(ctx context.Context, a, b string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, receiver_id, text, media_url, media_key, media_type, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at`, a, b, b, a)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		var createdAt string
		err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text,
			&m.Media.URL, &m.Media.StorageKey, &m.MediaType, &createdAt)
		if err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
