package chat

import (
	"context"
	"database/sql"
)

// Repository is the external message store.
//
// The realtime path treats SaveMessage as fire-and-forget: a message can be
// delivered to room members and still fail to persist. Failures are logged by
// the caller and not retried.
type Repository interface {
	SaveMessage(ctx context.Context, m *Message) error
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (r *PostgresStorage) SaveMessage(ctx context.Context, m *Message) error {
	metadata := []byte("null")
	if len(m.Metadata) > 0 {
		metadata = m.Metadata
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, sender_id, sender_name, sender_avatar, content, kind, metadata, created_at, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.RoomID, m.SenderID, m.SenderName, m.SenderAvatar,
		m.Content, m.Kind, metadata, m.CreatedAt, m.Read)
	return err
}
