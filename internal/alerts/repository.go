package alerts

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"hearth/infrastructure"
)

// Repository is the external alert store.
//
// SaveAlert failures do not suppress the realtime broadcast of the alert; the
// caller logs the error and carries on (availability over durability).
type Repository interface {
	SaveAlert(ctx context.Context, a *Alert) error
	UpdateAlert(ctx context.Context, id uuid.UUID, resolverID uuid.UUID, resolvedAt time.Time) error
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (r *PostgresStorage) SaveAlert(ctx context.Context, a *Alert) error {
	return infrastructure.WithTransaction(r.db, ctx, func(tx *sql.Tx) error {
		var lat, lng sql.NullFloat64
		if a.Location != nil {
			lat = sql.NullFloat64{Float64: a.Location.Lat, Valid: true}
			lng = sql.NullFloat64{Float64: a.Location.Lng, Valid: true}
		}
		_, err := tx.Exec(`
			INSERT INTO alerts (id, sender_id, sender_name, kind, message, lat, lng, created_at, resolved)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)`,
			a.ID, a.SenderID, a.SenderName, a.Kind, a.Message, lat, lng, a.CreatedAt)
		if err != nil {
			return err
		}
		for i, responderID := range a.ResponderIDs {
			if _, err := tx.Exec(
				"INSERT INTO alert_responders (alert_id, user_id, position) VALUES ($1, $2, $3)",
				a.ID, responderID, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresStorage) UpdateAlert(ctx context.Context, id uuid.UUID, resolverID uuid.UUID, resolvedAt time.Time) error {
	return infrastructure.WithTransaction(r.db, ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(`
			UPDATE alerts SET resolved = true, resolved_by = $1, resolved_at = $2 WHERE id = $3`,
			resolverID, resolvedAt, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return infrastructure.ErrNotFound
		}
		_, err = tx.Exec(`
			INSERT INTO alert_responders (alert_id, user_id, position)
			VALUES ($1, $2, (SELECT COALESCE(MAX(position), -1) + 1 FROM alert_responders WHERE alert_id = $1))`,
			id, resolverID)
		return err
	})
}
