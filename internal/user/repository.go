package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hearth/infrastructure"
)

// Repository is the external user store consumed by the realtime gateway.
//
// SetPresence is best-effort write-through: callers fire it from the realtime
// path and only log failures, so implementations must tolerate concurrent
// writers and must not be relied on for strong consistency.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error

	SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error

	// DeviceTokens returns the registered push delivery targets for the
	// given users. Users without a registered device are skipped.
	DeviceTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error)

	// Emails returns the notification email addresses for the given users.
	Emails(ctx context.Context, userIDs []uuid.UUID) ([]string, error)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (r *PostgresStorage) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u := &User{}
	var lastSeen sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, display_name, avatar_url, is_online, last_seen, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL,
			&u.Online, &lastSeen, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, infrastructure.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastSeen.Valid {
		u.LastSeen = &lastSeen.Time
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT circle_id FROM circle_members WHERE user_id = $1 ORDER BY joined_at", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var circleID string
		if err := rows.Scan(&circleID); err != nil {
			return nil, err
		}
		u.CircleIDs = append(u.CircleIDs, circleID)
	}
	return u, rows.Err()
}

func (r *PostgresStorage) FindByEmail(ctx context.Context, email string) (*User, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, infrastructure.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *PostgresStorage) Create(ctx context.Context, u *User) error {
	return infrastructure.WithTransaction(r.db, ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO users (id, email, password_hash, display_name, avatar_url, is_online, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, false, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.DisplayName, u.AvatarURL, u.CreatedAt, u.UpdatedAt)
		if isUniqueViolation(err) {
			return infrastructure.ErrUserAlreadyExists
		}
		if err != nil {
			return err
		}
		for _, circleID := range u.CircleIDs {
			if _, err := tx.Exec(
				"INSERT INTO circle_members (circle_id, user_id, joined_at) VALUES ($1, $2, $3)",
				circleID, u.ID, u.CreatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresStorage) SetPresence(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_online = $1, last_seen = $2 WHERE id = $3", online, lastSeen, id)
	return err
}

func (r *PostgresStorage) DeviceTokens(ctx context.Context, userIDs []uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT token FROM device_tokens WHERE user_id = ANY($1)", pq.Array(uuidStrings(userIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (r *PostgresStorage) Emails(ctx context.Context, userIDs []uuid.UUID) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT email FROM users WHERE id = ANY($1)", pq.Array(uuidStrings(userIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStrings(rows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
