package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"notesd/core"

	_ "modernc.org/sqlite"
)

//go:embed schema/sqlite/schema.sql
var sqliteSchema string

// SQLiteStore persists token bundles and login states across restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(sqliteSchema)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, bundle *core.TokenBundle) error {
	query := `
		INSERT INTO token_bundles (user_id, access_token, refresh_token, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		bundle.UserID,
		bundle.AccessToken,
		bundle.RefreshToken,
		bundle.ExpiresAt.Unix(),
	)

	return err
}

func (s *SQLiteStore) Find(ctx context.Context, userID string) (*core.TokenBundle, error) {
	query := `
		SELECT user_id, access_token, refresh_token, expires_at
		FROM token_bundles
		WHERE user_id = ?
	`

	var bundle core.TokenBundle
	var expiresAt int64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&bundle.UserID,
		&bundle.AccessToken,
		&bundle.RefreshToken,
		&expiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	bundle.ExpiresAt = time.Unix(expiresAt, 0)

	return &bundle, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	query := `DELETE FROM token_bundles WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, query, userID)
	return err
}

func (s *SQLiteStore) SaveState(ctx context.Context, state string, expiresAt time.Time) error {
	query := `INSERT INTO login_states (state, expires_at) VALUES (?, ?)`
	_, err := s.db.ExecContext(ctx, query, state, expiresAt.Unix())
	return err
}

func (s *SQLiteStore) ConsumeState(ctx context.Context, state string) error {
	query := `DELETE FROM login_states WHERE state = ? AND expires_at >= ?`

	result, err := s.db.ExecContext(ctx, query, state, time.Now().Unix())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// The state may exist but be expired; drop it either way.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM login_states WHERE state = ?`, state)
		return core.ErrNotFound
	}

	return nil
}

// DeleteExpiredStates clears abandoned login attempts. Run at startup and
// periodically.
func (s *SQLiteStore) DeleteExpiredStates(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM login_states WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
