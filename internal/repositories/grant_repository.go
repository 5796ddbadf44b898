package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vidcast/vidcast/internal/auth"
	"github.com/vidcast/vidcast/internal/db"
)

// PostgresGrantStore persists upload grants to PostgreSQL.
type PostgresGrantStore struct {
	pool db.Pool
}

// NewPostgresGrantStore constructs a grant store backed by PostgreSQL.
func NewPostgresGrantStore(pool db.Pool) *PostgresGrantStore {
	return &PostgresGrantStore{pool: pool}
}

// Save stores or replaces a grant record.
func (s *PostgresGrantStore) Save(ctx context.Context, grant auth.Grant) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO upload_grants (token, asset_id, object_key, expires_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (token)
        DO UPDATE SET asset_id = EXCLUDED.asset_id, object_key = EXCLUDED.object_key, expires_at = EXCLUDED.expires_at
    `, grant.Token, grant.AssetID, grant.ObjectKey, grant.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert upload grant: %w", err)
	}

	return nil
}

// Find loads a grant by its access key without consuming it.
func (s *PostgresGrantStore) Find(ctx context.Context, token string) (auth.Grant, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Grant{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT token, asset_id, object_key, expires_at
        FROM upload_grants
        WHERE token = $1
    `, token)

	grant, err := scanGrant(row)
	if err != nil {
		return auth.Grant{}, fmt.Errorf("select upload grant: %w", err)
	}
	return grant, nil
}

// Take deletes the grant and returns it. Concurrent callers race on the
// DELETE so only one of them receives the row.
func (s *PostgresGrantStore) Take(ctx context.Context, token string) (auth.Grant, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return auth.Grant{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        DELETE FROM upload_grants
        WHERE token = $1
        RETURNING token, asset_id, object_key, expires_at
    `, token)

	grant, err := scanGrant(row)
	if err != nil {
		return auth.Grant{}, fmt.Errorf("delete upload grant: %w", err)
	}
	return grant, nil
}

func scanGrant(row pgx.Row) (auth.Grant, error) {
	var grant auth.Grant
	var expiresAt time.Time
	if err := row.Scan(&grant.Token, &grant.AssetID, &grant.ObjectKey, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return auth.Grant{}, auth.ErrGrantNotFound
		}
		return auth.Grant{}, err
	}
	grant.ExpiresAt = expiresAt.UTC()
	return grant, nil
}

var _ auth.GrantStore = (*PostgresGrantStore)(nil)
