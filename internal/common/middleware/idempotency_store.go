package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ipsgateway/internal/common/database"
)

// PostgresIdempotencyStore persists cached boundary responses in the
// idempotency_keys table. Expired rows are filtered on read and
// overwritten on the next write for the same key.
type PostgresIdempotencyStore struct {
	db database.Querier
}

// NewPostgresIdempotencyStore creates a new store.
func NewPostgresIdempotencyStore(db database.Querier) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db}
}

// Get returns the cached response for key, if any unexpired entry
// exists.
func (s *PostgresIdempotencyStore) Get(ctx context.Context, key string) ([]byte, int, bool, error) {
	query := `
		SELECT response, status
		FROM idempotency_keys
		WHERE idempotency_key = $1 AND expires_at > now()
	`

	var response []byte
	var status int
	err := s.db.QueryRow(ctx, query, key).Scan(&response, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, false, nil
		}
		return nil, 0, false, err
	}
	return response, status, true, nil
}

// Set caches a response under key for ttl.
func (s *PostgresIdempotencyStore) Set(ctx context.Context, key string, status int, response []byte, ttl time.Duration) error {
	query := `
		INSERT INTO idempotency_keys (idempotency_key, status, response, created_at, expires_at)
		VALUES ($1, $2, $3, now(), $4)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			status = EXCLUDED.status,
			response = EXCLUDED.response,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.db.Exec(ctx, query, key, status, response, time.Now().UTC().Add(ttl))
	return err
}
