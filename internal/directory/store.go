package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ipsgateway/internal/common/database"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ListParticipants returns every registered participant, active or not.
// Filtering by status happens at lookup time so the snapshot reflects
// the full register.
func (s *PostgresStore) ListParticipants(ctx context.Context) ([]Participant, error) {
	query := `
		SELECT participant_id, name, bic, endpoint, status
		FROM participants
		ORDER BY participant_id
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		var endpoint *string
		if err := rows.Scan(&p.ID, &p.Name, &p.BIC, &endpoint, &p.Status); err != nil {
			return nil, err
		}
		if endpoint != nil {
			p.Endpoint = *endpoint
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// UpsertParticipants writes the given participants in one transaction,
// replacing existing rows by participant_id. Readers never observe a
// half-written register.
func (s *PostgresStore) UpsertParticipants(ctx context.Context, participants []Participant) error {
	query := `
		INSERT INTO participants (participant_id, name, bic, endpoint, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (participant_id) DO UPDATE SET
			name = EXCLUDED.name,
			bic = EXCLUDED.bic,
			endpoint = EXCLUDED.endpoint,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, p := range participants {
			var endpoint *string
			if p.Endpoint != "" {
				endpoint = &p.Endpoint
			}
			if _, err := tx.Exec(ctx, query, p.ID, p.Name, p.BIC, endpoint, p.Status, now); err != nil {
				return fmt.Errorf("upserting participant %s: %w", p.ID, err)
			}
		}
		return nil
	})
}
