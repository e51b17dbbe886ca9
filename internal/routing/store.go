package routing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ipsgateway/internal/common/database"
)

// TransactionStore persists routed payment transactions.
type TransactionStore interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, requestID string) (*Transaction, error)
	UpdateStatus(ctx context.Context, requestID string, status Status, reason, reasonCode string, completedAt *time.Time) error
}

// PostgresStore implements TransactionStore using PostgreSQL.
type PostgresStore struct {
	db database.Querier
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(db database.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a new transaction row keyed by request_id. A replayed
// request id surfaces as database.ErrAlreadyExists.
func (s *PostgresStore) Create(ctx context.Context, tx *Transaction) error {
	query := `
		INSERT INTO ips_transactions (
			request_id, payment_id, end_to_end_id, status, status_reason,
			status_reason_code, amount, currency, debtor_account_id,
			debtor_participant, creditor_account_id, creditor_participant,
			payment_type, reference, created_at, updated_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := s.db.Exec(ctx, query,
		tx.RequestID, tx.PaymentID, tx.EndToEndID, tx.Status, nullStr(tx.StatusReason),
		nullStr(tx.StatusReasonCode), tx.Amount, tx.Currency, tx.DebtorAccountID,
		nullStr(tx.DebtorParticipant), tx.CreditorAccountID, nullStr(tx.CreditorParticipant),
		nullStr(tx.PaymentType), nullStr(tx.Reference),
		tx.CreatedAt, tx.UpdatedAt, tx.CompletedAt,
	)
	if database.IsUniqueViolation(err) {
		return database.ErrAlreadyExists
	}
	return err
}

// Get retrieves a transaction by request id. Returns
// database.ErrNotFound when no row exists.
func (s *PostgresStore) Get(ctx context.Context, requestID string) (*Transaction, error) {
	query := `
		SELECT request_id, payment_id, end_to_end_id, status, status_reason,
			   status_reason_code, to_char(amount, 'FM999999999999999990.00'),
			   currency, debtor_account_id, debtor_participant,
			   creditor_account_id, creditor_participant, payment_type,
			   reference, created_at, updated_at, completed_at
		FROM ips_transactions
		WHERE request_id = $1
	`

	row := s.db.QueryRow(ctx, query, requestID)

	var t Transaction
	var reason, reasonCode, debtorPart, participant, paymentType, reference *string
	err := row.Scan(
		&t.RequestID, &t.PaymentID, &t.EndToEndID, &t.Status, &reason,
		&reasonCode, &t.Amount,
		&t.Currency, &t.DebtorAccountID, &debtorPart,
		&t.CreditorAccountID, &participant, &paymentType,
		&reference, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}

	if reason != nil {
		t.StatusReason = *reason
	}
	if reasonCode != nil {
		t.StatusReasonCode = *reasonCode
	}
	if debtorPart != nil {
		t.DebtorParticipant = *debtorPart
	}
	if participant != nil {
		t.CreditorParticipant = *participant
	}
	if paymentType != nil {
		t.PaymentType = *paymentType
	}
	if reference != nil {
		t.Reference = *reference
	}
	return &t, nil
}

// UpdateStatus mutates the single row for requestID.
func (s *PostgresStore) UpdateStatus(ctx context.Context, requestID string, status Status, reason, reasonCode string, completedAt *time.Time) error {
	query := `
		UPDATE ips_transactions SET
			status = $2, status_reason = $3, status_reason_code = $4,
			completed_at = $5, updated_at = $6
		WHERE request_id = $1
	`

	tag, err := s.db.Exec(ctx, query, requestID, status, nullStr(reason), nullStr(reasonCode), completedAt, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
