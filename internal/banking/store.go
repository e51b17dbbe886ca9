package banking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"ipsgateway/internal/common/database"
)

// Store is the account information persistence interface.
type Store interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, accountID string) (*Account, error)
	ListAccounts(ctx context.Context, beneficiaryID string, status *AccountStatus) ([]Account, error)
	UpsertBalance(ctx context.Context, balance *Balance) error
	GetBalances(ctx context.Context, accountID string) ([]Balance, error)
	ListTransactions(ctx context.Context, accountID string, q TransactionQuery) ([]Transaction, int, error)
	ListPayees(ctx context.Context, accountID string) ([]Payee, error)
}

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db database.Querier
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(db database.Querier) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateAccount inserts a new account.
func (s *PostgresStore) CreateAccount(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO open_banking_accounts (
			account_id, beneficiary_id, participant_id, display_name,
			product_type, currency, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		account.ID, account.BeneficiaryID, account.ParticipantID, account.Name,
		account.ProductType, account.Currency, account.Status, account.CreatedAt,
	)
	return err
}

// GetAccount retrieves an account by ID.
func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (*Account, error) {
	query := `
		SELECT account_id, beneficiary_id, participant_id, display_name,
			   product_type, currency, status, created_at
		FROM open_banking_accounts
		WHERE account_id = $1
	`

	var a Account
	err := s.db.QueryRow(ctx, query, accountID).Scan(
		&a.ID, &a.BeneficiaryID, &a.ParticipantID, &a.Name,
		&a.ProductType, &a.Currency, &a.Status, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListAccounts lists a beneficiary's accounts, optionally filtered by
// status.
func (s *PostgresStore) ListAccounts(ctx context.Context, beneficiaryID string, status *AccountStatus) ([]Account, error) {
	query := `
		SELECT account_id, beneficiary_id, participant_id, display_name,
			   product_type, currency, status, created_at
		FROM open_banking_accounts
		WHERE beneficiary_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at
	`

	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}

	rows, err := s.db.Query(ctx, query, beneficiaryID, statusArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []Account{}
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.BeneficiaryID, &a.ParticipantID, &a.Name,
			&a.ProductType, &a.Currency, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// UpsertBalance writes one balance line, replacing any existing line of
// the same type.
func (s *PostgresStore) UpsertBalance(ctx context.Context, balance *Balance) error {
	query := `
		INSERT INTO open_banking_balances (account_id, balance_type, amount, currency, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, balance_type) DO UPDATE SET
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
	`

	if balance.UpdatedAt.IsZero() {
		balance.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, query,
		balance.AccountID, balance.Type, balance.Amount, balance.Currency, balance.UpdatedAt)
	return err
}

// GetBalances returns all balance lines for an account.
func (s *PostgresStore) GetBalances(ctx context.Context, accountID string) ([]Balance, error) {
	query := `
		SELECT account_id, balance_type, to_char(amount, 'FM999999999999999990.00'),
			   currency, updated_at
		FROM open_banking_balances
		WHERE account_id = $1
		ORDER BY balance_type
	`

	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	balances := []Balance{}
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.AccountID, &b.Type, &b.Amount, &b.Currency, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// ListTransactions pages through booked transactions, newest first, and
// returns the total row count for pagination metadata.
func (s *PostgresStore) ListTransactions(ctx context.Context, accountID string, q TransactionQuery) ([]Transaction, int, error) {
	countQuery := `
		SELECT count(*)
		FROM open_banking_transactions
		WHERE account_id = $1
		  AND ($2::timestamptz IS NULL OR booking_date >= $2)
		  AND ($3::timestamptz IS NULL OR booking_date <= $3)
	`

	var total int
	if err := s.db.QueryRow(ctx, countQuery, accountID, q.From, q.To).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT transaction_id, account_id, to_char(amount, 'FM999999999999999990.00'),
			   currency, credit_debit, description, reference, booking_date
		FROM open_banking_transactions
		WHERE account_id = $1
		  AND ($2::timestamptz IS NULL OR booking_date >= $2)
		  AND ($3::timestamptz IS NULL OR booking_date <= $3)
		ORDER BY booking_date DESC
		LIMIT $4 OFFSET $5
	`

	offset := (q.Page - 1) * q.PageSize
	rows, err := s.db.Query(ctx, query, accountID, q.From, q.To, q.PageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txns := []Transaction{}
	for rows.Next() {
		var t Transaction
		var description, reference *string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Currency, &t.CreditDebit,
			&description, &reference, &t.BookingDate); err != nil {
			return nil, 0, err
		}
		if description != nil {
			t.Description = *description
		}
		if reference != nil {
			t.Reference = *reference
		}
		txns = append(txns, t)
	}
	return txns, total, rows.Err()
}

// ListPayees returns an account's saved payees. Payees whose owning
// beneficiary is marked deceased are excluded in the query itself so no
// caller can forget the filter.
func (s *PostgresStore) ListPayees(ctx context.Context, accountID string) ([]Payee, error) {
	query := `
		SELECT payee_id, account_id, name, account_number, participant_id, created_at
		FROM open_banking_payees
		WHERE account_id = $1 AND NOT beneficiary_deceased
		ORDER BY name
	`

	rows, err := s.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payees := []Payee{}
	for rows.Next() {
		var p Payee
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Name, &p.AccountNumber, &p.ParticipantID, &p.CreatedAt); err != nil {
			return nil, err
		}
		payees = append(payees, p)
	}
	return payees, rows.Err()
}
