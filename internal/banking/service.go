package banking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"ipsgateway/internal/common/money"
	"ipsgateway/internal/routing"
)

// Router is the slice of the routing engine the facade needs.
type Router interface {
	SendPayment(ctx context.Context, req routing.PaymentRequest) (routing.PaymentOutcome, error)
	RecordRejection(ctx context.Context, req routing.PaymentRequest, reason string) (routing.PaymentOutcome, error)
	GetPaymentStatus(ctx context.Context, requestID string) (*routing.Transaction, error)
}

// Service provides Open Banking account information and payment
// initiation.
type Service struct {
	store  Store
	router Router
	logger *slog.Logger
}

// NewService creates a banking service.
func NewService(store Store, router Router, logger *slog.Logger) *Service {
	return &Service{store: store, router: router, logger: logger}
}

// ListAccounts returns the beneficiary's accounts, optionally filtered
// by status.
func (s *Service) ListAccounts(ctx context.Context, beneficiaryID string, status *AccountStatus) ([]Account, error) {
	return s.store.ListAccounts(ctx, beneficiaryID, status)
}

// GetAccount retrieves one account scoped to the beneficiary.
func (s *Service) GetAccount(ctx context.Context, beneficiaryID, accountID string) (*Account, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.BeneficiaryID != beneficiaryID {
		return nil, ErrNotAccountOwner
	}
	return account, nil
}

// GetBalances returns the balance lines for an account the beneficiary
// owns.
func (s *Service) GetBalances(ctx context.Context, beneficiaryID, accountID string) ([]Balance, error) {
	if _, err := s.GetAccount(ctx, beneficiaryID, accountID); err != nil {
		return nil, err
	}
	return s.store.GetBalances(ctx, accountID)
}

// ListTransactions pages through an account's transactions. An
// oversized page is rejected before any query runs.
func (s *Service) ListTransactions(ctx context.Context, beneficiaryID, accountID string, q TransactionQuery) ([]Transaction, int, error) {
	if q.PageSize > MaxPageSize {
		return nil, 0, ErrPageSizeExceeded
	}
	if q.PageSize <= 0 {
		q.PageSize = 25
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	if _, err := s.GetAccount(ctx, beneficiaryID, accountID); err != nil {
		return nil, 0, err
	}
	return s.store.ListTransactions(ctx, accountID, q)
}

// ListPayees returns the account's saved payees.
func (s *Service) ListPayees(ctx context.Context, beneficiaryID, accountID string) ([]Payee, error) {
	if _, err := s.GetAccount(ctx, beneficiaryID, accountID); err != nil {
		return nil, err
	}
	return s.store.ListPayees(ctx, accountID)
}

// MakePaymentRequest is a payment initiation from the API boundary.
// Amount format and payment type are validated at the boundary; the
// service enforces ownership, account state, and funds.
type MakePaymentRequest struct {
	RequestID           string
	BeneficiaryID       string
	ParticipantID       string
	AccountID           string
	Amount              string
	Currency            string
	PaymentType         PaymentType
	CreditorName        string
	CreditorAccountID   string
	CreditorParticipant string
	Reference           string
}

// MakePayment initiates a payment from the given account. Business
// failures against the debtor account return errors; insufficient
// funds is a recorded rejected payment, not an error, because the
// scheme expects an auditable outcome for it.
func (s *Service) MakePayment(ctx context.Context, req MakePaymentRequest) (routing.PaymentOutcome, error) {
	if req.RequestID == "" {
		req.RequestID = ulid.Make().String()
	}

	account, err := s.store.GetAccount(ctx, req.AccountID)
	if err != nil {
		return routing.PaymentOutcome{}, err
	}
	if account.BeneficiaryID != req.BeneficiaryID {
		return routing.PaymentOutcome{}, ErrNotAccountOwner
	}
	if account.Status != AccountOpen {
		return routing.PaymentOutcome{}, ErrAccountClosed
	}

	if req.Currency == "" {
		req.Currency = account.Currency
	}

	routeReq := routing.PaymentRequest{
		RequestID:           req.RequestID,
		DebtorName:          account.Name,
		DebtorAccountID:     account.ID,
		DebtorParticipant:   req.ParticipantID,
		CreditorName:        req.CreditorName,
		CreditorAccountID:   req.CreditorAccountID,
		CreditorParticipant: req.CreditorParticipant,
		Amount:              req.Amount,
		Currency:            req.Currency,
		PaymentType:         string(req.PaymentType),
		Reference:           req.Reference,
	}

	amount, err := money.Parse(req.Amount)
	if err == nil && amount.IsPositive() {
		ok, err := s.hasFunds(ctx, account.ID, amount)
		if err != nil {
			return routing.PaymentOutcome{}, fmt.Errorf("checking funds for %s: %w", account.ID, err)
		}
		if !ok {
			s.logger.Info("payment rejected for insufficient funds",
				"request_id", req.RequestID, "account_id", account.ID, "amount", req.Amount)
			return s.router.RecordRejection(ctx, routeReq, "Insufficient funds")
		}
	}

	return s.router.SendPayment(ctx, routeReq)
}

// hasFunds compares the requested amount against the available balance
// line, falling back to current when no available line exists. An
// account with no balance lines at all cannot fund anything.
func (s *Service) hasFunds(ctx context.Context, accountID string, amount money.Amount) (bool, error) {
	balances, err := s.store.GetBalances(ctx, accountID)
	if err != nil {
		return false, err
	}

	var line *Balance
	for i := range balances {
		if balances[i].Type == BalanceAvailable {
			line = &balances[i]
			break
		}
		if balances[i].Type == BalanceCurrent && line == nil {
			line = &balances[i]
		}
	}
	if line == nil {
		return false, nil
	}

	balance, err := money.ParseLoose(line.Amount)
	if err != nil {
		return false, fmt.Errorf("stored balance unparseable: %w", err)
	}
	return balance.Cmp(amount) >= 0, nil
}

// GetPayment returns a payment scoped to the requesting participant.
// Unknown ids and payments initiated by other participants both come
// back nil.
func (s *Service) GetPayment(ctx context.Context, paymentID, participantID string) (*routing.Transaction, error) {
	tx, err := s.router.GetPaymentStatus(ctx, paymentID)
	if err != nil || tx == nil {
		return nil, err
	}
	if tx.DebtorParticipant != "" && !strings.EqualFold(tx.DebtorParticipant, participantID) {
		return nil, nil
	}
	return tx, nil
}

// CreateAccount provisions an account during beneficiary onboarding.
func (s *Service) CreateAccount(ctx context.Context, beneficiaryID, participantID, name, productType, currency string) (*Account, error) {
	account := &Account{
		ID:            ulid.Make().String(),
		BeneficiaryID: beneficiaryID,
		ParticipantID: participantID,
		Name:          name,
		ProductType:   productType,
		Currency:      currency,
		Status:        AccountOpen,
		CreatedAt:     time.Now().UTC(),
	}
	if account.Currency == "" {
		account.Currency = string(money.NAD)
	}

	if err := s.store.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		"account_id", account.ID,
		"beneficiary_id", beneficiaryID,
		"participant_id", participantID,
	)
	return account, nil
}

// UpsertBalance writes a balance line for an account.
func (s *Service) UpsertBalance(ctx context.Context, accountID, balanceType, amount, currency string) error {
	if _, err := money.ParseLoose(amount); err != nil {
		return fmt.Errorf("invalid balance amount %q: %w", amount, err)
	}
	return s.store.UpsertBalance(ctx, &Balance{
		AccountID: accountID,
		Type:      balanceType,
		Amount:    amount,
		Currency:  currency,
		UpdatedAt: time.Now().UTC(),
	})
}
