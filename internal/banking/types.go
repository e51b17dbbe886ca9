// Package banking is the Open Banking account and payment facade. It
// serves account information from the gateway's own store and delegates
// payment initiation to the routing engine.
package banking

import (
	"errors"
	"time"
)

// MaxPageSize is the largest transaction page a caller may request.
const MaxPageSize = 1000

var (
	// ErrPageSizeExceeded is returned before any query runs when a
	// caller asks for more than MaxPageSize rows.
	ErrPageSizeExceeded = errors.New("page size exceeds maximum")

	// ErrNotAccountOwner is returned when the requested account does
	// not belong to the authenticated beneficiary.
	ErrNotAccountOwner = errors.New("account does not belong to beneficiary")

	// ErrAccountClosed is returned for operations on non-open accounts.
	ErrAccountClosed = errors.New("account is not open")
)

// AccountStatus enumerates account lifecycle states.
type AccountStatus string

const (
	AccountOpen   AccountStatus = "open"
	AccountClosed AccountStatus = "closed"
)

// Account is an Open Banking account record.
type Account struct {
	ID            string        `json:"accountId"`
	BeneficiaryID string        `json:"beneficiaryId"`
	ParticipantID string        `json:"participantId"`
	Name          string        `json:"displayName"`
	ProductType   string        `json:"productType"`
	Currency      string        `json:"currency"`
	Status        AccountStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// Balance is one balance line for an account.
type Balance struct {
	AccountID string    `json:"accountId"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Balance types.
const (
	BalanceAvailable = "available"
	BalanceCurrent   = "current"
)

// Transaction is one booked account transaction.
type Transaction struct {
	ID          string    `json:"transactionId"`
	AccountID   string    `json:"accountId"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	CreditDebit string    `json:"creditDebitIndicator"`
	Description string    `json:"description,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	BookingDate time.Time `json:"bookingDate"`
}

// Payee is a saved payment destination for an account.
type Payee struct {
	ID            string    `json:"payeeId"`
	AccountID     string    `json:"accountId"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"accountNumber"`
	ParticipantID string    `json:"participantId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TransactionQuery bounds a transaction listing.
type TransactionQuery struct {
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// PaymentType enumerates supported domestic payment rails.
type PaymentType string

const (
	PaymentOnUs        PaymentType = "on-us"
	PaymentEFTEnhanced PaymentType = "eft-enhanced"
	PaymentEFTNRTC     PaymentType = "eft-nrtc"
)

// ValidPaymentType reports whether t is a supported rail.
func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentOnUs, PaymentEFTEnhanced, PaymentEFTNRTC:
		return true
	}
	return false
}
