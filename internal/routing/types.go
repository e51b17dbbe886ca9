// Package routing implements the instant-payment routing engine: it
// builds ISO 20022 messages for outbound payments, delivers them to the
// scheme or directly to participants, and tracks transaction state.
package routing

import (
	"time"

	"ipsgateway/internal/iso20022"
)

// Status is the lifecycle state of a routed payment.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// statusFromISO maps a pain.002 transaction status onto the local
// lifecycle. Anything unrecognised is pending.
func statusFromISO(ts iso20022.TransactionStatus) Status {
	switch ts {
	case iso20022.StatusAccepted:
		return StatusAccepted
	case iso20022.StatusRejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

// Rejection reason codes recorded on transactions. The human-readable
// statusReason travels next to the code, never instead of it.
const (
	ReasonInvalidAmount          = "INVALID_AMOUNT"
	ReasonParticipantUnavailable = "PARTICIPANT_UNAVAILABLE"
)

// PaymentRequest describes one outbound credit transfer.
type PaymentRequest struct {
	RequestID           string
	PaymentID           string
	EndToEndID          string
	DebtorName          string
	DebtorAccountID     string
	DebtorParticipant   string
	CreditorName        string
	CreditorAccountID   string
	CreditorParticipant string
	Amount              string
	Currency            string
	PaymentType         string
	Reference           string
}

// PaymentOutcome is the result of a routing attempt. Routing failures
// are outcomes, not errors: a rejected delivery still returns a
// populated outcome with Status rejected.
type PaymentOutcome struct {
	RequestID        string     `json:"requestId"`
	PaymentID        string     `json:"paymentId"`
	EndToEndID       string     `json:"endToEndId,omitempty"`
	Status           Status     `json:"status"`
	StatusReason     string     `json:"statusReason,omitempty"`
	StatusReasonCode string     `json:"statusReasonCode,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// ReceiveResult is the engine's response to an inbound pain.002.
// Acknowledged is false only when the payload could not be decoded.
type ReceiveResult struct {
	Acknowledged      bool   `json:"acknowledged"`
	OriginalMessageID string `json:"originalMessageId,omitempty"`
	Status            Status `json:"status"`
}

// Transaction is the persisted record of a routed payment, one row per
// request id.
type Transaction struct {
	RequestID           string     `json:"requestId"`
	PaymentID           string     `json:"paymentId"`
	EndToEndID          string     `json:"endToEndId"`
	Status              Status     `json:"status"`
	StatusReason        string     `json:"statusReason,omitempty"`
	StatusReasonCode    string     `json:"statusReasonCode,omitempty"`
	Amount              string     `json:"amount"`
	Currency            string     `json:"currency"`
	DebtorAccountID     string     `json:"debtorAccountId"`
	DebtorParticipant   string     `json:"debtorParticipant,omitempty"`
	CreditorAccountID   string     `json:"creditorAccountId"`
	CreditorParticipant string     `json:"creditorParticipant,omitempty"`
	PaymentType         string     `json:"paymentType,omitempty"`
	Reference           string     `json:"reference,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	CompletedAt         *time.Time `json:"completedAt,omitempty"`
}

// Outcome projects the transaction into its API shape.
func (t *Transaction) Outcome() PaymentOutcome {
	return PaymentOutcome{
		RequestID:        t.RequestID,
		PaymentID:        t.PaymentID,
		EndToEndID:       t.EndToEndID,
		Status:           t.Status,
		StatusReason:     t.StatusReason,
		StatusReasonCode: t.StatusReasonCode,
		CompletedAt:      t.CompletedAt,
	}
}
