package events

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event represents a domain event envelope
type Event struct {
	ID            string          `json:"event_id"`
	Type          string          `json:"type"`
	Version       int             `json:"version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event
func NewEvent(eventType, aggregateType, aggregateID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            ulid.Make().String(),
		Type:          eventType,
		Version:       1,
		OccurredAt:    time.Now().UTC(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Data:          dataBytes,
	}, nil
}

// WithCorrelation adds a correlation ID
func (e *Event) WithCorrelation(correlationID string) *Event {
	e.CorrelationID = correlationID
	return e
}

// DecodeData decodes the event data into a struct
func (e *Event) DecodeData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Gateway event types
const (
	EventPaymentAccepted       = "ips.payment.accepted"
	EventPaymentRejected       = "ips.payment.rejected"
	EventPaymentPending        = "ips.payment.pending"
	EventPaymentStatusChanged  = "ips.payment.status_changed"
	EventParticipantsRefreshed = "ips.directory.refreshed"
)

// PaymentStatusChangedData is the data for ips.payment.* events. It mirrors
// the persisted transaction record so downstream consumers (portal, wallet)
// never need a follow-up read.
type PaymentStatusChangedData struct {
	RequestID             string     `json:"request_id"`
	PaymentID             string     `json:"payment_id"`
	DebtorParticipantID   string     `json:"debtor_participant_id"`
	CreditorParticipantID string     `json:"creditor_participant_id"`
	Amount                string     `json:"amount"`
	Currency              string     `json:"currency"`
	Status                string     `json:"status"`
	StatusReason          string     `json:"status_reason,omitempty"`
	StatusReasonCode      string     `json:"status_reason_code,omitempty"`
	EndToEndID            string     `json:"end_to_end_id,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

// ParticipantsRefreshedData is the data for ips.directory.refreshed.
type ParticipantsRefreshedData struct {
	Count int `json:"count"`
}
