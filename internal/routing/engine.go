package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ipsgateway/internal/common/database"
	"ipsgateway/internal/common/events"
	"ipsgateway/internal/common/middleware"
	"ipsgateway/internal/common/money"
	"ipsgateway/internal/directory"
	"ipsgateway/internal/iso20022"
)

// Config holds routing engine configuration.
type Config struct {
	// GatewayURL is the central scheme gateway. When set, all outbound
	// payments go there; participant endpoints are only used directly
	// when no gateway is configured.
	GatewayURL    string        `envconfig:"IPS_GATEWAY_URL"`
	GatewayAPIKey string        `envconfig:"IPS_GATEWAY_API_KEY"`
	Timeout       time.Duration `envconfig:"IPS_TIMEOUT" default:"30s"`
}

// Publisher publishes payment lifecycle events. Satisfied by the NATS
// publisher; nil disables event publishing.
type Publisher interface {
	Publish(ctx context.Context, event *events.Event) error
}

// Engine routes payments onto the instant payment network.
type Engine struct {
	config     Config
	directory  *directory.Directory
	store      TransactionStore
	publisher  Publisher
	httpClient *http.Client
	logger     *slog.Logger
}

// NewEngine creates a routing engine.
func NewEngine(cfg Config, dir *directory.Directory, store TransactionStore, publisher Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		config:    cfg,
		directory: dir,
		store:     store,
		publisher: publisher,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// InitiatePayment validates and delivers one credit transfer. Exactly
// one delivery attempt is made and exactly one transaction row is
// written; delivery failures come back as a rejected outcome, not an
// error. The returned error covers persistence failures only.
func (e *Engine) InitiatePayment(ctx context.Context, req PaymentRequest) (PaymentOutcome, error) {
	if err := e.directory.Refresh(ctx); err != nil {
		e.logger.Warn("participant refresh failed, routing with cached directory", "error", err)
	}

	amount, err := money.Parse(req.Amount)
	if err != nil || !amount.IsPositive() {
		e.logger.Info("rejecting payment with invalid amount",
			"request_id", req.RequestID, "amount", req.Amount)
		return e.record(ctx, req, StatusRejected, "Invalid amount", ReasonInvalidAmount)
	}

	var creditor *directory.Participant
	if p, ok := e.directory.Lookup(req.CreditorParticipant); ok {
		creditor = &p
	}

	doc := iso20022.BuildPain001(req.RequestID, req.DebtorName, req.DebtorAccountID,
		req.CreditorName, req.CreditorAccountID, amount, req.Currency, req.Reference, req.EndToEndID)

	status, reason, reasonCode := e.deliver(ctx, req.RequestID, doc, creditor)
	return e.record(ctx, req, status, reason, reasonCode)
}

// SendPayment routes a payment between two named participants. Both
// must resolve to active directory entries before any message is
// built; otherwise the payment is recorded rejected with
// PARTICIPANT_UNAVAILABLE and nothing touches the network.
func (e *Engine) SendPayment(ctx context.Context, req PaymentRequest) (PaymentOutcome, error) {
	if err := e.directory.Refresh(ctx); err != nil {
		e.logger.Warn("participant refresh failed, routing with cached directory", "error", err)
	}

	// Participants resolve before the amount is even looked at, so a
	// request that is broken both ways rejects as PARTICIPANT_UNAVAILABLE.
	if _, ok := e.directory.Lookup(req.DebtorParticipant); !ok {
		e.logger.Info("debtor participant unavailable",
			"request_id", req.RequestID, "participant_id", req.DebtorParticipant)
		return e.record(ctx, req, StatusRejected, "Debtor participant not found", ReasonParticipantUnavailable)
	}
	creditor, ok := e.directory.Lookup(req.CreditorParticipant)
	if !ok {
		e.logger.Info("creditor participant unavailable",
			"request_id", req.RequestID, "participant_id", req.CreditorParticipant)
		return e.record(ctx, req, StatusRejected, "Creditor participant not found", ReasonParticipantUnavailable)
	}

	amount, err := money.Parse(req.Amount)
	if err != nil || !amount.IsPositive() {
		e.logger.Info("rejecting payment with invalid amount",
			"request_id", req.RequestID, "amount", req.Amount)
		return e.record(ctx, req, StatusRejected, "Invalid amount", ReasonInvalidAmount)
	}

	doc := iso20022.BuildPain001(req.RequestID, req.DebtorName, req.DebtorAccountID,
		req.CreditorName, req.CreditorAccountID, amount, req.Currency, req.Reference, req.EndToEndID)

	status, reason, reasonCode := e.deliver(ctx, req.RequestID, doc, &creditor)
	return e.record(ctx, req, status, reason, reasonCode)
}

// deliver makes the single delivery attempt: central gateway when
// configured, otherwise the creditor's own endpoint, otherwise a local
// simulated acceptance. No retries at this layer; the scheme handles
// redelivery.
func (e *Engine) deliver(ctx context.Context, requestID string, doc iso20022.Pain001Document, creditor *directory.Participant) (Status, string, string) {
	if missing := iso20022.ValidatePain001(doc); len(missing) > 0 {
		e.logger.Warn("built pain.001 failed validation, not delivering",
			"request_id", requestID, "missing", missing)
		return StatusRejected, "pain.001 missing required fields: " + strings.Join(missing, ", "), ""
	}

	switch {
	case e.config.GatewayURL != "":
		return e.post(ctx, requestID, e.config.GatewayURL+"/payments", e.config.GatewayAPIKey, doc)
	case creditor != nil && creditor.Endpoint != "":
		return e.post(ctx, requestID, creditor.Endpoint, "", doc)
	default:
		e.logger.Info("no delivery endpoint configured, simulating acceptance",
			"request_id", requestID)
		return StatusAccepted, "", ""
	}
}

func (e *Engine) post(ctx context.Context, requestID, url, apiKey string, doc iso20022.Pain001Document) (Status, string, string) {
	body, err := json.Marshal(doc)
	if err != nil {
		return StatusRejected, truncateReason(err.Error()), ""
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return StatusRejected, truncateReason(err.Error()), ""
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		e.logger.Warn("payment delivery failed", "request_id", requestID, "url", url, "error", err)
		return StatusRejected, truncateReason(err.Error()), ""
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return StatusRejected, truncateReason(err.Error()), ""
	}

	if httpResp.StatusCode >= 400 {
		e.logger.Warn("payment delivery rejected by endpoint",
			"request_id", requestID, "status", httpResp.StatusCode)
		return StatusRejected, truncateReason(fmt.Sprintf("delivery failed: status=%d body=%s", httpResp.StatusCode, respBody)), ""
	}

	report, err := iso20022.ParsePain002(respBody)
	if err != nil {
		e.logger.Warn("undecodable status report from endpoint",
			"request_id", requestID, "error", err)
		return StatusRejected, truncateReason(err.Error()), ""
	}
	return statusFromISO(report.Status), "", report.StatusReason
}

// record writes the single transaction row for this request and
// publishes the matching lifecycle event.
func (e *Engine) record(ctx context.Context, req PaymentRequest, status Status, reason, reasonCode string) (PaymentOutcome, error) {
	// A malformed amount still produces a rejected row. The raw value
	// cannot go into the numeric amount column, so it is stored as zero.
	amount := req.Amount
	if _, err := money.Parse(amount); err != nil {
		amount = "0.00"
	}

	now := time.Now().UTC()
	tx := &Transaction{
		RequestID:           req.RequestID,
		PaymentID:           req.PaymentID,
		EndToEndID:          req.EndToEndID,
		Status:              status,
		StatusReason:        reason,
		StatusReasonCode:    reasonCode,
		Amount:              amount,
		Currency:            req.Currency,
		DebtorAccountID:     req.DebtorAccountID,
		DebtorParticipant:   req.DebtorParticipant,
		CreditorAccountID:   req.CreditorAccountID,
		CreditorParticipant: req.CreditorParticipant,
		PaymentType:         req.PaymentType,
		Reference:           req.Reference,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if tx.PaymentID == "" {
		tx.PaymentID = req.RequestID
	}
	if tx.EndToEndID == "" {
		tx.EndToEndID = req.RequestID
	}
	if status == StatusAccepted {
		tx.CompletedAt = &now
	}

	if err := e.store.Create(ctx, tx); err != nil {
		return PaymentOutcome{}, fmt.Errorf("recording transaction %s: %w", req.RequestID, err)
	}

	e.publishStatus(ctx, tx)
	return tx.Outcome(), nil
}

// RecordRejection persists a rejected outcome without attempting
// delivery. Used for business-rule failures decided upstream, such as
// insufficient funds.
func (e *Engine) RecordRejection(ctx context.Context, req PaymentRequest, reason string) (PaymentOutcome, error) {
	return e.record(ctx, req, StatusRejected, reason, "")
}

// ReceivePayment applies an inbound pain.002 to the referenced
// transaction. Terminal states never change; a conflicting report is
// acknowledged and dropped. Acknowledged is false only when the
// payload cannot be decoded at all.
func (e *Engine) ReceivePayment(ctx context.Context, payload []byte) (ReceiveResult, error) {
	report, err := iso20022.ParsePain002(payload)
	if err != nil {
		e.logger.Warn("undecodable inbound status report", "error", err)
		return ReceiveResult{Acknowledged: false, Status: StatusPending}, nil
	}

	status := statusFromISO(report.Status)
	if report.OriginalMessageID == "" {
		e.logger.Warn("inbound status report without original message id", "status", report.Status)
		return ReceiveResult{Acknowledged: true, Status: status}, nil
	}

	tx, err := e.store.Get(ctx, report.OriginalMessageID)
	if err != nil {
		if database.IsNotFound(err) {
			e.logger.Warn("status report for unknown payment",
				"original_message_id", report.OriginalMessageID)
			return ReceiveResult{Acknowledged: true, OriginalMessageID: report.OriginalMessageID, Status: status}, nil
		}
		return ReceiveResult{}, fmt.Errorf("loading transaction %s: %w", report.OriginalMessageID, err)
	}

	if tx.Status.IsTerminal() {
		if tx.Status != status {
			e.logger.Info("ignoring status report for settled payment",
				"request_id", tx.RequestID, "current", tx.Status, "reported", status)
		}
		return ReceiveResult{Acknowledged: true, OriginalMessageID: report.OriginalMessageID, Status: tx.Status}, nil
	}

	var completedAt *time.Time
	if status == StatusAccepted {
		now := time.Now().UTC()
		completedAt = &now
	}

	if err := e.store.UpdateStatus(ctx, tx.RequestID, status, "", report.StatusReason, completedAt); err != nil {
		return ReceiveResult{}, fmt.Errorf("updating transaction %s: %w", tx.RequestID, err)
	}

	tx.Status = status
	tx.StatusReason = ""
	tx.StatusReasonCode = report.StatusReason
	tx.CompletedAt = completedAt
	e.publishStatus(ctx, tx)

	return ReceiveResult{Acknowledged: true, OriginalMessageID: report.OriginalMessageID, Status: status}, nil
}

// GetPaymentStatus returns the transaction for requestID, or nil when
// no such payment was ever recorded.
func (e *Engine) GetPaymentStatus(ctx context.Context, requestID string) (*Transaction, error) {
	tx, err := e.store.Get(ctx, requestID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return tx, nil
}

func (e *Engine) publishStatus(ctx context.Context, tx *Transaction) {
	if e.publisher == nil {
		return
	}

	eventType := events.EventPaymentStatusChanged
	switch tx.Status {
	case StatusAccepted:
		eventType = events.EventPaymentAccepted
	case StatusRejected:
		eventType = events.EventPaymentRejected
	case StatusPending:
		eventType = events.EventPaymentPending
	}

	event, err := events.NewEvent(eventType, "payment", tx.RequestID, events.PaymentStatusChangedData{
		RequestID:             tx.RequestID,
		PaymentID:             tx.PaymentID,
		DebtorParticipantID:   tx.DebtorParticipant,
		CreditorParticipantID: tx.CreditorParticipant,
		Amount:                tx.Amount,
		Currency:              tx.Currency,
		Status:                string(tx.Status),
		StatusReason:          tx.StatusReason,
		StatusReasonCode:      tx.StatusReasonCode,
		EndToEndID:            tx.EndToEndID,
		CompletedAt:           tx.CompletedAt,
	})
	if err != nil {
		e.logger.Error("building payment event", "request_id", tx.RequestID, "error", err)
		return
	}
	event.WithCorrelation(middleware.GetCorrelationID(ctx))

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("publishing payment event failed",
			"request_id", tx.RequestID, "type", eventType, "error", err)
	}
}

const maxReasonLen = 200

func truncateReason(s string) string {
	if len(s) > maxReasonLen {
		return s[:maxReasonLen]
	}
	return s
}
