package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"ipsgateway/internal/banking"
	"ipsgateway/internal/common/api"
	"ipsgateway/internal/common/database"
	"ipsgateway/internal/common/money"
	"ipsgateway/internal/consent"
	"ipsgateway/internal/directory"
	"ipsgateway/internal/routing"
)

// PaymentReceiver is the slice of the routing engine the inbound
// callback route needs.
type PaymentReceiver interface {
	ReceivePayment(ctx context.Context, payload []byte) (routing.ReceiveResult, error)
}

// Handler handles Open Banking and scheme callback HTTP requests.
type Handler struct {
	service   *banking.Service
	receiver  PaymentReceiver
	directory *directory.Directory
	validator consent.Validator
	logger    *slog.Logger
}

// NewHandler creates a new handler.
func NewHandler(service *banking.Service, receiver PaymentReceiver, dir *directory.Directory, validator consent.Validator, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		receiver:  receiver,
		directory: dir,
		validator: validator,
		logger:    logger,
	}
}

// Routes returns the authenticated Open Banking routes, mounted under
// /bon/v1/banking.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(Auth(h.validator, h.logger))

	r.With(RequireScope(consent.ScopeAccountsRead)).Get("/accounts", h.ListAccounts)
	r.With(RequireScope(consent.ScopeAccountsRead)).Get("/accounts/{id}/balances", h.GetBalances)
	r.With(RequireScope(consent.ScopeAccountsRead)).Get("/accounts/{id}/transactions", h.ListTransactions)
	r.With(RequireScope(consent.ScopeAccountsRead)).Get("/accounts/{id}/payees", h.ListPayees)
	r.With(RequireScope(consent.ScopePaymentsWrite)).Post("/payments", h.CreatePayment)
	r.With(RequireScope(consent.ScopePaymentsRead)).Get("/payments/{id}", h.GetPayment)

	return r
}

// IPSRoutes returns the scheme-facing routes, mounted under /ips.
// These are called by the central gateway and peer participants, not
// by token-holding clients.
func (h *Handler) IPSRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/payments", h.ReceivePayment)
	r.Get("/participants", h.ListParticipants)
	return r
}

// ListAccounts handles GET /accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	tc := TokenFromContext(r.Context())

	var status *banking.AccountStatus
	if s := r.URL.Query().Get("status"); s != "" {
		v := banking.AccountStatus(s)
		status = &v
	}

	accounts, err := h.service.ListAccounts(r.Context(), tc.BeneficiaryID, status)
	if err != nil {
		h.logger.Error("listing accounts", "beneficiary_id", tc.BeneficiaryID, "error", err)
		api.InternalError(w, "failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []banking.Account{}
	}
	api.WriteData(w, http.StatusOK, accounts)
}

// GetBalances handles GET /accounts/{id}/balances.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	tc := TokenFromContext(r.Context())
	accountID := chi.URLParam(r, "id")

	balances, err := h.service.GetBalances(r.Context(), tc.BeneficiaryID, accountID)
	if err != nil {
		h.writeAccountError(w, accountID, err)
		return
	}
	api.WriteData(w, http.StatusOK, balances)
}

// ListTransactions handles GET /accounts/{id}/transactions.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tc := TokenFromContext(r.Context())
	accountID := chi.URLParam(r, "id")

	q := banking.TransactionQuery{Page: 1, PageSize: 25}
	query := r.URL.Query()

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			api.BadRequest(w, api.CodeInvalidRequest, "page must be a positive integer")
			return
		}
		q.Page = page
	}
	if v := query.Get("page-size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			api.BadRequest(w, api.CodeInvalidPageSize, "page-size must be a positive integer")
			return
		}
		if size > banking.MaxPageSize {
			api.BadRequest(w, api.CodeInvalidPageSize, "page-size may not exceed 1000")
			return
		}
		q.PageSize = size
	}
	if v := query.Get("oldest-time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.BadRequest(w, api.CodeInvalidRequest, "oldest-time must be RFC 3339")
			return
		}
		q.From = &t
	}
	if v := query.Get("newest-time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			api.BadRequest(w, api.CodeInvalidRequest, "newest-time must be RFC 3339")
			return
		}
		q.To = &t
	}

	txns, total, err := h.service.ListTransactions(r.Context(), tc.BeneficiaryID, accountID, q)
	if err != nil {
		if errors.Is(err, banking.ErrPageSizeExceeded) {
			api.BadRequest(w, api.CodeInvalidPageSize, "page-size may not exceed 1000")
			return
		}
		h.writeAccountError(w, accountID, err)
		return
	}

	totalPages := (total + q.PageSize - 1) / q.PageSize
	api.WritePaginated(w, txns, api.PageMeta{
		Page:         q.Page,
		PageSize:     q.PageSize,
		TotalRecords: int64(total),
		TotalPages:   totalPages,
	})
}

// ListPayees handles GET /accounts/{id}/payees.
func (h *Handler) ListPayees(w http.ResponseWriter, r *http.Request) {
	tc := TokenFromContext(r.Context())
	accountID := chi.URLParam(r, "id")

	payees, err := h.service.ListPayees(r.Context(), tc.BeneficiaryID, accountID)
	if err != nil {
		h.writeAccountError(w, accountID, err)
		return
	}
	api.WriteData(w, http.StatusOK, payees)
}

// CreatePaymentRequest is the API request for initiating a payment.
type CreatePaymentRequest struct {
	RequestID             string `json:"requestId"`
	AccountID             string `json:"accountId" validate:"required"`
	Amount                string `json:"amount" validate:"required"`
	Currency              string `json:"currency"`
	PaymentType           string `json:"paymentType" validate:"required"`
	CreditorName          string `json:"creditorName" validate:"required"`
	CreditorAccountID     string `json:"creditorAccountId" validate:"required"`
	CreditorParticipantID string `json:"creditorParticipantId" validate:"required"`
	Reference             string `json:"reference"`
}

// CreatePayment handles POST /payments. Wire-format failures are 400s;
// routing failures come back as a 201 with a rejected outcome so the
// caller always gets a payment record to poll.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	tc := TokenFromContext(r.Context())

	var req CreatePaymentRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	if amount, err := money.Parse(req.Amount); err != nil || !amount.IsPositive() {
		api.BadRequest(w, api.CodeInvalidAmount, "amount must be a positive decimal with two fractional digits")
		return
	}
	if !banking.ValidPaymentType(banking.PaymentType(req.PaymentType)) {
		api.BadRequest(w, api.CodeInvalidPaymentType, "paymentType must be one of on-us, eft-enhanced, eft-nrtc")
		return
	}

	outcome, err := h.service.MakePayment(r.Context(), banking.MakePaymentRequest{
		RequestID:           req.RequestID,
		BeneficiaryID:       tc.BeneficiaryID,
		ParticipantID:       tc.ParticipantID,
		AccountID:           req.AccountID,
		Amount:              req.Amount,
		Currency:            req.Currency,
		PaymentType:         banking.PaymentType(req.PaymentType),
		CreditorName:        req.CreditorName,
		CreditorAccountID:   req.CreditorAccountID,
		CreditorParticipant: req.CreditorParticipantID,
		Reference:           req.Reference,
	})
	if err != nil {
		switch {
		case database.IsNotFound(err), errors.Is(err, banking.ErrNotAccountOwner):
			api.NotFound(w, "account not found")
		case errors.Is(err, banking.ErrAccountClosed):
			api.BadRequest(w, api.CodeInvalidRequest, "account is not open")
		default:
			h.logger.Error("payment initiation failed", "account_id", req.AccountID, "error", err)
			api.InternalError(w, "failed to initiate payment")
		}
		return
	}

	api.WriteData(w, http.StatusCreated, outcome)
}

// GetPayment handles GET /payments/{id}.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	tc := TokenFromContext(r.Context())
	paymentID := chi.URLParam(r, "id")

	tx, err := h.service.GetPayment(r.Context(), paymentID, tc.ParticipantID)
	if err != nil {
		h.logger.Error("loading payment", "payment_id", paymentID, "error", err)
		api.InternalError(w, "failed to load payment")
		return
	}
	if tx == nil {
		api.NotFound(w, "payment not found")
		return
	}
	api.WriteData(w, http.StatusOK, tx)
}

// ReceivePayment handles POST /ips/payments, the inbound pain.002
// callback from the scheme.
func (h *Handler) ReceivePayment(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		api.BadRequest(w, api.CodeInvalidRequest, "unreadable request body")
		return
	}

	result, err := h.receiver.ReceivePayment(r.Context(), payload)
	if err != nil {
		h.logger.Error("processing inbound status report", "error", err)
		api.InternalError(w, "failed to process status report")
		return
	}
	api.WriteJSON(w, http.StatusOK, result)
}

// ListParticipants handles GET /ips/participants.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	api.WriteData(w, http.StatusOK, h.directory.All())
}

func (h *Handler) writeAccountError(w http.ResponseWriter, accountID string, err error) {
	switch {
	case database.IsNotFound(err), errors.Is(err, banking.ErrNotAccountOwner):
		api.NotFound(w, "account not found")
	default:
		h.logger.Error("account operation failed", "account_id", accountID, "error", err)
		api.InternalError(w, "internal error")
	}
}
