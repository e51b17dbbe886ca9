package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Error is a single error entry in the Open Banking error envelope.
type Error struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// ErrorEnvelope is the uniform boundary error shape. Every 4xx/5xx the
// gateway emits carries this body.
type ErrorEnvelope struct {
	Errors []Error `json:"errors"`
}

// DataEnvelope wraps successful responses.
type DataEnvelope[T any] struct {
	Data T `json:"data"`
}

// PageMeta holds pagination info for list responses.
type PageMeta struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"pageSize"`
	TotalRecords int64 `json:"totalRecords"`
	TotalPages   int   `json:"totalPages"`
}

// PaginatedEnvelope wraps paginated list responses.
type PaginatedEnvelope[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}

// Boundary error codes. These are part of the external contract and must
// stay stable.
const (
	CodeInvalidToken         = "invalid_token"
	CodeMissingParticipantID = "missing_participant_id"
	CodeMissingVersion       = "missing_version"
	CodeUnsupportedVersion   = "unsupported_version"
	CodeParticipantMismatch  = "participant_mismatch"
	CodeInsufficientScope    = "insufficient_scope"
	CodeInvalidAmount        = "invalid_amount"
	CodeInvalidPaymentType   = "invalid_payment_type"
	CodeInvalidPageSize      = "invalid_page_size"
	CodeInvalidRequest       = "invalid_request"
	CodeNotFound             = "not_found"
	CodeInternalError        = "internal_error"
)

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteData writes a successful data response.
func WriteData[T any](w http.ResponseWriter, status int, data T) {
	WriteJSON(w, status, DataEnvelope[T]{Data: data})
}

// WritePaginated writes a paginated list response.
func WritePaginated[T any](w http.ResponseWriter, data []T, meta PageMeta) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, PaginatedEnvelope[T]{Data: data, Meta: meta})
}

// WriteError writes a single-entry error envelope.
func WriteError(w http.ResponseWriter, status int, code, title, detail string) {
	WriteJSON(w, status, ErrorEnvelope{Errors: []Error{{Code: code, Title: title, Detail: detail}}})
}

// WriteErrors writes a multi-entry error envelope.
func WriteErrors(w http.ResponseWriter, status int, errs []Error) {
	WriteJSON(w, status, ErrorEnvelope{Errors: errs})
}

// BadRequest writes a 400 with the given code.
func BadRequest(w http.ResponseWriter, code, detail string) {
	WriteError(w, http.StatusBadRequest, code, "Bad request", detail)
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, "Not found", detail)
}

// InternalError writes a 500.
func InternalError(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, "Internal error", detail)
}

// ValidationError writes a 400 with one entry per failed field.
func ValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errs := make([]Error, 0, len(validationErrors))
		for _, e := range validationErrors {
			errs = append(errs, Error{
				Code:   CodeInvalidRequest,
				Title:  "Validation failed",
				Detail: e.Field() + ": " + formatValidationError(e),
			})
		}
		WriteErrors(w, http.StatusBadRequest, errs)
		return
	}
	WriteError(w, http.StatusBadRequest, CodeInvalidRequest, "Validation failed", err.Error())
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "len":
		return "must be exactly " + e.Param() + " characters"
	case "oneof":
		return "must be one of: " + e.Param()
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	default:
		return "invalid value"
	}
}

// Validate is a shared validator instance
var Validate = validator.New()

// DecodeAndValidate decodes JSON and validates the result
func DecodeAndValidate(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return Validate.Struct(v)
}
