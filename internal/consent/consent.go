// Package consent validates access tokens against the platform consent
// service and carries the resulting token context through a request.
package consent

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned when the consent service rejects a token
// or the token is otherwise unusable. Callers map it to a 401.
var ErrInvalidToken = errors.New("invalid or expired access token")

// TokenContext is the validated identity behind a bearer token.
type TokenContext struct {
	ParticipantID string   `json:"participantId"`
	BeneficiaryID string   `json:"beneficiaryId"`
	Scopes        []string `json:"scopes"`
}

// HasScope reports whether the token grants the given scope.
func (t TokenContext) HasScope(scope string) bool {
	for _, s := range t.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Validator checks bearer tokens. Implementations must return
// ErrInvalidToken (possibly wrapped) for rejected tokens so transport
// code can distinguish auth failures from outages.
type Validator interface {
	Validate(ctx context.Context, token string) (TokenContext, error)
}

// Consent scopes of the Namibian Open Banking framework. Account
// information reads (accounts, balances, transactions, payees) all fall
// under the basic-read scope; payments split read from write.
const (
	ScopeAccountsRead  = "banking:accounts.basic.read"
	ScopePaymentsWrite = "banking:payments.write"
	ScopePaymentsRead  = "banking:payments.read"
)

// StaticValidator resolves tokens from a fixed map. Used in tests and
// local development where no consent service runs.
type StaticValidator map[string]TokenContext

func (v StaticValidator) Validate(_ context.Context, token string) (TokenContext, error) {
	tc, ok := v[token]
	if !ok {
		return TokenContext{}, ErrInvalidToken
	}
	return tc, nil
}
