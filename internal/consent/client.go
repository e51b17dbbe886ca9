package consent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Config holds consent service client configuration.
type Config struct {
	BaseURL string        `envconfig:"CONSENT_BASE_URL"`
	APIKey  string        `envconfig:"CONSENT_API_KEY"`
	Timeout time.Duration `envconfig:"CONSENT_TIMEOUT" default:"10s"`
}

// Client validates tokens by introspecting them against the consent
// service.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a consent service client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Active        bool     `json:"active"`
	ParticipantID string   `json:"participantId"`
	BeneficiaryID string   `json:"beneficiaryId"`
	Scopes        []string `json:"scopes"`
}

// Validate implements Validator. An inactive introspection result or a
// 4xx status maps to ErrInvalidToken; transport failures and 5xx
// statuses surface as distinct errors so the caller can return a 500
// instead of blaming the token.
func (c *Client) Validate(ctx context.Context, token string) (TokenContext, error) {
	if token == "" {
		return TokenContext{}, ErrInvalidToken
	}

	body, err := json.Marshal(introspectRequest{Token: token})
	if err != nil {
		return TokenContext{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/oauth/introspect", bytes.NewReader(body))
	if err != nil {
		return TokenContext{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return TokenContext{}, fmt.Errorf("consent service unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return TokenContext{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case httpResp.StatusCode >= 500:
		return TokenContext{}, fmt.Errorf("consent service error: status=%d body=%s", httpResp.StatusCode, string(respBody))
	case httpResp.StatusCode >= 400:
		return TokenContext{}, ErrInvalidToken
	}

	var resp introspectResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return TokenContext{}, fmt.Errorf("unmarshal response: %w", err)
	}

	if !resp.Active {
		return TokenContext{}, ErrInvalidToken
	}

	return TokenContext{
		ParticipantID: resp.ParticipantID,
		BeneficiaryID: resp.BeneficiaryID,
		Scopes:        resp.Scopes,
	}, nil
}
