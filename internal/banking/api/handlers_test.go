package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"ipsgateway/internal/banking"
	"ipsgateway/internal/common/database"
	"ipsgateway/internal/consent"
	"ipsgateway/internal/directory"
	"ipsgateway/internal/routing"
)

type fakeStore struct {
	accounts map[string]*banking.Account
	balances map[string][]banking.Balance
}

func (f *fakeStore) CreateAccount(_ context.Context, a *banking.Account) error {
	f.accounts[a.ID] = a
	return nil
}

func (f *fakeStore) GetAccount(_ context.Context, accountID string) (*banking.Account, error) {
	a, ok := f.accounts[accountID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) ListAccounts(_ context.Context, beneficiaryID string, _ *banking.AccountStatus) ([]banking.Account, error) {
	out := []banking.Account{}
	for _, a := range f.accounts {
		if a.BeneficiaryID == beneficiaryID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBalance(_ context.Context, b *banking.Balance) error {
	f.balances[b.AccountID] = append(f.balances[b.AccountID], *b)
	return nil
}

func (f *fakeStore) GetBalances(_ context.Context, accountID string) ([]banking.Balance, error) {
	return f.balances[accountID], nil
}

func (f *fakeStore) ListTransactions(_ context.Context, _ string, _ banking.TransactionQuery) ([]banking.Transaction, int, error) {
	return []banking.Transaction{}, 0, nil
}

func (f *fakeStore) ListPayees(_ context.Context, _ string) ([]banking.Payee, error) {
	return []banking.Payee{}, nil
}

type fakeRouter struct {
	payments map[string]*routing.Transaction
}

func (f *fakeRouter) SendPayment(_ context.Context, req routing.PaymentRequest) (routing.PaymentOutcome, error) {
	return routing.PaymentOutcome{RequestID: req.RequestID, PaymentID: req.RequestID, Status: routing.StatusAccepted}, nil
}

func (f *fakeRouter) RecordRejection(_ context.Context, req routing.PaymentRequest, reason string) (routing.PaymentOutcome, error) {
	return routing.PaymentOutcome{RequestID: req.RequestID, PaymentID: req.RequestID, Status: routing.StatusRejected, StatusReason: reason}, nil
}

func (f *fakeRouter) GetPaymentStatus(_ context.Context, requestID string) (*routing.Transaction, error) {
	return f.payments[requestID], nil
}

type fakeReceiver struct {
	result routing.ReceiveResult
}

func (f *fakeReceiver) ReceivePayment(_ context.Context, _ []byte) (routing.ReceiveResult, error) {
	return f.result, nil
}

func newTestServer(t *testing.T, available string) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &fakeStore{
		accounts: map[string]*banking.Account{
			"acc-1": {
				ID: "acc-1", BeneficiaryID: "ben-1", ParticipantID: "FNB",
				Name: "Main Grant Account", Currency: "NAD",
				Status: banking.AccountOpen, CreatedAt: time.Now().UTC(),
			},
		},
		balances: map[string][]banking.Balance{},
	}
	if available != "" {
		store.balances["acc-1"] = []banking.Balance{
			{AccountID: "acc-1", Type: banking.BalanceAvailable, Amount: available, Currency: "NAD"},
		}
	}

	service := banking.NewService(store, &fakeRouter{}, logger)
	validator := consent.StaticValidator{
		"tok-full": {ParticipantID: "FNB", BeneficiaryID: "ben-1", Scopes: []string{
			consent.ScopeAccountsRead, consent.ScopePaymentsWrite, consent.ScopePaymentsRead,
		}},
		"tok-readonly": {ParticipantID: "FNB", BeneficiaryID: "ben-1", Scopes: []string{consent.ScopeAccountsRead}},
	}
	dir := directory.New(directory.Config{}, nil, nil, logger)
	receiver := &fakeReceiver{result: routing.ReceiveResult{Acknowledged: true, OriginalMessageID: "req-1", Status: routing.StatusAccepted}}

	h := NewHandler(service, receiver, dir, validator, logger)
	r := chi.NewRouter()
	r.Mount("/bon/v1/banking", h.Routes())
	r.Mount("/ips", h.IPSRoutes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("ParticipantId", "FNB")
		req.Header.Set("x-v", "1")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("undecodable response %q: %v", raw, err)
		}
	}
	return resp, decoded
}

func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	errs, ok := body["errors"].([]interface{})
	if !ok || len(errs) == 0 {
		t.Fatalf("no error envelope in %v", body)
	}
	entry := errs[0].(map[string]interface{})
	code, _ := entry["code"].(string)
	return code
}

func TestAuthContract(t *testing.T) {
	srv := newTestServer(t, "")

	cases := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing authorization",
			headers:    map[string]string{"ParticipantId": "FNB", "x-v": "1"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_token",
		},
		{
			name:       "missing participant id",
			headers:    map[string]string{"Authorization": "Bearer tok-full", "x-v": "1"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_participant_id",
		},
		{
			name:       "missing version",
			headers:    map[string]string{"Authorization": "Bearer tok-full", "ParticipantId": "FNB"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "missing_version",
		},
		{
			name:       "unsupported version",
			headers:    map[string]string{"Authorization": "Bearer tok-full", "ParticipantId": "FNB", "x-v": "2"},
			wantStatus: http.StatusNotAcceptable,
			wantCode:   "unsupported_version",
		},
		{
			name:       "unknown token",
			headers:    map[string]string{"Authorization": "Bearer tok-bad", "ParticipantId": "FNB", "x-v": "1"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_token",
		},
		{
			name:       "participant mismatch",
			headers:    map[string]string{"Authorization": "Bearer tok-full", "ParticipantId": "NED", "x-v": "1"},
			wantStatus: http.StatusForbidden,
			wantCode:   "participant_mismatch",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/bon/v1/banking/accounts", nil)
			if err != nil {
				t.Fatal(err)
			}
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if code := errorCode(t, body); code != tc.wantCode {
				t.Errorf("code = %q, want %q", code, tc.wantCode)
			}
		})
	}

	t.Run("insufficient scope", func(t *testing.T) {
		resp, body := doRequest(t, srv, http.MethodPost, "/bon/v1/banking/payments", "tok-readonly",
			`{"accountId":"acc-1","amount":"10.00","paymentType":"on-us","creditorName":"J","creditorAccountId":"acc-2","creditorParticipantId":"NED"}`)
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if code := errorCode(t, body); code != "insufficient_scope" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("account reads share the basic read scope", func(t *testing.T) {
		for _, path := range []string{
			"/bon/v1/banking/accounts/acc-1/transactions",
			"/bon/v1/banking/accounts/acc-1/payees",
		} {
			resp, body := doRequest(t, srv, http.MethodGet, path, "tok-readonly", "")
			if resp.StatusCode != http.StatusOK {
				t.Errorf("%s: status = %d body = %v", path, resp.StatusCode, body)
			}
		}
	})

	t.Run("authorized request echoes version", func(t *testing.T) {
		resp, body := doRequest(t, srv, http.MethodGet, "/bon/v1/banking/accounts", "tok-full", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d body = %v", resp.StatusCode, body)
		}
		if got := resp.Header.Get("x-v"); got != "1" {
			t.Errorf("x-v = %q", got)
		}
		if _, ok := body["data"]; !ok {
			t.Errorf("body = %v, want data envelope", body)
		}
	})
}

func TestCreatePayment(t *testing.T) {
	const goodBody = `{
		"accountId": "acc-1",
		"amount": "150.00",
		"paymentType": "on-us",
		"creditorName": "Johannes K",
		"creditorAccountId": "acc-2",
		"creditorParticipantId": "NED"
	}`

	t.Run("accepted payment", func(t *testing.T) {
		srv := newTestServer(t, "500.00")
		resp, body := doRequest(t, srv, http.MethodPost, "/bon/v1/banking/payments", "tok-full", goodBody)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d body = %v", resp.StatusCode, body)
		}
		data := body["data"].(map[string]interface{})
		if data["status"] != "accepted" {
			t.Errorf("data = %v", data)
		}
		if data["paymentId"] != data["requestId"] || data["paymentId"] == "" {
			t.Errorf("data = %v, want paymentId echoed", data)
		}
	})

	t.Run("insufficient funds is 201 with rejection", func(t *testing.T) {
		srv := newTestServer(t, "10.00")
		resp, body := doRequest(t, srv, http.MethodPost, "/bon/v1/banking/payments", "tok-full", goodBody)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d body = %v", resp.StatusCode, body)
		}
		data := body["data"].(map[string]interface{})
		if data["status"] != "rejected" || data["statusReason"] != "Insufficient funds" {
			t.Errorf("data = %v", data)
		}
	})

	t.Run("malformed amount", func(t *testing.T) {
		srv := newTestServer(t, "500.00")
		body := strings.Replace(goodBody, "150.00", "150.5", 1)
		resp, decoded := doRequest(t, srv, http.MethodPost, "/bon/v1/banking/payments", "tok-full", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if code := errorCode(t, decoded); code != "invalid_amount" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("unknown payment type", func(t *testing.T) {
		srv := newTestServer(t, "500.00")
		body := strings.Replace(goodBody, "on-us", "wire", 1)
		resp, decoded := doRequest(t, srv, http.MethodPost, "/bon/v1/banking/payments", "tok-full", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if code := errorCode(t, decoded); code != "invalid_payment_type" {
			t.Errorf("code = %q", code)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		srv := newTestServer(t, "500.00")
		body := strings.Replace(goodBody, "acc-1", "acc-404", 1)
		resp, _ := doRequest(t, srv, http.MethodPost, "/bon/v1/banking/payments", "tok-full", body)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status = %d", resp.StatusCode)
		}
	})
}

func TestListTransactionsPageSize(t *testing.T) {
	srv := newTestServer(t, "")

	resp, body := doRequest(t, srv, http.MethodGet,
		"/bon/v1/banking/accounts/acc-1/transactions?page-size=1001", "tok-full", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "invalid_page_size" {
		t.Errorf("code = %q", code)
	}

	resp, body = doRequest(t, srv, http.MethodGet,
		"/bon/v1/banking/accounts/acc-1/transactions?page-size=50", "tok-full", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d body = %v", resp.StatusCode, body)
	}
	meta := body["meta"].(map[string]interface{})
	if meta["pageSize"] != float64(50) {
		t.Errorf("meta = %v", meta)
	}
}

func TestIPSRoutes(t *testing.T) {
	srv := newTestServer(t, "")

	t.Run("inbound status report", func(t *testing.T) {
		resp, body := doRequest(t, srv, http.MethodPost, "/ips/payments", "",
			`{"OrgnlGrpInfAndSts":{"OrgnlMsgId":"req-1","TxSts":"ACCP"}}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if body["acknowledged"] != true {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("participant listing", func(t *testing.T) {
		resp, body := doRequest(t, srv, http.MethodGet, "/ips/participants", "", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		data := body["data"].([]interface{})
		if len(data) != 4 {
			t.Errorf("participants = %d, want built-in defaults", len(data))
		}
	})
}
