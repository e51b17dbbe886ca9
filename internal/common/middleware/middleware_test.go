package middleware

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type memIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]struct {
		status   int
		response []byte
	}
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{entries: map[string]struct {
		status   int
		response []byte
	}{}}
}

func (s *memIdempotencyStore) Get(_ context.Context, key string) ([]byte, int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, 0, false, nil
	}
	return e.response, e.status, true, nil
}

func (s *memIdempotencyStore) Set(_ context.Context, key string, status int, response []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = struct {
		status   int
		response []byte
	}{status, response}
	return nil
}

// The production router registers Compress before Idempotency, so the
// recorder only ever caches plain bytes. A cached gzip body would be
// replayed verbatim to clients that never asked for gzip.
func TestIdempotencyUnderCompression(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemIdempotencyStore()
	var handlerCalls int

	r := chi.NewRouter()
	r.Use(chimw.Compress(5))
	r.Use(Idempotency(store, time.Hour, logger))
	r.Post("/payments", func(w http.ResponseWriter, req *http.Request) {
		handlerCalls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"requestId":"req-1","status":"accepted"}}`))
	})

	post := func(acceptEncoding string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "key-1")
		if acceptEncoding != "" {
			req.Header.Set("Accept-Encoding", acceptEncoding)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("first request served compressed", func(t *testing.T) {
		rec := post("gzip")
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", got)
		}
		gz, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		plain, err := io.ReadAll(gz)
		if err != nil {
			t.Fatalf("gunzip: %v", err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(plain, &body); err != nil {
			t.Fatalf("undecodable body %q: %v", plain, err)
		}
	})

	t.Run("replay to a plain client decodes", func(t *testing.T) {
		rec := post("")
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec.Header().Get("X-Idempotency-Replayed") != "true" {
			t.Fatal("expected a replayed response")
		}
		if got := rec.Header().Get("Content-Encoding"); got == "gzip" {
			t.Error("plain client must not receive gzip")
		}
		var body map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("undecodable replay %q: %v", rec.Body.Bytes(), err)
		}
		if handlerCalls != 1 {
			t.Errorf("handler calls = %d, want 1", handlerCalls)
		}
	})

	t.Run("replay to a gzip client recompresses", func(t *testing.T) {
		rec := post("gzip")
		if rec.Header().Get("X-Idempotency-Replayed") != "true" {
			t.Fatal("expected a replayed response")
		}
		if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", got)
		}
		gz, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		plain, err := io.ReadAll(gz)
		if err != nil {
			t.Fatalf("gunzip: %v", err)
		}
		var body map[string]interface{}
		if err := json.Unmarshal(plain, &body); err != nil {
			t.Fatalf("undecodable replay %q: %v", plain, err)
		}
		if handlerCalls != 1 {
			t.Errorf("handler calls = %d, want 1", handlerCalls)
		}
	})
}

func TestIdempotencySkipsReads(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemIdempotencyStore()
	var handlerCalls int

	r := chi.NewRouter()
	r.Use(Idempotency(store, time.Hour, logger))
	r.Get("/accounts", func(w http.ResponseWriter, req *http.Request) {
		handlerCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Header().Get("X-Idempotency-Replayed") == "true" {
			t.Fatal("GET must never replay")
		}
	}
	if handlerCalls != 2 {
		t.Errorf("handler calls = %d, want 2", handlerCalls)
	}
}
