package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smarttask/backend/domain"
)

func testClient(baseURL string) *Client {
	return New(Config{
		APIKey:     "test-key",
		Model:      "gemini-1.5-pro",
		BaseURL:    baseURL,
		Timeout:    time.Second,
		MaxRetries: 2,
	}, nil)
}

func candidateBody(texts ...string) []byte {
	parts := make([]part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, part{Text: t})
	}
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{"parts": parts}},
		},
	}
	body, _ := json.Marshal(resp)
	return body
}

func TestGenerate_ReturnsCompletionText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if !strings.Contains(r.URL.Path, "gemini-1.5-pro:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
			t.Fatalf("unexpected request shape: %+v", req)
		}

		w.Write(candidateBody(`{"task": "x"`, `}`))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Generate(context.Background(), "parse this")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `{"task": "x"}` {
		t.Errorf("parts should be concatenated, got %q", text)
	}
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates": []}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGenerate_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write(candidateBody("recovered"))
	}))
	defer srv.Close()

	text, err := testClient(srv.URL).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "recovered" {
		t.Errorf("unexpected text %q", text)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestGenerate_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "invalid argument", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Generate(context.Background(), "prompt")
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("expected UNAVAILABLE classification, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid argument") {
		t.Errorf("error should carry the API message, got %q", err.Error())
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("client errors must not be retried, got %d calls", calls)
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	c := New(Config{}, nil)
	_, err := c.Generate(context.Background(), "prompt")
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("expected UNAVAILABLE classification, got %v", err)
	}
}
