package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codedoc/internal/errors"
)

func respondWith(t *testing.T, w http.ResponseWriter, msg Message) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{{"message": msg}},
	})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func errCode(t *testing.T, err error) errors.ErrorCode {
	t.Helper()
	cde, ok := err.(*errors.CodeDocError)
	if !ok {
		t.Fatalf("error %v is not a *errors.CodeDocError", err)
	}
	return cde.Code
}

func TestCompleteReturnsAssistantMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		respondWith(t, w, Message{Role: "assistant", Content: "hello"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	msg, err := c.Complete(context.Background(), "some-model", []Message{{Role: "user", Content: "hi"}}, nil, 128)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want hello", msg.Content)
	}
}

func TestCompleteRepairsStringifiedToolArguments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, Message{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:   "call-1",
				Type: "function",
				Function: ToolCallFunc{
					Name:      "read_code_components",
					Arguments: `{"component_ids": "[\"a.f\", \"b.g\"]"}`,
				},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", 5*time.Second)
	msg, err := c.Complete(context.Background(), "some-model", nil, nil, 128)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var args struct {
		ComponentIDs []string `json:"component_ids"`
	}
	if err := json.Unmarshal([]byte(msg.ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("repaired arguments do not decode: %v", err)
	}
	if len(args.ComponentIDs) != 2 || args.ComponentIDs[0] != "a.f" {
		t.Errorf("ComponentIDs = %v, want [a.f b.g]", args.ComponentIDs)
	}
}

func TestCompleteClassifiesRetryableStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorCode
	}{
		{http.StatusTooManyRequests, errors.ModelUnavailable},
		{http.StatusInternalServerError, errors.ModelUnavailable},
		{http.StatusBadGateway, errors.ModelUnavailable},
		{http.StatusBadRequest, errors.ModelFatal},
		{http.StatusUnauthorized, errors.ModelFatal},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		c := NewClient(srv.URL, "test-key", 5*time.Second)
		_, err := c.Complete(context.Background(), "some-model", nil, nil, 128)
		srv.Close()
		if err == nil {
			t.Fatalf("status %d: expected an error", tt.status)
		}
		if got := errCode(t, err); got != tt.want {
			t.Errorf("status %d: code = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestFallbackChainAdvancesPastFailingModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model == "primary" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		respondWith(t, w, Message{Role: "assistant", Content: "from backup"})
	}))
	defer srv.Close()

	chain := NewFallbackChain(NewClient(srv.URL, "test-key", 5*time.Second), "primary", []string{"backup"}, nil)
	msg, modelUsed, err := chain.Complete(context.Background(), nil, nil, 128)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if modelUsed != "backup" {
		t.Errorf("modelUsed = %q, want backup", modelUsed)
	}
	if msg.Content != "from backup" {
		t.Errorf("Content = %q, want from backup", msg.Content)
	}
}

func TestFallbackChainExhaustionIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	chain := NewFallbackChain(NewClient(srv.URL, "test-key", 5*time.Second), "primary", []string{"backup"}, nil)
	_, _, err := chain.Complete(context.Background(), nil, nil, 128)
	if err == nil {
		t.Fatal("expected chain exhaustion to fail")
	}
	if got := errCode(t, err); got != errors.ModelFatal {
		t.Errorf("code = %s, want %s", got, errors.ModelFatal)
	}
}

func TestFixStringifiedJSONArrays(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "stringified array decoded",
			in:   `{"ids": "[\"a\", \"b\"]"}`,
			want: `{"ids":["a","b"]}`,
		},
		{
			name: "plain strings untouched",
			in:   `{"path": "/tmp/out.md"}`,
			want: `{"path": "/tmp/out.md"}`,
		},
		{
			name: "malformed input returned unchanged",
			in:   `not json`,
			want: `not json`,
		},
		{
			name: "bracketed non-JSON string untouched",
			in:   `{"note": "[see below]"}`,
			want: `{"note": "[see below]"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FixStringifiedJSONArrays(tt.in)
			if got != tt.want {
				t.Errorf("FixStringifiedJSONArrays(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(\"\") = %d, want 0", got)
	}
	if got := EstimateTokens("ab"); got != 1 {
		t.Errorf("EstimateTokens(short) = %d, want 1", got)
	}
	long := make([]byte, 4000)
	for i := range long {
		long[i] = 'x'
	}
	if got := EstimateTokens(string(long)); got != 1000 {
		t.Errorf("EstimateTokens(4000 chars) = %d, want 1000", got)
	}
}
