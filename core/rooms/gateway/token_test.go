package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchTokenSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/getToken" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("roomName"); got != "lobby" {
			t.Errorf("expected roomName=lobby, got %q", got)
		}
		if got := r.URL.Query().Get("identity"); got != "caller" {
			t.Errorf("expected identity=caller, got %q", got)
		}
		json.NewEncoder(w).Encode(tokenResponse{Token: "abc123"})
	}))
	defer server.Close()

	token, err := fetchToken(context.Background(), server.Client(), server.URL, "lobby", "caller")
	if err != nil {
		t.Fatalf("expected token fetch to succeed: %v", err)
	}
	if token != "abc123" {
		t.Fatalf("expected token abc123, got %q", token)
	}
}

func TestFetchTokenFailures(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		body        string
		expectedErr string
	}{
		{name: "server error with message", status: http.StatusBadGateway, body: `{"error":"upstream down"}`, expectedErr: "upstream down"},
		{name: "server error without message", status: http.StatusInternalServerError, body: `{}`, expectedErr: "non-OK HTTP status"},
		{name: "ok without token", status: http.StatusOK, body: `{}`, expectedErr: "no token"},
		{name: "ok with invalid body", status: http.StatusOK, body: `{"token":`, expectedErr: "unmarshalling"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				w.Write([]byte(testCase.body))
			}))
			defer server.Close()

			_, err := fetchToken(context.Background(), server.Client(), server.URL, "lobby", "caller")
			if err == nil {
				t.Fatalf("expected token fetch to fail")
			}
			if !strings.Contains(err.Error(), testCase.expectedErr) {
				t.Fatalf("expected error containing %q, got: %v", testCase.expectedErr, err)
			}
		})
	}
}
