package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

func TestHealth_AllHealthy(t *testing.T) {
	s := NewServer(0, "test", logger.NewNop())
	s.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "block 42" })

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body Status
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Checks["rpc"].Message != "block 42" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestHealth_Degraded(t *testing.T) {
	s := NewServer(0, "test", logger.NewNop())
	s.RegisterCheck("rpc", func(context.Context) (bool, string) { return true, "" })
	s.RegisterCheck("reconciliation", func(context.Context) (bool, string) { return false, "1 abandoned attempt" })

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusServiceUnavailable},
		{"/ready", http.StatusServiceUnavailable},
		{"/live", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
