package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestLogger_WritesServiceAndFields(t *testing.T) {
	timeNow = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { timeNow = time.Now }()

	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "flasharb", nil)

	log.Info(context.Background(), "cycle committed", "net_profit", "100")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v (%s)", err, buf.String())
	}

	if rec["service"] != "flasharb" {
		t.Errorf("service = %v, want flasharb", rec["service"])
	}
	if rec["msg"] != "cycle committed" {
		t.Errorf("msg = %v, want cycle committed", rec["msg"])
	}
	if rec["net_profit"] != "100" {
		t.Errorf("net_profit = %v, want 100", rec["net_profit"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "flasharb", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	log.Warn(context.Background(), "shown")
	if buf.Len() == 0 {
		t.Error("expected warn to be written")
	}
}

func TestLogger_TraceIDFn(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "flasharb", func(context.Context) string { return "abc123" })

	log.Error(context.Background(), "boom")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["trace_id"] != "abc123" {
		t.Errorf("trace_id = %v, want abc123", rec["trace_id"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "flasharb", nil).With("attempt", "a-1")

	log.Info(context.Background(), "hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["attempt"] != "a-1" {
		t.Errorf("attempt = %v, want a-1", rec["attempt"])
	}
}
