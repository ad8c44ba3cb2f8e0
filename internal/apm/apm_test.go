package apm

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/flashloan-arb/internal/logger"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewTraceProvider_EmptyAndUnknown(t *testing.T) {
	for _, p := range []Provider{EmptyProvider, Provider("jaeger")} {
		tp, err := NewTraceProvider(context.Background(), logger.NewNop(), p, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", p, err)
		}
		if _, ok := tp.(emptyTraceProvider); !ok {
			t.Errorf("%s: got %T, want emptyTraceProvider", p, tp)
		}
		if err := tp.Stop(); err != nil {
			t.Errorf("%s: Stop: %v", p, err)
		}
	}
}

func TestFail(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	_, span := tp.Tracer("test").Start(context.Background(), "submit")
	Fail(span, errors.New("reverted"))
	Fail(span, nil)
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", ended[0].Status().Code)
	}
	if len(ended[0].Events()) != 1 {
		t.Errorf("events = %d, want 1", len(ended[0].Events()))
	}
}
