// Package uniswap reads V2 pairs, V3 pools and the V3 quoter over JSON-RPC.
package uniswap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

const (
	tracerName = "venue.uniswap"
	meterName  = "venue.uniswap"
)

type callerMetrics struct {
	callsTotal  metric.Int64Counter
	callLatency metric.Float64Histogram
	callErrors  metric.Int64Counter
}

// caller performs throttled, circuit-broken eth_calls against one contract family.
type caller struct {
	client  ethereum.ContractCaller
	abi     abi.ABI
	family  string
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	limiter *ratelimit.Limiter
	tracer  trace.Tracer
	metrics *callerMetrics
}

func newCaller(client ethereum.ContractCaller, abiJSON, family string, limiter *ratelimit.Limiter) (*caller, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s ABI: %w", family, err)
	}

	c := &caller{
		client:  client,
		abi:     parsed,
		family:  family,
		cb:      circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("venue-" + family)),
		limiter: limiter,
		tracer:  otel.Tracer(tracerName),
	}
	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return c, nil
}

func (c *caller) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &callerMetrics{}

	c.metrics.callsTotal, err = meter.Int64Counter(
		"venue_calls_total",
		metric.WithDescription("Total venue contract reads"),
	)
	if err != nil {
		return err
	}

	c.metrics.callLatency, err = meter.Float64Histogram(
		"venue_call_latency_ms",
		metric.WithDescription("Venue contract read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.callErrors, err = meter.Int64Counter(
		"venue_call_errors_total",
		metric.WithDescription("Total venue contract read errors"),
	)
	return err
}

// call packs method(args), executes it against to and unpacks the outputs.
func (c *caller) call(ctx context.Context, to common.Address, method string, args ...any) ([]any, error) {
	ctx, span := c.tracer.Start(ctx, c.family+"."+method,
		trace.WithAttributes(
			attribute.String("contract", to.Hex()),
		),
	)
	defer span.End()

	attrs := metric.WithAttributes(
		attribute.String("family", c.family),
		attribute.String("method", method),
	)
	start := time.Now()
	c.metrics.callsTotal.Add(ctx, 1, attrs)
	defer func() {
		c.metrics.callLatency.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
	}()

	fail := func(err error) ([]any, error) {
		c.metrics.callErrors.Add(ctx, 1, attrs)
		apm.Fail(span, err)
		return nil, err
	}

	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fail(apperror.Internal(apperror.CodeInternalError, "pack "+method, err))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(apperror.New(apperror.CodeRateLimitExceeded, apperror.WithCause(err),
			apperror.WithContext(method)))
	}

	raw, err := c.cb.Execute(func() ([]byte, error) {
		return c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		if apperror.HasCode(err, apperror.CodeCircuitOpen, apperror.CodeCircuitHalfOpen) {
			return fail(err)
		}
		return fail(apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s.%s on %s", c.family, method, to.Hex()))))
	}

	out, err := c.abi.Unpack(method, raw)
	if err != nil {
		return fail(apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("decode "+method)))
	}

	apm.Succeed(span)
	return out, nil
}
