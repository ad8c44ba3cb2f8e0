package ethereum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// ReceiptBackend fetches receipts.
type ReceiptBackend interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// HeadSubscriber streams new block headers.
type HeadSubscriber interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

// ReceiptWatcherConfig holds configuration for the receipt watcher.
type ReceiptWatcherConfig struct {
	PollInterval time.Duration // polling period, also used when heads are streaming
	BufferSize   int           // header channel buffer
}

// DefaultReceiptWatcherConfig returns sensible defaults for a 2s chain.
func DefaultReceiptWatcherConfig() ReceiptWatcherConfig {
	return ReceiptWatcherConfig{
		PollInterval: 2 * time.Second,
		BufferSize:   16,
	}
}

type receiptWatcherMetrics struct {
	lookups       metric.Int64Counter
	headsReceived metric.Int64Counter
	pollFallbacks metric.Int64Counter
	waitLatency   metric.Float64Histogram
}

// ReceiptWatcher waits for transactions to be mined. It checks on every new
// head when a subscription is available and polls otherwise.
type ReceiptWatcher struct {
	config   ReceiptWatcherConfig
	receipts ReceiptBackend
	heads    HeadSubscriber
	logger   logger.LoggerInterface

	cb *circuitbreaker.CircuitBreaker[*types.Receipt]

	tracer  trace.Tracer
	metrics *receiptWatcherMetrics
}

// NewReceiptWatcher creates a watcher. heads may be nil.
func NewReceiptWatcher(receipts ReceiptBackend, heads HeadSubscriber, cfg ReceiptWatcherConfig, log logger.LoggerInterface) (*ReceiptWatcher, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultReceiptWatcherConfig().PollInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultReceiptWatcherConfig().BufferSize
	}

	w := &ReceiptWatcher{
		config:   cfg,
		receipts: receipts,
		heads:    heads,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := w.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	cbCfg := circuitbreaker.DefaultConfig("eth-receipts")
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, ethereum.NotFound)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	w.cb = circuitbreaker.New[*types.Receipt](cbCfg)

	return w, nil
}

func (w *ReceiptWatcher) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	w.metrics = &receiptWatcherMetrics{}

	w.metrics.lookups, err = meter.Int64Counter(
		"eth_receipt_lookups_total",
		metric.WithDescription("Receipt lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return err
	}

	w.metrics.headsReceived, err = meter.Int64Counter(
		"eth_heads_received_total",
		metric.WithDescription("Headers received while waiting for receipts"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	w.metrics.pollFallbacks, err = meter.Int64Counter(
		"eth_receipt_poll_fallback_total",
		metric.WithDescription("Times the watcher fell back to polling"),
		metric.WithUnit("{fallback}"),
	)
	if err != nil {
		return err
	}

	w.metrics.waitLatency, err = meter.Float64Histogram(
		"eth_receipt_wait_ms",
		metric.WithDescription("Time from submission to receipt"),
		metric.WithUnit("ms"),
	)
	return err
}

// WaitMined blocks until tx has a receipt or ctx ends. A ctx that ends
// first yields RECEIPT_TIMEOUT; the transaction may still land.
func (w *ReceiptWatcher) WaitMined(ctx context.Context, tx common.Hash) (*domain.Receipt, error) {
	r, err := w.wait(ctx, tx)
	if err != nil {
		return nil, err
	}
	return toDomainReceipt(r), nil
}

func (w *ReceiptWatcher) wait(ctx context.Context, tx common.Hash) (*types.Receipt, error) {
	ctx, span := w.tracer.Start(ctx, "eth.wait_mined",
		trace.WithAttributes(attribute.String("tx", tx.Hex())),
	)
	defer span.End()

	start := time.Now()

	if r := w.lookup(ctx, tx); r != nil {
		return w.found(ctx, span, r, start), nil
	}

	var (
		headers chan *types.Header
		subErr  <-chan error
	)
	if w.heads != nil {
		headers = make(chan *types.Header, w.config.BufferSize)
		sub, err := w.heads.SubscribeNewHead(ctx, headers)
		if err != nil {
			w.logger.Warn(ctx, "head subscription failed, polling for receipt", "error", err)
			w.metrics.pollFallbacks.Add(ctx, 1)
			headers = nil
		} else {
			defer sub.Unsubscribe()
			subErr = sub.Err()
		}
	}

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			err := apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(fmt.Sprintf("no receipt for %s", tx.Hex())))
			apm.Fail(span, err)
			return nil, err

		case err := <-subErr:
			if err != nil {
				w.logger.Warn(ctx, "head subscription dropped, polling for receipt", "error", err)
			}
			w.metrics.pollFallbacks.Add(ctx, 1)
			headers, subErr = nil, nil

		case h := <-headers:
			if h == nil {
				continue
			}
			w.metrics.headsReceived.Add(ctx, 1)
			if r := w.lookup(ctx, tx); r != nil {
				return w.found(ctx, span, r, start), nil
			}

		case <-ticker.C:
			if r := w.lookup(ctx, tx); r != nil {
				return w.found(ctx, span, r, start), nil
			}
		}
	}
}

func (w *ReceiptWatcher) lookup(ctx context.Context, tx common.Hash) *types.Receipt {
	w.metrics.lookups.Add(ctx, 1)

	r, err := w.cb.Execute(func() (*types.Receipt, error) {
		return w.receipts.TransactionReceipt(ctx, tx)
	})
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			w.logger.Debug(ctx, "receipt lookup failed", "tx", tx.Hex(), "error", err)
		}
		return nil
	}
	return r
}

func (w *ReceiptWatcher) found(ctx context.Context, span trace.Span, r *types.Receipt, start time.Time) *types.Receipt {
	w.metrics.waitLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	if r.BlockNumber != nil {
		span.SetAttributes(attribute.Int64("block", r.BlockNumber.Int64()))
	}
	span.SetAttributes(attribute.Bool("succeeded", r.Status == types.ReceiptStatusSuccessful))
	apm.Succeed(span)
	return r
}

func toDomainReceipt(r *types.Receipt) *domain.Receipt {
	out := &domain.Receipt{
		TxHash:            r.TxHash,
		GasUsed:           r.GasUsed,
		EffectiveGasPrice: r.EffectiveGasPrice,
		Succeeded:         r.Status == types.ReceiptStatusSuccessful,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}
