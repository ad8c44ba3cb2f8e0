package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// GasBackend is the node surface the gas oracle reads.
type GasBackend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	CacheTTL    time.Duration // how long a bid is reused, about one block
	MaxFeeCap   *big.Int      // safety cap on the fee bid
	DefaultGas  uint64        // used when estimation fails
	GasMarginPc uint64        // added to estimates, in percent
}

// DefaultGasOracleConfig returns sensible defaults.
func DefaultGasOracleConfig() GasOracleConfig {
	return GasOracleConfig{
		CacheTTL:    12 * time.Second,
		MaxFeeCap:   domain.GweiToWei(500),
		DefaultGas:  1_500_000,
		GasMarginPc: 10,
	}
}

type gasOracleMetrics struct {
	priceFetches metric.Int64Counter
	feeCapGwei   metric.Float64Gauge
	estimates    metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter
}

// GasOracle prices EIP-1559 transactions.
type GasOracle struct {
	config  GasOracleConfig
	backend GasBackend
	logger  logger.LoggerInterface

	priceCache *cache.Cache[string, *domain.GasPrice]
	cb         *circuitbreaker.CircuitBreaker[*domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// NewGasOracle creates a gas oracle over backend.
func NewGasOracle(backend GasBackend, cfg GasOracleConfig, log logger.LoggerInterface) (*GasOracle, error) {
	g := &GasOracle{
		config:     cfg,
		backend:    backend,
		logger:     log,
		priceCache: cache.New[string, *domain.GasPrice](4, time.Minute),
		cb:         circuitbreaker.New[*domain.GasPrice](circuitbreaker.DefaultConfig("gas-oracle")),
		tracer:     otel.Tracer(tracerName),
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.priceFetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.feeCapGwei, err = meter.Float64Gauge(
		"gas_fee_cap_gwei",
		metric.WithDescription("Current fee cap bid in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.estimates, err = meter.Int64Counter(
		"gas_estimate_total",
		metric.WithDescription("Total gas estimation calls"),
		metric.WithUnit("{estimate}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// SuggestGasPrice returns the current bid: latest base fee doubled plus
// the node's suggested tip, capped at MaxFeeCap.
func (g *GasOracle) SuggestGasPrice(ctx context.Context) (*domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.suggest_price")
	defer span.End()

	if price, found := g.priceCache.Get(ctx, "current"); found {
		g.metrics.cacheHits.Add(ctx, 1)
		span.AddEvent("cache_hit")
		return price, nil
	}

	g.metrics.cacheMisses.Add(ctx, 1)
	g.metrics.priceFetches.Add(ctx, 1)

	price, err := g.cb.Execute(func() (*domain.GasPrice, error) {
		head, err := g.backend.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		tip, err := g.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, err
		}
		baseFee := head.BaseFee
		if baseFee == nil {
			baseFee = new(big.Int)
		}
		return domain.NewGasPrice(baseFee, tip, g.config.MaxFeeCap), nil
	})
	if err != nil {
		err = apperror.New(apperror.CodeEthereumRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get gas price"))
		apm.Fail(span, err)
		return nil, err
	}

	if g.config.MaxFeeCap != nil && price.FeeCap.Cmp(g.config.MaxFeeCap) == 0 {
		g.logger.Warn(ctx, "fee cap clamped to max", "max_gwei", price.FeeCapGwei())
	}

	g.priceCache.Set(ctx, "current", price, g.config.CacheTTL)
	g.metrics.feeCapGwei.Record(ctx, price.FeeCapGwei())

	span.SetAttributes(attribute.Float64("fee_cap_gwei", price.FeeCapGwei()))
	apm.Succeed(span)
	return price, nil
}

// EstimateGas estimates a call and adds the safety margin. When the node
// cannot estimate, DefaultGas is returned along with the error.
func (g *GasOracle) EstimateGas(ctx context.Context, from, to common.Address, data []byte) (uint64, error) {
	ctx, span := g.tracer.Start(ctx, "gas.estimate",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	g.metrics.estimates.Add(ctx, 1)

	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		err = apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to estimate gas for %s", to.Hex())))
		apm.Fail(span, err)
		return g.config.DefaultGas, err
	}

	gas += gas * g.config.GasMarginPc / 100

	span.SetAttributes(attribute.Int64("gas", int64(gas)))
	apm.Succeed(span)
	return gas, nil
}

// Close releases the price cache.
func (g *GasOracle) Close() error {
	g.priceCache.Close()
	return nil
}
