package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/ledger/app"
	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/circuitbreaker"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// TxBackend is the node surface the submitter writes through.
type TxBackend interface {
	ethereum.ContractCaller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// SubmitterConfig holds configuration for the submitter.
type SubmitterConfig struct {
	ChainID  *big.Int
	Executor common.Address // deployed executor contract
	GasLimit uint64         // upper bound on any estimate
}

// ParsePrivateKey parses a hex key with or without 0x.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeSignerError,
			apperror.WithCause(err),
			apperror.WithContext("invalid private key"))
	}
	return key, nil
}

type submitterMetrics struct {
	submissions metric.Int64Counter
	outcomes    metric.Int64Counter
	gasUsed     metric.Int64Histogram
}

// Submitter sends units of work to the executor contract as one
// EIP-1559 transaction each.
type Submitter struct {
	config  SubmitterConfig
	backend TxBackend
	gas     app.GasOracle
	watcher *ReceiptWatcher
	logger  logger.LoggerInterface

	abi    abi.ABI
	key    *ecdsa.PrivateKey
	from   common.Address
	signer types.Signer

	// serializes nonce allocation and broadcast
	sendMu sync.Mutex
	sendCB *circuitbreaker.CircuitBreaker[struct{}]

	tracer  trace.Tracer
	metrics *submitterMetrics
}

// NewSubmitter creates a submitter signing with key.
func NewSubmitter(backend TxBackend, gas app.GasOracle, watcher *ReceiptWatcher, key *ecdsa.PrivateKey, cfg SubmitterConfig, log logger.LoggerInterface) (*Submitter, error) {
	if key == nil {
		return nil, apperror.New(apperror.CodeSignerError, apperror.WithContext("private key is required"))
	}
	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "chain id is required")
	}

	parsed, err := abi.JSON(strings.NewReader(ExecutorABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse executor ABI: %w", err)
	}

	s := &Submitter{
		config:  cfg,
		backend: backend,
		gas:     gas,
		watcher: watcher,
		logger:  log,
		abi:     parsed,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(cfg.ChainID),
		sendCB:  circuitbreaker.New[struct{}](circuitbreaker.DefaultConfig("eth-send")),
		tracer:  otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *Submitter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &submitterMetrics{}

	s.metrics.submissions, err = meter.Int64Counter(
		"ledger_tx_submitted_total",
		metric.WithDescription("Transactions broadcast to the executor"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	s.metrics.outcomes, err = meter.Int64Counter(
		"ledger_tx_outcomes_total",
		metric.WithDescription("Submission outcomes by status"),
	)
	if err != nil {
		return err
	}

	s.metrics.gasUsed, err = meter.Int64Histogram(
		"ledger_tx_gas_used",
		metric.WithDescription("Gas used by mined executor transactions"),
		metric.WithUnit("{gas}"),
	)
	return err
}

// From returns the signing account.
func (s *Submitter) From() common.Address {
	return s.from
}

// SubmitAtomic simulates the unit, then signs, sends and waits for it.
// Units that fail simulation are reported reverted without being sent.
// On-chain the executor contract runs the swaps, so unit.Callback is not used.
func (s *Submitter) SubmitAtomic(ctx context.Context, unit *domain.UnitOfWork) (*domain.Submission, error) {
	if unit == nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "unit of work is required")
	}

	ctx, span := s.tracer.Start(ctx, "ethereum.SubmitAtomic",
		trace.WithAttributes(
			attribute.String("unit.id", unit.ID),
			attribute.String("executor", s.config.Executor.Hex()),
		),
	)
	defer span.End()

	data, err := s.pack(unit)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	to := s.config.Executor
	if _, err := s.backend.CallContract(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: data}, nil); err != nil {
		if reason, ok := revertReason(err); ok {
			span.AddEvent("preflight_reverted", trace.WithAttributes(attribute.String("reason", reason)))
			s.record(ctx, domain.StatusReverted)
			return &domain.Submission{Status: domain.StatusReverted, Reason: reason, Cause: revertError(reason)}, nil
		}
		err = apperror.External(apperror.CodeContractCallFailed, "preflight call", err)
		apm.Fail(span, err)
		return nil, err
	}

	gasLimit, err := s.gas.EstimateGas(ctx, s.from, to, data)
	if err != nil {
		s.logger.Warn(ctx, "gas estimate failed, using default", "gas", gasLimit, "error", err)
	}
	if s.config.GasLimit > 0 && (gasLimit == 0 || gasLimit > s.config.GasLimit) {
		gasLimit = s.config.GasLimit
	}

	price, err := s.gas.SuggestGasPrice(ctx)
	if err != nil {
		apm.Fail(span, err)
		return nil, err
	}

	signed, err := s.send(ctx, data, gasLimit, price)
	switch {
	case err == nil:
	case signed != nil && alreadyKnown(err):
		s.logger.Info(ctx, "node already holds the transaction", "unit_id", unit.ID, "tx", signed.Hash().Hex())
	case signed != nil && !sendRejected(err):
		// The node may have accepted the transaction before the error.
		s.logger.Warn(ctx, "broadcast outcome unknown", "unit_id", unit.ID, "tx", signed.Hash().Hex(), "error", err)
		s.record(ctx, domain.StatusAbandoned)
		apm.Fail(span, err)
		return &domain.Submission{Status: domain.StatusAbandoned, TxHash: signed.Hash(), Reason: apperror.Reason(err), Cause: err}, nil
	default:
		apm.Fail(span, err)
		return nil, err
	}
	txHash := signed.Hash()
	span.SetAttributes(attribute.String("tx", txHash.Hex()))
	s.logger.Info(ctx, "unit submitted", "unit_id", unit.ID, "tx", txHash.Hex(),
		"gas_limit", gasLimit, "fee_cap_gwei", price.FeeCapGwei())

	receipt, err := s.watcher.wait(ctx, txHash)
	if err != nil {
		s.logger.Warn(ctx, "unit outcome unknown", "unit_id", unit.ID, "tx", txHash.Hex(), "error", err)
		s.record(ctx, domain.StatusAbandoned)
		return &domain.Submission{Status: domain.StatusAbandoned, TxHash: txHash, Reason: apperror.Reason(err), Cause: err}, nil
	}

	s.metrics.gasUsed.Record(ctx, int64(receipt.GasUsed))
	mined := toDomainReceipt(receipt)

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := s.replayRevert(ctx, data, receipt.BlockNumber)
		s.record(ctx, domain.StatusReverted)
		s.logger.Info(ctx, "unit reverted on chain", "unit_id", unit.ID, "tx", txHash.Hex(), "reason", reason)
		return &domain.Submission{
			Status:  domain.StatusReverted,
			TxHash:  txHash,
			Receipt: mined,
			Reason:  reason,
			Cause:   revertError(reason),
		}, nil
	}

	gross, legs := s.decodeLogs(receipt.Logs)
	s.record(ctx, domain.StatusCommitted)
	apm.Succeed(span)

	return &domain.Submission{
		Status:        domain.StatusCommitted,
		TxHash:        txHash,
		Receipt:       mined,
		GrossProceeds: gross,
		LegOutputs:    legs,
	}, nil
}

func (s *Submitter) pack(unit *domain.UnitOfWork) ([]byte, error) {
	if unit.Borrow == nil {
		if len(unit.Swaps) != 1 || unit.AmountIn == nil {
			return nil, apperror.Validation(apperror.CodeInvalidInput, "a unit without a loan must be one funded swap")
		}
		data, err := s.abi.Pack("executeSingleLeg", toSwapStep(unit.Swaps[0]), unit.AmountIn)
		if err != nil {
			return nil, apperror.Internal(apperror.CodeInternalError, "pack executeSingleLeg", err)
		}
		return data, nil
	}

	steps := make([]swapStep, len(unit.Swaps))
	for i, sw := range unit.Swaps {
		steps[i] = toSwapStep(sw)
	}
	minProceeds := unit.MinProceeds
	if minProceeds == nil {
		minProceeds = unit.Borrow.RepaymentDue
	}

	data, err := s.abi.Pack("executeArbitrage",
		unit.Borrow.Provider, unit.Borrow.Asset, unit.Borrow.Principal, steps, minProceeds)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeInternalError, "pack executeArbitrage", err)
	}
	return data, nil
}

// send signs and broadcasts. When only the broadcast fails, the signed
// transaction is returned with the error.
func (s *Submitter) send(ctx context.Context, data []byte, gasLimit uint64, price *domain.GasPrice) (*types.Transaction, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, apperror.External(apperror.CodeEthereumRPCError, "pending nonce", err)
	}

	to := s.config.Executor
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.config.ChainID,
		Nonce:     nonce,
		GasTipCap: price.TipCap,
		GasFeeCap: price.FeeCap,
		Gas:       gasLimit,
		To:        &to,
		Data:      data,
	})

	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeSignerError, apperror.WithCause(err), apperror.WithContext("sign transaction"))
	}

	_, err = s.sendCB.Execute(func() (struct{}, error) {
		return struct{}{}, s.backend.SendTransaction(ctx, signed)
	})
	if err != nil {
		return signed, apperror.Wrap(err, apperror.CodeEthereumRPCError, "send transaction")
	}

	s.metrics.submissions.Add(ctx, 1)
	return signed, nil
}

// replayRevert re-runs the call at the block it failed in to recover the
// revert string.
func (s *Submitter) replayRevert(ctx context.Context, data []byte, block *big.Int) string {
	to := s.config.Executor
	_, err := s.backend.CallContract(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: data}, block)
	if reason, ok := revertReason(err); ok {
		return reason
	}
	return "transaction reverted"
}

func (s *Submitter) decodeLogs(logs []*types.Log) (*big.Int, []*big.Int) {
	arbEvent := s.abi.Events["ArbitrageExecuted"]
	legEvent := s.abi.Events["LegExecuted"]

	var (
		gross *big.Int
		legs  []*big.Int
	)
	for _, lg := range logs {
		if lg.Address != s.config.Executor || len(lg.Topics) == 0 {
			continue
		}
		switch lg.Topics[0] {
		case arbEvent.ID:
			vals, err := arbEvent.Inputs.NonIndexed().Unpack(lg.Data)
			if err == nil && len(vals) == 3 {
				gross, _ = vals[1].(*big.Int)
			}
		case legEvent.ID:
			vals, err := legEvent.Inputs.NonIndexed().Unpack(lg.Data)
			if err == nil && len(vals) == 3 {
				if out, ok := vals[2].(*big.Int); ok {
					legs = append(legs, out)
				}
			}
		}
	}

	if gross == nil && len(legs) > 0 {
		gross = legs[len(legs)-1]
	}
	return gross, legs
}

func (s *Submitter) record(ctx context.Context, status domain.Status) {
	s.metrics.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status.String())))
}
