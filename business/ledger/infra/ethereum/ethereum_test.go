package ethereum

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

var (
	executorAddr = common.HexToAddress("0x00000000000000000000000000000000000e0e00")
	providerAddr = common.HexToAddress("0x000000000000000000000000000000000000aa7e")
	tokenA       = common.HexToAddress("0x000000000000000000000000000000000000000a")
	tokenB       = common.HexToAddress("0x000000000000000000000000000000000000000b")
	testChainID  = big.NewInt(137)
)

// revertDataError carries revert data the way geth's RPC client does.
type revertDataError struct {
	data string
}

func (e revertDataError) Error() string          { return "execution reverted" }
func (e revertDataError) ErrorData() interface{} { return e.data }

func encodeRevert(t *testing.T, reason string) string {
	t.Helper()
	strTy, err := abi.NewType("string", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	packed, err := abi.Arguments{{Type: strTy}}.Pack(reason)
	if err != nil {
		t.Fatal(err)
	}
	selector := []byte{0x08, 0xc3, 0x79, 0xa0}
	return hexutil.Encode(append(selector, packed...))
}

// fakeChain implements every backend the package reads and writes.
type fakeChain struct {
	mu sync.Mutex

	callErr   error
	replayErr error

	baseFee     *big.Int
	tip         *big.Int
	headerCalls int
	estimate    uint64
	estimateErr error

	nonce   uint64
	sendErr error
	sent    []*types.Transaction

	// receipt is returned for the last sent tx once lookups reach readyAfter
	receipt    *types.Receipt
	readyAfter int
	lookups    int
}

func (f *fakeChain) CallContract(_ context.Context, _ ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if block != nil {
		return nil, f.replayErr
	}
	return nil, f.callErr
}

func (f *fakeChain) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return f.sendErr
}

func (f *fakeChain) TransactionReceipt(_ context.Context, h common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.receipt == nil || f.lookups <= f.readyAfter {
		return nil, ethereum.NotFound
	}
	r := *f.receipt
	r.TxHash = h
	return &r, nil
}

func (f *fakeChain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headerCalls++
	return &types.Header{Number: big.NewInt(100), BaseFee: f.baseFee}, nil
}

func (f *fakeChain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return f.tip, nil
}

func (f *fakeChain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return f.estimate, f.estimateErr
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		baseFee:  domain.GweiToWei(30),
		tip:      domain.GweiToWei(2),
		estimate: 400_000,
	}
}

func newTestSubmitter(t *testing.T, chain *fakeChain) *Submitter {
	t.Helper()
	log := logger.NewNop()

	gas, err := NewGasOracle(chain, DefaultGasOracleConfig(), log)
	if err != nil {
		t.Fatalf("NewGasOracle() error = %v", err)
	}
	t.Cleanup(func() { _ = gas.Close() })

	watcher, err := NewReceiptWatcher(chain, nil, ReceiptWatcherConfig{PollInterval: 5 * time.Millisecond}, log)
	if err != nil {
		t.Fatalf("NewReceiptWatcher() error = %v", err)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	s, err := NewSubmitter(chain, gas, watcher, key, SubmitterConfig{
		ChainID:  testChainID,
		Executor: executorAddr,
		GasLimit: 1_000_000,
	}, log)
	if err != nil {
		t.Fatalf("NewSubmitter() error = %v", err)
	}
	return s
}

func arbUnit() *domain.UnitOfWork {
	return &domain.UnitOfWork{
		ID: "attempt-1",
		Borrow: &domain.Borrow{
			Provider:     providerAddr,
			Asset:        tokenA,
			Principal:    big.NewInt(1_000_000),
			RepaymentDue: big.NewInt(1_000_900),
		},
		Swaps: []domain.Swap{
			{Kind: domain.SwapConstantProduct, TokenIn: tokenA, TokenOut: tokenB, Fee: 30, MinAmountOut: big.NewInt(1)},
			{Kind: domain.SwapConcentrated, TokenIn: tokenB, TokenOut: tokenA, Fee: 3000},
		},
		MinProceeds: big.NewInt(1_001_000),
	}
}

func executorLogs(t *testing.T, gross int64, legOuts ...int64) []*types.Log {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(ExecutorABI))
	if err != nil {
		t.Fatal(err)
	}

	var logs []*types.Log
	legEvent := parsed.Events["LegExecuted"]
	for i, out := range legOuts {
		data, err := legEvent.Inputs.NonIndexed().Pack(uint8(i), big.NewInt(1), big.NewInt(out))
		if err != nil {
			t.Fatal(err)
		}
		logs = append(logs, &types.Log{
			Address: executorAddr,
			Topics:  []common.Hash{legEvent.ID, common.BytesToHash(tokenA.Bytes()), common.BytesToHash(tokenB.Bytes())},
			Data:    data,
		})
	}

	arbEvent := parsed.Events["ArbitrageExecuted"]
	data, err := arbEvent.Inputs.NonIndexed().Pack(big.NewInt(1_000_000), big.NewInt(gross), big.NewInt(1_000_900))
	if err != nil {
		t.Fatal(err)
	}
	logs = append(logs, &types.Log{
		Address: executorAddr,
		Topics:  []common.Hash{arbEvent.ID, common.BytesToHash(tokenA.Bytes())},
		Data:    data,
	})
	return logs
}

func TestRevertReason(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   string
		wantOk bool
	}{
		{name: "nil", err: nil},
		{name: "unrelated", err: errors.New("connection refused")},
		{name: "error string data", err: revertDataError{data: encodeRevert(t, "Too little received")}, want: "Too little received", wantOk: true},
		{name: "custom error", err: revertDataError{data: "0xdeadbeef"}, want: "custom error 0xdeadbeef", wantOk: true},
		{name: "message only", err: errors.New("execution reverted: STF"), want: "STF", wantOk: true},
		{name: "bare revert", err: errors.New("execution reverted"), want: "execution reverted", wantOk: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := revertReason(tt.err)
			if ok != tt.wantOk || got != tt.want {
				t.Errorf("revertReason() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestClassifyRevert(t *testing.T) {
	tests := []struct {
		reason string
		want   apperror.Code
	}{
		{"Too little received", apperror.CodeLedgerReverted},
		{"UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT", apperror.CodeLedgerReverted},
		{"UniswapV2: INSUFFICIENT_LIQUIDITY", apperror.CodeInsufficientLiquidity},
		{"FlashArb: unprofitable", apperror.CodeProfitabilityRejected},
		{"proceeds below minimum", apperror.CodeProfitabilityRejected},
		{"STF", apperror.CodeLedgerReverted},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if got := classifyRevert(tt.reason); got != tt.want {
				t.Errorf("classifyRevert(%q) = %s, want %s", tt.reason, got, tt.want)
			}
		})
	}
}

func TestGasOracle_SuggestGasPriceIsCached(t *testing.T) {
	chain := newFakeChain()
	g, err := NewGasOracle(chain, DefaultGasOracleConfig(), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	first, err := g.SuggestGasPrice(context.Background())
	if err != nil {
		t.Fatalf("SuggestGasPrice() error = %v", err)
	}
	if _, err := g.SuggestGasPrice(context.Background()); err != nil {
		t.Fatalf("SuggestGasPrice() error = %v", err)
	}

	if chain.headerCalls != 1 {
		t.Errorf("header calls = %d, want 1", chain.headerCalls)
	}
	if want := domain.GweiToWei(62); first.FeeCap.Cmp(want) != 0 {
		t.Errorf("FeeCap = %s, want %s", first.FeeCap, want)
	}
}

func TestGasOracle_FeeCapClamped(t *testing.T) {
	chain := newFakeChain()
	chain.baseFee = domain.GweiToWei(400)

	g, err := NewGasOracle(chain, DefaultGasOracleConfig(), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	price, err := g.SuggestGasPrice(context.Background())
	if err != nil {
		t.Fatalf("SuggestGasPrice() error = %v", err)
	}
	if want := domain.GweiToWei(500); price.FeeCap.Cmp(want) != 0 {
		t.Errorf("FeeCap = %s, want %s", price.FeeCap, want)
	}
}

func TestGasOracle_EstimateGas(t *testing.T) {
	chain := newFakeChain()
	g, err := NewGasOracle(chain, DefaultGasOracleConfig(), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer g.Close()

	gas, err := g.EstimateGas(context.Background(), providerAddr, executorAddr, nil)
	if err != nil {
		t.Fatalf("EstimateGas() error = %v", err)
	}
	if gas != 440_000 {
		t.Errorf("EstimateGas() = %d, want 440000", gas)
	}

	chain.estimateErr = errors.New("boom")
	gas, err = g.EstimateGas(context.Background(), providerAddr, executorAddr, nil)
	if !apperror.HasCode(err, apperror.CodeGasEstimationFailed) {
		t.Errorf("error = %v, want GAS_ESTIMATION_FAILED", err)
	}
	if gas != DefaultGasOracleConfig().DefaultGas {
		t.Errorf("fallback gas = %d, want %d", gas, DefaultGasOracleConfig().DefaultGas)
	}
}

func TestReceiptWatcher_PollsUntilMined(t *testing.T) {
	chain := &fakeChain{
		receipt:    &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(7), GasUsed: 21_000},
		readyAfter: 3,
	}
	w, err := NewReceiptWatcher(chain, nil, ReceiptWatcherConfig{PollInterval: time.Millisecond}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	tx := common.HexToHash("0x01")
	r, err := w.WaitMined(ctx, tx)
	if err != nil {
		t.Fatalf("WaitMined() error = %v", err)
	}
	if r.BlockNumber != 7 || !r.Succeeded || r.TxHash != tx {
		t.Errorf("receipt = %+v", r)
	}
}

func TestReceiptWatcher_Timeout(t *testing.T) {
	w, err := NewReceiptWatcher(&fakeChain{}, nil, ReceiptWatcherConfig{PollInterval: time.Millisecond}, logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = w.WaitMined(ctx, common.HexToHash("0x02"))
	if !apperror.HasCode(err, apperror.CodeReceiptTimeout) {
		t.Errorf("error = %v, want RECEIPT_TIMEOUT", err)
	}
}

func TestParsePrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	hexKey := "0x" + common.Bytes2Hex(crypto.FromECDSA(key))

	parsed, err := ParsePrivateKey(hexKey)
	if err != nil {
		t.Fatalf("ParsePrivateKey() error = %v", err)
	}
	if crypto.PubkeyToAddress(parsed.PublicKey) != crypto.PubkeyToAddress(key.PublicKey) {
		t.Error("parsed key does not match")
	}

	if _, err := ParsePrivateKey("not-a-key"); !apperror.HasCode(err, apperror.CodeSignerError) {
		t.Errorf("error = %v, want SIGNER_ERROR", err)
	}
}

func TestSubmitter_PreflightRevertIsNotBroadcast(t *testing.T) {
	chain := newFakeChain()
	chain.callErr = revertDataError{data: encodeRevert(t, "FlashArb: unprofitable")}
	s := newTestSubmitter(t, chain)

	sub, err := s.SubmitAtomic(context.Background(), arbUnit())
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusReverted {
		t.Fatalf("status = %s, want reverted", sub.Status)
	}
	if sub.Reason != "FlashArb: unprofitable" {
		t.Errorf("reason = %q", sub.Reason)
	}
	if !apperror.HasCode(sub.Cause, apperror.CodeProfitabilityRejected) {
		t.Errorf("cause = %v, want PROFITABILITY_REJECTED", sub.Cause)
	}
	if len(chain.sent) != 0 {
		t.Errorf("sent %d transactions, want 0", len(chain.sent))
	}
}

func TestSubmitter_Committed(t *testing.T) {
	chain := newFakeChain()
	chain.nonce = 9
	chain.receipt = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(100),
		GasUsed:     310_000,
		Logs:        executorLogs(t, 1_002_000, 20_000, 1_002_000),
	}
	s := newTestSubmitter(t, chain)

	sub, err := s.SubmitAtomic(context.Background(), arbUnit())
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if !sub.Committed() {
		t.Fatalf("status = %s, want committed", sub.Status)
	}
	if sub.GrossProceeds == nil || sub.GrossProceeds.Int64() != 1_002_000 {
		t.Errorf("gross = %v, want 1002000", sub.GrossProceeds)
	}
	if len(sub.LegOutputs) != 2 || sub.LegOutputs[0].Int64() != 20_000 {
		t.Errorf("leg outputs = %v", sub.LegOutputs)
	}

	if len(chain.sent) != 1 {
		t.Fatalf("sent %d transactions, want 1", len(chain.sent))
	}
	tx := chain.sent[0]
	if tx.Nonce() != 9 || tx.ChainId().Cmp(testChainID) != 0 {
		t.Errorf("nonce/chain = %d/%s", tx.Nonce(), tx.ChainId())
	}
	if tx.Gas() != 440_000 {
		t.Errorf("gas = %d, want 440000", tx.Gas())
	}
	from, err := types.Sender(types.LatestSignerForChainID(testChainID), tx)
	if err != nil || from != s.From() {
		t.Errorf("sender = %s, %v, want %s", from.Hex(), err, s.From().Hex())
	}
	if sub.TxHash != tx.Hash() || sub.Receipt.TxHash != tx.Hash() {
		t.Errorf("tx hash = %s, want %s", sub.TxHash.Hex(), tx.Hash().Hex())
	}
}

func TestSubmitter_RevertedOnChain(t *testing.T) {
	chain := newFakeChain()
	chain.receipt = &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(101)}
	chain.replayErr = revertDataError{data: encodeRevert(t, "Too little received")}
	s := newTestSubmitter(t, chain)

	sub, err := s.SubmitAtomic(context.Background(), arbUnit())
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusReverted {
		t.Fatalf("status = %s, want reverted", sub.Status)
	}
	if sub.Reason != "Too little received" {
		t.Errorf("reason = %q", sub.Reason)
	}
	if !apperror.HasCode(sub.Cause, apperror.CodeLedgerReverted) {
		t.Errorf("cause = %v, want LEDGER_REVERTED", sub.Cause)
	}
	if sub.Receipt == nil || sub.Receipt.Succeeded {
		t.Errorf("receipt = %+v, want failed receipt", sub.Receipt)
	}
}

func TestSubmitter_AbandonedWhenReceiptNeverArrives(t *testing.T) {
	chain := newFakeChain()
	s := newTestSubmitter(t, chain)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	sub, err := s.SubmitAtomic(ctx, arbUnit())
	if err != nil {
		t.Fatalf("SubmitAtomic() error = %v", err)
	}
	if sub.Status != domain.StatusAbandoned {
		t.Fatalf("status = %s, want abandoned", sub.Status)
	}
	if len(chain.sent) != 1 || sub.TxHash != chain.sent[0].Hash() {
		t.Errorf("abandoned submission must carry the broadcast hash")
	}
}

func TestSubmitter_SendFailure(t *testing.T) {
	tests := []struct {
		name       string
		sendErr    error
		mined      bool
		wantErr    bool
		wantStatus domain.Status
	}{
		{"nonce_too_low", errors.New("nonce too low"), false, true, 0},
		{"underpriced", errors.New("replacement transaction underpriced"), false, true, 0},
		{"insufficient_funds", errors.New("insufficient funds for gas * price + value"), false, true, 0},
		{"timeout", context.DeadlineExceeded, false, false, domain.StatusAbandoned},
		{"connection_reset", errors.New("read tcp 10.0.0.1:8545: connection reset by peer"), false, false, domain.StatusAbandoned},
		{"already_known", errors.New("already known"), true, false, domain.StatusCommitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain()
			chain.sendErr = tt.sendErr
			if tt.mined {
				chain.receipt = &types.Receipt{
					Status:      types.ReceiptStatusSuccessful,
					BlockNumber: big.NewInt(100),
					Logs:        executorLogs(t, 1_002_000, 20_000, 1_002_000),
				}
			}
			s := newTestSubmitter(t, chain)

			sub, err := s.SubmitAtomic(context.Background(), arbUnit())
			if tt.wantErr {
				if !apperror.HasCode(err, apperror.CodeEthereumRPCError) {
					t.Errorf("error = %v, want ETHEREUM_RPC_ERROR", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("SubmitAtomic() error = %v", err)
			}
			if sub.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", sub.Status, tt.wantStatus)
			}
			if len(chain.sent) != 1 || sub.TxHash != chain.sent[0].Hash() {
				t.Errorf("submission must carry the signed hash")
			}
			if tt.wantStatus == domain.StatusAbandoned && sub.Cause == nil {
				t.Error("abandoned submission lost its cause")
			}
		})
	}
}

func TestSubmitter_SingleLegUnitShape(t *testing.T) {
	s := newTestSubmitter(t, newFakeChain())

	unit := &domain.UnitOfWork{
		ID:       "leg-1",
		AmountIn: big.NewInt(1_000),
		Swaps:    arbUnit().Swaps,
	}
	_, err := s.SubmitAtomic(context.Background(), unit)
	if !apperror.HasCode(err, apperror.CodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT for two swaps without a loan", err)
	}

	unit.Swaps = unit.Swaps[:1]
	if _, err := s.pack(unit); err != nil {
		t.Errorf("pack() error = %v", err)
	}
}
