package app

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	ledger "github.com/fd1az/flashloan-arb/business/ledger/domain"
	"github.com/fd1az/flashloan-arb/business/ledger/infra/simulated"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

const testChain = 137

var (
	addrA      = common.HexToAddress("0x000000000000000000000000000000000000000a")
	addrB      = common.HexToAddress("0x000000000000000000000000000000000000000b")
	executor   = common.HexToAddress("0x00000000000000000000000000000000000e0e00")
	lender     = common.HexToAddress("0x000000000000000000000000000000000000aa7e")
	routerV2   = common.HexToAddress("0x00000000000000000000000000000000000000f2")
	routerV3   = common.HexToAddress("0x00000000000000000000000000000000000000f3")
	pairAB     = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	pairBA     = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	poolV3     = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	tokenA     = asset.MustNewToken(testChain, addrA, "AAA", "Token A", 18)
	tokenB     = asset.MustNewToken(testChain, addrB, "BBB", "Token B", 18)
	cpFee30, _ = domain.NewConstantProduct(30)
)

func amountA(raw int64) asset.Amount { return asset.NewAmountFromInt64(tokenA, raw) }

// simFixture is a simulated ledger with A/B priced 1:2 on pairAB and 2:1.2
// on pairBA, so buying B on pairAB and selling it on pairBA is profitable.
type simFixture struct {
	ledger *simulated.Ledger
	model  *PoolModel
	buy    domain.Leg
	sell   domain.Leg
}

func newSimFixture(t *testing.T, opts ...simulated.Option) *simFixture {
	t.Helper()
	l := simulated.NewLedger(executor, logger.NewNop(), opts...)
	l.AddPool(simulated.NewConstantProductPool(pairAB, addrA, addrB, big.NewInt(1_000_000), big.NewInt(2_000_000), 30))
	l.AddPool(simulated.NewConstantProductPool(pairBA, addrB, addrA, big.NewInt(2_000_000), big.NewInt(1_200_000), 30))
	l.Fund(lender, addrA, big.NewInt(10_000_000))

	return &simFixture{
		ledger: l,
		model:  NewPoolModel(simulated.NewStateReader(l, nil)),
		buy:    mustLeg(t, routerV2, pairAB, cpFee30, tokenA, tokenB),
		sell:   mustLeg(t, routerV2, pairBA, cpFee30, tokenB, tokenA),
	}
}

func mustLeg(t *testing.T, router, pool common.Address, v domain.PoolVariant, in, out *asset.Asset) domain.Leg {
	t.Helper()
	leg, err := domain.NewLeg(router, pool, v, in, out)
	if err != nil {
		t.Fatalf("NewLeg() error = %v", err)
	}
	return leg
}

type transition struct{ from, to domain.State }

// recordingReporter keeps everything it is told.
type recordingReporter struct {
	mu          sync.Mutex
	transitions []transition
	outcomes    []*domain.ExecutionOutcome
	previews    []*Preview
	legs        []*LegResult
}

func (r *recordingReporter) Start(context.Context) error { return nil }
func (r *recordingReporter) Stop() error                 { return nil }

func (r *recordingReporter) Transition(_ string, from, to domain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{from, to})
}

func (r *recordingReporter) Preview(p *Preview) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews = append(r.previews, p)
}

func (r *recordingReporter) Report(o *domain.ExecutionOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingReporter) LegResult(res *LegResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legs = append(r.legs, res)
}

func (r *recordingReporter) states() []domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.State{}
	for _, tr := range r.transitions {
		out = append(out, tr.to)
	}
	return out
}

// stubSubmitter returns a canned submission or error.
type stubSubmitter struct {
	sub   *ledger.Submission
	err   error
	units []*ledger.UnitOfWork

	// hang blocks until ctx ends and fails with a transport error, like a
	// broadcast that times out.
	hang bool
}

func (s *stubSubmitter) SubmitAtomic(ctx context.Context, unit *ledger.UnitOfWork) (*ledger.Submission, error) {
	s.units = append(s.units, unit)
	if s.hang {
		<-ctx.Done()
		return nil, apperror.External(apperror.CodeEthereumRPCError, "send transaction", ctx.Err())
	}
	return s.sub, s.err
}

// fakeVenue serves one concentrated pool.
type fakeVenue struct {
	state    *venueDomain.LiquidityState
	out      *big.Int
	resolved common.Address
	quotes   int
}

func (f *fakeVenue) GetReserves(context.Context, common.Address) (*venueDomain.Reserves, error) {
	return nil, apperror.Validation(apperror.CodePoolNotFound, "no pairs")
}

func (f *fakeVenue) GetLiquidityState(context.Context, common.Address) (*venueDomain.LiquidityState, error) {
	return f.state, nil
}

func (f *fakeVenue) QuoteExactInputSingle(context.Context, venueDomain.QuoteRequest) (*venueDomain.Quote, error) {
	f.quotes++
	return &venueDomain.Quote{AmountOut: f.out}, nil
}

func (f *fakeVenue) ResolvePool(context.Context, venueDomain.PoolRef) (common.Address, error) {
	return f.resolved, nil
}

func statesEqual(got, want []domain.State) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
