package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/venue/app"
	"github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

var _ app.PairReader = (*PairReader)(nil)

// PairReader reads constant-product pairs and resolves them through the factory.
type PairReader struct {
	pair        *caller
	factory     *caller
	factoryAddr common.Address

	tokens   *cache.Cache[common.Address, [2]common.Address]
	resolved *cache.Cache[domain.PoolRef, common.Address]
	logger   logger.LoggerInterface
}

// NewPairReader creates a reader for V2 pairs created by factory.
func NewPairReader(client ethereum.ContractCaller, factory common.Address, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*PairReader, error) {
	pair, err := newCaller(client, PairABI, "v2_pair", limiter)
	if err != nil {
		return nil, err
	}
	fac, err := newCaller(client, FactoryV2ABI, "v2_factory", limiter)
	if err != nil {
		return nil, err
	}

	return &PairReader{
		pair:        pair,
		factory:     fac,
		factoryAddr: factory,
		tokens:      cache.New[common.Address, [2]common.Address](256, 0),
		resolved:    cache.New[domain.PoolRef, common.Address](256, 0),
		logger:      log,
	}, nil
}

// GetReserves reads the current reserves of pair.
func (r *PairReader) GetReserves(ctx context.Context, pair common.Address) (*domain.Reserves, error) {
	tokens, err := r.pairTokens(ctx, pair)
	if err != nil {
		return nil, err
	}

	out, err := r.pair.call(ctx, pair, "getReserves")
	if err != nil {
		return nil, err
	}
	if len(out) < 3 {
		return nil, apperror.New(apperror.CodeInvalidPoolState,
			apperror.WithContext(fmt.Sprintf("getReserves returned %d values", len(out))))
	}

	res := &domain.Reserves{
		Pair:           pair,
		Token0:         tokens[0],
		Token1:         tokens[1],
		Reserve0:       out[0].(*big.Int),
		Reserve1:       out[1].(*big.Int),
		BlockTimestamp: out[2].(uint32),
	}

	r.logger.Debug(ctx, "v2 reserves",
		"pair", pair.Hex(),
		"reserve0", res.Reserve0.String(),
		"reserve1", res.Reserve1.String(),
	)
	return res, nil
}

// ResolvePair returns the pair address for two tokens.
func (r *PairReader) ResolvePair(ctx context.Context, tokenA, tokenB common.Address) (common.Address, error) {
	key := domain.PoolRef{Kind: domain.PoolKindConstantProduct, TokenA: tokenA, TokenB: tokenB}
	if tokenB.Cmp(tokenA) < 0 {
		key.TokenA, key.TokenB = tokenB, tokenA
	}
	if addr, ok := r.resolved.Get(ctx, key); ok {
		return addr, nil
	}

	out, err := r.factory.call(ctx, r.factoryAddr, "getPair", tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}
	addr := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no v2 pair for %s/%s", tokenA.Hex(), tokenB.Hex())))
	}

	r.resolved.Set(ctx, key, addr, 0)
	return addr, nil
}

// pairTokens returns token0/token1, which never change for a deployed pair.
func (r *PairReader) pairTokens(ctx context.Context, pair common.Address) ([2]common.Address, error) {
	if t, ok := r.tokens.Get(ctx, pair); ok {
		return t, nil
	}

	var t [2]common.Address
	for i, method := range []string{"token0", "token1"} {
		out, err := r.pair.call(ctx, pair, method)
		if err != nil {
			return t, err
		}
		t[i] = out[0].(common.Address)
	}

	r.tokens.Set(ctx, pair, t, 24*time.Hour)
	return t, nil
}

// Close releases the caches.
func (r *PairReader) Close() {
	r.tokens.Close()
	r.resolved.Close()
}
