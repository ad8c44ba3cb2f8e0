package uniswap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/venue/app"
	"github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/cache"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

var _ app.PoolReader = (*PoolReader)(nil)

type poolMeta struct {
	token0 common.Address
	token1 common.Address
	fee    uint32
}

// PoolReader reads concentrated-liquidity pool state.
type PoolReader struct {
	pool        *caller
	factory     *caller
	factoryAddr common.Address

	meta     *cache.Cache[common.Address, poolMeta]
	resolved *cache.Cache[domain.PoolRef, common.Address]
	logger   logger.LoggerInterface
}

// NewPoolReader creates a reader for V3 pools deployed by factory.
func NewPoolReader(client ethereum.ContractCaller, factory common.Address, limiter *ratelimit.Limiter, log logger.LoggerInterface) (*PoolReader, error) {
	pool, err := newCaller(client, PoolV3ABI, "v3_pool", limiter)
	if err != nil {
		return nil, err
	}
	fac, err := newCaller(client, FactoryV3ABI, "v3_factory", limiter)
	if err != nil {
		return nil, err
	}

	return &PoolReader{
		pool:        pool,
		factory:     fac,
		factoryAddr: factory,
		meta:        cache.New[common.Address, poolMeta](256, 0),
		resolved:    cache.New[domain.PoolRef, common.Address](256, 0),
		logger:      log,
	}, nil
}

// GetLiquidityState reads slot0 and active liquidity of pool.
func (r *PoolReader) GetLiquidityState(ctx context.Context, pool common.Address) (*domain.LiquidityState, error) {
	meta, err := r.poolMeta(ctx, pool)
	if err != nil {
		return nil, err
	}

	slot0, err := r.pool.call(ctx, pool, "slot0")
	if err != nil {
		return nil, err
	}
	liq, err := r.pool.call(ctx, pool, "liquidity")
	if err != nil {
		return nil, err
	}

	state := &domain.LiquidityState{
		Pool:         pool,
		Token0:       meta.token0,
		Token1:       meta.token1,
		Fee:          meta.fee,
		SqrtPriceX96: slot0[0].(*big.Int),
		Tick:         int32(slot0[1].(*big.Int).Int64()),
		Liquidity:    liq[0].(*big.Int),
	}

	r.logger.Debug(ctx, "v3 pool state",
		"pool", pool.Hex(),
		"sqrt_price_x96", state.SqrtPriceX96.String(),
		"tick", state.Tick,
		"liquidity", state.Liquidity.String(),
	)
	return state, nil
}

// ResolvePool returns the pool for two tokens at a fee tier.
func (r *PoolReader) ResolvePool(ctx context.Context, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	key := domain.PoolRef{Kind: domain.PoolKindConcentrated, TokenA: tokenA, TokenB: tokenB, Fee: fee}
	if tokenB.Cmp(tokenA) < 0 {
		key.TokenA, key.TokenB = tokenB, tokenA
	}
	if addr, ok := r.resolved.Get(ctx, key); ok {
		return addr, nil
	}

	out, err := r.factory.call(ctx, r.factoryAddr, "getPool", tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	addr := out[0].(common.Address)
	if addr == (common.Address{}) {
		return common.Address{}, apperror.New(apperror.CodePoolNotFound,
			apperror.WithContext(fmt.Sprintf("no v3 pool for %s/%s fee %d", tokenA.Hex(), tokenB.Hex(), fee)))
	}

	r.resolved.Set(ctx, key, addr, 0)
	return addr, nil
}

func (r *PoolReader) poolMeta(ctx context.Context, pool common.Address) (poolMeta, error) {
	if m, ok := r.meta.Get(ctx, pool); ok {
		return m, nil
	}

	var m poolMeta
	t0, err := r.pool.call(ctx, pool, "token0")
	if err != nil {
		return m, err
	}
	t1, err := r.pool.call(ctx, pool, "token1")
	if err != nil {
		return m, err
	}
	fee, err := r.pool.call(ctx, pool, "fee")
	if err != nil {
		return m, err
	}

	m = poolMeta{
		token0: t0[0].(common.Address),
		token1: t1[0].(common.Address),
		fee:    uint32(fee[0].(*big.Int).Uint64()),
	}
	r.meta.Set(ctx, pool, m, 0)
	return m, nil
}

// Close releases the caches.
func (r *PoolReader) Close() {
	r.meta.Close()
	r.resolved.Close()
}
