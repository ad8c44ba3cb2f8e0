package execution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

// PoolResolver looks up a pool address from its token pair.
type PoolResolver interface {
	ResolvePool(ctx context.Context, ref venueDomain.PoolRef) (common.Address, error)
}

// LegsFromConfig builds the buy and sell legs. Constant-product legs
// without a pair are resolved through the factory now; concentrated legs
// are bound when first quoted. Legs without a router use the venue default.
func LegsFromConfig(ctx context.Context, cfg *config.Config, registry *asset.Registry, resolver PoolResolver) (buy, sell domain.Leg, err error) {
	buy, err = LegFromConfig(ctx, cfg, registry, resolver, cfg.Execution.Buy)
	if err != nil {
		return domain.Leg{}, domain.Leg{}, fmt.Errorf("buy leg: %w", err)
	}
	sell, err = LegFromConfig(ctx, cfg, registry, resolver, cfg.Execution.Sell)
	if err != nil {
		return domain.Leg{}, domain.Leg{}, fmt.Errorf("sell leg: %w", err)
	}
	return buy, sell, nil
}

// LegFromConfig builds one leg from its descriptor.
func LegFromConfig(ctx context.Context, cfg *config.Config, registry *asset.Registry, resolver PoolResolver, lc config.LegConfig) (domain.Leg, error) {
	in, err := registry.Resolve(cfg.Ethereum.ChainID, lc.TokenIn)
	if err != nil {
		return domain.Leg{}, err
	}
	out, err := registry.Resolve(cfg.Ethereum.ChainID, lc.TokenOut)
	if err != nil {
		return domain.Leg{}, err
	}

	var (
		variant domain.PoolVariant
		router  common.Address
	)
	switch lc.Variant {
	case config.VariantV2:
		variant, err = domain.NewConstantProduct(lc.Fee)
		router = cfg.Venues.V2.RouterAddress()
	case config.VariantV3:
		variant, err = domain.NewConcentratedLiquidity(lc.Fee)
		router = cfg.Venues.V3.RouterAddress()
	default:
		return domain.Leg{}, fmt.Errorf("unknown variant %q", lc.Variant)
	}
	if err != nil {
		return domain.Leg{}, err
	}

	if lc.Router != "" {
		router = common.HexToAddress(lc.Router)
	}
	var pool common.Address
	switch {
	case lc.Pool != "":
		pool = common.HexToAddress(lc.Pool)
	case lc.Variant == config.VariantV2:
		pool, err = resolver.ResolvePool(ctx, venueDomain.PoolRef{
			Kind:   venueDomain.PoolKindConstantProduct,
			TokenA: in.Address(),
			TokenB: out.Address(),
		})
		if err != nil {
			return domain.Leg{}, err
		}
	}
	return domain.NewLeg(router, pool, variant, in, out)
}

// PrincipalFromConfig parses the configured principal, or override when
// set, in units of the borrowed asset.
func PrincipalFromConfig(cfg *config.Config, borrow *asset.Asset, override string) (asset.Amount, error) {
	ec := cfg.Execution
	if override != "" {
		ec.Principal = override
	}
	d, err := ec.PrincipalDecimal()
	if err != nil {
		return asset.Amount{}, fmt.Errorf("invalid principal %q: %w", ec.Principal, err)
	}
	return asset.ParseDecimal(borrow, d)
}
