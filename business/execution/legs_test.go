package execution

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/execution/domain"
	venueDomain "github.com/fd1az/flashloan-arb/business/venue/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
)

type stubResolver struct {
	pool  common.Address
	err   error
	calls []venueDomain.PoolRef
}

func (r *stubResolver) ResolvePool(_ context.Context, ref venueDomain.PoolRef) (common.Address, error) {
	r.calls = append(r.calls, ref)
	return r.pool, r.err
}

var (
	v2Router = common.HexToAddress("0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	v3Router = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
	pair     = common.HexToAddress("0x6b2d7c0cC9F75Db8dd5228F329730BBc732FEA05")
)

func testConfig() *config.Config {
	return &config.Config{
		Ethereum: config.EthereumConfig{ChainID: asset.ChainIDPolygon},
		Venues: config.VenuesConfig{
			V2: config.VenueConfig{Router: v2Router.Hex()},
			V3: config.VenueConfig{Router: v3Router.Hex()},
		},
		Execution: config.ExecutionConfig{
			Principal: "50",
			Buy:       config.LegConfig{Variant: config.VariantV2, TokenIn: "WMATIC", TokenOut: "MANA", Fee: 30},
			Sell:      config.LegConfig{Variant: config.VariantV3, TokenIn: "MANA", TokenOut: "WMATIC", Fee: 3000},
		},
	}
}

func TestLegsFromConfig(t *testing.T) {
	cfg := testConfig()
	resolver := &stubResolver{pool: pair}

	buy, sell, err := LegsFromConfig(context.Background(), cfg, asset.DefaultRegistry(), resolver)
	if err != nil {
		t.Fatalf("LegsFromConfig: %v", err)
	}

	if buy.Router != v2Router {
		t.Errorf("buy router = %s, want %s", buy.Router.Hex(), v2Router.Hex())
	}
	if buy.Pool != pair {
		t.Errorf("buy pool = %s, want %s", buy.Pool.Hex(), pair.Hex())
	}
	if v, ok := buy.Variant.(domain.ConstantProduct); !ok || v.FeeBps != 30 {
		t.Errorf("buy variant = %v, want ConstantProduct(30)", buy.Variant)
	}
	if !buy.TokenIn.Equals(asset.WMATIC) || !buy.TokenOut.Equals(asset.MANA) {
		t.Errorf("buy tokens = %s->%s, want WMATIC->MANA", buy.TokenIn, buy.TokenOut)
	}

	if sell.Router != v3Router {
		t.Errorf("sell router = %s, want %s", sell.Router.Hex(), v3Router.Hex())
	}
	if sell.Pool != (common.Address{}) {
		t.Errorf("sell pool = %s, want unset", sell.Pool.Hex())
	}
	if v, ok := sell.Variant.(domain.ConcentratedLiquidity); !ok || v.FeeTier != 3000 {
		t.Errorf("sell variant = %v, want ConcentratedLiquidity(3000)", sell.Variant)
	}

	if len(resolver.calls) != 1 {
		t.Fatalf("resolver calls = %d, want 1", len(resolver.calls))
	}
	ref := resolver.calls[0]
	if ref.Kind != venueDomain.PoolKindConstantProduct || ref.TokenA != asset.AddrWMATICPolygon || ref.TokenB != asset.AddrMANAPolygon {
		t.Errorf("resolver ref = %+v", ref)
	}
}

func TestLegFromConfig_Overrides(t *testing.T) {
	cfg := testConfig()
	router := common.HexToAddress("0x1b02dA8Cb0d097eB8D57A175b88c7D8b47997506")
	lc := cfg.Execution.Buy
	lc.Router = router.Hex()
	lc.Pool = pair.Hex()
	resolver := &stubResolver{}

	leg, err := LegFromConfig(context.Background(), cfg, asset.DefaultRegistry(), resolver, lc)
	if err != nil {
		t.Fatalf("LegFromConfig: %v", err)
	}
	if leg.Router != router {
		t.Errorf("router = %s, want %s", leg.Router.Hex(), router.Hex())
	}
	if leg.Pool != pair {
		t.Errorf("pool = %s, want %s", leg.Pool.Hex(), pair.Hex())
	}
	if len(resolver.calls) != 0 {
		t.Errorf("resolver called %d times with an explicit pool", len(resolver.calls))
	}
}

func TestLegFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.LegConfig)
		resolver *stubResolver
	}{
		{"unknown_token", func(lc *config.LegConfig) { lc.TokenOut = "DOGE" }, &stubResolver{pool: pair}},
		{"unknown_variant", func(lc *config.LegConfig) { lc.Variant = "v4" }, &stubResolver{pool: pair}},
		{"degenerate", func(lc *config.LegConfig) { lc.TokenOut = "WMATIC" }, &stubResolver{pool: pair}},
		{"unresolved_pair", func(*config.LegConfig) {}, &stubResolver{err: apperror.New(apperror.CodePoolNotFound)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			lc := cfg.Execution.Buy
			tt.mutate(&lc)

			if _, err := LegFromConfig(context.Background(), cfg, asset.DefaultRegistry(), tt.resolver, lc); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPrincipalFromConfig(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name     string
		override string
		want     string
		wantErr  bool
	}{
		{"configured", "", "50000000000000000000", false},
		{"override", "1.5", "1500000000000000000", false},
		{"invalid", "fifty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrincipalFromConfig(cfg, asset.WMATIC, tt.override)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("PrincipalFromConfig: %v", err)
			}
			if got.Raw().String() != tt.want {
				t.Errorf("raw = %s, want %s", got.Raw(), tt.want)
			}
		})
	}
}
