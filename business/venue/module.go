// Package venue implements the venue bounded context: live reads of
// constant-product pairs, concentrated-liquidity pools and the V3 quoter.
package venue

import (
	"context"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/business/venue/app"
	venueDI "github.com/fd1az/flashloan-arb/business/venue/di"
	"github.com/fd1az/flashloan-arb/business/venue/infra/uniswap"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Module implements the venue bounded context.
type Module struct{}

// RegisterServices registers all venue services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// One limiter shared by every venue read
	di.RegisterToken(c, venueDI.Limiter, func(sr di.ServiceRegistry) *ratelimit.Limiter {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		return ratelimit.New(cfg.Venues.RateLimitRPS, cfg.Venues.RateLimitBurst)
	})

	di.RegisterToken(c, venueDI.PairReader, func(sr di.ServiceRegistry) app.PairReader {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		r, err := uniswap.NewPairReader(client, cfg.Venues.V2.FactoryAddress(), di.GetToken(sr, venueDI.Limiter), log)
		if err != nil {
			panic("failed to create pair reader: " + err.Error())
		}
		return r
	})

	di.RegisterToken(c, venueDI.PoolReader, func(sr di.ServiceRegistry) app.PoolReader {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		r, err := uniswap.NewPoolReader(client, cfg.Venues.V3.FactoryAddress(), di.GetToken(sr, venueDI.Limiter), log)
		if err != nil {
			panic("failed to create pool reader: " + err.Error())
		}
		return r
	})

	di.RegisterToken(c, venueDI.Quoter, func(sr di.ServiceRegistry) app.Quoter {
		cfg := sr.Get(monolith.ServiceConfig).(*config.Config)
		log := sr.Get(monolith.ServiceLogger).(logger.LoggerInterface)
		client := sr.Get(monolith.ServiceEthClient).(*ethclient.Client)

		q, err := uniswap.NewQuoter(client, cfg.Venues.V3.QuoterAddress(), di.GetToken(sr, venueDI.Limiter), log)
		if err != nil {
			panic("failed to create quoter: " + err.Error())
		}
		return q
	})

	di.RegisterToken(c, venueDI.VenueService, func(sr di.ServiceRegistry) *app.VenueService {
		return app.NewVenueService(
			di.GetToken(sr, venueDI.PairReader),
			di.GetToken(sr, venueDI.PoolReader),
			di.GetToken(sr, venueDI.Quoter),
		)
	})

	return nil
}

// Startup initializes the venue module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	_ = venueDI.GetVenueService(mono.Services())
	mono.Logger().Info(ctx, "venue module started",
		"v2_factory", mono.Config().Venues.V2.Factory,
		"v3_factory", mono.Config().Venues.V3.Factory,
		"v3_quoter", mono.Config().Venues.V3.Quoter,
	)
	return nil
}
