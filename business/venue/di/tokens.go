// Package di contains dependency injection tokens for the venue context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/venue/app"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Public service tokens - exposed to other modules
var (
	VenueService = di.NewToken[*app.VenueService]("venue.VenueService")
)

// Private dependency tokens - internal to venue module
var (
	PairReader = di.NewToken[app.PairReader]("venue:pairReader")
	PoolReader = di.NewToken[app.PoolReader]("venue:poolReader")
	Quoter     = di.NewToken[app.Quoter]("venue:quoter")
	Limiter    = di.NewToken[*ratelimit.Limiter]("venue:limiter")
)

func GetVenueService(c di.ServiceRegistry) *app.VenueService {
	return di.GetToken(c, VenueService)
}
