// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/execution/app"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ExecutionService = di.NewToken[*app.ExecutionService]("execution.ExecutionService")
	Reporter         = di.NewToken[app.Reporter]("execution.Reporter")

	// StateReader is the fork in simulated mode, the live venues otherwise.
	StateReader = di.NewToken[app.VenueStateReader]("execution.StateReader")
)

// Private dependency tokens - internal to execution module
var (
	PoolModel    = di.NewToken[*app.PoolModel]("execution:poolModel")
	Planner      = di.NewToken[*app.Planner]("execution:planner")
	Orchestrator = di.NewToken[*app.Orchestrator]("execution:orchestrator")
	Locks        = di.NewToken[*app.LockRegistry]("execution:locks")
	Coordinator  = di.NewToken[*app.Coordinator]("execution:coordinator")
	Harness      = di.NewToken[*app.Harness]("execution:harness")
)

func GetExecutionService(c di.ServiceRegistry) *app.ExecutionService {
	return di.GetToken(c, ExecutionService)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

func GetStateReader(c di.ServiceRegistry) app.VenueStateReader {
	return di.GetToken(c, StateReader)
}
