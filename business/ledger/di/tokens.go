// Package di contains dependency injection tokens for the ledger context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/ledger/app"
	"github.com/fd1az/flashloan-arb/business/ledger/infra/ethereum"
	"github.com/fd1az/flashloan-arb/business/ledger/infra/simulated"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Submitter = di.NewToken[app.Submitter]("ledger.Submitter")

	// SimulatedLedger is nil unless ledger.mode is simulated.
	SimulatedLedger = di.NewToken[*simulated.Ledger]("ledger.SimulatedLedger")
)

// Private dependency tokens - internal to ledger module
var (
	GasOracle      = di.NewToken[*ethereum.GasOracle]("ledger:gasOracle")
	ReceiptWatcher = di.NewToken[*ethereum.ReceiptWatcher]("ledger:receiptWatcher")
)

func GetSubmitter(c di.ServiceRegistry) app.Submitter {
	return di.GetToken(c, Submitter)
}

func GetSimulatedLedger(c di.ServiceRegistry) *simulated.Ledger {
	return di.GetToken(c, SimulatedLedger)
}
