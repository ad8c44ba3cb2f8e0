// Package ethereum submits units of work to a deployed executor contract
// and watches them to finality.
package ethereum

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flashloan-arb/business/ledger/domain"
)

const (
	tracerName = "github.com/fd1az/flashloan-arb/business/ledger/infra/ethereum"
	meterName  = "ledger.ethereum"
)

// ExecutorABI is the on-chain arbitrage executor. executeArbitrage takes
// the flash loan, runs the swaps in its callback, checks minProceeds and
// repays; any failure reverts the whole transaction.
const ExecutorABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "provider", "type": "address"},
			{"internalType": "address", "name": "asset", "type": "address"},
			{"internalType": "uint256", "name": "principal", "type": "uint256"},
			{
				"components": [
					{"internalType": "address", "name": "router", "type": "address"},
					{"internalType": "address", "name": "pool", "type": "address"},
					{"internalType": "uint8", "name": "kind", "type": "uint8"},
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint256", "name": "minAmountOut", "type": "uint256"}
				],
				"internalType": "struct FlashArbExecutor.SwapStep[]",
				"name": "steps",
				"type": "tuple[]"
			},
			{"internalType": "uint256", "name": "minProceeds", "type": "uint256"}
		],
		"name": "executeArbitrage",
		"outputs": [{"internalType": "uint256", "name": "grossProceeds", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "router", "type": "address"},
					{"internalType": "address", "name": "pool", "type": "address"},
					{"internalType": "uint8", "name": "kind", "type": "uint8"},
					{"internalType": "address", "name": "tokenIn", "type": "address"},
					{"internalType": "address", "name": "tokenOut", "type": "address"},
					{"internalType": "uint24", "name": "fee", "type": "uint24"},
					{"internalType": "uint256", "name": "minAmountOut", "type": "uint256"}
				],
				"internalType": "struct FlashArbExecutor.SwapStep",
				"name": "step",
				"type": "tuple"
			},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"}
		],
		"name": "executeSingleLeg",
		"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "asset", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "principal", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "grossProceeds", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "repaid", "type": "uint256"}
		],
		"name": "ArbitrageExecuted",
		"type": "event"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": false, "internalType": "uint8", "name": "index", "type": "uint8"},
			{"indexed": true, "internalType": "address", "name": "tokenIn", "type": "address"},
			{"indexed": true, "internalType": "address", "name": "tokenOut", "type": "address"},
			{"indexed": false, "internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"}
		],
		"name": "LegExecuted",
		"type": "event"
	}
]`

// swapStep mirrors the SwapStep tuple. Field names follow the ABI
// component names so the codec can map them.
type swapStep struct {
	Router       common.Address
	Pool         common.Address
	Kind         uint8
	TokenIn      common.Address
	TokenOut     common.Address
	Fee          *big.Int
	MinAmountOut *big.Int
}

func toSwapStep(s domain.Swap) swapStep {
	minOut := s.MinAmountOut
	if minOut == nil {
		minOut = new(big.Int)
	}
	return swapStep{
		Router:       s.Router,
		Pool:         s.Pool,
		Kind:         uint8(s.Kind),
		TokenIn:      s.TokenIn,
		TokenOut:     s.TokenOut,
		Fee:          new(big.Int).SetUint64(uint64(s.Fee)),
		MinAmountOut: minOut,
	}
}
