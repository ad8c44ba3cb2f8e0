package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumSubscribeFailed:  "Failed to subscribe to Ethereum events",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeContractCallFailed:       "Smart contract call failed",
	CodeSignerError:              "Transaction signing failed",
	CodeReceiptTimeout:           "Timed out waiting for transaction receipt",

	CodeQuoteFailed:        "Failed to quote swap",
	CodePoolNotFound:       "Pool not found",
	CodeInvalidPoolState:   "Invalid pool state",
	CodeInvalidPoolVariant: "Unknown pool variant or fee tier",

	CodeInsufficientLiquidity:  "Insufficient liquidity in pool",
	CodeDiscontinuousLegs:      "Legs do not chain into a closed cycle",
	CodeDegenerateLeg:          "Leg input and output tokens are identical",
	CodePrincipalZero:          "Flash loan principal must be positive",
	CodeProfitabilityRejected:  "Proceeds do not cover repayment and margin",
	CodeLedgerReverted:         "Ledger reverted the unit of execution",
	CodeAbandoned:              "Deadline exceeded before submission resolved",
	CodePoolLockTimeout:        "Timed out waiting for exclusive pool access",
	CodeRequestAlreadyConsumed: "Flash loan request was already executed",

	CodeCacheMiss: "Cache miss",

	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
