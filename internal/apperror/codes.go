package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Ledger / RPC error codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumSubscribeFailed  Code = "ETHEREUM_SUBSCRIBE_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeContractCallFailed       Code = "CONTRACT_CALL_FAILED"
	CodeSignerError              Code = "SIGNER_ERROR"
	CodeReceiptTimeout           Code = "RECEIPT_TIMEOUT"
)

// Venue error codes
const (
	CodeQuoteFailed        Code = "QUOTE_FAILED"
	CodePoolNotFound       Code = "POOL_NOT_FOUND"
	CodeInvalidPoolState   Code = "INVALID_POOL_STATE"
	CodeInvalidPoolVariant Code = "INVALID_POOL_VARIANT"
)

// Execution taxonomy. Plan construction codes fail fast before submission;
// the rest are only observed on a Reverted or Abandoned outcome.
const (
	CodeInsufficientLiquidity  Code = "INSUFFICIENT_LIQUIDITY"
	CodeDiscontinuousLegs      Code = "DISCONTINUOUS_LEGS"
	CodeDegenerateLeg          Code = "DEGENERATE_LEG"
	CodePrincipalZero          Code = "PRINCIPAL_ZERO"
	CodeProfitabilityRejected  Code = "PROFITABILITY_REJECTED"
	CodeLedgerReverted         Code = "LEDGER_REVERTED"
	CodeAbandoned              Code = "ABANDONED"
	CodePoolLockTimeout        Code = "POOL_LOCK_TIMEOUT"
	CodeRequestAlreadyConsumed Code = "REQUEST_ALREADY_CONSUMED"
)

// Cache errors
const (
	CodeCacheMiss Code = "CACHE_MISS"
)

// Circuit breaker errors
const (
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
