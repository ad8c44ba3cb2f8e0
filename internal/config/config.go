// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Ledger modes.
const (
	LedgerModeSimulated = "simulated"
	LedgerModeEthereum  = "ethereum"
)

// Leg variants as written in config.
const (
	VariantV2 = "v2"
	VariantV3 = "v3"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	FlashLoan FlashLoanConfig `mapstructure:"flash_loan"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// EthereumConfig holds ledger node configuration.
type EthereumConfig struct {
	HTTPURL             string        `mapstructure:"http_url"`
	WebSocketURL        string        `mapstructure:"websocket_url"`
	ChainID             uint64        `mapstructure:"chain_id"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
}

// VenueConfig holds the contract addresses of one venue family.
type VenueConfig struct {
	Router  string `mapstructure:"router"`
	Factory string `mapstructure:"factory"`
	Quoter  string `mapstructure:"quoter"`
}

// RouterAddress returns the router as common.Address.
func (c VenueConfig) RouterAddress() common.Address {
	return common.HexToAddress(c.Router)
}

// FactoryAddress returns the factory as common.Address.
func (c VenueConfig) FactoryAddress() common.Address {
	return common.HexToAddress(c.Factory)
}

// QuoterAddress returns the quoter as common.Address.
func (c VenueConfig) QuoterAddress() common.Address {
	return common.HexToAddress(c.Quoter)
}

// VenuesConfig holds both venue families and the read throttle.
type VenuesConfig struct {
	V2             VenueConfig `mapstructure:"v2"`
	V3             VenueConfig `mapstructure:"v3"`
	RateLimitRPS   float64     `mapstructure:"rate_limit_rps"`
	RateLimitBurst int         `mapstructure:"rate_limit_burst"`
}

// FlashLoanConfig holds the loan provider settings.
type FlashLoanConfig struct {
	Provider       string `mapstructure:"provider"`
	ProviderFeeBps uint32 `mapstructure:"provider_fee_bps"`
}

// ProviderAddress returns the provider as common.Address.
func (c FlashLoanConfig) ProviderAddress() common.Address {
	return common.HexToAddress(c.Provider)
}

// LegConfig describes one leg. Tokens are symbols or hex addresses.
// Fee is bps for v2 legs and hundredths of a bip for v3 legs.
type LegConfig struct {
	Variant  string `mapstructure:"variant"`
	Router   string `mapstructure:"router"`
	Pool     string `mapstructure:"pool"`
	TokenIn  string `mapstructure:"token_in"`
	TokenOut string `mapstructure:"token_out"`
	Fee      uint32 `mapstructure:"fee"`
}

// ExecutionConfig holds the cycle parameters.
type ExecutionConfig struct {
	MinMarginBps         uint32        `mapstructure:"min_margin_bps"`
	Deadline             time.Duration `mapstructure:"deadline"`
	Principal            string        `mapstructure:"principal"`
	SlippageToleranceBps uint32        `mapstructure:"slippage_tolerance_bps"`
	ExecutorAddress      string        `mapstructure:"executor_address"`
	LockTimeout          time.Duration `mapstructure:"lock_timeout"`
	Buy                  LegConfig     `mapstructure:"buy"`
	Sell                 LegConfig     `mapstructure:"sell"`
}

// PrincipalDecimal returns the principal in human units.
func (c ExecutionConfig) PrincipalDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Principal)
}

// LedgerConfig holds submission settings.
type LedgerConfig struct {
	Mode            string        `mapstructure:"mode"`
	PrivateKey      string        `mapstructure:"private_key"`
	GasLimit        uint64        `mapstructure:"gas_limit"`
	MaxGasPriceGwei float64       `mapstructure:"max_gas_price_gwei"`
	GasCacheTTL     time.Duration `mapstructure:"gas_cache_ttl"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// HealthConfig holds the health server settings.
type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Ledger node
	v.BindEnv("ethereum.http_url", "ARB_RPC_URL", "POLYGON_RPC_URL")
	v.BindEnv("ethereum.websocket_url", "ARB_WS_URL", "POLYGON_WS_URL")
	v.BindEnv("ethereum.chain_id", "ARB_CHAIN_ID", "CHAIN_ID")

	// Submission
	v.BindEnv("ledger.mode", "ARB_LEDGER_MODE")
	v.BindEnv("ledger.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")
	v.BindEnv("execution.executor_address", "ARB_EXECUTOR_ADDRESS", "EXECUTOR_ADDRESS")

	// Cycle
	v.BindEnv("execution.principal", "ARB_PRINCIPAL")
	v.BindEnv("execution.min_margin_bps", "ARB_MIN_MARGIN_BPS")
	v.BindEnv("flash_loan.provider_fee_bps", "ARB_PROVIDER_FEE_BPS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flashloan-arb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Polygon PoS defaults
	v.SetDefault("ethereum.chain_id", 137)
	v.SetDefault("ethereum.receipt_poll_interval", "2s")

	// Quickswap (V2) and Uniswap V3 on Polygon
	v.SetDefault("venues.v2.router", "0xa5E0829CaCEd8fFDD4De3c43696c57F7D7A678ff")
	v.SetDefault("venues.v2.factory", "0x5757371414417b8C6CAad45bAeF941aBc7d3Ab32")
	v.SetDefault("venues.v3.router", "0xE592427A0AEce92De3Edee1F18E0157C05861564")
	v.SetDefault("venues.v3.quoter", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("venues.v3.factory", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("venues.rate_limit_rps", 20)
	v.SetDefault("venues.rate_limit_burst", 5)

	// Aave pool addresses provider
	v.SetDefault("flash_loan.provider", "0xd05e3E715d945B59290df0ae8eF85c1BdB684744")
	v.SetDefault("flash_loan.provider_fee_bps", 9)

	// Cycle defaults: buy MANA on V2, sell it back on V3.
	v.SetDefault("execution.min_margin_bps", 0)
	v.SetDefault("execution.deadline", "60s")
	v.SetDefault("execution.lock_timeout", "5s")
	v.SetDefault("execution.principal", "50")
	v.SetDefault("execution.slippage_tolerance_bps", 50)
	v.SetDefault("execution.buy.variant", VariantV2)
	v.SetDefault("execution.buy.token_in", "WMATIC")
	v.SetDefault("execution.buy.token_out", "MANA")
	v.SetDefault("execution.buy.fee", 30)
	v.SetDefault("execution.sell.variant", VariantV3)
	v.SetDefault("execution.sell.token_in", "MANA")
	v.SetDefault("execution.sell.token_out", "WMATIC")
	v.SetDefault("execution.sell.fee", 3000)

	// Ledger defaults
	v.SetDefault("ledger.mode", LedgerModeSimulated)
	v.SetDefault("ledger.gas_limit", 1_500_000)
	v.SetDefault("ledger.max_gas_price_gwei", 500)
	v.SetDefault("ledger.gas_cache_ttl", "12s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashloan-arb")
	v.SetDefault("telemetry.trace_provider", "otlp-grpc")
	v.SetDefault("telemetry.prometheus_port", 9090)

	v.SetDefault("health.port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if c.Ethereum.ChainID == 0 {
		return fmt.Errorf("ethereum.chain_id is required")
	}

	addrs := map[string]string{
		"venues.v2.router":    c.Venues.V2.Router,
		"venues.v2.factory":   c.Venues.V2.Factory,
		"venues.v3.router":    c.Venues.V3.Router,
		"venues.v3.quoter":    c.Venues.V3.Quoter,
		"venues.v3.factory":   c.Venues.V3.Factory,
		"flash_loan.provider": c.FlashLoan.Provider,
	}
	for key, addr := range addrs {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %q", key, addr)
		}
	}

	if c.Execution.Deadline <= 0 {
		return fmt.Errorf("execution.deadline must be positive")
	}
	if _, err := c.Execution.PrincipalDecimal(); err != nil {
		return fmt.Errorf("invalid execution.principal: %w", err)
	}
	for name, leg := range map[string]LegConfig{"buy": c.Execution.Buy, "sell": c.Execution.Sell} {
		if err := leg.validate(); err != nil {
			return fmt.Errorf("execution.%s: %w", name, err)
		}
	}

	switch c.Ledger.Mode {
	case LedgerModeSimulated:
	case LedgerModeEthereum:
		if c.Ledger.PrivateKey == "" {
			return fmt.Errorf("ledger.private_key is required in ethereum mode")
		}
		if !common.IsHexAddress(c.Execution.ExecutorAddress) {
			return fmt.Errorf("invalid execution.executor_address: %q", c.Execution.ExecutorAddress)
		}
	default:
		return fmt.Errorf("unknown ledger.mode %q", c.Ledger.Mode)
	}
	return nil
}

func (l LegConfig) validate() error {
	if l.Variant != VariantV2 && l.Variant != VariantV3 {
		return fmt.Errorf("unknown variant %q", l.Variant)
	}
	if l.TokenIn == "" || l.TokenOut == "" {
		return fmt.Errorf("token_in and token_out are required")
	}
	if l.Router != "" && !common.IsHexAddress(l.Router) {
		return fmt.Errorf("invalid router %q", l.Router)
	}
	if l.Pool != "" && !common.IsHexAddress(l.Pool) {
		return fmt.Errorf("invalid pool %q", l.Pool)
	}
	return nil
}
