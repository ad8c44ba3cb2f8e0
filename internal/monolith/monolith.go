// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// Shared service names.
const (
	ServiceConfig        = "config"
	ServiceLogger        = "logger"
	ServiceEthClient     = "ethClient"
	ServiceEthWSClient   = "ethWSClient"
	ServiceAssetRegistry = "assetRegistry"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	wsClient      *ethclient.Client
	assetRegistry *asset.Registry
	container     di.Container
}

// New dials the ledger node and registers the shared services.
// The websocket client is optional and only used for head subscriptions.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	httpClient, err := httpclient.New(httpclient.WithProviderName("ledger-rpc"))
	if err != nil {
		return nil, fmt.Errorf("monolith: http client: %w", err)
	}

	rpcClient, err := rpc.DialOptions(ctx, cfg.Ethereum.HTTPURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("monolith: dial %s: %w", cfg.Ethereum.HTTPURL, err)
	}
	ethClient := ethclient.NewClient(rpcClient)

	var wsClient *ethclient.Client
	if cfg.Ethereum.WebSocketURL != "" {
		wsClient, err = ethclient.DialContext(ctx, cfg.Ethereum.WebSocketURL)
		if err != nil {
			log.Warn(ctx, "websocket dial failed, receipts will be polled",
				"url", cfg.Ethereum.WebSocketURL, "error", err)
			wsClient = nil
		}
	}

	assetRegistry := asset.DefaultRegistry()

	container := di.NewContainer()
	container.Register(ServiceConfig, cfg)
	container.Register(ServiceLogger, log)
	container.Register(ServiceEthClient, ethClient)
	container.Register(ServiceEthWSClient, wsClient)
	container.Register(ServiceAssetRegistry, assetRegistry)

	return &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		wsClient:      wsClient,
		assetRegistry: assetRegistry,
		container:     container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *app) AssetRegistry() *asset.Registry {
	return a.assetRegistry
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all resources.
func (a *app) Close() error {
	if a.wsClient != nil {
		a.wsClient.Close()
	}
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
