package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byID     map[AssetID]*Asset
	bySymbol map[string][]*Asset // symbol -> assets (one per chain)
	mu       sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds an asset to the registry.
// Panics if an asset with the same ID is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("asset: %s already registered", id))
	}

	r.byID[id] = a
	key := strings.ToUpper(a.Symbol())
	r.bySymbol[key] = append(r.bySymbol[key], a)
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetToken retrieves a token by chain and address.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	if address == (common.Address{}) {
		return r.Get(NewNativeAssetID(chainID))
	}
	return r.Get(NewTokenAssetID(chainID, address))
}

// GetBySymbolAndChain retrieves an asset by symbol (case-insensitive) and chain ID.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.bySymbol[strings.ToUpper(symbol)] {
		if a.ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// Resolve looks a token up by symbol or by hex address on the given chain.
func (r *Registry) Resolve(chainID uint64, ref string) (*Asset, error) {
	ref = strings.TrimSpace(ref)
	if common.IsHexAddress(ref) {
		if a, ok := r.GetToken(chainID, common.HexToAddress(ref)); ok {
			return a, nil
		}
		return nil, fmt.Errorf("asset: unknown token %s on chain %d", ref, chainID)
	}
	if a, ok := r.GetBySymbolAndChain(ref, chainID); ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset: unknown symbol %q on chain %d", ref, chainID)
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
