package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDPolygon  = 137
	ChainIDMumbai   = 80001
	ChainIDArbitrum = 42161
)

// Well-known token addresses on Polygon PoS.
var (
	AddrWMATICPolygon = common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270")
	AddrMANAPolygon   = common.HexToAddress("0xA1c57f48F0Deb89f569dFbE6E2B7f46D33606fD4")
	AddrUSDCPolygon   = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	AddrWETHPolygon   = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")
)

// Well-known AssetIDs
var (
	IDPolygonMATIC  = NewNativeAssetID(ChainIDPolygon)
	IDPolygonWMATIC = NewTokenAssetID(ChainIDPolygon, AddrWMATICPolygon)
	IDPolygonMANA   = NewTokenAssetID(ChainIDPolygon, AddrMANAPolygon)
	IDPolygonUSDC   = NewTokenAssetID(ChainIDPolygon, AddrUSDCPolygon)
	IDPolygonWETH   = NewTokenAssetID(ChainIDPolygon, AddrWETHPolygon)
)

// Well-known Assets (pre-created instances)
var (
	MATIC  = NewAssetWithName(IDPolygonMATIC, "MATIC", "Polygon", 18)
	WMATIC = NewAssetWithName(IDPolygonWMATIC, "WMATIC", "Wrapped Matic", 18)
	MANA   = NewAssetWithName(IDPolygonMANA, "MANA", "Decentraland", 18)
	USDC   = NewAssetWithName(IDPolygonUSDC, "USDC", "USD Coin (PoS)", 6)
	WETH   = NewAssetWithName(IDPolygonWETH, "WETH", "Wrapped Ether", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(MATIC)
	r.Register(WMATIC)
	r.Register(MANA)
	r.Register(USDC)
	r.Register(WETH)

	return r
}

// MustNewToken creates a new ERC20 token asset.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	return NewAssetWithName(NewTokenAssetID(chainID, address), symbol, name, decimals)
}
