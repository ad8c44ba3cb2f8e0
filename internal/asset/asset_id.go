// Package asset provides a type-safe model for on-chain tokens and amounts.
// The core uses big.Int for exact on-chain representation.
// decimal.Decimal is only used at boundaries (config parsing, display).
package asset

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetID uniquely identifies a token by chain and contract address.
// Native coins use the zero address.
type AssetID struct {
	chainID uint64
	address common.Address
}

// NewNativeAssetID creates an AssetID for a chain's native coin.
func NewNativeAssetID(chainID uint64) AssetID {
	return AssetID{chainID: chainID}
}

// NewTokenAssetID creates an AssetID for an ERC20 token.
func NewTokenAssetID(chainID uint64, addr common.Address) AssetID {
	if addr == (common.Address{}) {
		panic("token address cannot be zero - use NewNativeAssetID for native coins")
	}
	return AssetID{
		chainID: chainID,
		address: addr,
	}
}

// ChainID returns the chain ID.
func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the token contract address (zero for native coins).
func (id AssetID) Address() common.Address {
	return id.address
}

// IsNative returns true if this is a native coin.
func (id AssetID) IsNative() bool {
	return id.address == (common.Address{})
}

// IsZero reports whether the ID was never initialised.
func (id AssetID) IsZero() bool {
	return id.chainID == 0 && id.address == (common.Address{})
}

// Equals compares two AssetIDs.
func (id AssetID) Equals(other AssetID) bool {
	return id.chainID == other.chainID && id.address == other.address
}

// Less orders IDs by chain then address. Used to sort lock keys.
func (id AssetID) Less(other AssetID) bool {
	if id.chainID != other.chainID {
		return id.chainID < other.chainID
	}
	return bytes.Compare(id.address.Bytes(), other.address.Bytes()) < 0
}

// String returns "chainID:address".
func (id AssetID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("%d:native", id.chainID)
	}
	return fmt.Sprintf("%d:%s", id.chainID, id.address.Hex())
}
