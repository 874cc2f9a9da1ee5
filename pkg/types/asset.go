package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ChainID identifies an EVM chain (e.g. 1 for Ethereum mainnet, 8453 for Base).
type ChainID uint64

// AssetKind distinguishes ERC-20 tokens from the chain's native coin.
type AssetKind string

const (
	AssetKindERC20  AssetKind = "erc20"
	AssetKindNative AssetKind = "native"
)

// AssetMetadata holds the display attributes of an asset. Decimals is
// authoritative for all formatting; it is never inferred from magnitudes.
type AssetMetadata struct {
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
	Name     string `json:"name"`
}

// Asset describes a token supported by the SDK, including its deployment
// address on every chain it is used on.
type Asset struct {
	Metadata       AssetMetadata              `json:"metadata"`
	AddressByChain map[ChainID]common.Address `json:"address_by_chain"`
	Kind           AssetKind                  `json:"kind"`
}

// AddressOn returns the asset's contract address on the given chain.
func (a Asset) AddressOn(chain ChainID) (common.Address, bool) {
	addr, ok := a.AddressByChain[chain]
	return addr, ok
}

// RefOn returns the chain-qualified reference for this asset on the given
// chain. Policy lists match assets by this reference, not by symbol.
func (a Asset) RefOn(chain ChainID) (AssetRef, error) {
	addr, ok := a.AddressByChain[chain]
	if !ok {
		return AssetRef{}, fmt.Errorf("asset %s has no address on chain %d", a.Metadata.Symbol, chain)
	}
	return AssetRef{ChainID: chain, Address: addr}, nil
}

// AssetRef is the chain-qualified identity of an asset instance. Two chains
// hosting the same symbol produce two distinct refs.
type AssetRef struct {
	ChainID ChainID        `json:"chain_id"`
	Address common.Address `json:"address"`
}

// NewAssetRef builds a ref from a hex address string. Casing of the input is
// irrelevant; common.HexToAddress normalizes it.
func NewAssetRef(chain ChainID, hexAddr string) AssetRef {
	return AssetRef{ChainID: chain, Address: common.HexToAddress(hexAddr)}
}

func (r AssetRef) String() string {
	return fmt.Sprintf("%d:%s", r.ChainID, r.Address.Hex())
}
