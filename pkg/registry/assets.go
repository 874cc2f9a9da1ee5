package registry

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// AssetRegistry is the config-driven catalog of supported assets, loaded once
// at startup and immutable afterwards.
type AssetRegistry struct {
	bySymbol map[string]types.Asset
	byRef    map[types.AssetRef]types.Asset
}

// NewAssetRegistry indexes the given assets by symbol and by chain-qualified
// address.
func NewAssetRegistry(assets []types.Asset) *AssetRegistry {
	r := &AssetRegistry{
		bySymbol: make(map[string]types.Asset, len(assets)),
		byRef:    make(map[types.AssetRef]types.Asset),
	}
	for _, a := range assets {
		r.bySymbol[strings.ToUpper(a.Metadata.Symbol)] = a
		for chain, addr := range a.AddressByChain {
			r.byRef[types.AssetRef{ChainID: chain, Address: addr}] = a
		}
	}
	return r
}

// BySymbol looks an asset up by its symbol, case-insensitively.
func (r *AssetRegistry) BySymbol(symbol string) (types.Asset, error) {
	a, ok := r.bySymbol[strings.ToUpper(symbol)]
	if !ok {
		return types.Asset{}, fmt.Errorf("unknown asset symbol %q", symbol)
	}
	return a, nil
}

// ByAddress looks an asset up by its deployment address on a chain.
func (r *AssetRegistry) ByAddress(chain types.ChainID, addr common.Address) (types.Asset, error) {
	a, ok := r.byRef[types.AssetRef{ChainID: chain, Address: addr}]
	if !ok {
		return types.Asset{}, fmt.Errorf("no asset registered at %s on chain %d", addr.Hex(), chain)
	}
	return a, nil
}

// Assets returns all registered assets.
func (r *AssetRegistry) Assets() []types.Asset {
	out := make([]types.Asset, 0, len(r.bySymbol))
	for _, a := range r.bySymbol {
		out = append(out, a)
	}
	return out
}
