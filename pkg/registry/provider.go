// Package registry holds the static asset catalog and the provider registry
// that maps markets to the protocol plug-in servicing them. New protocols are
// added by registering a new Provider, never by branching inside the engine.
package registry

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// ActionParams carries the resolved inputs for an open or close action.
// Amount is an integer in the asset's smallest unit; human-decimal inputs are
// converted (with flooring) before reaching this layer.
type ActionParams struct {
	Market types.MarketID
	Asset  types.Asset
	Owner  common.Address
	Amount *big.Int
}

// Provider is the uniform contract every protocol plug-in implements. The
// open/close methods return the raw step sequence for the action; the composer
// validates ordering and chain consistency before anything is dispatched.
// Protocol-specific math (interest accrual, share conversion) stays inside the
// provider.
type Provider interface {
	Kind() types.ProviderKind

	// Supports reports whether this provider services the given market.
	Supports(market types.MarketID) bool

	// OpenPosition returns the call sequence that opens (or grows) a lend
	// position: an approval step when the current allowance is insufficient,
	// followed by the protocol action step.
	OpenPosition(ctx context.Context, p ActionParams) ([]types.TransactionStep, error)

	// ClosePosition returns the call sequence that withdraws from a position.
	ClosePosition(ctx context.Context, p ActionParams) ([]types.TransactionStep, error)

	// GetPosition reads the owner's current position in the market.
	GetPosition(ctx context.Context, owner common.Address, market types.MarketID) (*types.RawPosition, error)

	// ListMarkets returns the markets this provider services, with live totals
	// where the protocol exposes them.
	ListMarkets(ctx context.Context) ([]types.Market, error)
}

// ProviderRegistry resolves markets to providers with a single-pass
// first-match scan over the registration order.
type ProviderRegistry struct {
	providers []Provider
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register appends a provider. Registration happens at startup; the registry
// is read-only afterwards.
func (r *ProviderRegistry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// Resolve returns the first registered provider that supports the market, or
// a NoProviderForMarketError when none does.
func (r *ProviderRegistry) Resolve(market types.MarketID) (Provider, error) {
	for _, p := range r.providers {
		if p.Supports(market) {
			return p, nil
		}
	}
	return nil, &types.NoProviderForMarketError{Market: market}
}

// Providers returns the registered providers in registration order.
func (r *ProviderRegistry) Providers() []Provider {
	return r.providers
}
