// Package policy evaluates configured allow/block lists before any routing or
// composition happens. Block always wins; an empty allow list means "allow all
// not blocked".
package policy

import (
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// List holds the four lists for one action kind. Assets are matched by
// chain-qualified address, markets by their compound ID.
type List struct {
	AssetAllow  []types.AssetRef
	AssetBlock  []types.AssetRef
	MarketAllow []types.MarketID
	MarketBlock []types.MarketID
}

type compiled struct {
	assetAllow  map[types.AssetRef]struct{}
	assetBlock  map[types.AssetRef]struct{}
	marketAllow map[types.MarketID]struct{}
	marketBlock map[types.MarketID]struct{}
}

// Filter answers allow/deny questions for every action kind. It is built once
// at startup and immutable afterwards, so it is safe for concurrent use.
type Filter struct {
	byAction map[types.ActionKind]compiled
}

// NewFilter compiles the per-action lists into set form. Actions with no entry
// fall back to a fully open policy.
func NewFilter(lists map[types.ActionKind]List) *Filter {
	f := &Filter{byAction: make(map[types.ActionKind]compiled, len(lists))}
	for action, l := range lists {
		c := compiled{
			assetAllow:  make(map[types.AssetRef]struct{}, len(l.AssetAllow)),
			assetBlock:  make(map[types.AssetRef]struct{}, len(l.AssetBlock)),
			marketAllow: make(map[types.MarketID]struct{}, len(l.MarketAllow)),
			marketBlock: make(map[types.MarketID]struct{}, len(l.MarketBlock)),
		}
		for _, r := range l.AssetAllow {
			c.assetAllow[r] = struct{}{}
		}
		for _, r := range l.AssetBlock {
			c.assetBlock[r] = struct{}{}
		}
		for _, m := range l.MarketAllow {
			c.marketAllow[m] = struct{}{}
		}
		for _, m := range l.MarketBlock {
			c.marketBlock[m] = struct{}{}
		}
		f.byAction[action] = c
	}
	return f
}

// IsAssetAllowed evaluates the chain-qualified asset ref against the lists for
// the given action. A blocked ref is rejected even when allow-listed.
func (f *Filter) IsAssetAllowed(action types.ActionKind, ref types.AssetRef) bool {
	c, ok := f.byAction[action]
	if !ok {
		return true
	}
	if _, blocked := c.assetBlock[ref]; blocked {
		return false
	}
	if len(c.assetAllow) == 0 {
		return true
	}
	_, allowed := c.assetAllow[ref]
	return allowed
}

// IsMarketAllowed evaluates a market ID against the lists for the given action.
func (f *Filter) IsMarketAllowed(action types.ActionKind, market types.MarketID) bool {
	c, ok := f.byAction[action]
	if !ok {
		return true
	}
	if _, blocked := c.marketBlock[market]; blocked {
		return false
	}
	if len(c.marketAllow) == 0 {
		return true
	}
	_, allowed := c.marketAllow[market]
	return allowed
}

// CheckAction validates both the asset ref and the market for an action,
// returning a typed PolicyViolationError on the first rejection.
func (f *Filter) CheckAction(action types.ActionKind, ref types.AssetRef, market types.MarketID) error {
	if !f.IsAssetAllowed(action, ref) {
		return &types.PolicyViolationError{Action: action, Entity: ref.String(), Reason: reason(f, action, ref, types.MarketID{})}
	}
	if !f.IsMarketAllowed(action, market) {
		return &types.PolicyViolationError{Action: action, Entity: market.String(), Reason: marketReason(f, action, market)}
	}
	return nil
}

func reason(f *Filter, action types.ActionKind, ref types.AssetRef, _ types.MarketID) string {
	c := f.byAction[action]
	if _, blocked := c.assetBlock[ref]; blocked {
		return "blocked"
	}
	return "not allow-listed"
}

func marketReason(f *Filter, action types.ActionKind, market types.MarketID) string {
	c := f.byAction[action]
	if _, blocked := c.marketBlock[market]; blocked {
		return "blocked"
	}
	return "not allow-listed"
}
