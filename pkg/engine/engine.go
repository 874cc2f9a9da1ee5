// Package engine is the action execution core: it validates a requested
// action against policy, resolves the protocol provider for the market,
// composes the transaction plan, dispatches it through the wallet transport,
// and normalizes the outcome into the SDK's canonical shapes.
package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/internal/metrics"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/compose"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/dispatch"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/normalize"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/policy"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/registry"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/wallet"
)

// Actions is the interface the engine exposes upward. Decorators (activity
// logging) wrap it without the engine knowing.
type Actions interface {
	OpenPosition(ctx context.Context, market types.MarketID, amount *big.Int, asset types.Asset) (*types.TransactionReceipt, error)
	ClosePosition(ctx context.Context, market types.MarketID, amount *big.Int, asset types.Asset) (*types.TransactionReceipt, error)
	GetPosition(ctx context.Context, market types.MarketID, owner common.Address, asset *types.Asset) (*types.LendPosition, error)
	ListMarkets(ctx context.Context) ([]types.Market, error)
}

// Config wires the engine's collaborators. Everything is loaded once at
// startup; the engine holds no mutable state between calls.
type Config struct {
	Filter     *policy.Filter
	Providers  *registry.ProviderRegistry
	Assets     *registry.AssetRegistry
	Dispatcher *dispatch.Dispatcher
	Transport  wallet.Transport
	// MarketAssets maps catalog markets to their underlying asset, used when
	// GetPosition is called without an explicit asset.
	MarketAssets map[types.MarketID]types.Asset
	// Explorers maps chains to their block explorer base URL.
	Explorers map[types.ChainID]string
}

// Engine implements Actions. Each call is independent and safe to run
// concurrently with others.
type Engine struct {
	filter       *policy.Filter
	providers    *registry.ProviderRegistry
	assets       *registry.AssetRegistry
	dispatcher   *dispatch.Dispatcher
	transport    wallet.Transport
	marketAssets map[types.MarketID]types.Asset
	explorers    map[types.ChainID]string
	log          zerolog.Logger
}

var _ Actions = (*Engine)(nil)

// New validates the wiring and returns an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Filter == nil {
		return nil, fmt.Errorf("policy filter is required")
	}
	if cfg.Providers == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("wallet transport is required")
	}

	return &Engine{
		filter:       cfg.Filter,
		providers:    cfg.Providers,
		assets:       cfg.Assets,
		dispatcher:   cfg.Dispatcher,
		transport:    cfg.Transport,
		marketAssets: cfg.MarketAssets,
		explorers:    cfg.Explorers,
		log:          logging.Component("engine"),
	}, nil
}

// OpenPosition lends amount (smallest unit) of asset into the market.
func (e *Engine) OpenPosition(ctx context.Context, market types.MarketID, amount *big.Int, asset types.Asset) (*types.TransactionReceipt, error) {
	return e.executeAction(ctx, "open position", market, amount, asset, registry.Provider.OpenPosition)
}

// ClosePosition withdraws amount (smallest unit) of asset from the market.
func (e *Engine) ClosePosition(ctx context.Context, market types.MarketID, amount *big.Int, asset types.Asset) (*types.TransactionReceipt, error) {
	return e.executeAction(ctx, "close position", market, amount, asset, registry.Provider.ClosePosition)
}

func (e *Engine) executeAction(
	ctx context.Context,
	op string,
	market types.MarketID,
	amount *big.Int,
	asset types.Asset,
	produce func(registry.Provider, context.Context, registry.ActionParams) ([]types.TransactionStep, error),
) (*types.TransactionReceipt, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: amount must be a positive integer in the asset's smallest unit", op)
	}

	// Policy runs before anything that could touch the provider or wallet.
	ref, err := asset.RefOn(market.ChainID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := e.filter.CheckAction(types.ActionLend, ref, market); err != nil {
		metrics.ActionsTotal.WithLabelValues(string(types.ActionLend), "policy_violation").Inc()
		return nil, err
	}

	provider, err := e.providers.Resolve(market)
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(types.ActionLend), "no_provider").Inc()
		return nil, err
	}

	steps, err := produce(provider, ctx, registry.ActionParams{
		Market: market,
		Asset:  asset,
		Owner:  e.transport.Address(),
		Amount: amount,
	})
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(types.ActionLend), "provider_error").Inc()
		return nil, e.wrapSuspendErr(ctx, &types.ProviderError{Provider: provider.Kind(), Op: op, Err: err})
	}

	plan, err := compose.Compose(steps, market.ChainID)
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(types.ActionLend), "compose_rejected").Inc()
		return nil, fmt.Errorf("%s: plan rejected: %w", op, err)
	}

	e.log.Info().Str("op", op).Str("market", market.String()).
		Str("asset", asset.Metadata.Symbol).Int("steps", len(plan.Steps)).
		Bool("approval", plan.RequiresApproval()).Msg("dispatching action")

	result, err := e.dispatcher.Execute(ctx, plan, e.transport)
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(string(types.ActionLend), "dispatch_error").Inc()
		return nil, err
	}

	metrics.ActionsTotal.WithLabelValues(string(types.ActionLend), "ok").Inc()
	return normalize.Receipt(result.TxHashes, result.UserOpHash, e.explorers[market.ChainID]), nil
}

// GetPosition reads the owner's position in the market. asset may be nil when
// the market is in the configured catalog; it is then resolved from there.
func (e *Engine) GetPosition(ctx context.Context, market types.MarketID, owner common.Address, asset *types.Asset) (*types.LendPosition, error) {
	provider, err := e.providers.Resolve(market)
	if err != nil {
		return nil, err
	}

	raw, err := provider.GetPosition(ctx, owner, market)
	if err != nil {
		return nil, e.wrapSuspendErr(ctx, &types.ProviderError{Provider: provider.Kind(), Op: "get position", Err: err})
	}

	resolved, err := e.resolveAsset(market, asset)
	if err != nil {
		return nil, err
	}
	return normalize.Position(raw, resolved), nil
}

// ListMarkets aggregates every registered provider's markets, dropping those
// the lend policy rejects.
func (e *Engine) ListMarkets(ctx context.Context) ([]types.Market, error) {
	var out []types.Market
	for _, provider := range e.providers.Providers() {
		markets, err := provider.ListMarkets(ctx)
		if err != nil {
			return nil, e.wrapSuspendErr(ctx, &types.ProviderError{Provider: provider.Kind(), Op: "list markets", Err: err})
		}
		for _, m := range markets {
			if !e.filter.IsMarketAllowed(types.ActionLend, m.ID) {
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func (e *Engine) resolveAsset(market types.MarketID, asset *types.Asset) (types.Asset, error) {
	if asset != nil {
		return *asset, nil
	}
	if a, ok := e.marketAssets[market]; ok {
		return a, nil
	}
	return types.Asset{}, fmt.Errorf("no asset known for market %s; pass one explicitly", market)
}

// wrapSuspendErr tags errors caused by caller cancellation so they surface as
// Cancelled rather than a generic provider failure.
func (e *Engine) wrapSuspendErr(ctx context.Context, err error) error {
	if ctx.Err() != nil && !types.IsCancelled(err) {
		return &types.CancelledError{Err: err}
	}
	return err
}
