// Package activity decorates the engine with action logging. It is an
// explicit wrapper around the engine's public interface — the core itself
// stays free of activity concerns. Record writes are retried a bounded number
// of times; action outcomes are reported unchanged either way.
package activity

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/engine"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// Record is one persisted action outcome.
type Record struct {
	Action string    `json:"action"`
	Market string    `json:"market"`
	Owner  string    `json:"owner"`
	Asset  string    `json:"asset,omitempty"`
	Amount string    `json:"amount,omitempty"`
	Status string    `json:"status"` // "confirmed", "partial", "failed"
	Hash   string    `json:"hash,omitempty"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Store persists activity records.
type Store interface {
	Append(ctx context.Context, rec Record) error
}

// Logger wraps an engine.Actions, recording every write action. Read paths
// (GetPosition, ListMarkets) pass through unrecorded.
type Logger struct {
	inner engine.Actions
	store Store
	owner common.Address
	log   zerolog.Logger
}

var _ engine.Actions = (*Logger)(nil)

// Wrap decorates inner with activity recording. owner is the wallet address
// the actions execute for; it is stamped onto every record.
func Wrap(inner engine.Actions, store Store, owner common.Address) *Logger {
	return &Logger{
		inner: inner,
		store: store,
		owner: owner,
		log:   logging.Component("activity"),
	}
}

func (l *Logger) OpenPosition(ctx context.Context, market types.MarketID, amount *big.Int, asset types.Asset) (*types.TransactionReceipt, error) {
	receipt, err := l.inner.OpenPosition(ctx, market, amount, asset)
	l.record(ctx, "open_position", market, amount, asset, receipt, err)
	return receipt, err
}

func (l *Logger) ClosePosition(ctx context.Context, market types.MarketID, amount *big.Int, asset types.Asset) (*types.TransactionReceipt, error) {
	receipt, err := l.inner.ClosePosition(ctx, market, amount, asset)
	l.record(ctx, "close_position", market, amount, asset, receipt, err)
	return receipt, err
}

func (l *Logger) GetPosition(ctx context.Context, market types.MarketID, owner common.Address, asset *types.Asset) (*types.LendPosition, error) {
	return l.inner.GetPosition(ctx, market, owner, asset)
}

func (l *Logger) ListMarkets(ctx context.Context) ([]types.Market, error) {
	return l.inner.ListMarkets(ctx)
}

func (l *Logger) record(ctx context.Context, action string, market types.MarketID, amount *big.Int, asset types.Asset, receipt *types.TransactionReceipt, actionErr error) {
	rec := Record{
		Action: action,
		Market: market.String(),
		Owner:  l.owner.Hex(),
		Asset:  asset.Metadata.Symbol,
		At:     time.Now().UTC(),
	}
	if amount != nil {
		rec.Amount = amount.String()
	}

	switch {
	case actionErr == nil:
		rec.Status = "confirmed"
		if receipt != nil {
			if h, ok := receipt.Hash(); ok {
				rec.Hash = h.Hex()
			}
		}
	default:
		rec.Error = actionErr.Error()
		rec.Status = "failed"
		// Partial executions mutated chain state; keep them distinguishable
		// in the activity trail too.
		var partial *types.PartialExecutionError
		if errors.As(actionErr, &partial) {
			rec.Status = "partial"
			if len(partial.Completed) > 0 {
				rec.Hash = partial.Completed[0].Hex()
			}
		}
	}

	// Recording must never mask the action's own outcome.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := l.store.Append(storeCtx, rec); err != nil {
		l.log.Warn().Err(err).Str("action", action).Msg("failed to persist activity record")
	}
}
