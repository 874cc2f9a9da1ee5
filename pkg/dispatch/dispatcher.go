// Package dispatch submits validated transaction plans through a wallet
// transport. A plan goes out as one atomic batch when the transport can batch
// on the plan's chain, else step by step. A sequential plan that dies after a
// confirmed step reports the partial hash list as a PartialExecutionError —
// that outcome is never conflated with a clean failure, because a live
// approval may now sit on-chain.
package dispatch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/internal/metrics"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/wallet"
)

// Mode records how a plan was submitted.
type Mode string

const (
	ModeBatch      Mode = "batch"
	ModeSequential Mode = "sequential"
)

// Plan state constants.
const (
	statePending    = "PENDING"
	stateBatching   = "BATCHING"
	stateSequential = "SEQUENTIAL"
	stateConfirmed  = "CONFIRMED"
	stateFailed     = "FAILED"
)

// Result is the raw outcome of a dispatched plan, before normalization.
// Exactly one of TxHashes or UserOpHash is populated.
type Result struct {
	Mode       Mode
	TxHashes   []common.Hash
	UserOpHash *common.Hash
}

// Dispatcher executes plans. It holds no per-call state and never retries: a
// retry decision belongs to the caller, who alone can judge whether a partial
// execution must be reconciled first.
type Dispatcher struct {
	journal *Journal // optional
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher. journal may be nil to disable journaling.
func NewDispatcher(journal *Journal) *Dispatcher {
	return &Dispatcher{
		journal: journal,
		log:     logging.Component("dispatch"),
	}
}

// Execute submits the plan through the transport and blocks until it reaches a
// terminal state. Cancellation mid-plan follows the same partial-execution
// rules as a natural failure.
func (d *Dispatcher) Execute(ctx context.Context, plan *types.TransactionPlan, w wallet.Transport) (*Result, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return nil, fmt.Errorf("empty plan")
	}
	metrics.PlanSteps.Observe(float64(len(plan.Steps)))

	if bt, ok := w.(wallet.BatchTransport); ok && len(plan.Steps) >= 2 && bt.SupportsChain(plan.ChainID) {
		return d.executeBatch(ctx, plan, bt)
	}
	return d.executeSequential(ctx, plan, w)
}

func (d *Dispatcher) executeBatch(ctx context.Context, plan *types.TransactionPlan, w wallet.BatchTransport) (*Result, error) {
	d.log.Debug().Uint64("chain", uint64(plan.ChainID)).Int("steps", len(plan.Steps)).Msg("dispatching plan as atomic batch")

	userOpHash, err := w.SendBatch(ctx, plan.Steps, plan.ChainID)
	if err != nil {
		metrics.DispatchesTotal.WithLabelValues(string(ModeBatch), "failed").Inc()
		// Atomic submission: a failed batch leaves no partial state.
		if ctx.Err() != nil {
			return nil, &types.CancelledError{Err: err}
		}
		return nil, fmt.Errorf("batch dispatch failed: %w", err)
	}

	metrics.DispatchesTotal.WithLabelValues(string(ModeBatch), "confirmed").Inc()
	d.log.Info().Str("user_op", userOpHash.Hex()).Msg("batch confirmed")
	return &Result{Mode: ModeBatch, UserOpHash: &userOpHash}, nil
}

func (d *Dispatcher) executeSequential(ctx context.Context, plan *types.TransactionPlan, w wallet.Transport) (*Result, error) {
	d.log.Debug().Uint64("chain", uint64(plan.ChainID)).Int("steps", len(plan.Steps)).Msg("dispatching plan sequentially")

	entry := d.journalBegin(plan, w)

	hashes := make([]common.Hash, 0, len(plan.Steps))
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return nil, d.sequentialFailure(entry, hashes, i, &types.CancelledError{Err: err})
		}

		hash, err := w.Send(ctx, step, plan.ChainID)
		if err != nil {
			if ctx.Err() != nil {
				err = &types.CancelledError{Err: err}
			}
			return nil, d.sequentialFailure(entry, hashes, i, err)
		}

		hashes = append(hashes, hash)
		d.journalStep(entry, i, hash)
	}

	d.journalFinish(entry, stateConfirmed)
	metrics.DispatchesTotal.WithLabelValues(string(ModeSequential), "confirmed").Inc()
	d.log.Info().Int("steps", len(hashes)).Str("tx", hashes[0].Hex()).Msg("sequential plan confirmed")
	return &Result{Mode: ModeSequential, TxHashes: hashes}, nil
}

// sequentialFailure distinguishes "nothing happened" from "something happened,
// reconcile". With zero confirmed steps the failure is clean; with one or more
// it is a PartialExecutionError carrying the confirmed hashes.
func (d *Dispatcher) sequentialFailure(entry *JournalEntry, confirmed []common.Hash, failedStep int, err error) error {
	d.journalFinish(entry, stateFailed)

	if len(confirmed) == 0 {
		metrics.DispatchesTotal.WithLabelValues(string(ModeSequential), "failed").Inc()
		d.log.Warn().Err(err).Msg("sequential plan failed with no steps confirmed")
		return fmt.Errorf("step %d failed: %w", failedStep, err)
	}

	metrics.DispatchesTotal.WithLabelValues(string(ModeSequential), "partial").Inc()
	d.log.Error().Err(err).Int("confirmed", len(confirmed)).Int("failed_step", failedStep).
		Msg("sequential plan failed after confirmed steps; on-chain state partially mutated")
	return &types.PartialExecutionError{
		Completed:  append([]common.Hash(nil), confirmed...),
		FailedStep: failedStep,
		Err:        err,
	}
}

func (d *Dispatcher) journalBegin(plan *types.TransactionPlan, w wallet.Transport) *JournalEntry {
	if d.journal == nil {
		return nil
	}
	entry, err := d.journal.Begin(plan, w.Address())
	if err != nil {
		// Journaling is best-effort reconciliation data, not a gate.
		d.log.Warn().Err(err).Msg("failed to journal plan start")
		return nil
	}
	return entry
}

func (d *Dispatcher) journalStep(entry *JournalEntry, step int, hash common.Hash) {
	if entry == nil {
		return
	}
	if err := d.journal.RecordStep(entry, step, hash); err != nil {
		d.log.Warn().Err(err).Int("step", step).Msg("failed to journal confirmed step")
	}
}

func (d *Dispatcher) journalFinish(entry *JournalEntry, state string) {
	if entry == nil {
		return
	}
	if err := d.journal.Finish(entry, state); err != nil {
		d.log.Warn().Err(err).Msg("failed to finalize plan journal")
	}
}
