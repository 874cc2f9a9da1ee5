package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PolicyViolationError reports that an asset or market was rejected by the
// configured allow/block lists. It is raised before any provider or wallet
// call, so no side effects can have occurred.
type PolicyViolationError struct {
	Action ActionKind
	Entity string // chain-qualified asset ref or market ID
	Reason string // "blocked" or "not allow-listed"
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation: %s %s for action %s", e.Entity, e.Reason, e.Action)
}

// NoProviderForMarketError reports that no registered provider services the
// given market. This is a configuration error and is never retried.
type NoProviderForMarketError struct {
	Market MarketID
}

func (e *NoProviderForMarketError) Error() string {
	return fmt.Sprintf("no provider registered for market %s", e.Market)
}

// ProviderError wraps a failure inside a provider's RPC or query call, keeping
// the provider's own message attached.
type ProviderError struct {
	Provider ProviderKind
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PartialExecutionError reports that a sequential plan failed after one or
// more steps already confirmed on-chain. Completed carries the hashes of the
// confirmed steps so the caller can reconcile state. It must never be conflated
// with a clean failure where nothing was submitted.
type PartialExecutionError struct {
	Completed  []common.Hash
	FailedStep int // zero-based index of the step that did not confirm
	Err        error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("partial execution: %d of %d+ steps confirmed before step %d failed: %v",
		len(e.Completed), e.FailedStep, e.FailedStep, e.Err)
}

func (e *PartialExecutionError) Unwrap() error { return e.Err }

// CancelledError reports that the caller's context ended while a suspend point
// (provider RPC or wallet call) was in flight. errors.Is against
// context.Canceled / context.DeadlineExceeded still matches through Unwrap.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string { return fmt.Sprintf("action cancelled: %v", e.Err) }

func (e *CancelledError) Unwrap() error { return e.Err }

// IsCancelled reports whether err was caused by caller cancellation or
// deadline expiry at any wrapping depth.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
