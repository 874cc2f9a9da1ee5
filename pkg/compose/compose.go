// Package compose turns a provider's raw step sequence into a validated
// TransactionPlan. The provider knows whether an approval is required; this
// layer's only job is enforcing the invariants on the provider's output:
// approval-before-action ordering, single-chain plans, and a uniform chain ID
// on every step. Validation fails closed — a malformed plan is rejected, never
// repaired.
package compose

import (
	"errors"
	"fmt"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

var (
	// ErrEmptyPlan is returned when a provider produced no steps at all.
	ErrEmptyPlan = errors.New("provider returned an empty step sequence")

	// ErrApprovalAfterAction is returned when an approval step follows the
	// action it should precede. Executing such a plan either sends funds
	// without allowance or burns an allowance with no paired action.
	ErrApprovalAfterAction = errors.New("approval step ordered after action step")

	// ErrMultiChainPlan is returned when steps disagree on their chain.
	// Cross-chain actions are not expressible in a single plan.
	ErrMultiChainPlan = errors.New("plan spans multiple chains")

	// ErrNoActionStep is returned for a plan consisting only of approvals.
	ErrNoActionStep = errors.New("plan has no action step")
)

// Compose validates the provider's steps and stamps chainID uniformly onto the
// resulting plan. Steps carrying a zero chain ID inherit the plan's; steps
// carrying a different non-zero chain ID make the plan multi-chain and are
// rejected.
func Compose(steps []types.TransactionStep, chainID types.ChainID) (*types.TransactionPlan, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}
	if len(steps) > 2 {
		return nil, fmt.Errorf("plan has %d steps, a single logical action composes at most 2", len(steps))
	}

	seenAction := false
	hasAction := false
	out := make([]types.TransactionStep, 0, len(steps))
	for i, s := range steps {
		switch s.Kind {
		case types.StepApproval:
			if seenAction {
				return nil, fmt.Errorf("step %d: %w", i, ErrApprovalAfterAction)
			}
		case types.StepAction:
			seenAction = true
			hasAction = true
		default:
			return nil, fmt.Errorf("step %d: unknown step kind %q", i, s.Kind)
		}

		if s.ChainID != 0 && s.ChainID != chainID {
			return nil, fmt.Errorf("step %d targets chain %d, plan is for chain %d: %w", i, s.ChainID, chainID, ErrMultiChainPlan)
		}
		s.ChainID = chainID
		out = append(out, s)
	}
	if !hasAction {
		return nil, ErrNoActionStep
	}

	return &types.TransactionPlan{ChainID: chainID, Steps: out}, nil
}
