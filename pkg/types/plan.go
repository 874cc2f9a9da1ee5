package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StepKind distinguishes an ERC-20 approval call from the action call it
// enables.
type StepKind string

const (
	StepApproval StepKind = "approval"
	StepAction   StepKind = "action"
)

// TransactionStep is a single on-chain call. An approval step targets the
// asset's token contract, never the protocol contract.
type TransactionStep struct {
	Kind    StepKind       `json:"kind"`
	To      common.Address `json:"to"`
	Data    []byte         `json:"data"`
	Value   *big.Int       `json:"value"`
	ChainID ChainID        `json:"chain_id"`
}

// TransactionPlan is the ordered call sequence for one logical action. All
// steps execute on the same chain; an approval, if present, precedes the
// action it pairs with.
type TransactionPlan struct {
	ChainID ChainID           `json:"chain_id"`
	Steps   []TransactionStep `json:"steps"`
}

// RequiresApproval reports whether the plan carries an approval step.
func (p *TransactionPlan) RequiresApproval() bool {
	for _, s := range p.Steps {
		if s.Kind == StepApproval {
			return true
		}
	}
	return false
}
