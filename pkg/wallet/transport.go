// Package wallet defines the transport boundary the dispatcher submits plans
// through, plus two implementations: a plain EOA transport signing and sending
// one transaction at a time, and a hosted smart-wallet transport that can
// submit atomic batches as account-abstraction userOps.
package wallet

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// Transport is the minimal wallet capability: an address and a way to submit
// a single step. Send blocks until the transaction is confirmed or ctx ends.
type Transport interface {
	Address() common.Address
	Send(ctx context.Context, step types.TransactionStep, chainID types.ChainID) (common.Hash, error)
}

// BatchTransport is the optional atomic-batch capability. A transport that
// implements it and reports account-abstraction support for the plan's chain
// gets multi-step plans as a single userOp.
type BatchTransport interface {
	Transport

	// SupportsChain reports whether account-abstraction batching is available
	// on the given chain.
	SupportsChain(chainID types.ChainID) bool

	// SendBatch submits all steps atomically and returns the userOp hash.
	// There is no partial outcome: the batch lands entirely or not at all.
	SendBatch(ctx context.Context, steps []types.TransactionStep, chainID types.ChainID) (common.Hash, error)
}
