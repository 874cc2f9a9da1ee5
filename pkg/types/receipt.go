package types

import "github.com/ethereum/go-ethereum/common"

// TransactionReceipt is the canonical outcome of an executed plan. Exactly one
// of TransactionHashes (sequential sends) or UserOpHash (atomic batch) is
// populated.
type TransactionReceipt struct {
	TransactionHashes []common.Hash `json:"transaction_hashes,omitempty"`
	UserOpHash        *common.Hash  `json:"user_op_hash,omitempty"`
	BlockExplorerURLs []string      `json:"block_explorer_urls,omitempty"`
}

// Hash returns "the" hash of the receipt: the first transaction hash when the
// plan went out sequentially, else the userOp hash. ok is false when neither
// is populated.
func (r *TransactionReceipt) Hash() (common.Hash, bool) {
	if len(r.TransactionHashes) > 0 {
		return r.TransactionHashes[0], true
	}
	if r.UserOpHash != nil {
		return *r.UserOpHash, true
	}
	return common.Hash{}, false
}
