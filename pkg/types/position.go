package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RawPosition is a provider's untreated view of a lend position. Balance and
// Shares are integers in the asset's smallest unit; formatting happens only in
// the normalizer.
type RawPosition struct {
	Market  MarketID       `json:"market"`
	Owner   common.Address `json:"owner"`
	Balance *big.Int       `json:"balance"`
	Shares  *big.Int       `json:"shares"`
}

// LendPosition is the SDK's canonical position shape. BalanceFormatted is
// derived from Balance and the asset's decimals at normalization time and is
// never stored independently.
type LendPosition struct {
	Market           MarketID       `json:"market"`
	Owner            common.Address `json:"owner"`
	Balance          *big.Int       `json:"balance"`
	Shares           *big.Int       `json:"shares"`
	BalanceFormatted string         `json:"balance_formatted"`
}
