package types

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ProviderKind tags the protocol family servicing a market.
type ProviderKind string

const (
	ProviderMorpho ProviderKind = "morpho"
	ProviderAave   ProviderKind = "aave"
)

// ActionKind is the category of on-chain action a caller requests. Policy
// lists are maintained per action kind.
type ActionKind string

const (
	ActionLend   ActionKind = "lend"
	ActionBorrow ActionKind = "borrow"
	ActionSwap   ActionKind = "swap"
	ActionSend   ActionKind = "send"
)

// MarketID is the globally unique identity of a protocol market: the chain it
// lives on plus its contract address. common.Address is a fixed byte array, so
// hex casing differences in the source string never produce distinct IDs and
// the value is directly usable as a map key.
type MarketID struct {
	ChainID ChainID        `json:"chain_id"`
	Address common.Address `json:"address"`
}

// NewMarketID builds a MarketID from a hex address string, normalizing casing.
func NewMarketID(chain ChainID, hexAddr string) MarketID {
	return MarketID{ChainID: chain, Address: common.HexToAddress(hexAddr)}
}

func (m MarketID) String() string {
	return fmt.Sprintf("%d:%s", m.ChainID, m.Address.Hex())
}

// APY breaks a market's yield into components. All values are decimal
// fractions (0.0525 = 5.25%), never percentages.
type APY struct {
	Base    float64 `json:"base"`
	Rewards float64 `json:"rewards"`
	Total   float64 `json:"total"`
}

// Market is a read-only snapshot of a protocol market as reported by its
// provider.
type Market struct {
	ID           MarketID       `json:"id"`
	ProviderKind ProviderKind   `json:"provider_kind"`
	Name         string         `json:"name"`
	Asset        Asset          `json:"asset"`
	APY          APY            `json:"apy"`
	TotalAssets  *big.Int       `json:"total_assets"`
	TotalShares  *big.Int       `json:"total_shares"`
	Owner        common.Address `json:"owner"`
	Curator      common.Address `json:"curator"`
	LastUpdate   time.Time      `json:"last_update"`
}
