package normalize

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// Receipt shapes a dispatch outcome into the canonical receipt. explorerBase
// is the chain's block explorer root (e.g. "https://basescan.org"); when
// empty, no URLs are attached. Pure function, no side effects.
func Receipt(txHashes []common.Hash, userOpHash *common.Hash, explorerBase string) *types.TransactionReceipt {
	receipt := &types.TransactionReceipt{}

	if len(txHashes) > 0 {
		receipt.TransactionHashes = append([]common.Hash(nil), txHashes...)
	} else if userOpHash != nil {
		h := *userOpHash
		receipt.UserOpHash = &h
	}

	if explorerBase != "" {
		base := strings.TrimSuffix(explorerBase, "/")
		for _, h := range receipt.TransactionHashes {
			receipt.BlockExplorerURLs = append(receipt.BlockExplorerURLs, fmt.Sprintf("%s/tx/%s", base, h.Hex()))
		}
		if receipt.UserOpHash != nil {
			receipt.BlockExplorerURLs = append(receipt.BlockExplorerURLs, fmt.Sprintf("%s/tx/%s", base, receipt.UserOpHash.Hex()))
		}
	}

	return receipt
}

// Position shapes a provider's raw position into the canonical LendPosition,
// deriving the formatted balance from the integer balance and the asset's
// authoritative decimals. Pure function, no side effects.
func Position(raw *types.RawPosition, asset types.Asset) *types.LendPosition {
	balance := raw.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	shares := raw.Shares
	if shares == nil {
		shares = new(big.Int)
	}

	return &types.LendPosition{
		Market:  raw.Market,
		Owner:   raw.Owner,
		Balance: balance,
		Shares:  shares,
		BalanceFormatted: FormatUnits(
			balance,
			asset.Metadata.Decimals,
			DisplayDecimals(asset.Metadata.Symbol),
		),
	}
}
