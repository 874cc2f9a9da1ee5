package activity

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

var (
	actMarket = types.NewMarketID(8453, "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca")
	actOwner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	actAsset  = types.Asset{
		Metadata: types.AssetMetadata{Symbol: "USDC", Decimals: 6},
		Kind:     types.AssetKindERC20,
	}
)

// stubActions returns canned outcomes for the write paths and counts read
// calls to verify pass-through.
type stubActions struct {
	receipt *types.TransactionReceipt
	err     error
	reads   int
	lists   int
}

func (s *stubActions) OpenPosition(context.Context, types.MarketID, *big.Int, types.Asset) (*types.TransactionReceipt, error) {
	return s.receipt, s.err
}

func (s *stubActions) ClosePosition(context.Context, types.MarketID, *big.Int, types.Asset) (*types.TransactionReceipt, error) {
	return s.receipt, s.err
}

func (s *stubActions) GetPosition(context.Context, types.MarketID, common.Address, *types.Asset) (*types.LendPosition, error) {
	s.reads++
	return &types.LendPosition{}, nil
}

func (s *stubActions) ListMarkets(context.Context) ([]types.Market, error) {
	s.lists++
	return nil, nil
}

func TestLoggerRecordsConfirmed(t *testing.T) {
	hash := common.HexToHash("0xab")
	inner := &stubActions{receipt: &types.TransactionReceipt{TransactionHashes: []common.Hash{hash}}}
	store := NewMemoryStore()
	logger := Wrap(inner, store, actOwner)

	receipt, err := logger.OpenPosition(context.Background(), actMarket, big.NewInt(125_500_000), actAsset)
	require.NoError(t, err)
	require.Same(t, inner.receipt, receipt)

	records := store.Records()
	require.Len(t, records, 1)
	rec := records[0]
	require.Equal(t, "open_position", rec.Action)
	require.Equal(t, "confirmed", rec.Status)
	require.Equal(t, hash.Hex(), rec.Hash)
	require.Equal(t, "125500000", rec.Amount)
	require.Equal(t, "USDC", rec.Asset)
	require.Equal(t, actMarket.String(), rec.Market)
	require.Equal(t, actOwner.Hex(), rec.Owner)
}

func TestLoggerRecordsFailure(t *testing.T) {
	inner := &stubActions{err: errors.New("vault paused")}
	store := NewMemoryStore()
	logger := Wrap(inner, store, actOwner)

	_, err := logger.ClosePosition(context.Background(), actMarket, big.NewInt(1), actAsset)
	require.Error(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	require.Equal(t, "close_position", records[0].Action)
	require.Equal(t, "failed", records[0].Status)
	require.Contains(t, records[0].Error, "vault paused")
	require.Empty(t, records[0].Hash)
}

func TestLoggerRecordsPartial(t *testing.T) {
	confirmed := common.HexToHash("0xab")
	inner := &stubActions{err: &types.PartialExecutionError{
		Completed:  []common.Hash{confirmed},
		FailedStep: 1,
		Err:        errors.New("rpc: execution reverted"),
	}}
	store := NewMemoryStore()
	logger := Wrap(inner, store, actOwner)

	_, err := logger.OpenPosition(context.Background(), actMarket, big.NewInt(1), actAsset)
	require.Error(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	require.Equal(t, "partial", records[0].Status)
	require.Equal(t, confirmed.Hex(), records[0].Hash)
}

func TestLoggerReadsPassThrough(t *testing.T) {
	inner := &stubActions{}
	store := NewMemoryStore()
	logger := Wrap(inner, store, actOwner)

	_, err := logger.GetPosition(context.Background(), actMarket, common.Address{}, &actAsset)
	require.NoError(t, err)
	_, err = logger.ListMarkets(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, inner.reads)
	require.Equal(t, 1, inner.lists)
	require.Empty(t, store.Records())
}

// failingStore always errors; the action outcome must still come back intact.
type failingStore struct{}

func (failingStore) Append(context.Context, Record) error { return errors.New("redis: connection refused") }

func TestStoreFailureDoesNotMaskOutcome(t *testing.T) {
	hash := common.HexToHash("0xab")
	inner := &stubActions{receipt: &types.TransactionReceipt{TransactionHashes: []common.Hash{hash}}}
	logger := Wrap(inner, failingStore{}, actOwner)

	receipt, err := logger.OpenPosition(context.Background(), actMarket, big.NewInt(1), actAsset)
	require.NoError(t, err)
	require.Same(t, inner.receipt, receipt)
}
