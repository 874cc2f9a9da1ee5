// Command simulate runs one lend action end to end against an in-memory
// provider and a loopback wallet transport, printing the canonical receipt and
// position. Useful for exercising the engine wiring without touching a chain.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/activity"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/dispatch"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/engine"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/normalize"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/policy"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/registry"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

const (
	simChain = types.ChainID(8453)
	simVault = "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca"
	simUSDC  = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
)

func main() {
	_ = godotenv.Load()
	logging.Initialize(os.Getenv("LOG_LEVEL"))

	usdc := types.Asset{
		Metadata:       types.AssetMetadata{Symbol: "USDC", Decimals: 6, Name: "USD Coin"},
		AddressByChain: map[types.ChainID]common.Address{simChain: common.HexToAddress(simUSDC)},
		Kind:           types.AssetKindERC20,
	}
	market := types.NewMarketID(simChain, simVault)

	providers := registry.NewProviderRegistry()
	providers.Register(&staticProvider{market: market, asset: usdc})

	transport := &loopbackTransport{}
	eng, err := engine.New(engine.Config{
		Filter:       policy.NewFilter(map[types.ActionKind]policy.List{}),
		Providers:    providers,
		Assets:       registry.NewAssetRegistry([]types.Asset{usdc}),
		Dispatcher:   dispatch.NewDispatcher(nil),
		Transport:    transport,
		MarketAssets: map[types.MarketID]types.Asset{market: usdc},
		Explorers:    map[types.ChainID]string{simChain: "https://basescan.org"},
	})
	if err != nil {
		log.Fatalf("engine setup failed: %v", err)
	}

	store := activity.NewMemoryStore()
	actions := activity.Wrap(eng, store, transport.Address())

	amount, err := normalize.ParseUnits("125.50", usdc.Metadata.Decimals)
	if err != nil {
		log.Fatalf("bad amount: %v", err)
	}

	ctx := context.Background()

	log.Printf("Simulating lend of 125.50 USDC into %s...", market)
	receipt, err := actions.OpenPosition(ctx, market, amount, usdc)
	if err != nil {
		log.Fatalf("open position failed: %v", err)
	}
	printJSON("receipt", receipt)

	position, err := actions.GetPosition(ctx, market, common.HexToAddress("0x1111111111111111111111111111111111111111"), nil)
	if err != nil {
		log.Fatalf("get position failed: %v", err)
	}
	printJSON("position", position)

	printJSON("activity", store.Records())
}

func printJSON(label string, v interface{}) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Printf("%s:\n%s\n", label, out)
}

// staticProvider services one market with canned steps and balances.
type staticProvider struct {
	market types.MarketID
	asset  types.Asset
}

func (p *staticProvider) Kind() types.ProviderKind       { return types.ProviderMorpho }
func (p *staticProvider) Supports(m types.MarketID) bool { return m == p.market }

func (p *staticProvider) OpenPosition(_ context.Context, params registry.ActionParams) ([]types.TransactionStep, error) {
	token, _ := params.Asset.AddressOn(p.market.ChainID)
	return []types.TransactionStep{
		{Kind: types.StepApproval, To: token, Data: []byte{0x09, 0x5e, 0xa7, 0xb3}, Value: big.NewInt(0), ChainID: p.market.ChainID},
		{Kind: types.StepAction, To: p.market.Address, Data: []byte{0x6e, 0x55, 0x3f, 0x65}, Value: big.NewInt(0), ChainID: p.market.ChainID},
	}, nil
}

func (p *staticProvider) ClosePosition(_ context.Context, _ registry.ActionParams) ([]types.TransactionStep, error) {
	return []types.TransactionStep{
		{Kind: types.StepAction, To: p.market.Address, Data: []byte{0xb4, 0x60, 0xaf, 0x94}, Value: big.NewInt(0), ChainID: p.market.ChainID},
	}, nil
}

func (p *staticProvider) GetPosition(_ context.Context, owner common.Address, m types.MarketID) (*types.RawPosition, error) {
	return &types.RawPosition{
		Market:  m,
		Owner:   owner,
		Balance: big.NewInt(125_500_000),
		Shares:  big.NewInt(120_000_000),
	}, nil
}

func (p *staticProvider) ListMarkets(_ context.Context) ([]types.Market, error) {
	return []types.Market{{
		ID:           p.market,
		ProviderKind: types.ProviderMorpho,
		Name:         "Simulated USDC Vault",
		Asset:        p.asset,
		APY:          types.APY{Base: 0.048, Total: 0.048},
		TotalAssets:  big.NewInt(9_000_000_000_000),
		TotalShares:  big.NewInt(8_800_000_000_000),
	}}, nil
}

// loopbackTransport confirms every step instantly with a deterministic hash.
type loopbackTransport struct {
	sent int
}

func (t *loopbackTransport) Address() common.Address {
	return common.HexToAddress("0x1111111111111111111111111111111111111111")
}

func (t *loopbackTransport) Send(_ context.Context, step types.TransactionStep, chainID types.ChainID) (common.Hash, error) {
	t.sent++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%s", chainID, t.sent, step.To.Hex())))
	return common.BytesToHash(sum[:]), nil
}
