package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// fakeProvider answers Supports from a fixed market set and records nothing
// else; resolution never invokes the action methods.
type fakeProvider struct {
	kind    types.ProviderKind
	markets map[types.MarketID]bool
}

func (f *fakeProvider) Kind() types.ProviderKind { return f.kind }

func (f *fakeProvider) Supports(market types.MarketID) bool { return f.markets[market] }

func (f *fakeProvider) OpenPosition(context.Context, ActionParams) ([]types.TransactionStep, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) ClosePosition(context.Context, ActionParams) ([]types.TransactionStep, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) GetPosition(context.Context, common.Address, types.MarketID) (*types.RawPosition, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeProvider) ListMarkets(context.Context) ([]types.Market, error) {
	return nil, nil
}

func TestResolveFirstMatchIsDeterministic(t *testing.T) {
	shared := types.NewMarketID(8453, "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca")
	aaveOnly := types.NewMarketID(8453, "0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB")

	morpho := &fakeProvider{kind: types.ProviderMorpho, markets: map[types.MarketID]bool{shared: true}}
	aave := &fakeProvider{kind: types.ProviderAave, markets: map[types.MarketID]bool{shared: true, aaveOnly: true}}

	reg := NewProviderRegistry()
	reg.Register(morpho)
	reg.Register(aave)

	// both support the shared market; registration order decides, every time
	for i := 0; i < 10; i++ {
		p, err := reg.Resolve(shared)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if p.Kind() != types.ProviderMorpho {
			t.Fatalf("Resolve() kind = %s, want %s (iteration %d)", p.Kind(), types.ProviderMorpho, i)
		}
	}

	p, err := reg.Resolve(aaveOnly)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Kind() != types.ProviderAave {
		t.Errorf("Resolve() kind = %s, want %s", p.Kind(), types.ProviderAave)
	}
}

func TestResolveUnknownMarket(t *testing.T) {
	reg := NewProviderRegistry()
	reg.Register(&fakeProvider{kind: types.ProviderMorpho})

	unknown := types.NewMarketID(1, "0x0000000000000000000000000000000000000001")
	_, err := reg.Resolve(unknown)
	var noProvider *types.NoProviderForMarketError
	if !errors.As(err, &noProvider) {
		t.Fatalf("Resolve() error = %v, want NoProviderForMarketError", err)
	}
	if noProvider.Market != unknown {
		t.Errorf("error market = %s, want %s", noProvider.Market, unknown)
	}
}

func TestAssetRegistry(t *testing.T) {
	usdcBase := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	usdc := types.Asset{
		Metadata:       types.AssetMetadata{Symbol: "USDC", Decimals: 6, Name: "USD Coin"},
		AddressByChain: map[types.ChainID]common.Address{8453: usdcBase},
		Kind:           types.AssetKindERC20,
	}
	reg := NewAssetRegistry([]types.Asset{usdc})

	got, err := reg.BySymbol("usdc")
	if err != nil {
		t.Fatalf("BySymbol() error = %v", err)
	}
	if got.Metadata.Decimals != 6 {
		t.Errorf("Decimals = %d, want 6", got.Metadata.Decimals)
	}

	if _, err := reg.BySymbol("PEPE"); err == nil {
		t.Error("BySymbol() on unknown symbol succeeded")
	}

	got, err = reg.ByAddress(8453, usdcBase)
	if err != nil {
		t.Fatalf("ByAddress() error = %v", err)
	}
	if got.Metadata.Symbol != "USDC" {
		t.Errorf("Symbol = %q, want USDC", got.Metadata.Symbol)
	}

	// same address, wrong chain
	if _, err := reg.ByAddress(1, usdcBase); err == nil {
		t.Error("ByAddress() on wrong chain succeeded")
	}
}
