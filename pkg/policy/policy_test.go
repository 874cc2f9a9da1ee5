package policy

import (
	"errors"
	"testing"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

var (
	baseUSDC = types.NewAssetRef(8453, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	baseUSDT = types.NewAssetRef(8453, "0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2")
	ethUSDC  = types.NewAssetRef(1, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	vaultA = types.NewMarketID(8453, "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca")
	vaultB = types.NewMarketID(8453, "0xbEeF010f9cb27031ad51e3333f9aF9C6B1228183")
)

func TestIsAssetAllowed(t *testing.T) {
	tests := []struct {
		name string
		list List
		ref  types.AssetRef
		want bool
	}{
		{
			name: "open policy allows everything",
			list: List{},
			ref:  baseUSDC,
			want: true,
		},
		{
			name: "open policy still rejects blocked",
			list: List{AssetBlock: []types.AssetRef{baseUSDT}},
			ref:  baseUSDT,
			want: false,
		},
		{
			name: "open policy with unrelated block allows",
			list: List{AssetBlock: []types.AssetRef{baseUSDT}},
			ref:  baseUSDC,
			want: true,
		},
		{
			name: "block wins over allow",
			list: List{AssetAllow: []types.AssetRef{baseUSDT}, AssetBlock: []types.AssetRef{baseUSDT}},
			ref:  baseUSDT,
			want: false,
		},
		{
			name: "closed policy allows member",
			list: List{AssetAllow: []types.AssetRef{baseUSDC}},
			ref:  baseUSDC,
			want: true,
		},
		{
			name: "closed policy rejects non-member",
			list: List{AssetAllow: []types.AssetRef{baseUSDC}},
			ref:  baseUSDT,
			want: false,
		},
		{
			name: "allow list is chain-qualified",
			list: List{AssetAllow: []types.AssetRef{ethUSDC}},
			ref:  baseUSDC, // same symbol, different chain instance
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(map[types.ActionKind]List{types.ActionLend: tt.list})
			if got := f.IsAssetAllowed(types.ActionLend, tt.ref); got != tt.want {
				t.Errorf("IsAssetAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsMarketAllowed(t *testing.T) {
	tests := []struct {
		name   string
		list   List
		market types.MarketID
		want   bool
	}{
		{
			name:   "open policy allows",
			list:   List{},
			market: vaultA,
			want:   true,
		},
		{
			name:   "block wins over allow",
			list:   List{MarketAllow: []types.MarketID{vaultA}, MarketBlock: []types.MarketID{vaultA}},
			market: vaultA,
			want:   false,
		},
		{
			name:   "closed policy rejects non-member",
			list:   List{MarketAllow: []types.MarketID{vaultA}},
			market: vaultB,
			want:   false,
		},
		{
			name:   "closed policy allows member",
			list:   List{MarketAllow: []types.MarketID{vaultA}},
			market: vaultA,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(map[types.ActionKind]List{types.ActionLend: tt.list})
			if got := f.IsMarketAllowed(types.ActionLend, tt.market); got != tt.want {
				t.Errorf("IsMarketAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActionsAreIndependent(t *testing.T) {
	f := NewFilter(map[types.ActionKind]List{
		types.ActionLend: {AssetBlock: []types.AssetRef{baseUSDT}},
	})

	if f.IsAssetAllowed(types.ActionLend, baseUSDT) {
		t.Error("blocked asset allowed for lend")
	}
	// No swap policy configured at all: swap falls back to open.
	if !f.IsAssetAllowed(types.ActionSwap, baseUSDT) {
		t.Error("asset rejected for swap, which has no policy")
	}
}

func TestCheckAction(t *testing.T) {
	f := NewFilter(map[types.ActionKind]List{
		types.ActionLend: {
			AssetBlock:  []types.AssetRef{baseUSDT},
			MarketBlock: []types.MarketID{vaultB},
		},
	})

	if err := f.CheckAction(types.ActionLend, baseUSDC, vaultA); err != nil {
		t.Fatalf("CheckAction() unexpected error: %v", err)
	}

	err := f.CheckAction(types.ActionLend, baseUSDT, vaultA)
	var pv *types.PolicyViolationError
	if !errors.As(err, &pv) {
		t.Fatalf("CheckAction() error = %v, want PolicyViolationError", err)
	}
	if pv.Reason != "blocked" {
		t.Errorf("Reason = %q, want %q", pv.Reason, "blocked")
	}

	err = f.CheckAction(types.ActionLend, baseUSDC, vaultB)
	if !errors.As(err, &pv) {
		t.Fatalf("CheckAction() market error = %v, want PolicyViolationError", err)
	}
	if pv.Entity != vaultB.String() {
		t.Errorf("Entity = %q, want %q", pv.Entity, vaultB.String())
	}
}
