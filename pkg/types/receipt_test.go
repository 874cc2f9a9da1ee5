package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestReceiptHash(t *testing.T) {
	txA := common.HexToHash("0x01")
	txB := common.HexToHash("0x02")
	op := common.HexToHash("0xaa")

	tests := []struct {
		name    string
		receipt TransactionReceipt
		want    common.Hash
		wantOK  bool
	}{
		{
			name:    "sequential hashes take precedence",
			receipt: TransactionReceipt{TransactionHashes: []common.Hash{txA, txB}, UserOpHash: &op},
			want:    txA,
			wantOK:  true,
		},
		{
			name:    "userop hash when no tx hashes",
			receipt: TransactionReceipt{UserOpHash: &op},
			want:    op,
			wantOK:  true,
		},
		{
			name:    "empty receipt",
			receipt: TransactionReceipt{},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.receipt.Hash()
			if ok != tt.wantOK {
				t.Fatalf("Hash() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Hash() = %s, want %s", got.Hex(), tt.want.Hex())
			}
		})
	}
}

func TestIdentifierCasingNormalized(t *testing.T) {
	lower := NewMarketID(8453, "0xc1256ae5ff1cf2719d4937adb3bbccab2e00a2ca")
	mixed := NewMarketID(8453, "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca")
	if lower != mixed {
		t.Errorf("market IDs differ by input casing: %s vs %s", lower, mixed)
	}

	refLower := NewAssetRef(8453, "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")
	refMixed := NewAssetRef(8453, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	if refLower != refMixed {
		t.Errorf("asset refs differ by input casing: %s vs %s", refLower, refMixed)
	}
}
