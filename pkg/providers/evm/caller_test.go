package evm

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type staticCaller struct {
	result []byte
	err    error
	lastTo common.Address
}

func (s *staticCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	s.lastTo = *msg.To
	return s.result, s.err
}

func TestCallBigInt(t *testing.T) {
	erc20, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		t.Fatal(err)
	}
	token := common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	owner := common.HexToAddress("0x01")
	spender := common.HexToAddress("0x02")

	caller := &staticCaller{result: common.LeftPadBytes(big.NewInt(125_500_000).Bytes(), 32)}
	got, err := CallBigInt(context.Background(), caller, token, &erc20, "allowance", owner, spender)
	if err != nil {
		t.Fatalf("CallBigInt() error = %v", err)
	}
	if got.Int64() != 125_500_000 {
		t.Errorf("CallBigInt() = %s, want 125500000", got)
	}
	if caller.lastTo != token {
		t.Errorf("call targeted %s, want the token", caller.lastTo.Hex())
	}
}

func TestCallErrors(t *testing.T) {
	erc20, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		t.Fatal(err)
	}
	token := common.HexToAddress("0x01")

	t.Run("rpc failure surfaces", func(t *testing.T) {
		caller := &staticCaller{err: errors.New("connection refused")}
		if _, err := CallBigInt(context.Background(), caller, token, &erc20, "allowance", common.Address{}, common.Address{}); err == nil {
			t.Error("CallBigInt() succeeded on rpc failure")
		}
	})

	t.Run("bad arguments rejected at pack time", func(t *testing.T) {
		caller := &staticCaller{}
		if _, err := Call(context.Background(), caller, token, &erc20, "allowance", "not-an-address"); err == nil {
			t.Error("Call() packed mistyped arguments")
		}
	})
}

func TestCallersFor(t *testing.T) {
	caller := &staticCaller{}
	callers := Callers{8453: caller}

	got, err := callers.For(8453)
	if err != nil {
		t.Fatalf("For() error = %v", err)
	}
	if got != caller {
		t.Error("For() returned a different caller")
	}

	if _, err := callers.For(1); err == nil {
		t.Error("For() on an unconfigured chain succeeded")
	}
}
