// Package evm holds the thin read-call plumbing shared by EVM protocol
// providers.
package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// Caller is the read-only contract call capability providers need.
// *ethclient.Client satisfies it; tests substitute a fake.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Callers maps chains to their RPC clients.
type Callers map[types.ChainID]Caller

// DialCallers connects an ethclient per chain from the given RPC endpoints.
func DialCallers(endpoints map[types.ChainID]string) (Callers, error) {
	callers := make(Callers, len(endpoints))
	for chain, endpoint := range endpoints {
		client, err := ethclient.Dial(endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to chain %d RPC: %w", chain, err)
		}
		callers[chain] = client
	}
	return callers, nil
}

// For returns the caller for a chain.
func (c Callers) For(chain types.ChainID) (Caller, error) {
	caller, ok := c[chain]
	if !ok {
		return nil, fmt.Errorf("no RPC client configured for chain %d", chain)
	}
	return caller, nil
}

// Call packs a view-method call, executes it, and returns the raw result.
func Call(ctx context.Context, caller Caller, contract common.Address, contractABI *abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	result, err := caller.CallContract(ctx, ethereum.CallMsg{
		To:   &contract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	return result, nil
}

// CallBigInt executes a view method returning a single uint256.
func CallBigInt(ctx context.Context, caller Caller, contract common.Address, contractABI *abi.ABI, method string, args ...interface{}) (*big.Int, error) {
	result, err := Call(ctx, caller, contract, contractABI, method, args...)
	if err != nil {
		return nil, err
	}

	var out *big.Int
	if err := contractABI.UnpackIntoInterface(&out, method, result); err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// ERC20ABI covers the allowance/approve surface used for approval steps.
const ERC20ABI = `[
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`
