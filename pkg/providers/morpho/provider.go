// Package morpho implements the lending provider for Morpho-style ERC-4626
// vaults (MetaMorpho). A deposit needs an ERC-20 approval on the vault when
// the current allowance falls short; a withdrawal never does.
package morpho

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/providers/evm"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/registry"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// vaultABI covers the ERC-4626 surface the provider uses.
const vaultABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"convertToAssets","type":"function","stateMutability":"view","inputs":[{"name":"shares","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"totalAssets","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"deposit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"},{"name":"receiver","type":"address"}],"outputs":[{"name":"shares","type":"uint256"}]},
	{"name":"withdraw","type":"function","stateMutability":"nonpayable","inputs":[{"name":"assets","type":"uint256"},{"name":"receiver","type":"address"},{"name":"owner","type":"address"}],"outputs":[{"name":"shares","type":"uint256"}]}
]`

// VaultConfig describes one vault market from the static catalog.
type VaultConfig struct {
	Market  types.MarketID
	Name    string
	Asset   types.Asset
	Owner   common.Address
	Curator common.Address
	// SupplyAPY comes from the catalog; vaults do not expose their rate
	// on-chain in a single call.
	SupplyAPY types.APY
}

// Provider services Morpho vault markets.
type Provider struct {
	callers  evm.Callers
	vaults   map[types.MarketID]VaultConfig
	vaultABI abi.ABI
	erc20ABI abi.ABI
	log      zerolog.Logger
}

var _ registry.Provider = (*Provider)(nil)

// NewProvider builds a provider for the given vault catalog.
func NewProvider(callers evm.Callers, vaults []VaultConfig) (*Provider, error) {
	vABI, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vault ABI: %w", err)
	}
	eABI, err := abi.JSON(strings.NewReader(evm.ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	byID := make(map[types.MarketID]VaultConfig, len(vaults))
	for _, v := range vaults {
		byID[v.Market] = v
	}

	return &Provider{
		callers:  callers,
		vaults:   byID,
		vaultABI: vABI,
		erc20ABI: eABI,
		log:      logging.Component("provider.morpho"),
	}, nil
}

func (p *Provider) Kind() types.ProviderKind { return types.ProviderMorpho }

func (p *Provider) Supports(market types.MarketID) bool {
	_, ok := p.vaults[market]
	return ok
}

// OpenPosition composes allowance-then-deposit. The approval step is emitted
// only when the vault's current allowance cannot cover the amount.
func (p *Provider) OpenPosition(ctx context.Context, params registry.ActionParams) ([]types.TransactionStep, error) {
	vault, caller, err := p.lookup(params.Market)
	if err != nil {
		return nil, err
	}
	if params.Asset.Kind != types.AssetKindERC20 {
		return nil, fmt.Errorf("vault %s only accepts ERC-20 deposits", params.Market)
	}
	tokenAddr, ok := params.Asset.AddressOn(params.Market.ChainID)
	if !ok {
		return nil, fmt.Errorf("asset %s has no address on chain %d", params.Asset.Metadata.Symbol, params.Market.ChainID)
	}

	var steps []types.TransactionStep

	allowance, err := evm.CallBigInt(ctx, caller, tokenAddr, &p.erc20ABI, "allowance", params.Owner, vault.Market.Address)
	if err != nil {
		return nil, fmt.Errorf("allowance check failed: %w", err)
	}
	if allowance.Cmp(params.Amount) < 0 {
		approveData, err := p.erc20ABI.Pack("approve", vault.Market.Address, params.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to pack approve call: %w", err)
		}
		steps = append(steps, types.TransactionStep{
			Kind:    types.StepApproval,
			To:      tokenAddr,
			Data:    approveData,
			Value:   big.NewInt(0),
			ChainID: params.Market.ChainID,
		})
	}

	depositData, err := p.vaultABI.Pack("deposit", params.Amount, params.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack deposit call: %w", err)
	}
	steps = append(steps, types.TransactionStep{
		Kind:    types.StepAction,
		To:      vault.Market.Address,
		Data:    depositData,
		Value:   big.NewInt(0),
		ChainID: params.Market.ChainID,
	})

	return steps, nil
}

// ClosePosition composes a single withdraw; ERC-4626 withdrawals burn the
// owner's own shares and need no allowance.
func (p *Provider) ClosePosition(_ context.Context, params registry.ActionParams) ([]types.TransactionStep, error) {
	vault, _, err := p.lookup(params.Market)
	if err != nil {
		return nil, err
	}

	withdrawData, err := p.vaultABI.Pack("withdraw", params.Amount, params.Owner, params.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw call: %w", err)
	}

	return []types.TransactionStep{{
		Kind:    types.StepAction,
		To:      vault.Market.Address,
		Data:    withdrawData,
		Value:   big.NewInt(0),
		ChainID: params.Market.ChainID,
	}}, nil
}

// GetPosition reads the owner's share balance and converts it to assets at the
// vault's current exchange rate.
func (p *Provider) GetPosition(ctx context.Context, owner common.Address, market types.MarketID) (*types.RawPosition, error) {
	vault, caller, err := p.lookup(market)
	if err != nil {
		return nil, err
	}

	shares, err := evm.CallBigInt(ctx, caller, vault.Market.Address, &p.vaultABI, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("share balance read failed: %w", err)
	}

	balance := new(big.Int)
	if shares.Sign() > 0 {
		balance, err = evm.CallBigInt(ctx, caller, vault.Market.Address, &p.vaultABI, "convertToAssets", shares)
		if err != nil {
			return nil, fmt.Errorf("share conversion failed: %w", err)
		}
	}

	return &types.RawPosition{
		Market:  market,
		Owner:   owner,
		Balance: balance,
		Shares:  shares,
	}, nil
}

// ListMarkets returns the catalog vaults enriched with live totals.
func (p *Provider) ListMarkets(ctx context.Context) ([]types.Market, error) {
	markets := make([]types.Market, 0, len(p.vaults))
	for id, vault := range p.vaults {
		caller, err := p.callers.For(id.ChainID)
		if err != nil {
			return nil, err
		}

		totalAssets, err := evm.CallBigInt(ctx, caller, id.Address, &p.vaultABI, "totalAssets")
		if err != nil {
			return nil, fmt.Errorf("totalAssets read failed for %s: %w", id, err)
		}
		totalShares, err := evm.CallBigInt(ctx, caller, id.Address, &p.vaultABI, "totalSupply")
		if err != nil {
			return nil, fmt.Errorf("totalSupply read failed for %s: %w", id, err)
		}

		markets = append(markets, types.Market{
			ID:           id,
			ProviderKind: types.ProviderMorpho,
			Name:         vault.Name,
			Asset:        vault.Asset,
			APY:          vault.SupplyAPY,
			TotalAssets:  totalAssets,
			TotalShares:  totalShares,
			Owner:        vault.Owner,
			Curator:      vault.Curator,
			LastUpdate:   time.Now().UTC(),
		})
	}
	return markets, nil
}

func (p *Provider) lookup(market types.MarketID) (VaultConfig, evm.Caller, error) {
	vault, ok := p.vaults[market]
	if !ok {
		return VaultConfig{}, nil, fmt.Errorf("unknown vault market %s", market)
	}
	caller, err := p.callers.For(market.ChainID)
	if err != nil {
		return VaultConfig{}, nil, err
	}
	return vault, caller, nil
}
