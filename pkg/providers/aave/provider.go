// Package aave implements the lending provider for Aave V3 pools. Markets are
// identified by their aToken address; supply and withdraw go through the pool
// contract, positions are read from the rebasing aToken balance, and the
// supply APY comes from the pool's reserve data (RAY-scaled liquidity rate).
package aave

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

// Aave scales rates in RAY units (1e27).
const rayDecimals = 27

const poolABI = `[
	{"name":"supply","type":"function","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"onBehalfOf","type":"address"},{"name":"referralCode","type":"uint16"}],"outputs":[]},
	{"name":"withdraw","type":"function","stateMutability":"nonpayable","inputs":[{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"to","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getReserveData","type":"function","stateMutability":"view","inputs":[{"name":"asset","type":"address"}],"outputs":[{"name":"","type":"tuple","components":[{"name":"configuration","type":"tuple","components":[{"name":"data","type":"uint256"}]},{"name":"liquidityIndex","type":"uint128"},{"name":"currentLiquidityRate","type":"uint128"},{"name":"variableBorrowIndex","type":"uint128"},{"name":"currentVariableBorrowRate","type":"uint128"},{"name":"currentStableBorrowRate","type":"uint128"},{"name":"lastUpdateTimestamp","type":"uint40"},{"name":"id","type":"uint16"},{"name":"aTokenAddress","type":"address"},{"name":"stableDebtTokenAddress","type":"address"},{"name":"variableDebtTokenAddress","type":"address"},{"name":"interestRateStrategyAddress","type":"address"},{"name":"accruedToTreasury","type":"uint128"},{"name":"unbacked","type":"uint128"},{"name":"isolationModeTotalDebt","type":"uint128"}]}]}
]`

const aTokenABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"totalSupply","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// reserveData mirrors the Aave V3 DataTypes.ReserveData tuple.
type reserveData struct {
	Configuration               struct{ Data *big.Int }
	LiquidityIndex              *big.Int
	CurrentLiquidityRate        *big.Int
	VariableBorrowIndex         *big.Int
	CurrentVariableBorrowRate   *big.Int
	CurrentStableBorrowRate     *big.Int
	LastUpdateTimestamp         *big.Int
	Id                          uint16
	ATokenAddress               common.Address
	StableDebtTokenAddress      common.Address
	VariableDebtTokenAddress    common.Address
	InterestRateStrategyAddress common.Address
	AccruedToTreasury           *big.Int
	Unbacked                    *big.Int
	IsolationModeTotalDebt      *big.Int
}

// ReserveConfig describes one pool reserve from the static catalog. The market
// address is the reserve's aToken.
type ReserveConfig struct {
	Market types.MarketID
	Pool   common.Address
	Name   string
	Asset  types.Asset
}

// Provider services Aave V3 reserve markets.
type Provider struct {
	callers   evm.Callers
	reserves  map[types.MarketID]ReserveConfig
	poolABI   abi.ABI
	aTokenABI abi.ABI
	erc20ABI  abi.ABI
	log       zerolog.Logger
}

var _ registry.Provider = (*Provider)(nil)

// NewProvider builds a provider for the given reserve catalog.
func NewProvider(callers evm.Callers, reserves []ReserveConfig) (*Provider, error) {
	pABI, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool ABI: %w", err)
	}
	aABI, err := abi.JSON(strings.NewReader(aTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aToken ABI: %w", err)
	}
	eABI, err := abi.JSON(strings.NewReader(evm.ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC-20 ABI: %w", err)
	}

	byID := make(map[types.MarketID]ReserveConfig, len(reserves))
	for _, r := range reserves {
		byID[r.Market] = r
	}

	return &Provider{
		callers:   callers,
		reserves:  byID,
		poolABI:   pABI,
		aTokenABI: aABI,
		erc20ABI:  eABI,
		log:       logging.Component("provider.aave"),
	}, nil
}

func (p *Provider) Kind() types.ProviderKind { return types.ProviderAave }

func (p *Provider) Supports(market types.MarketID) bool {
	_, ok := p.reserves[market]
	return ok
}

// OpenPosition composes allowance-then-supply against the pool contract.
func (p *Provider) OpenPosition(ctx context.Context, params registry.ActionParams) ([]types.TransactionStep, error) {
	reserve, caller, err := p.lookup(params.Market)
	if err != nil {
		return nil, err
	}
	tokenAddr, ok := params.Asset.AddressOn(params.Market.ChainID)
	if !ok {
		return nil, fmt.Errorf("asset %s has no address on chain %d", params.Asset.Metadata.Symbol, params.Market.ChainID)
	}

	var steps []types.TransactionStep

	allowance, err := evm.CallBigInt(ctx, caller, tokenAddr, &p.erc20ABI, "allowance", params.Owner, reserve.Pool)
	if err != nil {
		return nil, fmt.Errorf("allowance check failed: %w", err)
	}
	if allowance.Cmp(params.Amount) < 0 {
		approveData, err := p.erc20ABI.Pack("approve", reserve.Pool, params.Amount)
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

	supplyData, err := p.poolABI.Pack("supply", tokenAddr, params.Amount, params.Owner, uint16(0))
	if err != nil {
		return nil, fmt.Errorf("failed to pack supply call: %w", err)
	}
	steps = append(steps, types.TransactionStep{
		Kind:    types.StepAction,
		To:      reserve.Pool,
		Data:    supplyData,
		Value:   big.NewInt(0),
		ChainID: params.Market.ChainID,
	})

	return steps, nil
}

// ClosePosition composes a single withdraw; burning aTokens needs no
// allowance.
func (p *Provider) ClosePosition(_ context.Context, params registry.ActionParams) ([]types.TransactionStep, error) {
	reserve, _, err := p.lookup(params.Market)
	if err != nil {
		return nil, err
	}
	tokenAddr, ok := params.Asset.AddressOn(params.Market.ChainID)
	if !ok {
		return nil, fmt.Errorf("asset %s has no address on chain %d", params.Asset.Metadata.Symbol, params.Market.ChainID)
	}

	withdrawData, err := p.poolABI.Pack("withdraw", tokenAddr, params.Amount, params.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to pack withdraw call: %w", err)
	}

	return []types.TransactionStep{{
		Kind:    types.StepAction,
		To:      reserve.Pool,
		Data:    withdrawData,
		Value:   big.NewInt(0),
		ChainID: params.Market.ChainID,
	}}, nil
}

// GetPosition reads the owner's aToken balance. aTokens rebase 1:1 against the
// underlying, so balance and shares coincide.
func (p *Provider) GetPosition(ctx context.Context, owner common.Address, market types.MarketID) (*types.RawPosition, error) {
	_, caller, err := p.lookup(market)
	if err != nil {
		return nil, err
	}

	balance, err := evm.CallBigInt(ctx, caller, market.Address, &p.aTokenABI, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("aToken balance read failed: %w", err)
	}

	return &types.RawPosition{
		Market:  market,
		Owner:   owner,
		Balance: balance,
		Shares:  new(big.Int).Set(balance),
	}, nil
}

// ListMarkets returns the catalog reserves with live supply APY and totals.
func (p *Provider) ListMarkets(ctx context.Context) ([]types.Market, error) {
	markets := make([]types.Market, 0, len(p.reserves))
	for id, reserve := range p.reserves {
		caller, err := p.callers.For(id.ChainID)
		if err != nil {
			return nil, err
		}
		tokenAddr, ok := reserve.Asset.AddressOn(id.ChainID)
		if !ok {
			return nil, fmt.Errorf("asset %s has no address on chain %d", reserve.Asset.Metadata.Symbol, id.ChainID)
		}

		data, err := p.readReserveData(ctx, caller, reserve.Pool, tokenAddr)
		if err != nil {
			return nil, fmt.Errorf("reserve data read failed for %s: %w", id, err)
		}

		totalSupply, err := evm.CallBigInt(ctx, caller, id.Address, &p.aTokenABI, "totalSupply")
		if err != nil {
			return nil, fmt.Errorf("aToken totalSupply read failed for %s: %w", id, err)
		}

		supplyRate := rayToFraction(data.CurrentLiquidityRate)
		markets = append(markets, types.Market{
			ID:           id,
			ProviderKind: types.ProviderAave,
			Name:         reserve.Name,
			Asset:        reserve.Asset,
			APY:          types.APY{Base: supplyRate, Total: supplyRate},
			TotalAssets:  totalSupply,
			TotalShares:  totalSupply,
			LastUpdate:   time.Now().UTC(),
		})
	}
	return markets, nil
}

func (p *Provider) readReserveData(ctx context.Context, caller evm.Caller, pool, asset common.Address) (*reserveData, error) {
	result, err := evm.Call(ctx, caller, pool, &p.poolABI, "getReserveData", asset)
	if err != nil {
		return nil, err
	}

	// UnpackIntoInterface assigns a single tuple output into the destination
	// struct's first field, so the tuple must be wrapped one level deep.
	var data struct{ Reserve reserveData }
	if err := p.poolABI.UnpackIntoInterface(&data, "getReserveData", result); err != nil {
		return nil, fmt.Errorf("failed to unpack getReserveData result: %w", err)
	}
	return &data.Reserve, nil
}

// rayToFraction converts a RAY-scaled rate into a decimal fraction
// (0.0525 = 5.25%). Display-only precision; on-chain amounts stay integral.
func rayToFraction(ray *big.Int) float64 {
	if ray == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(ray),
		new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(rayDecimals), nil)),
	).Float64()
	return f
}

func (p *Provider) lookup(market types.MarketID) (ReserveConfig, evm.Caller, error) {
	reserve, ok := p.reserves[market]
	if !ok {
		return ReserveConfig{}, nil, fmt.Errorf("unknown reserve market %s", market)
	}
	caller, err := p.callers.For(market.ChainID)
	if err != nil {
		return ReserveConfig{}, nil, err
	}
	return reserve, caller, nil
}
