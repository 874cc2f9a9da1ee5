// Package config loads and validates the SDK's static configuration: the
// chain set, the asset and market catalogs, the per-action policy lists, and
// the wallet selection. Everything is parsed and validated once at startup so
// malformed configuration fails the process before any transaction can be
// composed. The loaded Config is read-only afterwards.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/policy"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// fileConfig mirrors the TOML document. Every recognized knob is enumerated
// and typed; unknown keys are rejected.
type fileConfig struct {
	LogLevel string                  `toml:"log_level"`
	Chains   map[string]chainConfig  `toml:"chains"`
	Assets   map[string]assetConfig  `toml:"assets"`
	Markets  []marketConfig          `toml:"markets"`
	Policy   map[string]policyConfig `toml:"policy"`
	Wallet   walletConfig            `toml:"wallet"`
}

type chainConfig struct {
	Name               string `toml:"name"`
	RPCURL             string `toml:"rpc_url"`
	ExplorerURL        string `toml:"explorer_url"`
	AccountAbstraction bool   `toml:"account_abstraction"`
}

type assetConfig struct {
	Name      string            `toml:"name"`
	Decimals  uint8             `toml:"decimals"`
	Kind      string            `toml:"kind"`
	Addresses map[string]string `toml:"addresses"`
}

type marketConfig struct {
	ChainID    uint64  `toml:"chain_id"`
	Address    string  `toml:"address"`
	Provider   string  `toml:"provider"`
	Name       string  `toml:"name"`
	Asset      string  `toml:"asset"`
	Owner      string  `toml:"owner"`
	Curator    string  `toml:"curator"`
	Pool       string  `toml:"pool"` // aave only: the pool contract
	SupplyAPY  float64 `toml:"supply_apy"`
	RewardsAPY float64 `toml:"rewards_apy"`
}

type policyConfig struct {
	AssetAllow  []string `toml:"asset_allow"`
	AssetBlock  []string `toml:"asset_block"`
	MarketAllow []string `toml:"market_allow"`
	MarketBlock []string `toml:"market_block"`
}

type walletConfig struct {
	Provider      string `toml:"provider"` // "eoa" or "hosted"
	ChainID       uint64 `toml:"chain_id"` // eoa: the chain the key sends on
	PrivateKeyEnv string `toml:"private_key_env"`
	HostedURL     string `toml:"hosted_url"`
	SignerKeyEnv  string `toml:"signer_key_env"`
	Address       string `toml:"address"` // hosted: the smart-wallet address
}

// Chain is a validated chain entry.
type Chain struct {
	ID                 types.ChainID
	Name               string
	RPCURL             string
	ExplorerURL        string
	AccountAbstraction bool
}

// Market is a validated catalog market.
type Market struct {
	ID       types.MarketID
	Provider types.ProviderKind
	Name     string
	Asset    types.Asset
	Owner    common.Address
	Curator  common.Address
	Pool     common.Address
	APY      types.APY
}

// Wallet is the validated wallet selection.
type Wallet struct {
	Provider      string
	ChainID       types.ChainID
	PrivateKeyEnv string
	HostedURL     string
	SignerKeyEnv  string
	Address       common.Address
}

// Config is the validated configuration.
type Config struct {
	LogLevel string
	Chains   map[types.ChainID]Chain
	Assets   []types.Asset
	Markets  []Market
	Policy   map[types.ActionKind]policy.List
	Wallet   Wallet
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s has unrecognized keys: %v", path, undecoded)
	}
	return build(&raw)
}

func build(raw *fileConfig) (*Config, error) {
	cfg := &Config{
		LogLevel: raw.LogLevel,
		Chains:   make(map[types.ChainID]Chain, len(raw.Chains)),
		Policy:   make(map[types.ActionKind]policy.List, len(raw.Policy)),
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	for key, c := range raw.Chains {
		id, err := parseChainID(key)
		if err != nil {
			return nil, fmt.Errorf("chains: %w", err)
		}
		if c.RPCURL == "" {
			return nil, fmt.Errorf("chain %d: rpc_url is required", id)
		}
		cfg.Chains[id] = Chain{
			ID:                 id,
			Name:               c.Name,
			RPCURL:             c.RPCURL,
			ExplorerURL:        c.ExplorerURL,
			AccountAbstraction: c.AccountAbstraction,
		}
	}

	assetsBySymbol := make(map[string]types.Asset, len(raw.Assets))
	for symbol, a := range raw.Assets {
		asset, err := buildAsset(symbol, a, cfg.Chains)
		if err != nil {
			return nil, err
		}
		assetsBySymbol[strings.ToUpper(symbol)] = asset
		cfg.Assets = append(cfg.Assets, asset)
	}

	for i, m := range raw.Markets {
		market, err := buildMarket(m, assetsBySymbol, cfg.Chains)
		if err != nil {
			return nil, fmt.Errorf("markets[%d]: %w", i, err)
		}
		cfg.Markets = append(cfg.Markets, market)
	}

	for action, p := range raw.Policy {
		kind, err := parseAction(action)
		if err != nil {
			return nil, fmt.Errorf("policy: %w", err)
		}
		list, err := buildPolicyList(p)
		if err != nil {
			return nil, fmt.Errorf("policy.%s: %w", action, err)
		}
		cfg.Policy[kind] = list
	}

	wallet, err := buildWallet(raw.Wallet, cfg.Chains)
	if err != nil {
		return nil, err
	}
	cfg.Wallet = wallet

	return cfg, nil
}

func buildAsset(symbol string, a assetConfig, chains map[types.ChainID]Chain) (types.Asset, error) {
	kind := types.AssetKind(a.Kind)
	switch kind {
	case types.AssetKindERC20, types.AssetKindNative:
	case "":
		kind = types.AssetKindERC20
	default:
		return types.Asset{}, fmt.Errorf("asset %s: unknown kind %q", symbol, a.Kind)
	}
	if a.Decimals == 0 && kind == types.AssetKindERC20 {
		return types.Asset{}, fmt.Errorf("asset %s: decimals is required", symbol)
	}

	addrs := make(map[types.ChainID]common.Address, len(a.Addresses))
	for chainKey, hexAddr := range a.Addresses {
		id, err := parseChainID(chainKey)
		if err != nil {
			return types.Asset{}, fmt.Errorf("asset %s: %w", symbol, err)
		}
		if _, ok := chains[id]; !ok {
			return types.Asset{}, fmt.Errorf("asset %s: chain %d is not configured", symbol, id)
		}
		if !common.IsHexAddress(hexAddr) {
			return types.Asset{}, fmt.Errorf("asset %s: invalid address %q on chain %d", symbol, hexAddr, id)
		}
		addrs[id] = common.HexToAddress(hexAddr)
	}

	return types.Asset{
		Metadata: types.AssetMetadata{
			Symbol:   strings.ToUpper(symbol),
			Decimals: a.Decimals,
			Name:     a.Name,
		},
		AddressByChain: addrs,
		Kind:           kind,
	}, nil
}

func buildMarket(m marketConfig, assets map[string]types.Asset, chains map[types.ChainID]Chain) (Market, error) {
	id := types.ChainID(m.ChainID)
	if _, ok := chains[id]; !ok {
		return Market{}, fmt.Errorf("chain %d is not configured", m.ChainID)
	}
	if !common.IsHexAddress(m.Address) {
		return Market{}, fmt.Errorf("invalid market address %q", m.Address)
	}

	provider := types.ProviderKind(m.Provider)
	switch provider {
	case types.ProviderMorpho, types.ProviderAave:
	default:
		return Market{}, fmt.Errorf("unknown provider %q", m.Provider)
	}

	asset, ok := assets[strings.ToUpper(m.Asset)]
	if !ok {
		return Market{}, fmt.Errorf("unknown asset %q", m.Asset)
	}
	// Every active market needs its asset deployed on the market's chain.
	if _, ok := asset.AddressOn(id); !ok {
		return Market{}, fmt.Errorf("asset %s has no address on chain %d", asset.Metadata.Symbol, id)
	}

	market := Market{
		ID:       types.NewMarketID(id, m.Address),
		Provider: provider,
		Name:     m.Name,
		Asset:    asset,
		APY: types.APY{
			Base:    m.SupplyAPY,
			Rewards: m.RewardsAPY,
			Total:   m.SupplyAPY + m.RewardsAPY,
		},
	}

	if m.Owner != "" {
		if !common.IsHexAddress(m.Owner) {
			return Market{}, fmt.Errorf("invalid owner address %q", m.Owner)
		}
		market.Owner = common.HexToAddress(m.Owner)
	}
	if m.Curator != "" {
		if !common.IsHexAddress(m.Curator) {
			return Market{}, fmt.Errorf("invalid curator address %q", m.Curator)
		}
		market.Curator = common.HexToAddress(m.Curator)
	}

	if provider == types.ProviderAave {
		if !common.IsHexAddress(m.Pool) {
			return Market{}, fmt.Errorf("aave market requires a valid pool address, got %q", m.Pool)
		}
		market.Pool = common.HexToAddress(m.Pool)
	}

	return market, nil
}

func buildPolicyList(p policyConfig) (policy.List, error) {
	var list policy.List
	var err error

	if list.AssetAllow, err = parseAssetRefs(p.AssetAllow); err != nil {
		return policy.List{}, fmt.Errorf("asset_allow: %w", err)
	}
	if list.AssetBlock, err = parseAssetRefs(p.AssetBlock); err != nil {
		return policy.List{}, fmt.Errorf("asset_block: %w", err)
	}
	if list.MarketAllow, err = parseMarketIDs(p.MarketAllow); err != nil {
		return policy.List{}, fmt.Errorf("market_allow: %w", err)
	}
	if list.MarketBlock, err = parseMarketIDs(p.MarketBlock); err != nil {
		return policy.List{}, fmt.Errorf("market_block: %w", err)
	}
	return list, nil
}

func buildWallet(w walletConfig, chains map[types.ChainID]Chain) (Wallet, error) {
	wallet := Wallet{
		Provider:      w.Provider,
		ChainID:       types.ChainID(w.ChainID),
		PrivateKeyEnv: w.PrivateKeyEnv,
		HostedURL:     w.HostedURL,
		SignerKeyEnv:  w.SignerKeyEnv,
	}

	switch w.Provider {
	case "eoa":
		if _, ok := chains[wallet.ChainID]; !ok {
			return Wallet{}, fmt.Errorf("wallet: chain %d is not configured", w.ChainID)
		}
		if w.PrivateKeyEnv == "" {
			return Wallet{}, fmt.Errorf("wallet: private_key_env is required for an eoa wallet")
		}
	case "hosted":
		if w.HostedURL == "" {
			return Wallet{}, fmt.Errorf("wallet: hosted_url is required for a hosted wallet")
		}
		if w.SignerKeyEnv == "" {
			return Wallet{}, fmt.Errorf("wallet: signer_key_env is required for a hosted wallet")
		}
		if !common.IsHexAddress(w.Address) {
			return Wallet{}, fmt.Errorf("wallet: invalid smart-wallet address %q", w.Address)
		}
		wallet.Address = common.HexToAddress(w.Address)
	case "":
		return Wallet{}, fmt.Errorf("wallet: provider is required (eoa or hosted)")
	default:
		return Wallet{}, fmt.Errorf("wallet: unknown provider %q", w.Provider)
	}

	return wallet, nil
}

// RPCEndpoints returns the per-chain RPC URLs.
func (c *Config) RPCEndpoints() map[types.ChainID]string {
	out := make(map[types.ChainID]string, len(c.Chains))
	for id, chain := range c.Chains {
		out[id] = chain.RPCURL
	}
	return out
}

// Explorers returns the per-chain explorer base URLs.
func (c *Config) Explorers() map[types.ChainID]string {
	out := make(map[types.ChainID]string, len(c.Chains))
	for id, chain := range c.Chains {
		if chain.ExplorerURL != "" {
			out[id] = chain.ExplorerURL
		}
	}
	return out
}

// AAChains returns the chains with account-abstraction batching enabled.
func (c *Config) AAChains() []types.ChainID {
	var out []types.ChainID
	for id, chain := range c.Chains {
		if chain.AccountAbstraction {
			out = append(out, id)
		}
	}
	return out
}

// MarketsFor returns the catalog markets serviced by one provider kind.
func (c *Config) MarketsFor(kind types.ProviderKind) []Market {
	var out []Market
	for _, m := range c.Markets {
		if m.Provider == kind {
			out = append(out, m)
		}
	}
	return out
}

// MarketAssets maps every catalog market to its underlying asset.
func (c *Config) MarketAssets() map[types.MarketID]types.Asset {
	out := make(map[types.MarketID]types.Asset, len(c.Markets))
	for _, m := range c.Markets {
		out[m.ID] = m.Asset
	}
	return out
}

func parseChainID(key string) (types.ChainID, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chain ID %q", key)
	}
	return types.ChainID(id), nil
}

func parseAction(name string) (types.ActionKind, error) {
	kind := types.ActionKind(name)
	switch kind {
	case types.ActionLend, types.ActionBorrow, types.ActionSwap, types.ActionSend:
		return kind, nil
	}
	return "", fmt.Errorf("unknown action %q", name)
}

// parseAssetRefs parses "chainID:0xaddress" entries.
func parseAssetRefs(entries []string) ([]types.AssetRef, error) {
	refs := make([]types.AssetRef, 0, len(entries))
	for _, entry := range entries {
		chain, addr, err := splitRef(entry)
		if err != nil {
			return nil, err
		}
		refs = append(refs, types.AssetRef{ChainID: chain, Address: addr})
	}
	return refs, nil
}

func parseMarketIDs(entries []string) ([]types.MarketID, error) {
	ids := make([]types.MarketID, 0, len(entries))
	for _, entry := range entries {
		chain, addr, err := splitRef(entry)
		if err != nil {
			return nil, err
		}
		ids = append(ids, types.MarketID{ChainID: chain, Address: addr})
	}
	return ids, nil
}

func splitRef(entry string) (types.ChainID, common.Address, error) {
	parts := strings.SplitN(entry, ":", 2)
	if len(parts) != 2 {
		return 0, common.Address{}, fmt.Errorf("entry %q is not chainID:address", entry)
	}
	chain, err := parseChainID(parts[0])
	if err != nil {
		return 0, common.Address{}, err
	}
	if !common.IsHexAddress(parts[1]) {
		return 0, common.Address{}, fmt.Errorf("entry %q has an invalid address", entry)
	}
	return chain, common.HexToAddress(parts[1]), nil
}
