package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

const validConfig = `
log_level = "debug"

[chains.8453]
name = "Base"
rpc_url = "https://mainnet.base.org"
explorer_url = "https://basescan.org"
account_abstraction = true

[chains.1]
name = "Ethereum"
rpc_url = "https://eth.llamarpc.com"

[assets.usdc]
name = "USD Coin"
decimals = 6
kind = "erc20"

[assets.usdc.addresses]
8453 = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
1 = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"

[[markets]]
chain_id = 8453
address = "0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca"
provider = "morpho"
name = "Moonwell Flagship USDC"
asset = "usdc"
supply_apy = 0.0525
rewards_apy = 0.0075

[[markets]]
chain_id = 8453
address = "0x4e65fE4DbA92790696d040ac24Aa414708F5c0AB"
provider = "aave"
name = "Aave v3 USDC"
asset = "usdc"
pool = "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"

[policy.lend]
asset_block = ["8453:0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2"]
market_allow = ["8453:0xc1256Ae5FF1cf2719D4937adb3bbCCab2E00A2Ca"]

[wallet]
provider = "eoa"
chain_id = 8453
private_key_env = "STRATA_PRIVATE_KEY"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strata.toml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if len(cfg.Chains) != 2 {
		t.Fatalf("Chains = %d, want 2", len(cfg.Chains))
	}
	base := cfg.Chains[8453]
	if base.Name != "Base" || !base.AccountAbstraction {
		t.Errorf("base chain = %+v", base)
	}

	if len(cfg.Assets) != 1 {
		t.Fatalf("Assets = %d, want 1", len(cfg.Assets))
	}
	usdc := cfg.Assets[0]
	if usdc.Metadata.Symbol != "USDC" || usdc.Metadata.Decimals != 6 {
		t.Errorf("usdc = %+v", usdc.Metadata)
	}
	if len(usdc.AddressByChain) != 2 {
		t.Errorf("usdc addresses = %d, want 2", len(usdc.AddressByChain))
	}

	if len(cfg.Markets) != 2 {
		t.Fatalf("Markets = %d, want 2", len(cfg.Markets))
	}
	morpho := cfg.Markets[0]
	if morpho.Provider != types.ProviderMorpho {
		t.Errorf("markets[0].Provider = %s, want morpho", morpho.Provider)
	}
	if morpho.APY.Total != 0.06 {
		t.Errorf("markets[0].APY.Total = %v, want 0.06", morpho.APY.Total)
	}
	aave := cfg.Markets[1]
	if aave.Pool.Hex() != "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5" {
		t.Errorf("aave pool = %s", aave.Pool.Hex())
	}

	lend, ok := cfg.Policy[types.ActionLend]
	if !ok {
		t.Fatal("no lend policy loaded")
	}
	if len(lend.AssetBlock) != 1 || len(lend.MarketAllow) != 1 {
		t.Errorf("lend policy = %+v", lend)
	}
	if lend.AssetBlock[0].ChainID != 8453 {
		t.Errorf("asset_block chain = %d, want 8453", lend.AssetBlock[0].ChainID)
	}

	if cfg.Wallet.Provider != "eoa" || cfg.Wallet.PrivateKeyEnv != "STRATA_PRIVATE_KEY" {
		t.Errorf("wallet = %+v", cfg.Wallet)
	}

	if got := cfg.Explorers()[8453]; got != "https://basescan.org" {
		t.Errorf("Explorers()[8453] = %q", got)
	}
	if aa := cfg.AAChains(); len(aa) != 1 || aa[0] != 8453 {
		t.Errorf("AAChains() = %v, want [8453]", aa)
	}
	if markets := cfg.MarketsFor(types.ProviderAave); len(markets) != 1 {
		t.Errorf("MarketsFor(aave) = %d, want 1", len(markets))
	}
	if assets := cfg.MarketAssets(); len(assets) != 2 {
		t.Errorf("MarketAssets() = %d, want 2", len(assets))
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(string) string
		wantErr string
	}{
		{
			name:    "unknown key",
			mutate:  func(c string) string { return c + "\nunknown_knob = true\n" },
			wantErr: "unrecognized keys",
		},
		{
			name:    "missing rpc url",
			mutate:  func(c string) string { return strings.Replace(c, `rpc_url = "https://mainnet.base.org"`, "", 1) },
			wantErr: "rpc_url is required",
		},
		{
			name:    "market on unconfigured chain",
			mutate:  func(c string) string { return strings.Replace(c, "chain_id = 8453\naddress", "chain_id = 42161\naddress", 1) },
			wantErr: "not configured",
		},
		{
			name:    "unknown provider",
			mutate:  func(c string) string { return strings.Replace(c, `provider = "morpho"`, `provider = "compound"`, 1) },
			wantErr: "unknown provider",
		},
		{
			name:    "aave without pool",
			mutate:  func(c string) string { return strings.Replace(c, `pool = "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5"`, "", 1) },
			wantErr: "pool address",
		},
		{
			name:    "malformed policy ref",
			mutate:  func(c string) string { return strings.Replace(c, "8453:0xfde4C96c8593536E31F229EA8f37b2ADa2699bb2", "not-a-ref", 1) },
			wantErr: "chainID:address",
		},
		{
			name:    "unknown policy action",
			mutate:  func(c string) string { return strings.Replace(c, "[policy.lend]", "[policy.stake]", 1) },
			wantErr: "unknown action",
		},
		{
			name:    "eoa wallet without key env",
			mutate:  func(c string) string { return strings.Replace(c, `private_key_env = "STRATA_PRIVATE_KEY"`, "", 1) },
			wantErr: "private_key_env",
		},
		{
			name:    "missing wallet provider",
			mutate:  func(c string) string { return strings.Replace(c, `provider = "eoa"`, "", 1) },
			wantErr: "provider is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.mutate(validConfig)))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadHostedWallet(t *testing.T) {
	hosted := strings.Replace(validConfig, `provider = "eoa"
chain_id = 8453
private_key_env = "STRATA_PRIVATE_KEY"`, `provider = "hosted"
hosted_url = "https://wallets.strata.fi"
signer_key_env = "STRATA_SIGNER_KEY"
address = "0x2222222222222222222222222222222222222222"`, 1)

	cfg, err := Load(writeConfig(t, hosted))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Wallet.Provider != "hosted" {
		t.Errorf("Provider = %q, want hosted", cfg.Wallet.Provider)
	}
	if cfg.Wallet.Address.Hex() != "0x2222222222222222222222222222222222222222" {
		t.Errorf("Address = %s", cfg.Wallet.Address.Hex())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() on a missing file succeeded")
	}
}
