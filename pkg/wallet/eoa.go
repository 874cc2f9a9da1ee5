package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// EOATransport signs and sends plain transactions from an externally-owned
// account on a single chain. It has no batch capability, so every plan it
// receives is dispatched sequentially.
type EOATransport struct {
	client     *ethclient.Client
	chainID    types.ChainID
	privateKey *ecdsa.PrivateKey
	address    common.Address
	log        zerolog.Logger
}

// NewEOATransport connects to the RPC endpoint and derives the sending address
// from the private key.
func NewEOATransport(rpcEndpoint string, chainID types.ChainID, privateKeyHex string) (*EOATransport, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}
	address := crypto.PubkeyToAddress(*publicKey)

	client, err := ethclient.Dial(rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	return &EOATransport{
		client:     client,
		chainID:    chainID,
		privateKey: privateKey,
		address:    address,
		log:        logging.Component("wallet.eoa"),
	}, nil
}

// Close closes the underlying RPC connection.
func (t *EOATransport) Close() {
	if t.client != nil {
		t.client.Close()
	}
}

// Address returns the sending address.
func (t *EOATransport) Address() common.Address {
	return t.address
}

// Send signs the step as a single transaction, submits it, and waits for the
// receipt. A reverted transaction is an error even though a hash exists: the
// step did not take effect.
func (t *EOATransport) Send(ctx context.Context, step types.TransactionStep, chainID types.ChainID) (common.Hash, error) {
	if chainID != t.chainID {
		return common.Hash{}, fmt.Errorf("transport is bound to chain %d, step targets chain %d", t.chainID, chainID)
	}

	nonce, err := t.client.PendingNonceAt(ctx, t.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	value := step.Value
	if value == nil {
		value = big.NewInt(0)
	}

	// Estimate gas (also validates the call won't revert)
	estimatedGas, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  t.address,
		To:    &step.To,
		Value: value,
		Data:  step.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s step would revert: %w", step.Kind, err)
	}
	gasLimit := estimatedGas * 120 / 100 // 20% safety margin

	tx := ethtypes.NewTransaction(nonce, step.To, value, gasLimit, gasPrice, step.Data)

	signer := ethtypes.NewEIP155Signer(new(big.Int).SetUint64(uint64(t.chainID)))
	signedTx, err := ethtypes.SignTx(tx, signer, t.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := t.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	txHash := signedTx.Hash()
	t.log.Debug().Str("tx", txHash.Hex()).Str("kind", string(step.Kind)).Msg("transaction submitted")

	receiptCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	receipt, err := t.waitForReceipt(receiptCtx, txHash)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get transaction receipt: %w", err)
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return common.Hash{}, fmt.Errorf("transaction %s reverted", txHash.Hex())
	}

	return txHash, nil
}

// waitForReceipt polls for the transaction receipt.
func (t *EOATransport) waitForReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := t.client.TransactionReceipt(ctx, txHash)
			if err == nil {
				return receipt, nil
			}
			// Continue polling if receipt not found yet
		}
	}
}
