package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/StrataProtocol/strata-actions-sdk/internal/logging"
	"github.com/StrataProtocol/strata-actions-sdk/pkg/types"
)

// HostedTransport talks to a hosted smart-wallet service. Single steps go out
// as plain sends; multi-step plans go out as atomic account-abstraction
// batches on the chains the service supports. Authentication is a
// challenge-response signature exchanged for a JWT session token.
type HostedTransport struct {
	baseURL    string
	httpClient *http.Client
	auth       *sessionAuth
	address    common.Address
	aaChains   map[types.ChainID]struct{}
	log        zerolog.Logger
}

// HostedConfig configures a HostedTransport.
type HostedConfig struct {
	BaseURL string
	// SignerKeyHex is the hex-encoded key used to answer auth challenges.
	SignerKeyHex string
	// WalletAddress is the smart-wallet address managed by the service.
	WalletAddress common.Address
	// AAChains lists the chains where the service can batch steps into a
	// single userOp.
	AAChains []types.ChainID
}

// NewHostedTransport builds a transport for the hosted wallet service.
func NewHostedTransport(cfg HostedConfig) (*HostedTransport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hosted wallet base URL is required")
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	auth, err := newSessionAuth(cfg.BaseURL, cfg.SignerKeyHex, httpClient)
	if err != nil {
		return nil, err
	}

	aaChains := make(map[types.ChainID]struct{}, len(cfg.AAChains))
	for _, c := range cfg.AAChains {
		aaChains[c] = struct{}{}
	}

	return &HostedTransport{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		auth:       auth,
		address:    cfg.WalletAddress,
		aaChains:   aaChains,
		log:        logging.Component("wallet.hosted"),
	}, nil
}

// Address returns the smart-wallet address.
func (t *HostedTransport) Address() common.Address {
	return t.address
}

// SupportsChain reports whether the service batches userOps on the chain.
func (t *HostedTransport) SupportsChain(chainID types.ChainID) bool {
	_, ok := t.aaChains[chainID]
	return ok
}

// sendRequest is the request body for /v1/wallet/send.
type sendRequest struct {
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`
	ChainID uint64 `json:"chain_id"`
}

// sendResponse is the response from /v1/wallet/send.
type sendResponse struct {
	TxHash string `json:"tx_hash"`
}

// batchRequest is the request body for /v1/wallet/send-batch.
type batchRequest struct {
	Calls   []sendRequest `json:"calls"`
	ChainID uint64        `json:"chain_id"`
}

// batchResponse is the response from /v1/wallet/send-batch.
type batchResponse struct {
	UserOpHash string `json:"user_op_hash"`
}

// Send submits one step through the service and returns its transaction hash
// once the service reports it confirmed.
func (t *HostedTransport) Send(ctx context.Context, step types.TransactionStep, chainID types.ChainID) (common.Hash, error) {
	var resp sendResponse
	if err := t.post(ctx, "/v1/wallet/send", toSendRequest(step, chainID), &resp); err != nil {
		return common.Hash{}, fmt.Errorf("wallet send failed: %w", err)
	}
	return common.HexToHash(resp.TxHash), nil
}

// SendBatch submits all steps as one userOp and waits on the service's status
// stream until it is included. The batch is atomic: a failure means nothing
// landed.
func (t *HostedTransport) SendBatch(ctx context.Context, steps []types.TransactionStep, chainID types.ChainID) (common.Hash, error) {
	req := batchRequest{ChainID: uint64(chainID), Calls: make([]sendRequest, 0, len(steps))}
	for _, s := range steps {
		req.Calls = append(req.Calls, toSendRequest(s, chainID))
	}

	var resp batchResponse
	if err := t.post(ctx, "/v1/wallet/send-batch", req, &resp); err != nil {
		return common.Hash{}, fmt.Errorf("wallet batch failed: %w", err)
	}

	userOpHash := common.HexToHash(resp.UserOpHash)
	t.log.Debug().Str("user_op", userOpHash.Hex()).Int("steps", len(steps)).Msg("userOp submitted")

	if err := t.awaitUserOp(ctx, userOpHash); err != nil {
		return common.Hash{}, err
	}
	return userOpHash, nil
}

// opStatus is a message on the userOp status stream.
type opStatus struct {
	Hash   string `json:"hash"`
	Status string `json:"status"` // "pending", "included", "failed"
	Reason string `json:"reason,omitempty"`
}

// awaitUserOp subscribes to the service's websocket status stream and blocks
// until the userOp reaches a terminal status or ctx ends.
func (t *HostedTransport) awaitUserOp(ctx context.Context, userOpHash common.Hash) error {
	wsURL, err := t.streamURL(userOpHash)
	if err != nil {
		return err
	}

	token, err := t.auth.sessionToken(ctx)
	if err != nil {
		return err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to open userOp status stream: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the caller's context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var status opStatus
		if err := conn.ReadJSON(&status); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("userOp status stream closed: %w", err)
		}

		switch status.Status {
		case "included":
			return nil
		case "failed":
			return fmt.Errorf("userOp %s failed: %s", userOpHash.Hex(), status.Reason)
		}
		// "pending" and unknown statuses: keep waiting
	}
}

func (t *HostedTransport) streamURL(userOpHash common.Hash) (string, error) {
	u, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/v1/wallet/ops/stream"
	u.RawQuery = url.Values{"hash": {userOpHash.Hex()}}.Encode()
	return u.String(), nil
}

func (t *HostedTransport) post(ctx context.Context, path string, body, out interface{}) error {
	token, err := t.auth.sessionToken(ctx)
	if err != nil {
		return err
	}

	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func toSendRequest(step types.TransactionStep, chainID types.ChainID) sendRequest {
	value := "0x0"
	if step.Value != nil {
		value = hexutil.EncodeBig(step.Value)
	}
	return sendRequest{
		To:      step.To.Hex(),
		Data:    hexutil.Encode(step.Data),
		Value:   value,
		ChainID: uint64(chainID),
	}
}
