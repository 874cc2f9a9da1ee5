package wallet

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// authMessagePrefix is prepended to challenges before signing so the
	// signature cannot be replayed against another service.
	authMessagePrefix = "Strata wallet auth: "

	// sessionRenewalSlack re-authenticates slightly before the token expires
	// so an in-flight request never races the expiry.
	sessionRenewalSlack = 30 * time.Second
)

// challengeRequest is the request body for /v1/auth/challenge.
type challengeRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// challengeResponse is the response from /v1/auth/challenge.
type challengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresAt int64  `json:"expires_at"`
}

// verifyRequest is the request body for /v1/auth/verify.
type verifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	Challenge     string `json:"challenge"`
	Signature     string `json:"signature"`
}

// verifyResponse is the response from /v1/auth/verify.
type verifyResponse struct {
	SessionToken string `json:"session_token"`
}

// sessionAuth performs challenge-response authentication against the hosted
// wallet service and tracks the expiry of the JWT session token it issues.
// A transport is shared across concurrent actions, so the token state is
// guarded by mu; the lock is held across a refresh so only one goroutine
// runs the challenge exchange.
type sessionAuth struct {
	baseURL    string
	httpClient *http.Client
	privateKey *ecdsa.PrivateKey
	address    string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func newSessionAuth(baseURL, privateKeyHex string, httpClient *http.Client) (*sessionAuth, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signer key: %w", err)
	}
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}

	return &sessionAuth{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(*publicKey).Hex(),
	}, nil
}

// sessionToken returns a valid token, re-authenticating when the current one
// is missing or about to expire.
func (a *sessionAuth) sessionToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Until(a.tokenExp) > sessionRenewalSlack {
		return a.token, nil
	}
	if err := a.authenticate(ctx); err != nil {
		return "", err
	}
	return a.token, nil
}

// authenticate runs the full challenge-response flow: request a challenge,
// sign it with the wallet key, exchange the signature for a session JWT.
// Callers must hold mu.
func (a *sessionAuth) authenticate(ctx context.Context) error {
	var challenge challengeResponse
	if err := a.post(ctx, "/v1/auth/challenge", challengeRequest{WalletAddress: a.address}, &challenge); err != nil {
		return fmt.Errorf("failed to request challenge: %w", err)
	}

	signature, err := a.signChallenge(challenge.Challenge)
	if err != nil {
		return fmt.Errorf("failed to sign challenge: %w", err)
	}

	var verify verifyResponse
	if err := a.post(ctx, "/v1/auth/verify", verifyRequest{
		WalletAddress: a.address,
		Challenge:     challenge.Challenge,
		Signature:     signature,
	}, &verify); err != nil {
		return fmt.Errorf("failed to verify signature: %w", err)
	}

	exp, err := tokenExpiry(verify.SessionToken)
	if err != nil {
		return fmt.Errorf("invalid session token: %w", err)
	}

	a.token = verify.SessionToken
	a.tokenExp = exp
	return nil
}

// signChallenge signs a challenge with the wallet key using the standard
// Ethereum signed-message prefix.
func (a *sessionAuth) signChallenge(challenge string) (string, error) {
	message := authMessagePrefix + challenge
	hash := hashMessage([]byte(message))

	signature, err := crypto.Sign(hash, a.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (27/28 instead of 0/1)
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

func (a *sessionAuth) post(ctx context.Context, path string, body, out interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
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

// tokenExpiry extracts the exp claim from the service-issued JWT. The token is
// not verified here — the service signed it and the service will verify it; the
// SDK only needs the expiry to know when to re-authenticate.
func tokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse session token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("session token has no expiry")
	}
	return exp.Time, nil
}

// hashMessage hashes a message with the Ethereum signed message prefix.
func hashMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}
