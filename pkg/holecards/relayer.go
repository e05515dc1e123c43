package holecards

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"fhepoker-client/pkg/ledger"
	"fhepoker-client/pkg/token"
	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// connection defaults
const (
	DefaultConnectAttempts = 3
	DefaultConnectWait     = 3 * time.Second
)

// ErrRelayerUnavailable is returned when the relayer health check fails
var ErrRelayerUnavailable = errors.New("relayer is unavailable")

// Relayer is an Instance backed by an HTTP decryption relayer
type Relayer struct {
	url    string
	client *http.Client
}

type decryptRequest struct {
	ContractAddress string   `json:"contractAddress"`
	UserAddress     string   `json:"userAddress"`
	Handles         []string `json:"handles"`
	Nonce           string   `json:"nonce"`
	Signature       string   `json:"signature"`
}

type decryptResponse struct {
	Values map[string]string `json:"values"`
}

type relayerError struct {
	Message string `json:"message"`
}

// DialRelayer checks that the relayer is up and returns an instance
func DialRelayer(ctx context.Context, url string, client *http.Client) (*Relayer, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	r := &Relayer{
		url:    strings.TrimRight(url, "/"),
		client: client,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRelayerUnavailable, resp.StatusCode)
	}

	return r, nil
}

// ConnectRelayer dials the relayer, trying again a fixed number of times
func ConnectRelayer(ctx context.Context, url string, attempts int, wait time.Duration, clk clock.Clock, logger logrus.FieldLogger) (*Relayer, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		r, err := DialRelayer(ctx, url, nil)
		if err == nil {
			return r, nil
		}

		lastErr = err
		logger.WithError(err).WithField("attempt", i).Warn("could not connect to relayer")
		if i == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clk.After(wait):
		}
	}

	return nil, lastErr
}

// SigningPayload is the message the wallet signs to authorize a decryption
func SigningPayload(req Request, nonce string) []byte {
	handles := make([]string, len(req.Handles))
	for i, h := range req.Handles {
		handles[i] = h.Hex()
	}

	msg := fmt.Sprintf("%s:%s:%s", req.Contract.Hex(), nonce, strings.Join(handles, ","))
	return crypto.Keccak256([]byte(msg))
}

// Decrypt implements Instance
func (r *Relayer) Decrypt(ctx context.Context, req Request) (map[ledger.Handle]*big.Int, error) {
	if req.Signer == nil {
		return nil, errors.New("no signer")
	}

	for _, h := range req.Handles {
		if !h.IsDealt() {
			return nil, ledger.ErrNotDealt
		}
	}

	nonce, err := token.Nonce()
	if err != nil {
		return nil, err
	}

	sig, err := req.Signer.Sign(SigningPayload(req, nonce))
	if err != nil {
		return nil, fmt.Errorf("could not sign decryption request: %w", err)
	}

	body := decryptRequest{
		ContractAddress: req.Contract.Hex(),
		UserAddress:     req.Signer.Address().Hex(),
		Handles:         make([]string, len(req.Handles)),
		Nonce:           nonce,
		Signature:       hexutil.Encode(sig),
	}

	for i, h := range req.Handles {
		body.Handles[i] = h.Hex()
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/decrypt", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var rerr relayerError
		if json.NewDecoder(resp.Body).Decode(&rerr) == nil && rerr.Message != "" {
			return nil, fmt.Errorf("relayer: %s", rerr.Message)
		}

		return nil, fmt.Errorf("relayer: status %d", resp.StatusCode)
	}

	var decoded decryptResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("relayer: invalid response: %w", err)
	}

	values := make(map[ledger.Handle]*big.Int, len(decoded.Values))
	for k, v := range decoded.Values {
		var h ledger.Handle
		if err := h.UnmarshalText([]byte(k)); err != nil {
			return nil, fmt.Errorf("relayer: invalid handle %q: %w", k, err)
		}

		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("relayer: invalid value %q", v)
		}

		values[h] = n
	}

	return values, nil
}
