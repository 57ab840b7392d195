package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const lamportsPerSOL = 1_000_000_000

// SolanaService resolves wallet balances over Solana JSON-RPC. With no RPC
// URL configured it reports every balance as 0, which keeps the rest of the
// system running (balances are best-effort everywhere).
type SolanaService struct {
	rpcURL string
	client *http.Client
}

func NewSolanaService(rpcURL string) *SolanaService {
	return &SolanaService{
		rpcURL: rpcURL,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type balanceResponse struct {
	Result struct {
		Value uint64 `json:"value"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetBalance returns the SOL balance of address.
func (s *SolanaService) GetBalance(ctx context.Context, address string) (float64, error) {
	if s.rpcURL == "" {
		return 0, nil
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "getBalance",
		Params:  []interface{}{address},
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.rpcURL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("balance request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("solana rpc returned status %d", resp.StatusCode)
	}

	var parsed balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode balance response: %w", err)
	}
	if parsed.Error != nil {
		return 0, fmt.Errorf("solana rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	return float64(parsed.Result.Value) / lamportsPerSOL, nil
}
