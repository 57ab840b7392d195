package price

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://pro-api.coinmarketcap.com"

// OracleClient fetches spot prices from a CoinMarketCap-style quotes API.
// Prices are quoted in USD via the convert parameter.
type OracleClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOracleClient(baseURL, apiKey string) *OracleClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OracleClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type quoteResponse struct {
	Data map[string]struct {
		Quote map[string]struct {
			Price float64 `json:"price"`
		} `json:"quote"`
	} `json:"data"`
}

// FetchQuotes returns the current USD price for each resolvable symbol.
// Symbols the provider doesn't know are absent from the result; a transport
// or decode failure is returned as an error for the caller to degrade on.
func (o *OracleClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	params := url.Values{}
	params.Set("symbol", strings.Join(symbols, ","))
	params.Set("convert", "USD")

	reqURL := fmt.Sprintf("%s/v2/cryptocurrency/quotes/latest?%s", o.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if o.apiKey != "" {
		req.Header.Set("X-CMC_PRO_API_KEY", o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote provider returned status %d", resp.StatusCode)
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}

	quotes := make(map[string]float64, len(parsed.Data))
	for symbol, entry := range parsed.Data {
		usd, ok := entry.Quote["USD"]
		if !ok || usd.Price < 0 {
			continue
		}
		quotes[strings.ToUpper(symbol)] = usd.Price
	}
	return quotes, nil
}
