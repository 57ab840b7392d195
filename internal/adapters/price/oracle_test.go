package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchQuotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/cryptocurrency/quotes/latest" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "SOL,BONK" {
			t.Errorf("symbol param = %s", got)
		}
		if got := r.URL.Query().Get("convert"); got != "USD" {
			t.Errorf("convert param = %s", got)
		}
		if got := r.Header.Get("X-CMC_PRO_API_KEY"); got != "test-key" {
			t.Errorf("api key header = %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{
			"SOL":{"quote":{"USD":{"price":150.5}}},
			"BONK":{"quote":{"EUR":{"price":1}}}
		}}`))
	}))
	defer srv.Close()

	client := NewOracleClient(srv.URL, "test-key")
	quotes, err := client.FetchQuotes(context.Background(), []string{"SOL", "BONK"})
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if quotes["SOL"] != 150.5 {
		t.Errorf("SOL = %v, want 150.5", quotes["SOL"])
	}
	if _, ok := quotes["BONK"]; ok {
		t.Error("BONK resolved without a USD quote")
	}
}

func TestFetchQuotesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOracleClient(srv.URL, "")
	if _, err := client.FetchQuotes(context.Background(), []string{"SOL"}); err == nil {
		t.Fatal("want error on non-200 response")
	}
}

func TestFetchQuotesEmptySymbols(t *testing.T) {
	client := NewOracleClient("http://unused.invalid", "")
	quotes, err := client.FetchQuotes(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchQuotes: %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("quotes = %v, want empty", quotes)
	}
}
