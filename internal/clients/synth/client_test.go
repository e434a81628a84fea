package synth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/keelfin/keel/internal/models"
)

func TestFetchPrices_ParsesResponse(t *testing.T) {
	mockResp := `{
		"currency": "USD",
		"prices": [
			{"date": "2025-01-02", "close": 101.25},
			{"date": "2025-01-03", "close": "102.50"},
			{"date": "bad-date", "close": 103.00}
		]
	}`

	var capturedPath, capturedAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockResp))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	prices, err := client.FetchPrices(context.Background(),
		"AAPL", models.MustDate("2025-01-01"), models.MustDate("2025-01-05"))
	if err != nil {
		t.Fatalf("FetchPrices failed: %v", err)
	}

	if capturedPath != "/tickers/AAPL/open-close" {
		t.Errorf("expected path /tickers/AAPL/open-close, got %s", capturedPath)
	}
	if capturedAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", capturedAuth)
	}
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices (invalid date dropped), got %d", len(prices))
	}
	if prices[0].SecurityID != "AAPL" || prices[0].Currency != "USD" {
		t.Errorf("unexpected price identity: %+v", prices[0])
	}
	if !prices[0].Price.Equal(decimal.RequireFromString("101.25")) {
		t.Errorf("expected price 101.25, got %s", prices[0].Price)
	}
	if !prices[1].Price.Equal(decimal.RequireFromString("102.50")) {
		t.Errorf("expected price 102.50, got %s", prices[1].Price)
	}
}

func TestFetchRates_ParsesResponse(t *testing.T) {
	mockResp := `{
		"data": [
			{"date": "2025-03-01", "rates": {"USD": 0.007}},
			{"date": "2025-03-02", "rates": {"EUR": 0.0065}}
		]
	}`

	var capturedQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockResp))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	rates, err := client.FetchRates(context.Background(),
		"JPY", "USD", models.MustDate("2025-03-01"), models.MustDate("2025-03-02"))
	if err != nil {
		t.Fatalf("FetchRates failed: %v", err)
	}

	if len(rates) != 1 {
		t.Fatalf("expected 1 rate (missing target currency dropped), got %d", len(rates))
	}
	if rates[0].FromCurrency != "JPY" || rates[0].ToCurrency != "USD" {
		t.Errorf("unexpected rate pair: %+v", rates[0])
	}
	if !rates[0].Rate.Equal(decimal.RequireFromString("0.007")) {
		t.Errorf("expected rate 0.007, got %s", rates[0].Rate)
	}
	for _, want := range []string{"from=JPY", "to=USD", "start_date=2025-03-01", "end_date=2025-03-02"} {
		if !strings.Contains(capturedQuery, want) {
			t.Errorf("query %q missing %q", capturedQuery, want)
		}
	}
}

func TestGet_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid api key"))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.FetchPrices(context.Background(),
		"AAPL", models.MustDate("2025-01-01"), models.MustDate("2025-01-05"))
	if err == nil {
		t.Fatal("expected error for 401 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", apiErr.StatusCode)
	}
}
