// Package synth provides a client for the Synth market data API
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/keelfin/keel/internal/common"
	"github.com/keelfin/keel/internal/interfaces"
	"github.com/keelfin/keel/internal/models"
)

const (
	DefaultBaseURL   = "https://api.synthfinance.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the PriceProvider and RateProvider interfaces
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var (
	_ interfaces.PriceProvider = (*Client)(nil)
	_ interfaces.RateProvider  = (*Client)(nil)
)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Synth client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("synth API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if params == nil {
		params = url.Values{}
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+path).Msg("Synth API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// priceResponse represents the API response for daily closing prices
type priceResponse struct {
	Currency string `json:"currency"`
	Prices   []struct {
		Date  string      `json:"date"`
		Close json.Number `json:"close"`
	} `json:"prices"`
}

// FetchPrices retrieves daily closing prices for a symbol over a date range
func (c *Client) FetchPrices(ctx context.Context, symbol string, start, end models.Date) ([]models.SecurityPrice, error) {
	params := url.Values{}
	params.Set("start_date", start.String())
	params.Set("end_date", end.String())

	path := fmt.Sprintf("/tickers/%s/open-close", url.PathEscape(symbol))

	var resp priceResponse
	if err := c.get(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	prices := make([]models.SecurityPrice, 0, len(resp.Prices))
	for _, p := range resp.Prices {
		date, err := models.ParseDate(p.Date)
		if err != nil {
			c.logger.Warn().Str("symbol", symbol).Str("date", p.Date).Msg("Skipping price with invalid date")
			continue
		}
		price, err := decimal.NewFromString(p.Close.String())
		if err != nil {
			c.logger.Warn().Str("symbol", symbol).Str("date", p.Date).Msg("Skipping price with invalid close")
			continue
		}
		prices = append(prices, models.SecurityPrice{
			SecurityID: symbol,
			Date:       date,
			Price:      price,
			Currency:   resp.Currency,
		})
	}

	return prices, nil
}

// rateResponse represents the API response for historical exchange rates
type rateResponse struct {
	Data []struct {
		Date  string                 `json:"date"`
		Rates map[string]json.Number `json:"rates"`
	} `json:"data"`
}

// FetchRates retrieves daily exchange rates for a currency pair over a date range
func (c *Client) FetchRates(ctx context.Context, from, to string, start, end models.Date) ([]models.ExchangeRate, error) {
	params := url.Values{}
	params.Set("from", from)
	params.Set("to", to)
	params.Set("start_date", start.String())
	params.Set("end_date", end.String())

	var resp rateResponse
	if err := c.get(ctx, "/rates/historical-range", params, &resp); err != nil {
		return nil, err
	}

	rates := make([]models.ExchangeRate, 0, len(resp.Data))
	for _, d := range resp.Data {
		raw, ok := d.Rates[to]
		if !ok {
			continue
		}
		date, err := models.ParseDate(d.Date)
		if err != nil {
			c.logger.Warn().Str("pair", from+"/"+to).Str("date", d.Date).Msg("Skipping rate with invalid date")
			continue
		}
		value, err := decimal.NewFromString(raw.String())
		if err != nil {
			c.logger.Warn().Str("pair", from+"/"+to).Str("date", d.Date).Msg("Skipping rate with invalid value")
			continue
		}
		rates = append(rates, models.ExchangeRate{
			FromCurrency: from,
			ToCurrency:   to,
			Date:         date,
			Rate:         value,
		})
	}

	return rates, nil
}
