// Package market resolves token prices and market capitalizations from
// external data providers.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrNotFound means neither provider could supply data for the token. It is
// the only failure mode the oracle reports: the evaluator treats it as
// "condition not yet satisfied", never as an execution signal.
var ErrNotFound = errors.New("market: no data available for token")

// Data is a snapshot of a token's market state.
type Data struct {
	Price     decimal.Decimal
	MarketCap decimal.Decimal
	Symbol    string
	Name      string
	Address   string
}

// Oracle answers market data lookups for the trigger evaluator.
type Oracle interface {
	GetMarketData(ctx context.Context, tokenAddress string) (*Data, error)
}

// ClientConfig holds configuration for creating a new oracle Client.
type ClientConfig struct {
	// PrimaryBaseURL is the token-overview provider queried first.
	PrimaryBaseURL string
	// FallbackBaseURL is tried when the primary errors or has no listing.
	FallbackBaseURL string
	// Timeout bounds each provider call. Defaults to 10 seconds.
	Timeout time.Duration
}

// Client queries a primary data provider and falls back to a secondary one.
// Both failing yields ErrNotFound rather than a hard error so a sweep can
// skip the order without touching its state.
type Client struct {
	primaryBaseURL  string
	fallbackBaseURL string
	httpClient      *http.Client
	logger          zerolog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		primaryBaseURL:  strings.TrimSuffix(cfg.PrimaryBaseURL, "/"),
		fallbackBaseURL: strings.TrimSuffix(cfg.FallbackBaseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		logger:          log.With().Str("component", "market_oracle").Logger(),
	}
}

// GetMarketData resolves price, market cap and symbol for a token address.
func (c *Client) GetMarketData(ctx context.Context, tokenAddress string) (*Data, error) {
	data, err := c.fromPrimary(ctx, tokenAddress)
	if err == nil {
		return data, nil
	}
	c.logger.Debug().Err(err).Str("token", tokenAddress).Msg("primary provider miss, trying fallback")

	data, err = c.fromFallback(ctx, tokenAddress)
	if err == nil {
		return data, nil
	}
	c.logger.Warn().Err(err).Str("token", tokenAddress).Msg("no market data from any provider")

	return nil, ErrNotFound
}

type tokenOverviewResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Price     decimal.Decimal `json:"price"`
		MarketCap decimal.Decimal `json:"marketCap"`
		Symbol    string          `json:"symbol"`
		Name      string          `json:"name"`
	} `json:"data"`
}

func (c *Client) fromPrimary(ctx context.Context, tokenAddress string) (*Data, error) {
	reqURL := c.primaryBaseURL + "/defi/token_overview?address=" + url.QueryEscape(tokenAddress)

	var payload tokenOverviewResponse
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, err
	}
	if !payload.Success {
		return nil, fmt.Errorf("primary provider has no listing for %s", tokenAddress)
	}

	return &Data{
		Price:     payload.Data.Price,
		MarketCap: payload.Data.MarketCap,
		Symbol:    payload.Data.Symbol,
		Name:      payload.Data.Name,
		Address:   tokenAddress,
	}, nil
}

type contractPriceEntry struct {
	USD          decimal.Decimal `json:"usd"`
	USDMarketCap decimal.Decimal `json:"usd_market_cap"`
}

func (c *Client) fromFallback(ctx context.Context, tokenAddress string) (*Data, error) {
	reqURL := c.fallbackBaseURL + "/api/v3/simple/token_price/ethereum?" + url.Values{
		"contract_addresses": {tokenAddress},
		"vs_currencies":      {"usd"},
		"include_market_cap": {"true"},
	}.Encode()

	payload := map[string]contractPriceEntry{}
	if err := c.getJSON(ctx, reqURL, &payload); err != nil {
		return nil, err
	}

	entry, ok := payload[strings.ToLower(tokenAddress)]
	if !ok {
		return nil, fmt.Errorf("fallback provider has no listing for %s", tokenAddress)
	}

	return &Data{
		Price:     entry.USD,
		MarketCap: entry.USDMarketCap,
		Symbol:    "UNKNOWN",
		Name:      "Unknown Token",
		Address:   tokenAddress,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
