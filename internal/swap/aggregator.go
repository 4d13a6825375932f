package swap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultSlippageBps is the slippage tolerance requested from the
// aggregator, in basis points.
const defaultSlippageBps = 50

// Quote is the aggregator's priced route for an exact input amount. The raw
// payload is echoed back verbatim when requesting the settlement
// transaction, so route details survive fields this client does not model.
type Quote struct {
	SellToken  string `json:"sellToken"`
	BuyToken   string `json:"buyToken"`
	SellAmount string `json:"sellAmount"`
	BuyAmount  string `json:"buyAmount"`

	raw json.RawMessage
}

// SwapTransaction is a prebuilt, unsigned settlement transaction.
type SwapTransaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas,string"`
	GasPrice string `json:"gasPrice"`
}

// AggregatorConfig holds configuration for creating an AggregatorClient.
type AggregatorConfig struct {
	BaseURL string
	// Timeout bounds each aggregator call. Defaults to 15 seconds.
	Timeout time.Duration
}

// AggregatorClient talks to the liquidity aggregator's HTTP API: one call to
// price a route, one to obtain the ready-to-sign transaction for it.
type AggregatorClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAggregatorClient(cfg AggregatorConfig) *AggregatorClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &AggregatorClient{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Quote requests a priced route for swapping exactly sellAmount of the sell
// token. A response without a buy amount counts as a failure.
func (a *AggregatorClient) Quote(ctx context.Context, sellToken, buyToken string, sellAmount *big.Int) (*Quote, error) {
	reqURL := a.baseURL + "/swap/v1/quote?" + url.Values{
		"sellToken":   {sellToken},
		"buyToken":    {buyToken},
		"sellAmount":  {sellAmount.String()},
		"slippageBps": {fmt.Sprint(defaultSlippageBps)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator quote returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("malformed quote response: %w", err)
	}
	if quote.BuyAmount == "" || quote.BuyAmount == "0" {
		return nil, fmt.Errorf("quote has no output amount")
	}

	quote.raw = json.RawMessage(body)
	return &quote, nil
}

// BuildSwap requests the unsigned settlement transaction for a quote, to be
// signed by the taker address.
func (a *AggregatorClient) BuildSwap(ctx context.Context, quote *Quote, taker string) (*SwapTransaction, error) {
	payload, err := json.Marshal(map[string]json.RawMessage{
		"quote": quote.raw,
		"taker": json.RawMessage(fmt.Sprintf("%q", taker)),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/swap/v1/build", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator build returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	var tx SwapTransaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("malformed build response: %w", err)
	}
	if tx.To == "" || tx.Data == "" {
		return nil, fmt.Errorf("build response missing transaction fields")
	}

	return &tx, nil
}

func truncateBody(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
