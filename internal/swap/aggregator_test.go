package swap_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlinlabs/merlin-api/internal/swap"
)

func TestQuoteRequestParameters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/v1/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "0xAAA", q.Get("sellToken"))
		assert.Equal(t, "0xBBB", q.Get("buyToken"))
		assert.Equal(t, "1000", q.Get("sellAmount"))
		assert.Equal(t, "50", q.Get("slippageBps"))

		w.Write([]byte(`{"sellToken":"0xAAA","buyToken":"0xBBB","sellAmount":"1000","buyAmount":"2500"}`))
	}))
	defer server.Close()

	client := swap.NewAggregatorClient(swap.AggregatorConfig{BaseURL: server.URL})

	quote, err := client.Quote(context.Background(), "0xAAA", "0xBBB", big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "2500", quote.BuyAmount)
}

func TestQuoteWithoutOutputFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing buy amount", body: `{"sellToken":"0xAAA","buyToken":"0xBBB","sellAmount":"1000"}`},
		{name: "zero buy amount", body: `{"sellToken":"0xAAA","buyToken":"0xBBB","sellAmount":"1000","buyAmount":"0"}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := swap.NewAggregatorClient(swap.AggregatorConfig{BaseURL: server.URL})

			_, err := client.Quote(context.Background(), "0xAAA", "0xBBB", big.NewInt(1000))
			assert.Error(t, err)
		})
	}
}

func TestBuildSwapEchoesQuote(t *testing.T) {
	t.Parallel()

	// The quote payload carries route fields this client does not model; the
	// build request must echo them back verbatim.
	quoteBody := `{"sellToken":"0xAAA","buyToken":"0xBBB","sellAmount":"1000","buyAmount":"2500","route":{"fills":[{"source":"UniswapV3"}]}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swap/v1/quote":
			w.Write([]byte(quoteBody))
		case "/swap/v1/build":
			var payload struct {
				Quote json.RawMessage `json:"quote"`
				Taker string          `json:"taker"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.JSONEq(t, quoteBody, string(payload.Quote))
			assert.Equal(t, "0xTaker", payload.Taker)

			w.Write([]byte(`{"to":"0xDef1C0ded9bec7F1a1670819833240f027b25EfF","data":"0xdeadbeef","value":"0","gas":"210000","gasPrice":"1000000000"}`))
		}
	}))
	defer server.Close()

	client := swap.NewAggregatorClient(swap.AggregatorConfig{BaseURL: server.URL})

	quote, err := client.Quote(context.Background(), "0xAAA", "0xBBB", big.NewInt(1000))
	require.NoError(t, err)

	tx, err := client.BuildSwap(context.Background(), quote, "0xTaker")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", tx.Data)
	assert.Equal(t, uint64(210000), tx.Gas)
}

func TestBuildSwapMissingFields(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swap/v1/quote":
			w.Write([]byte(`{"sellToken":"0xAAA","buyToken":"0xBBB","sellAmount":"1000","buyAmount":"2500"}`))
		case "/swap/v1/build":
			w.Write([]byte(`{"value":"0","gas":"210000"}`))
		}
	}))
	defer server.Close()

	client := swap.NewAggregatorClient(swap.AggregatorConfig{BaseURL: server.URL})

	quote, err := client.Quote(context.Background(), "0xAAA", "0xBBB", big.NewInt(1000))
	require.NoError(t, err)

	_, err = client.BuildSwap(context.Background(), quote, "0xTaker")
	assert.Error(t, err)
}
