package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merlinlabs/merlin-api/internal/notify"
	"github.com/merlinlabs/merlin-api/internal/orders"
)

type sentMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func newCapturingServer(t *testing.T, sink *[]sentMessage) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bottest-token/sendMessage", r.URL.Path)

		var msg sentMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		*sink = append(*sink, msg)
		w.Write([]byte(`{"ok":true}`))
	}))
}

func testOrder() *orders.LimitOrder {
	executedAt := time.Now()
	return &orders.LimitOrder{
		OrderID:      "order-1",
		TelegramID:   "12345",
		TokenAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		TokenSymbol:  "USDC",
		Side:         "buy",
		TriggerKind:  "market_cap",
		TriggerValue: "150",
		Amount:       "0.5",
		AmountKind:   "fixed",
		ExecutedAt:   &executedAt,
	}
}

func TestOrderExecutedNotification(t *testing.T) {
	t.Parallel()

	var sent []sentMessage
	server := newCapturingServer(t, &sent)
	defer server.Close()

	notifier := notify.NewTelegramNotifier(notify.TelegramConfig{
		BotToken: "test-token",
		BaseURL:  server.URL,
	})

	txHash := "0xabc123"
	notifier.OrderExecuted(context.Background(), testOrder(), txHash)

	require.Len(t, sent, 1)
	assert.Equal(t, "12345", sent[0].ChatID)
	assert.Equal(t, "Markdown", sent[0].ParseMode)
	assert.Contains(t, sent[0].Text, "Limit Order Executed")
	assert.Contains(t, sent[0].Text, "BOUGHT")
	assert.Contains(t, sent[0].Text, "USDC")
	assert.Contains(t, sent[0].Text, "150k market cap")
	assert.Contains(t, sent[0].Text, "https://etherscan.io/tx/"+txHash)
}

func TestOrderFailedNotification(t *testing.T) {
	t.Parallel()

	var sent []sentMessage
	server := newCapturingServer(t, &sent)
	defer server.Close()

	notifier := notify.NewTelegramNotifier(notify.TelegramConfig{
		BotToken: "test-token",
		BaseURL:  server.URL,
	})

	notifier.OrderFailed(context.Background(), testOrder(), "insufficient balance")

	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].Text, "Limit Order Failed")
	assert.Contains(t, sent[0].Text, "insufficient balance")
	assert.NotContains(t, sent[0].Text, "etherscan.io")
}

func TestNotificationSkippedWithoutTelegramID(t *testing.T) {
	t.Parallel()

	var sent []sentMessage
	server := newCapturingServer(t, &sent)
	defer server.Close()

	notifier := notify.NewTelegramNotifier(notify.TelegramConfig{
		BotToken: "test-token",
		BaseURL:  server.URL,
	})

	order := testOrder()
	order.TelegramID = ""
	notifier.OrderExecuted(context.Background(), order, "0xabc")
	notifier.OrderFailed(context.Background(), order, "whatever")

	assert.Empty(t, sent)
}

func TestDeliveryFailureDoesNotPanic(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := notify.NewTelegramNotifier(notify.TelegramConfig{
		BotToken: "test-token",
		BaseURL:  server.URL,
	})

	// Errors are logged, never propagated.
	notifier.OrderExecuted(context.Background(), testOrder(), "0xabc")
	notifier.OrderFailed(context.Background(), testOrder(), "reason")
}
