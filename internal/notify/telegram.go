package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/merlinlabs/merlin-api/internal/orders"
	"github.com/merlinlabs/merlin-api/internal/types"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramNotifier sends execution outcomes through the Telegram bot API.
// Orders without a Telegram id are skipped; there is nowhere to deliver.
type TelegramNotifier struct {
	botToken   string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// TelegramConfig holds configuration for creating a TelegramNotifier.
type TelegramConfig struct {
	BotToken string
	// BaseURL overrides the Telegram API endpoint, used in tests.
	BaseURL string
	Timeout time.Duration
}

func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramAPIBase
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &TelegramNotifier{
		botToken:   cfg.BotToken,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.With().Str("component", "notifier").Logger(),
	}
}

func (n *TelegramNotifier) OrderExecuted(ctx context.Context, order *orders.LimitOrder, txHash string) {
	message := fmt.Sprintf("%s *Limit Order Executed!*\n\n"+
		"Order: *%s* %s of %s\n"+
		"Trigger: %s\n"+
		"Status: *Success*\n",
		sideEmoji(order.Side), sideAction(order.Side), amountDisplay(order), tokenDisplay(order), triggerDisplay(order))
	if txHash != "" {
		message += fmt.Sprintf("\n[View on Etherscan](https://etherscan.io/tx/%s)", txHash)
	}

	n.send(ctx, order, message)
}

func (n *TelegramNotifier) OrderFailed(ctx context.Context, order *orders.LimitOrder, reason string) {
	message := fmt.Sprintf("❌ *Limit Order Failed*\n\n"+
		"Order: *%s* %s of %s\n"+
		"Trigger: %s\n"+
		"Error: %s\n\n"+
		"Please check your order and try again.",
		strings.ToUpper(order.Side), amountDisplay(order), tokenDisplay(order), triggerDisplay(order), reason)

	n.send(ctx, order, message)
}

func (n *TelegramNotifier) send(ctx context.Context, order *orders.LimitOrder, message string) {
	if order.TelegramID == "" {
		n.logger.Debug().Str("order_id", order.OrderID).Msg("order has no telegram id, skipping notification")
		return
	}
	if n.botToken == "" {
		n.logger.Warn().Msg("telegram bot token not configured, cannot send notification")
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"chat_id":    order.TelegramID,
		"text":       message,
		"parse_mode": "Markdown",
	})

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		n.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Warn().
			Int("status", resp.StatusCode).
			Str("order_id", order.OrderID).
			Msg("telegram rejected notification")
		return
	}

	n.logger.Info().
		Str("order_id", order.OrderID).
		Str("telegram_id", order.TelegramID).
		Msg("notification sent")
}

func sideEmoji(side string) string {
	if side == string(types.SideBuy) {
		return "🟢"
	}
	return "🔴"
}

func sideAction(side string) string {
	if side == string(types.SideBuy) {
		return "BOUGHT"
	}
	return "SOLD"
}

func amountDisplay(order *orders.LimitOrder) string {
	if order.Amount == "" {
		return "all"
	}
	return order.Amount
}

func tokenDisplay(order *orders.LimitOrder) string {
	if order.TokenSymbol != "" {
		return order.TokenSymbol
	}
	if len(order.TokenAddress) > 10 {
		return order.TokenAddress[:10] + "..."
	}
	return order.TokenAddress
}

func triggerDisplay(order *orders.LimitOrder) string {
	if order.TriggerKind == string(types.TriggerMarketCap) {
		return fmt.Sprintf("%sk market cap", order.TriggerValue)
	}
	return fmt.Sprintf("$%s price", order.TriggerValue)
}
