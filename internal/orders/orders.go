// Package orders owns the limit-order records: creation, listing,
// cancellation, and the status transitions the sweep drives them through.
package orders

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/merlinlabs/merlin-api/internal/chain"
	"github.com/merlinlabs/merlin-api/internal/types"
	"github.com/merlinlabs/merlin-api/pkg/response"
)

var (
	ErrInvalidWalletAddress = errors.New("orders: invalid wallet address")
	ErrInvalidToken         = errors.New("orders: invalid token identifier, expected a known symbol or contract address")
	ErrNotOwner             = errors.New("orders: order does not belong to the provided wallet")
	ErrNotActive            = errors.New("orders: order is not active")
)

// knownTokens maps common symbols to canonical contract addresses so users
// can phrase orders against symbols.
var knownTokens = map[string]string{
	"ETH":  chain.NativeTokenAddress,
	"WETH": "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"USDC": "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"USDT": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	"DAI":  "0x6B175474E89094C44Da98b954EedeAC495271d0F",
	"WBTC": "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
}

// ResolveTokenAddress accepts a known symbol or a contract address and
// returns the canonical address.
func ResolveTokenAddress(identifier string) (string, error) {
	if address, ok := knownTokens[strings.ToUpper(strings.TrimSpace(identifier))]; ok {
		return address, nil
	}
	if common.IsHexAddress(identifier) {
		return common.HexToAddress(identifier).Hex(), nil
	}
	return "", ErrInvalidToken
}

// Service handles limit-order management.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// DB exposes the order repository to the sweep scheduler.
func (s *Service) DB() *Database {
	return s.db
}

// CreateOrderInput carries the raw order description from the API boundary.
type CreateOrderInput struct {
	WalletAddress string `json:"wallet_address" binding:"required"`
	UserID        string `json:"user_id"`
	TelegramID    string `json:"telegram_id"`
	Token         string `json:"token" binding:"required"`
	TokenSymbol   string `json:"token_symbol"`
	Side          string `json:"side" binding:"required"`
	TriggerKind   string `json:"trigger_kind" binding:"required"`
	TriggerValue  string `json:"trigger_value" binding:"required"`
	Amount        string `json:"amount"`
	AmountKind    string `json:"amount_kind"`
}

// CreateOrder validates the raw input once at the boundary and persists the
// order as active. All enum and numeric validation happens here; the sweep
// never re-validates user input.
func (s *Service) CreateOrder(input CreateOrderInput) (*LimitOrder, error) {
	if !common.IsHexAddress(input.WalletAddress) {
		return nil, ErrInvalidWalletAddress
	}

	tokenAddress, err := ResolveTokenAddress(input.Token)
	if err != nil {
		return nil, err
	}

	side, err := types.ParseSide(input.Side)
	if err != nil {
		return nil, err
	}
	trig, err := types.ParseTrigger(input.TriggerKind, input.TriggerValue)
	if err != nil {
		return nil, err
	}

	amountKind := input.AmountKind
	if amountKind == "" {
		amountKind = string(types.AmountFixed)
	}
	amount, err := types.ParseAmount(amountKind, input.Amount)
	if err != nil {
		return nil, err
	}

	order := &LimitOrder{
		OrderID:       uuid.New().String(),
		WalletAddress: common.HexToAddress(input.WalletAddress).Hex(),
		UserID:        input.UserID,
		TelegramID:    input.TelegramID,
		TokenAddress:  tokenAddress,
		TokenSymbol:   input.TokenSymbol,
		Side:          string(side),
		TriggerKind:   string(trig.Kind),
		TriggerValue:  trig.Value.String(),
		Amount:        amount.Describe(),
		AmountKind:    string(amount.Kind),
		Status:        types.StatusActive,
	}

	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}

	log.Info().
		Str("component", "orders").
		Str("order_id", order.OrderID).
		Str("side", order.Side).
		Str("token", order.TokenAddress).
		Str("trigger", trig.Describe()).
		Msg("limit order created")

	return order, nil
}

// ListOrders returns orders for one owner identity, optionally filtered by
// status, newest first.
func (s *Service) ListOrders(filter OwnerFilter) ([]LimitOrder, error) {
	if filter.Empty() {
		return nil, errors.New("orders: must provide wallet_address, user_id or telegram_id")
	}
	return s.db.ListByOwner(filter)
}

// CancelOrder transitions an active order to cancelled. When a wallet
// address is supplied it must match the order's owner. Orders that are
// executing, executed, failed or already cancelled are rejected with
// ErrNotActive.
func (s *Service) CancelOrder(orderID, walletAddress string) (*LimitOrder, error) {
	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	if walletAddress != "" && !strings.EqualFold(order.WalletAddress, walletAddress) {
		return nil, ErrNotOwner
	}

	if err := s.db.Cancel(orderID); err != nil {
		if errors.Is(err, ErrClaimLost) {
			return nil, fmt.Errorf("%w: status is %s", ErrNotActive, order.Status)
		}
		return nil, err
	}

	log.Info().
		Str("component", "orders").
		Str("order_id", orderID).
		Msg("limit order cancelled")

	return s.db.GetOrder(orderID)
}

// GinHandlers contains HTTP handlers for limit-order endpoints.
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// CreateOrderHandler handles POST requests to create limit orders.
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.CreateOrder(input)
		if err != nil {
			if isValidationError(err) {
				response.BadRequest(c, err.Error())
				return
			}
			response.Handle(c, nil, err)
			return
		}

		response.Success(c, order.ToResponse())
	}
}

// ListOrdersHandler handles GET requests to list an owner's orders.
// Query parameters: wallet_address | user_id | telegram_id, optional status.
func (h *GinHandlers) ListOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := OwnerFilter{
			WalletAddress: c.Query("wallet_address"),
			UserID:        c.Query("user_id"),
			TelegramID:    c.Query("telegram_id"),
			Status:        c.Query("status"),
		}
		if filter.Empty() {
			response.BadRequest(c, "Must provide wallet_address, user_id or telegram_id")
			return
		}

		result, err := h.service.ListOrders(filter)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}

		responses := make([]*types.OrderResponse, len(result))
		for i := range result {
			responses[i] = result[i].ToResponse()
		}
		response.Success(c, gin.H{"orders": responses, "count": len(responses)})
	}
}

type cancelRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// CancelOrderHandler handles POST requests to cancel an order.
// URL parameter: order_id; optional wallet_address in the body for an
// ownership check.
func (h *GinHandlers) CancelOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("order_id")

		var req cancelRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				response.BadRequest(c, err.Error())
				return
			}
		}

		order, err := h.service.CancelOrder(orderID, req.WalletAddress)
		switch {
		case errors.Is(err, ErrNotOwner):
			response.Forbidden(c, err.Error())
		case errors.Is(err, ErrNotActive):
			response.Conflict(c, err.Error())
		case err != nil:
			response.Handle(c, nil, err)
		default:
			response.Success(c, order.ToResponse())
		}
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, ErrInvalidWalletAddress) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, types.ErrInvalidSide) ||
		errors.Is(err, types.ErrInvalidTriggerKind) ||
		errors.Is(err, types.ErrInvalidTriggerValue) ||
		errors.Is(err, types.ErrInvalidAmountKind) ||
		errors.Is(err, types.ErrInvalidAmountValue)
}
