// Package sweep drives the limit-order pipeline: one invocation loads every
// active order, checks market conditions, and executes the orders whose
// triggers are satisfied.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/merlinlabs/merlin-api/internal/chain"
	"github.com/merlinlabs/merlin-api/internal/custody"
	"github.com/merlinlabs/merlin-api/internal/market"
	"github.com/merlinlabs/merlin-api/internal/notify"
	"github.com/merlinlabs/merlin-api/internal/orders"
	"github.com/merlinlabs/merlin-api/internal/swap"
	"github.com/merlinlabs/merlin-api/internal/trigger"
	"github.com/merlinlabs/merlin-api/internal/types"
	"github.com/merlinlabs/merlin-api/pkg/response"
)

// nativeDecimals is the precision of the chain's native asset.
const nativeDecimals = 18

// SignerSource resolves custodial signers for order owners.
type SignerSource interface {
	LookupSigner(telegramID string) (*custody.Signer, error)
}

// SwapExecutor runs the quote/build/sign/submit/confirm pipeline.
type SwapExecutor interface {
	Execute(ctx context.Context, signer *custody.Signer, fromToken, toToken string, amount *big.Int) (string, error)
}

// BalanceReader is the slice of chain access the sweep needs directly.
type BalanceReader interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
}

// Service runs sweeps over the active limit orders.
type Service struct {
	db       *orders.Database
	oracle   market.Oracle
	signers  SignerSource
	balances BalanceReader
	executor SwapExecutor
	notifier notify.Notifier
}

func NewService(db *orders.Database, oracle market.Oracle, signers SignerSource, balances BalanceReader, executor SwapExecutor, notifier notify.Notifier) *Service {
	return &Service{
		db:       db,
		oracle:   oracle,
		signers:  signers,
		balances: balances,
		executor: executor,
		notifier: notifier,
	}
}

// Run performs one full sweep. Orders are processed sequentially in creation
// order so earlier intents win when several match in the same cycle; one
// order's failure never aborts the rest. Overlapping Run invocations are
// safe: the repository claim guarantees each order executes at most once.
func (s *Service) Run(ctx context.Context) (*types.SweepResults, error) {
	logger := log.With().Str("component", "sweep").Logger()

	active, err := s.db.ListActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load active orders: %w", err)
	}
	logger.Info().Int("active_count", len(active)).Msg("checking limit orders")

	results := &types.SweepResults{}
	cache := market.NewSweepCache(s.oracle)

	for i := range active {
		order := &active[i]
		results.Checked++

		data, err := cache.GetMarketData(ctx, order.TokenAddress)
		if err != nil {
			// No data this cycle. Not an error: the order is simply
			// re-checked next sweep, state untouched.
			logger.Debug().Str("order_id", order.OrderID).Str("token", order.TokenAddress).
				Msg("no market data, skipping")
			continue
		}

		trig, err := order.ParsedTrigger()
		if err != nil {
			// The stored row was modified out of band; surface it but keep
			// the order retryable.
			s.recordFailure(ctx, order, results, fmt.Sprintf("stored trigger unreadable: %v", err))
			continue
		}

		if !trigger.Satisfied(trig, data) {
			logger.Debug().Str("order_id", order.OrderID).Msg("condition not met yet")
			continue
		}

		// Claim before any side effect. A lost claim means a concurrent
		// sweep or a cancel got here first; skip silently.
		if err := s.db.ClaimForExecution(order.OrderID); err != nil {
			if errors.Is(err, orders.ErrClaimLost) {
				logger.Debug().Str("order_id", order.OrderID).Msg("order claimed elsewhere, skipping")
				continue
			}
			results.Failed++
			results.Errors = append(results.Errors, fmt.Sprintf("order %s: claim failed: %v", order.OrderID, err))
			continue
		}

		logger.Info().Str("order_id", order.OrderID).Str("trigger", trig.Describe()).
			Msg("condition met, executing")
		s.executeClaimed(ctx, order, results)
	}

	logger.Info().
		Int("checked", results.Checked).
		Int("executed", results.Executed).
		Int("failed", results.Failed).
		Msg("sweep complete")

	return results, nil
}

// executeClaimed runs the execution pipeline for an order already moved to
// the executing status, and persists the outcome.
func (s *Service) executeClaimed(ctx context.Context, order *orders.LimitOrder, results *types.SweepResults) {
	logger := log.With().Str("component", "sweep").Str("order_id", order.OrderID).Logger()

	if order.TelegramID == "" {
		// Orders created from externally signed wallets cannot be executed
		// unattended; retrying cannot change that.
		s.failTerminally(ctx, order, results,
			"no custodial signer available for this order's owner; unattended execution requires a custodial wallet")
		return
	}

	signer, err := s.signers.LookupSigner(order.TelegramID)
	if errors.Is(err, custody.ErrNoWallet) {
		s.failTerminally(ctx, order, results,
			fmt.Sprintf("no custodial wallet on file for user %s", order.TelegramID))
		return
	}
	if err != nil {
		// Includes decryption failures: surfaced and retried, never
		// swallowed.
		s.releaseWithError(ctx, order, results, fmt.Sprintf("signer lookup failed: %v", err))
		return
	}

	amount, err := order.ParsedAmount()
	if err != nil {
		s.releaseWithError(ctx, order, results, fmt.Sprintf("stored amount unreadable: %v", err))
		return
	}

	fromToken, toToken := legsFor(order)

	balance, decimals, err := s.balanceOf(ctx, signer.Address, fromToken)
	if err != nil {
		s.releaseWithError(ctx, order, results, fmt.Sprintf("balance lookup failed: %v", err))
		return
	}

	resolved, err := swap.ResolveAmount(amount, balance, decimals)
	if err != nil {
		s.releaseWithError(ctx, order, results, err.Error())
		return
	}

	txHash, err := s.executor.Execute(ctx, signer, fromToken, toToken, resolved)
	if err != nil {
		s.releaseWithError(ctx, order, results, err.Error())
		return
	}

	now := time.Now()
	if err := s.db.MarkExecuted(order.OrderID, txHash, now); err != nil {
		// The swap settled; the record must say so even if the first write
		// fails. Surface loudly.
		logger.Error().Err(err).Str("tx_hash", txHash).Msg("swap settled but status update failed")
		results.Failed++
		results.Errors = append(results.Errors, fmt.Sprintf("order %s: executed (tx %s) but status update failed: %v", order.OrderID, txHash, err))
		return
	}

	order.Status = types.StatusExecuted
	order.TxHash = txHash
	order.ExecutedAt = &now
	results.Executed++
	logger.Info().Str("tx_hash", txHash).Msg("order executed")
	s.notifier.OrderExecuted(ctx, order, txHash)
}

func (s *Service) balanceOf(ctx context.Context, account common.Address, token string) (*big.Int, uint8, error) {
	if chain.IsNative(token) {
		balance, err := s.balances.NativeBalance(ctx, account)
		return balance, nativeDecimals, err
	}

	tokenAddr := common.HexToAddress(token)
	balance, err := s.balances.TokenBalance(ctx, tokenAddr, account)
	if err != nil {
		return nil, 0, err
	}
	decimals, err := s.balances.TokenDecimals(ctx, tokenAddr)
	if err != nil {
		return nil, 0, err
	}
	return balance, decimals, nil
}

// legsFor maps an order's direction onto swap legs: buys spend the native
// asset to acquire the token, sells unwind the token back into it.
func legsFor(order *orders.LimitOrder) (fromToken, toToken string) {
	if order.Side == string(types.SideBuy) {
		return chain.NativeTokenAddress, order.TokenAddress
	}
	return order.TokenAddress, chain.NativeTokenAddress
}

// failTerminally ends a claimed order that structurally cannot succeed.
func (s *Service) failTerminally(ctx context.Context, order *orders.LimitOrder, results *types.SweepResults, reason string) {
	if err := s.db.MarkFailed(order.OrderID, reason); err != nil {
		log.Error().Err(err).Str("component", "sweep").Str("order_id", order.OrderID).
			Msg("failed to mark order failed")
	}
	order.Status = types.StatusFailed
	order.ErrorMessage = reason
	results.Failed++
	results.Errors = append(results.Errors, fmt.Sprintf("order %s: %s", order.OrderID, reason))
	s.notifier.OrderFailed(ctx, order, reason)
}

// releaseWithError returns a claimed order to the active pool after a
// transient failure; it stays eligible for the next sweep.
func (s *Service) releaseWithError(ctx context.Context, order *orders.LimitOrder, results *types.SweepResults, reason string) {
	if err := s.db.ReleaseToActive(order.OrderID, reason); err != nil {
		log.Error().Err(err).Str("component", "sweep").Str("order_id", order.OrderID).
			Msg("failed to release claimed order")
	}
	order.ErrorMessage = reason
	results.Failed++
	results.Errors = append(results.Errors, fmt.Sprintf("order %s: %s", order.OrderID, reason))
	s.notifier.OrderFailed(ctx, order, reason)
}

// recordFailure notes an error on an unclaimed order without changing its
// status.
func (s *Service) recordFailure(ctx context.Context, order *orders.LimitOrder, results *types.SweepResults, reason string) {
	if err := s.db.ClaimForExecution(order.OrderID); err != nil {
		return
	}
	s.releaseWithError(ctx, order, results, reason)
}

// GinHandlers contains HTTP handlers for the sweep trigger endpoint.
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

// TriggerSweepHandler handles POST requests from the periodic caller. The
// route is protected by the shared-secret middleware; the body is empty.
// Invoking it concurrently is safe thanks to the repository claim.
func (h *GinHandlers) TriggerSweepHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := h.service.Run(c.Request.Context())
		response.Handle(c, results, err)
	}
}
