// Package swap quotes, builds, signs, submits and confirms settlement
// transactions through the liquidity aggregator.
package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/merlinlabs/merlin-api/internal/chain"
	"github.com/merlinlabs/merlin-api/internal/custody"
)

// Stage identifies which step of the execution pipeline failed.
type Stage string

const (
	StageQuote   Stage = "QUOTE_UNAVAILABLE"
	StageBuild   Stage = "BUILD_FAILED"
	StageSign    Stage = "SIGN_FAILED"
	StageSubmit  Stage = "SUBMIT_FAILED"
	StageConfirm Stage = "CONFIRMATION_FAILED"
)

var (
	// ErrReverted means the transaction confirmed on chain but reverted; the
	// swap definitively did not settle.
	ErrReverted = errors.New("swap: settlement transaction reverted")

	// ErrConfirmationTimeout means the transaction was submitted but never
	// confirmed within the polling window. Its final fate is unknown.
	ErrConfirmationTimeout = errors.New("swap: transaction not confirmed before timeout")
)

// ExecutionError tags a pipeline failure with the stage it happened in, so
// callers can classify outcomes without string matching.
type ExecutionError struct {
	Stage Stage
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	return &ExecutionError{Stage: stage, Err: err}
}

// ExecutorConfig holds configuration for creating an Executor.
type ExecutorConfig struct {
	Aggregator *AggregatorClient
	Chain      chain.Client
	// SubmitRetries bounds resubmission attempts on transient network
	// failures. Defaults to 3.
	SubmitRetries int
	// ConfirmTimeout bounds receipt polling. Defaults to 90 seconds.
	ConfirmTimeout time.Duration
	// ConfirmInterval is the receipt polling period. Defaults to 3 seconds.
	ConfirmInterval time.Duration
}

// Executor drives the swap pipeline for one resolved order at a time.
type Executor struct {
	aggregator      *AggregatorClient
	chain           chain.Client
	submitRetries   int
	confirmTimeout  time.Duration
	confirmInterval time.Duration
	logger          zerolog.Logger
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	retries := cfg.SubmitRetries
	if retries <= 0 {
		retries = 3
	}
	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = 90 * time.Second
	}
	confirmInterval := cfg.ConfirmInterval
	if confirmInterval == 0 {
		confirmInterval = 3 * time.Second
	}

	return &Executor{
		aggregator:      cfg.Aggregator,
		chain:           cfg.Chain,
		submitRetries:   retries,
		confirmTimeout:  confirmTimeout,
		confirmInterval: confirmInterval,
		logger:          log.With().Str("component", "swap_executor").Logger(),
	}
}

// Execute swaps exactly amount smallest units of fromToken into toToken on
// behalf of the signer. It returns the settlement transaction hash on
// success; failures carry the pipeline stage they happened in. The signer is
// only touched during the signing step.
func (e *Executor) Execute(ctx context.Context, signer *custody.Signer, fromToken, toToken string, amount *big.Int) (string, error) {
	logger := e.logger.With().
		Str("taker", signer.Address.Hex()).
		Str("from_token", fromToken).
		Str("to_token", toToken).
		Str("amount", amount.String()).
		Logger()

	quote, err := e.aggregator.Quote(ctx, fromToken, toToken, amount)
	if err != nil {
		return "", stageErr(StageQuote, err)
	}
	logger.Debug().Str("buy_amount", quote.BuyAmount).Msg("quote received")

	swapTx, err := e.aggregator.BuildSwap(ctx, quote, signer.Address.Hex())
	if err != nil {
		return "", stageErr(StageBuild, err)
	}

	signedTx, err := e.signTransaction(ctx, signer, swapTx)
	if err != nil {
		return "", stageErr(StageSign, err)
	}
	txHash := signedTx.Hash()

	if err := e.submit(ctx, signedTx); err != nil {
		return "", stageErr(StageSubmit, err)
	}
	logger.Info().Str("tx_hash", txHash.Hex()).Msg("settlement transaction submitted")

	if err := e.awaitConfirmation(ctx, txHash); err != nil {
		return "", stageErr(StageConfirm, err)
	}

	logger.Info().Str("tx_hash", txHash.Hex()).Msg("swap confirmed")
	return txHash.Hex(), nil
}

func (e *Executor) signTransaction(ctx context.Context, signer *custody.Signer, swapTx *SwapTransaction) (*coretypes.Transaction, error) {
	chainID, err := e.chain.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve chain id: %w", err)
	}
	nonce, err := e.chain.PendingNonceAt(ctx, signer.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve nonce: %w", err)
	}

	gasPrice, ok := new(big.Int).SetString(swapTx.GasPrice, 10)
	if !ok || gasPrice.Sign() <= 0 {
		gasPrice, err = e.chain.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve gas price: %w", err)
		}
	}

	value := new(big.Int)
	if swapTx.Value != "" {
		if _, ok := value.SetString(swapTx.Value, 10); !ok {
			return nil, fmt.Errorf("malformed transaction value %q", swapTx.Value)
		}
	}

	data, err := hexutil.Decode(ensureHexPrefix(swapTx.Data))
	if err != nil {
		return nil, fmt.Errorf("malformed transaction calldata: %w", err)
	}
	if !common.IsHexAddress(swapTx.To) {
		return nil, fmt.Errorf("malformed transaction target %q", swapTx.To)
	}
	to := common.HexToAddress(swapTx.To)

	tx := coretypes.NewTx(&coretypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      swapTx.Gas,
		GasPrice: gasPrice,
		Data:     data,
	})

	return coretypes.SignTx(tx, coretypes.LatestSignerForChainID(chainID), signer.Key)
}

func (e *Executor) submit(ctx context.Context, tx *coretypes.Transaction) error {
	var lastErr error
	for attempt := 1; attempt <= e.submitRetries; attempt++ {
		lastErr = e.chain.SendTransaction(ctx, tx)
		if lastErr == nil {
			return nil
		}
		// A node that already has the transaction counts as submitted.
		if strings.Contains(lastErr.Error(), "already known") {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Str("tx_hash", tx.Hash().Hex()).
			Msg("transaction submission failed")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return lastErr
}

func (e *Executor) awaitConfirmation(ctx context.Context, txHash common.Hash) error {
	deadline := time.Now().Add(e.confirmTimeout)
	ticker := time.NewTicker(e.confirmInterval)
	defer ticker.Stop()

	for {
		receipt, err := e.chain.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status == coretypes.ReceiptStatusFailed {
				return ErrReverted
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			e.logger.Debug().Err(err).Str("tx_hash", txHash.Hex()).Msg("receipt lookup failed, retrying")
		}

		if time.Now().After(deadline) {
			return ErrConfirmationTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func ensureHexPrefix(s string) string {
	if strings.HasPrefix(s, "0x") {
		return s
	}
	return "0x" + s
}
