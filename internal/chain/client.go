// Package chain wraps JSON-RPC access to the settlement network behind a
// narrow interface so execution logic can be tested without a node.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// NativeTokenAddress is the aggregator convention for the chain's native
// asset in a swap leg.
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// IsNative reports whether a token address denotes the native asset.
func IsNative(token string) bool {
	return strings.EqualFold(token, NativeTokenAddress)
}

// Client is the subset of node operations the engine needs.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (uint8, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *coretypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error)
}

// ERC-20 selectors: balanceOf(address) and decimals().
var (
	balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}
	decimalsSelector  = []byte{0x31, 0x3c, 0xe5, 0x67}
)

// RPCClient implements Client over a go-ethereum ethclient connection.
type RPCClient struct {
	eth *ethclient.Client
}

// Dial connects to the configured RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*RPCClient, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}
	return &RPCClient{eth: eth}, nil
}

func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

func (c *RPCClient) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, account, nil)
}

// TokenBalance calls balanceOf on the token contract. A contract that does
// not answer (no code, bad token address) surfaces as an error.
func (c *RPCClient) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data := append(append([]byte{}, balanceOfSelector...), common.LeftPadBytes(account.Bytes(), 32)...)

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call failed for %s: %w", token.Hex(), err)
	}
	if len(out) < 32 {
		return nil, fmt.Errorf("malformed balanceOf response from %s", token.Hex())
	}
	return new(big.Int).SetBytes(out[:32]), nil
}

func (c *RPCClient) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: decimalsSelector}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals call failed for %s: %w", token.Hex(), err)
	}
	if len(out) < 32 {
		return 0, fmt.Errorf("malformed decimals response from %s", token.Hex())
	}
	return uint8(out[31]), nil
}

func (c *RPCClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return c.eth.PendingNonceAt(ctx, account)
}

func (c *RPCClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.eth.SuggestGasPrice(ctx)
}

func (c *RPCClient) SendTransaction(ctx context.Context, tx *coretypes.Transaction) error {
	return c.eth.SendTransaction(ctx, tx)
}

func (c *RPCClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*coretypes.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, txHash)
}
