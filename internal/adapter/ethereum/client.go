// Package ethereum implements the chain read port using go-ethereum's RPC client.
package ethereum

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/voltaic-labs/chainswarm/internal/port/cache"
	"github.com/voltaic-labs/chainswarm/internal/port/chain"
)

// Client implements chain.Client over a JSON-RPC endpoint. Head snapshots
// are memoized in the cache to keep the HTTP surface cheap.
type Client struct {
	eth         *ethclient.Client
	cache       cache.Cache
	snapshotTTL time.Duration
}

// Dial connects to the given RPC URL and verifies it responds.
func Dial(ctx context.Context, rpcURL string, c cache.Cache, snapshotTTL time.Duration) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("chain id: %w", err)
	}
	slog.Info("chain connected", "rpc", rpcURL, "chain_id", chainID.String())

	return &Client{eth: eth, cache: c, snapshotTTL: snapshotTTL}, nil
}

const snapshotKey = "chain:snapshot"

// Snapshot gathers chain id, head block number and suggested gas price.
func (c *Client) Snapshot(ctx context.Context) (chain.Snapshot, error) {
	if c.cache != nil {
		if data, ok, _ := c.cache.Get(ctx, snapshotKey); ok {
			var snap chain.Snapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return snap, nil
			}
		}
	}

	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return chain.Snapshot{}, fmt.Errorf("chain id: %w", err)
	}
	block, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return chain.Snapshot{}, fmt.Errorf("block number: %w", err)
	}

	snap := chain.Snapshot{
		ChainID:     chainID.String(),
		BlockNumber: block,
	}
	if gas, err := c.eth.SuggestGasPrice(ctx); err == nil {
		snap.GasPrice = gas.String()
	}

	if c.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			_ = c.cache.Set(ctx, snapshotKey, data, c.snapshotTTL)
		}
	}
	return snap, nil
}

// BalanceAt returns the balance of the address at the latest block, in wei.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	bal, err := c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("balance %s: %w", address, err)
	}
	return bal, nil
}

// SuggestGasPrice returns the node's suggested gas price in wei.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gas, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	return gas, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
