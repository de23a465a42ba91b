// Package chain defines the blockchain read port (interface). The service
// never submits transactions; the port exposes only the read calls the risk
// engine and the HTTP surface need.
package chain

import (
	"context"
	"math/big"
)

// Snapshot is lightweight metadata about the chain head.
type Snapshot struct {
	ChainID     string `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	GasPrice    string `json:"gas_price,omitempty"` // wei, decimal string
}

// Client is the port interface for read-only chain access.
type Client interface {
	// Snapshot gathers chain id and head block number.
	Snapshot(ctx context.Context) (Snapshot, error)

	// BalanceAt returns the balance of the address at the latest block, in wei.
	BalanceAt(ctx context.Context, address string) (*big.Int, error)

	// SuggestGasPrice returns the node's suggested gas price in wei.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// Close releases network connections held by the client.
	Close()
}
