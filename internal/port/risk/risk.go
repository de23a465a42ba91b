// Package risk defines the risk-evaluation port (interface): the pluggable
// component that scores a proposed transaction for validity and risk.
package risk

import "context"

// Transaction describes a proposed on-chain operation submitted for scoring.
// The core never submits transactions; it only gates them.
type Transaction struct {
	ID       string         `json:"id,omitempty"`
	Kind     string         `json:"kind"` // transfer, swap, stake, vote, mint, ...
	From     string         `json:"from,omitempty"`
	To       string         `json:"to,omitempty"`
	Asset    string         `json:"asset,omitempty"`
	Value    string         `json:"value,omitempty"` // decimal string in the asset's base unit
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validation is the verdict for one proposed transaction.
type Validation struct {
	Valid           bool     `json:"valid"`
	RiskScore       float64  `json:"risk_score"` // 0 (none) .. 100 (certain loss)
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Validator scores proposed transactions. Failures propagate to the caller
// unmodified; the core adds no retry, timeout, or circuit breaking.
type Validator interface {
	ValidateTransaction(ctx context.Context, tx Transaction) (Validation, error)
}
