// Package agent defines the agent domain entities: the closed set of agent
// types, the immutable configuration snapshot, the persona descriptors that
// differentiate the domain variants, and the response produced by a single
// prompt-processing call.
package agent

import (
	"errors"
	"time"
)

// Type identifies one of the built-in domain personas.
type Type string

const (
	TypeTreasury   Type = "treasury"
	TypeDeFi       Type = "defi"
	TypeNFT        Type = "nft"
	TypeGovernance Type = "governance"
	TypeDonation   Type = "donation"
)

// ErrUnknownType indicates a requested agent type outside the closed set.
var ErrUnknownType = errors.New("unknown agent type")

// Types returns the closed set of supported agent types.
func Types() []Type {
	return []Type{TypeTreasury, TypeDeFi, TypeNFT, TypeGovernance, TypeDonation}
}

// ValidType reports whether t is a known agent type.
func ValidType(t string) bool {
	switch Type(t) {
	case TypeTreasury, TypeDeFi, TypeNFT, TypeGovernance, TypeDonation:
		return true
	}
	return false
}

// Config is the immutable configuration snapshot handed to an agent at
// construction. Metadata["created_at"] is stamped by the factory.
type Config struct {
	ID             string         `json:"id"`
	Type           Type           `json:"type"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Objectives     []string       `json:"objectives"`
	PromptPreamble string         `json:"prompt_preamble,omitempty"`
	Metadata       map[string]any `json:"metadata"`
}

// Clone returns a deep copy so callers cannot mutate a live agent's snapshot.
func (c Config) Clone() Config {
	out := c
	out.Objectives = append([]string(nil), c.Objectives...)
	if c.Metadata != nil {
		out.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Persona is the preamble + objectives pair that differentiates one domain
// agent from another. Variants are data, not subtypes.
type Persona struct {
	Preamble   string
	Objectives []string
}

// builtinPersonas pins the default persona per agent type.
var builtinPersonas = map[Type]Persona{
	TypeTreasury: {
		Preamble: "You are a treasury management agent. You oversee on-chain treasury " +
			"balances, plan transfers and rebalancing across assets, and protect " +
			"principal above all other considerations.",
		Objectives: []string{
			"Maintain a complete, current view of treasury balances across chains",
			"Plan transfers with minimal fee overhead and no custody risk",
			"Flag any transaction that draws down reserves below policy thresholds",
		},
	},
	TypeDeFi: {
		Preamble: "You are a DeFi strategy agent. You evaluate lending, staking, and " +
			"liquidity positions, and propose yield strategies with explicit, " +
			"quantified risk.",
		Objectives: []string{
			"Identify yield opportunities consistent with the configured risk budget",
			"Quantify impermanent loss, slippage, and protocol exposure before proposing",
			"Prefer battle-tested protocols over marginal yield improvements",
		},
	},
	TypeNFT: {
		Preamble: "You are an NFT operations agent. You handle collection analysis, " +
			"mint and listing plans, and royalty accounting for non-fungible assets.",
		Objectives: []string{
			"Track floor prices and liquidity for held collections",
			"Plan mints and listings with accurate fee and royalty accounting",
			"Surface wash-trading and thin-liquidity signals before any purchase",
		},
	},
	TypeGovernance: {
		Preamble: "You are a governance agent. You digest proposals, model voting " +
			"outcomes, and prepare vote transactions that reflect the organisation's " +
			"stated positions.",
		Objectives: []string{
			"Summarise active proposals with their on-chain execution payloads",
			"Recommend votes consistent with recorded policy positions",
			"Never delegate voting power without an explicit instruction",
		},
	},
	TypeDonation: {
		Preamble: "You are a donation agent. You plan charitable disbursements, verify " +
			"recipient addresses, and keep an auditable record of every grant.",
		Objectives: []string{
			"Verify recipient addresses against the approved registry before planning",
			"Batch small disbursements to reduce fee overhead",
			"Produce an auditable memo for every planned grant",
		},
	},
}

// PersonaFor returns the built-in persona for the given type.
func PersonaFor(t Type) (Persona, bool) {
	p, ok := builtinPersonas[t]
	if !ok {
		return Persona{}, false
	}
	// Copy the slice so callers can layer overrides without touching the table.
	p.Objectives = append([]string(nil), p.Objectives...)
	return p, true
}

// RiskSummary aggregates the per-transaction validations of one response.
// AggregateScore is the arithmetic mean of the evaluated scores and 0 when
// no transactions were proposed.
type RiskSummary struct {
	AggregateScore float64      `json:"aggregate_score"`
	Evaluations    []Evaluation `json:"evaluations"`
}

// Evaluation pairs a proposed transaction reference with its risk verdict.
type Evaluation struct {
	TransactionID   string   `json:"transaction_id,omitempty"`
	Valid           bool     `json:"valid"`
	RiskScore       float64  `json:"risk_score"`
	Warnings        []string `json:"warnings,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Response is the terminal artifact of one prompt-processing call. The core
// does not persist it; the storage glue may.
type Response struct {
	AgentID         string      `json:"agent_id"`
	Type            Type        `json:"type"`
	Reasoning       string      `json:"reasoning"`
	Plan            Plan        `json:"plan"`
	Risk            RiskSummary `json:"risk"`
	Recommendations []string    `json:"recommendations"`
	ProcessedAt     time.Time   `json:"processed_at"`
}
