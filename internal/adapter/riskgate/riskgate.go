// Package riskgate implements the risk port with a deterministic rule engine.
// Rules are evaluated in order; the final score is clamped to [0, 100].
// Verdicts are memoized per transaction fingerprint.
package riskgate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	otelad "github.com/voltaic-labs/chainswarm/internal/adapter/otel"
	"github.com/voltaic-labs/chainswarm/internal/config"
	"github.com/voltaic-labs/chainswarm/internal/port/cache"
	"github.com/voltaic-labs/chainswarm/internal/port/chain"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
)

// base risk scores per transaction kind
var kindScores = map[string]float64{
	"transfer": 10,
	"swap":     25,
	"stake":    15,
	"unstake":  15,
	"vote":     5,
	"mint":     20,
	"burn":     30,
	"approve":  35,
}

const unknownKindScore = 40

// Gate is a rule-based risk.Validator.
type Gate struct {
	maxTransfer  *big.Int
	warnTransfer *big.Int
	deny         map[string]struct{}
	allow        map[string]struct{}
	verdictTTL   time.Duration
	cache        cache.Cache
	chain        chain.Client // nil disables balance checks
}

// New builds a Gate from Risk config. The chain client may be nil; balance
// checks are skipped when it is absent or cfg.CheckBalances is false.
func New(cfg config.Risk, c cache.Cache, ch chain.Client) (*Gate, error) {
	g := &Gate{
		deny:       make(map[string]struct{}, len(cfg.DenyAddresses)),
		allow:      make(map[string]struct{}, len(cfg.AllowAddresses)),
		verdictTTL: cfg.VerdictTTL,
		cache:      c,
	}
	if cfg.CheckBalances {
		g.chain = ch
	}

	var ok bool
	if cfg.MaxTransferWei != "" {
		g.maxTransfer, ok = new(big.Int).SetString(cfg.MaxTransferWei, 10)
		if !ok {
			return nil, fmt.Errorf("invalid max_transfer_wei %q", cfg.MaxTransferWei)
		}
	}
	if cfg.WarnTransferWei != "" {
		g.warnTransfer, ok = new(big.Int).SetString(cfg.WarnTransferWei, 10)
		if !ok {
			return nil, fmt.Errorf("invalid warn_transfer_wei %q", cfg.WarnTransferWei)
		}
	}

	for _, a := range cfg.DenyAddresses {
		g.deny[strings.ToLower(a)] = struct{}{}
	}
	for _, a := range cfg.AllowAddresses {
		g.allow[strings.ToLower(a)] = struct{}{}
	}
	return g, nil
}

// ValidateTransaction scores the transaction against the configured rules.
func (g *Gate) ValidateTransaction(ctx context.Context, tx risk.Transaction) (risk.Validation, error) {
	ctx, span := otelad.StartRiskSpan(ctx, tx.ID, tx.Kind)
	defer span.End()

	key := fingerprint(tx)
	if g.cache != nil {
		if data, ok, _ := g.cache.Get(ctx, key); ok {
			var v risk.Validation
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
		}
	}

	v := g.evaluate(ctx, tx)

	if g.cache != nil {
		if data, err := json.Marshal(v); err == nil {
			_ = g.cache.Set(ctx, key, data, g.verdictTTL)
		}
	}
	return v, nil
}

func (g *Gate) evaluate(ctx context.Context, tx risk.Transaction) risk.Validation {
	v := risk.Validation{Valid: true}

	score, known := kindScores[strings.ToLower(tx.Kind)]
	if !known {
		score = unknownKindScore
		v.Warnings = append(v.Warnings, fmt.Sprintf("unrecognized transaction kind %q", tx.Kind))
	}
	v.RiskScore = score

	if tx.To != "" {
		to := strings.ToLower(tx.To)
		if _, denied := g.deny[to]; denied {
			v.Valid = false
			v.RiskScore = 100
			v.Warnings = append(v.Warnings, fmt.Sprintf("recipient %s is on the deny list", tx.To))
			v.Recommendations = append(v.Recommendations, "remove the denied recipient or abort the operation")
			return clamp(v)
		}
		if len(g.allow) > 0 {
			if _, allowed := g.allow[to]; !allowed {
				v.RiskScore += 20
				v.Warnings = append(v.Warnings, fmt.Sprintf("recipient %s is not on the allow list", tx.To))
				v.Recommendations = append(v.Recommendations, "verify the recipient before proceeding")
			}
		}
	}

	value, hasValue := parseWei(tx.Value)
	if hasValue {
		if g.maxTransfer != nil && value.Cmp(g.maxTransfer) > 0 {
			v.Valid = false
			v.RiskScore = 95
			v.Warnings = append(v.Warnings, fmt.Sprintf("value %s wei exceeds the transfer ceiling", tx.Value))
			v.Recommendations = append(v.Recommendations, "split the operation into smaller transfers")
		} else if g.warnTransfer != nil && value.Cmp(g.warnTransfer) > 0 {
			v.RiskScore += 25
			v.Warnings = append(v.Warnings, fmt.Sprintf("value %s wei is above the warning threshold", tx.Value))
		}
	} else if tx.Value != "" {
		v.Warnings = append(v.Warnings, fmt.Sprintf("unparseable value %q", tx.Value))
		v.RiskScore += 10
	}

	if g.chain != nil && tx.From != "" && hasValue {
		bal, err := g.chain.BalanceAt(ctx, tx.From)
		switch {
		case err != nil:
			slog.Warn("balance check failed", "from", tx.From, "error", err)
		case bal.Cmp(value) < 0:
			v.Valid = false
			v.RiskScore = 90
			v.Warnings = append(v.Warnings, fmt.Sprintf("sender %s balance is below the transfer value", tx.From))
			v.Recommendations = append(v.Recommendations, "fund the sender before retrying")
		}
	}

	return clamp(v)
}

func clamp(v risk.Validation) risk.Validation {
	if v.RiskScore > 100 {
		v.RiskScore = 100
	}
	if v.RiskScore < 0 {
		v.RiskScore = 0
	}
	return v
}

func parseWei(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, false
	}
	return n, true
}

// fingerprint derives a stable cache key from the fields that affect scoring.
func fingerprint(tx risk.Transaction) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%s", strings.ToLower(tx.Kind), strings.ToLower(tx.From), strings.ToLower(tx.To), tx.Asset, tx.Value)
	return "risk:verdict:" + hex.EncodeToString(h.Sum(nil)[:16])
}
