package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
	"github.com/voltaic-labs/chainswarm/internal/port/decision"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
)

// MessageHandler reacts to swarm traffic delivered to an attached agent.
type MessageHandler func(ctx context.Context, a *Agent, msg swarm.Message)

// Agent wraps a persona (objectives + preamble) around the decision port,
// turns free-form reasoning into a structured plan, and aggregates risk over
// proposed transactions. All five domain variants are this one type with a
// different persona; nothing else about them differs.
type Agent struct {
	cfg       agent.Config
	decider   decision.Decider
	validator risk.Validator

	sw          *Swarm // nil when detached
	onMessage   MessageHandler
	unsubscribe func()
}

// ProcessOptions carries the optional inputs of one ProcessPrompt call.
type ProcessOptions struct {
	// Context is serialized into the prompt and forwarded to the decision port.
	Context map[string]any
	// Transactions are the proposed operations to score through the risk port.
	Transactions []risk.Transaction
}

// NewAgent builds an agent from an immutable config snapshot. Most callers
// should go through the Factory instead, which layers persona templates and
// defaults into the config.
func NewAgent(cfg agent.Config, decider decision.Decider, validator risk.Validator) *Agent {
	return &Agent{cfg: cfg.Clone(), decider: decider, validator: validator}
}

// Config returns the immutable configuration snapshot.
func (a *Agent) Config() agent.Config {
	return a.cfg.Clone()
}

// SetMessageHandler installs a custom reaction to swarm traffic. Without one,
// delivered messages are only logged.
func (a *Agent) SetMessageHandler(fn MessageHandler) {
	a.onMessage = fn
}

// ProcessPrompt runs the full decision pipeline: build the persona prompt,
// obtain reasoning from the decision port, extract a plan, and score the
// proposed transactions. Decision-port and risk-port failures propagate to
// the caller; this layer performs no retries and sets no deadlines.
func (a *Agent) ProcessPrompt(ctx context.Context, prompt string, opts *ProcessOptions) (*agent.Response, error) {
	if opts == nil {
		opts = &ProcessOptions{}
	}

	full := a.buildPrompt(prompt, opts.Context)
	reasoning, err := a.decider.Decide(ctx, full, opts.Context)
	if err != nil {
		return nil, fmt.Errorf("agent %s: decide: %w", a.cfg.ID, err)
	}

	plan := agent.ParsePlan(reasoning)

	summary, recommendations, err := a.assessRisk(ctx, opts.Transactions)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.cfg.ID, err)
	}

	return &agent.Response{
		AgentID:         a.cfg.ID,
		Type:            a.cfg.Type,
		Reasoning:       reasoning,
		Plan:            plan,
		Risk:            summary,
		Recommendations: recommendations,
		ProcessedAt:     time.Now().UTC(),
	}, nil
}

// buildPrompt assembles preamble, user prompt, serialized context, and a
// numbered objectives block.
func (a *Agent) buildPrompt(prompt string, promptCtx map[string]any) string {
	var b strings.Builder
	if a.cfg.PromptPreamble != "" {
		b.WriteString(a.cfg.PromptPreamble)
		b.WriteString("\n\n")
	}
	b.WriteString(prompt)

	if len(promptCtx) > 0 {
		if data, err := json.Marshal(promptCtx); err == nil {
			b.WriteString("\n\nContext:\n")
			b.Write(data)
		}
	}

	if len(a.cfg.Objectives) > 0 {
		b.WriteString("\n\nObjectives:\n")
		for i, obj := range a.cfg.Objectives {
			fmt.Fprintf(&b, "%d. %s\n", i+1, obj)
		}
	}
	return b.String()
}

// assessRisk validates every proposed transaction and aggregates the
// verdicts. The aggregate score is the arithmetic mean and 0 when no
// transactions were proposed. The recommendation pool collects warnings
// from every evaluation plus the recommendations of invalid ones, each
// distinct string at most once in first-seen order.
func (a *Agent) assessRisk(ctx context.Context, txs []risk.Transaction) (agent.RiskSummary, []string, error) {
	summary := agent.RiskSummary{Evaluations: make([]agent.Evaluation, 0, len(txs))}
	var pool []string
	seen := make(map[string]struct{})
	add := func(items []string) {
		for _, item := range items {
			if item == "" {
				continue
			}
			if _, dup := seen[item]; dup {
				continue
			}
			seen[item] = struct{}{}
			pool = append(pool, item)
		}
	}

	var total float64
	for _, tx := range txs {
		v, err := a.validator.ValidateTransaction(ctx, tx)
		if err != nil {
			return agent.RiskSummary{}, nil, fmt.Errorf("validate transaction %s: %w", tx.ID, err)
		}
		summary.Evaluations = append(summary.Evaluations, agent.Evaluation{
			TransactionID:   tx.ID,
			Valid:           v.Valid,
			RiskScore:       v.RiskScore,
			Warnings:        v.Warnings,
			Recommendations: v.Recommendations,
		})
		total += v.RiskScore
		add(v.Warnings)
		if !v.Valid {
			add(v.Recommendations)
		}
	}

	if n := len(summary.Evaluations); n > 0 {
		summary.AggregateScore = total / float64(n)
	}
	if pool == nil {
		pool = []string{}
	}
	return summary, pool, nil
}

// AttachSwarm registers the agent in the swarm directory under its type as
// role and subscribes it to its private message channel. The default handler
// only logs; install a custom one with SetMessageHandler before attaching.
func (a *Agent) AttachSwarm(ctx context.Context, sw *Swarm) error {
	if a.sw != nil {
		return fmt.Errorf("attach agent %s: %w", a.cfg.ID, swarm.ErrAlreadyRegistered)
	}
	if err := sw.RegisterAgent(a.cfg.ID, string(a.cfg.Type)); err != nil {
		return err
	}
	a.sw = sw
	a.unsubscribe = sw.SubscribeMessages(a.cfg.ID, func(msg swarm.Message) {
		a.handleMessage(ctx, msg)
	})
	return nil
}

// DetachSwarm unsubscribes and removes the agent from the directory.
func (a *Agent) DetachSwarm() {
	if a.sw == nil {
		return
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	a.sw.UnregisterAgent(a.cfg.ID)
	a.sw = nil
}

func (a *Agent) handleMessage(ctx context.Context, msg swarm.Message) {
	if a.onMessage != nil {
		a.onMessage(ctx, a, msg)
		return
	}
	slog.Debug("agent received message",
		"agent_id", a.cfg.ID, "message_id", msg.ID, "from", msg.From, "type", msg.Type)
}

// Send originates a direct message to another agent through the swarm.
func (a *Agent) Send(to string, typ swarm.MessageType, content any) (swarm.Message, error) {
	if a.sw == nil {
		return swarm.Message{}, fmt.Errorf("agent %s is not attached to a swarm", a.cfg.ID)
	}
	return a.sw.SendMessage(swarm.Message{
		From: a.cfg.ID, To: to, Scope: swarm.ScopeDirect, Type: typ, Content: content,
	}), nil
}

// BroadcastRole fans content out to every sibling sharing the given role.
func (a *Agent) BroadcastRole(role string, typ swarm.MessageType, content any) (swarm.Message, error) {
	if a.sw == nil {
		return swarm.Message{}, fmt.Errorf("agent %s is not attached to a swarm", a.cfg.ID)
	}
	return a.sw.SendMessage(swarm.Message{
		From: a.cfg.ID, To: swarm.Broadcast, Scope: swarm.ScopeRole, Role: role, Type: typ, Content: content,
	}), nil
}

// BroadcastGlobal fans content out to every other registered agent.
func (a *Agent) BroadcastGlobal(typ swarm.MessageType, content any) (swarm.Message, error) {
	if a.sw == nil {
		return swarm.Message{}, fmt.Errorf("agent %s is not attached to a swarm", a.cfg.ID)
	}
	return a.sw.SendMessage(swarm.Message{
		From: a.cfg.ID, To: swarm.Broadcast, Scope: swarm.ScopeGlobal, Type: typ, Content: content,
	}), nil
}
