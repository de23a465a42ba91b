package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/domain/swarm"
	"github.com/voltaic-labs/chainswarm/internal/port/decision"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
)

// stubValidator returns canned validations keyed by transaction ID.
type stubValidator struct {
	verdicts map[string]risk.Validation
	err      error
}

func (v *stubValidator) ValidateTransaction(_ context.Context, tx risk.Transaction) (risk.Validation, error) {
	if v.err != nil {
		return risk.Validation{}, v.err
	}
	return v.verdicts[tx.ID], nil
}

func echoDecider(reply string) decision.Decider {
	return decision.Func(func(_ context.Context, _ string, _ map[string]any) (string, error) {
		return reply, nil
	})
}

func testConfig() agent.Config {
	return agent.Config{
		ID:             "t-1",
		Type:           agent.TypeTreasury,
		Name:           "Treasury One",
		PromptPreamble: "You manage the treasury.",
		Objectives:     []string{"preserve capital", "maintain liquidity"},
	}
}

func TestProcessPromptBuildsFullPrompt(t *testing.T) {
	var captured string
	decider := decision.Func(func(_ context.Context, prompt string, _ map[string]any) (string, error) {
		captured = prompt
		return "ok", nil
	})

	a := NewAgent(testConfig(), decider, &stubValidator{})
	_, err := a.ProcessPrompt(context.Background(), "review the balances", &ProcessOptions{
		Context: map[string]any{"chain": "mainnet"},
	})
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}

	for _, want := range []string{
		"You manage the treasury.",
		"review the balances",
		"Context:",
		`"chain":"mainnet"`,
		"Objectives:",
		"1. preserve capital",
		"2. maintain liquidity",
	} {
		if !strings.Contains(captured, want) {
			t.Errorf("prompt missing %q:\n%s", want, captured)
		}
	}
}

func TestProcessPromptDeciderError(t *testing.T) {
	wantErr := errors.New("model unavailable")
	decider := decision.Func(func(_ context.Context, _ string, _ map[string]any) (string, error) {
		return "", wantErr
	})

	a := NewAgent(testConfig(), decider, &stubValidator{})
	_, err := a.ProcessPrompt(context.Background(), "anything", nil)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected decider error to propagate, got %v", err)
	}
}

func TestAssessRiskAggregateMean(t *testing.T) {
	validator := &stubValidator{verdicts: map[string]risk.Validation{
		"tx1": {Valid: true, RiskScore: 10},
		"tx2": {Valid: true, RiskScore: 20},
		"tx3": {Valid: true, RiskScore: 30},
	}}
	a := NewAgent(testConfig(), echoDecider("fine"), validator)

	resp, err := a.ProcessPrompt(context.Background(), "score these", &ProcessOptions{
		Transactions: []risk.Transaction{{ID: "tx1"}, {ID: "tx2"}, {ID: "tx3"}},
	})
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}
	if resp.Risk.AggregateScore != 20 {
		t.Errorf("expected aggregate 20, got %v", resp.Risk.AggregateScore)
	}
	if len(resp.Risk.Evaluations) != 3 {
		t.Errorf("expected 3 evaluations, got %d", len(resp.Risk.Evaluations))
	}
}

func TestAssessRiskEmptyTransactions(t *testing.T) {
	a := NewAgent(testConfig(), echoDecider("fine"), &stubValidator{})

	resp, err := a.ProcessPrompt(context.Background(), "nothing to score", nil)
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}
	if resp.Risk.AggregateScore != 0 {
		t.Errorf("aggregate must be 0 with no transactions, got %v", resp.Risk.AggregateScore)
	}
	if resp.Recommendations == nil {
		t.Error("recommendations must be an empty slice, not nil")
	}
	if len(resp.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %v", resp.Recommendations)
	}
}

func TestRecommendationPoolDeduplicates(t *testing.T) {
	validator := &stubValidator{verdicts: map[string]risk.Validation{
		"tx1": {Valid: true, RiskScore: 40, Warnings: []string{"slippage high"}},
		"tx2": {Valid: false, RiskScore: 80, Warnings: []string{"slippage high"}, Recommendations: []string{"reduce size"}},
		"tx3": {Valid: true, RiskScore: 10, Recommendations: []string{"ignored for valid tx"}},
	}}
	a := NewAgent(testConfig(), echoDecider("fine"), validator)

	resp, err := a.ProcessPrompt(context.Background(), "score", &ProcessOptions{
		Transactions: []risk.Transaction{{ID: "tx1"}, {ID: "tx2"}, {ID: "tx3"}},
	})
	if err != nil {
		t.Fatalf("ProcessPrompt: %v", err)
	}

	want := []string{"slippage high", "reduce size"}
	if len(resp.Recommendations) != len(want) {
		t.Fatalf("expected %v, got %v", want, resp.Recommendations)
	}
	for i := range want {
		if resp.Recommendations[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, resp.Recommendations)
		}
	}
}

func TestValidatorErrorPropagates(t *testing.T) {
	wantErr := errors.New("oracle down")
	a := NewAgent(testConfig(), echoDecider("fine"), &stubValidator{err: wantErr})

	_, err := a.ProcessPrompt(context.Background(), "score", &ProcessOptions{
		Transactions: []risk.Transaction{{ID: "tx1"}},
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected validator error to propagate, got %v", err)
	}
}

func TestAttachDetachSwarm(t *testing.T) {
	s := NewSwarm(0)
	a := NewAgent(testConfig(), echoDecider("fine"), &stubValidator{})

	if err := a.AttachSwarm(context.Background(), s); err != nil {
		t.Fatalf("attach: %v", err)
	}
	info, ok := s.AgentStatus("t-1")
	if !ok || info.Role != "treasury" {
		t.Fatalf("expected registered under role treasury, got %+v", info)
	}

	if err := a.AttachSwarm(context.Background(), s); !errors.Is(err, swarm.ErrAlreadyRegistered) {
		t.Fatalf("double attach must fail, got %v", err)
	}

	a.DetachSwarm()
	if _, ok := s.AgentStatus("t-1"); ok {
		t.Fatal("detach must remove the directory entry")
	}
}

func TestAgentMessageHandler(t *testing.T) {
	s := NewSwarm(0)
	sender := NewAgent(testConfig(), echoDecider("fine"), &stubValidator{})
	receiverCfg := testConfig()
	receiverCfg.ID = "d-1"
	receiverCfg.Type = agent.TypeDeFi
	receiver := NewAgent(receiverCfg, echoDecider("fine"), &stubValidator{})

	var got []swarm.Message
	receiver.SetMessageHandler(func(_ context.Context, _ *Agent, msg swarm.Message) {
		got = append(got, msg)
	})

	if err := sender.AttachSwarm(context.Background(), s); err != nil {
		t.Fatal(err)
	}
	if err := receiver.AttachSwarm(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	if _, err := sender.Send("d-1", swarm.MessageProposal, "swap idea"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(got) != 1 || got[0].Content != "swap idea" {
		t.Fatalf("expected one delivered proposal, got %v", got)
	}
}
