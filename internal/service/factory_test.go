package service

import (
	"errors"
	"testing"

	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
)

func newTestFactory(cfg FactoryConfig) *Factory {
	cfg.Decider = echoDecider("ok")
	cfg.Validator = &stubValidator{}
	return NewFactory(cfg)
}

func TestFactoryCreateUnknownType(t *testing.T) {
	f := newTestFactory(FactoryConfig{})
	_, err := f.Create(agent.Type("astrology"), CreateConfig{ID: "x", Name: "x"})
	if !errors.Is(err, agent.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestFactoryCreateUsesTemplate(t *testing.T) {
	f := newTestFactory(FactoryConfig{})
	a, err := f.Create(agent.TypeTreasury, CreateConfig{ID: "t-1", Name: "Treasury"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cfg := a.Config()
	persona, _ := agent.PersonaFor(agent.TypeTreasury)
	if cfg.PromptPreamble != persona.Preamble {
		t.Errorf("expected built-in preamble, got %q", cfg.PromptPreamble)
	}
	if len(cfg.Objectives) != len(persona.Objectives) {
		t.Errorf("expected built-in objectives, got %v", cfg.Objectives)
	}
	if cfg.Type != agent.TypeTreasury {
		t.Errorf("expected type treasury, got %s", cfg.Type)
	}
}

func TestFactoryLayeringPriority(t *testing.T) {
	f := newTestFactory(FactoryConfig{
		Defaults: FactoryDefaults{
			Description: "default description",
			Objectives:  []string{"default objective"},
			Metadata:    map[string]any{"team": "ops", "env": "staging"},
		},
	})

	// call-site values win over factory defaults
	a, err := f.Create(agent.TypeDeFi, CreateConfig{
		ID:          "d-1",
		Name:        "DeFi",
		Description: "explicit description",
		Objectives:  []string{"explicit objective"},
		Metadata:    map[string]any{"env": "prod"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	cfg := a.Config()
	if cfg.Description != "explicit description" {
		t.Errorf("call-site description must win, got %q", cfg.Description)
	}
	if len(cfg.Objectives) != 1 || cfg.Objectives[0] != "explicit objective" {
		t.Errorf("call-site objectives must win, got %v", cfg.Objectives)
	}
	if cfg.Metadata["env"] != "prod" || cfg.Metadata["team"] != "ops" {
		t.Errorf("call-site metadata must overlay defaults, got %v", cfg.Metadata)
	}

	// factory defaults win over the template
	b, err := f.Create(agent.TypeDeFi, CreateConfig{ID: "d-2", Name: "DeFi"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	cfg = b.Config()
	if cfg.Description != "default description" {
		t.Errorf("expected factory default description, got %q", cfg.Description)
	}
	if len(cfg.Objectives) != 1 || cfg.Objectives[0] != "default objective" {
		t.Errorf("expected factory default objectives, got %v", cfg.Objectives)
	}
}

func TestFactoryTemplateOverride(t *testing.T) {
	f := newTestFactory(FactoryConfig{
		Templates: map[agent.Type]TemplateOverride{
			agent.TypeNFT: {
				PromptPreamble: "You curate a private NFT vault.",
				Objectives:     []string{"only mint blue chips"},
			},
		},
	})

	a, err := f.Create(agent.TypeNFT, CreateConfig{ID: "n-1", Name: "Vault"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	cfg := a.Config()
	if cfg.PromptPreamble != "You curate a private NFT vault." {
		t.Errorf("expected overridden preamble, got %q", cfg.PromptPreamble)
	}
	if len(cfg.Objectives) != 1 || cfg.Objectives[0] != "only mint blue chips" {
		t.Errorf("expected overridden objectives, got %v", cfg.Objectives)
	}

	// other types keep their built-in persona
	b, err := f.Create(agent.TypeGovernance, CreateConfig{ID: "g-1", Name: "Gov"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	persona, _ := agent.PersonaFor(agent.TypeGovernance)
	if b.Config().PromptPreamble != persona.Preamble {
		t.Error("override of one type must not leak into another")
	}
}

func TestFactoryStampsCreatedAt(t *testing.T) {
	f := newTestFactory(FactoryConfig{})
	a, err := f.Create(agent.TypeDonation, CreateConfig{ID: "don-1", Name: "Grants"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	created, ok := a.Config().Metadata["created_at"].(string)
	if !ok || created == "" {
		t.Fatalf("expected created_at metadata, got %v", a.Config().Metadata)
	}
}
