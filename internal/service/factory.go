package service

import (
	"fmt"
	"time"

	"github.com/voltaic-labs/chainswarm/internal/domain/agent"
	"github.com/voltaic-labs/chainswarm/internal/port/decision"
	"github.com/voltaic-labs/chainswarm/internal/port/risk"
)

// TemplateOverride replaces parts of a built-in persona template. Empty
// fields keep the built-in default; overrides never silently drop fields.
type TemplateOverride struct {
	PromptPreamble string   `yaml:"prompt_preamble" json:"prompt_preamble,omitempty"`
	Objectives     []string `yaml:"objectives" json:"objectives,omitempty"`
}

// FactoryDefaults are factory-level fallbacks applied below call-site values.
type FactoryDefaults struct {
	Description string
	Objectives  []string
	Metadata    map[string]any
}

// FactoryConfig wires the ports and template table into a Factory.
type FactoryConfig struct {
	Decider   decision.Decider
	Validator risk.Validator
	Defaults  FactoryDefaults
	Templates map[agent.Type]TemplateOverride
}

// Factory is the single construction entry point for agents. It merges the
// built-in persona templates with per-type overrides once at construction;
// the merged table is immutable afterwards.
type Factory struct {
	decider   decision.Decider
	validator risk.Validator
	defaults  FactoryDefaults
	templates map[agent.Type]agent.Persona
}

// NewFactory builds a factory with the merged template table.
func NewFactory(cfg FactoryConfig) *Factory {
	templates := make(map[agent.Type]agent.Persona, len(agent.Types()))
	for _, t := range agent.Types() {
		persona, _ := agent.PersonaFor(t)
		if o, ok := cfg.Templates[t]; ok {
			if o.PromptPreamble != "" {
				persona.Preamble = o.PromptPreamble
			}
			if o.Objectives != nil {
				persona.Objectives = append([]string(nil), o.Objectives...)
			}
		}
		templates[t] = persona
	}
	return &Factory{
		decider:   cfg.Decider,
		validator: cfg.Validator,
		defaults:  cfg.Defaults,
		templates: templates,
	}
}

// CreateConfig carries the call-site values for one agent. Unset optional
// fields fall back to factory defaults, then to the persona template.
type CreateConfig struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Objectives     []string       `json:"objectives,omitempty"`
	PromptPreamble string         `json:"prompt_preamble,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Create builds a ready-to-use agent of the given type. Values layer in
// priority order: explicit call-site values, factory defaults, persona
// template. metadata["created_at"] is stamped here.
func (f *Factory) Create(t agent.Type, cc CreateConfig) (*Agent, error) {
	tmpl, ok := f.templates[t]
	if !ok {
		return nil, fmt.Errorf("create agent %q: %w", t, agent.ErrUnknownType)
	}

	cfg := agent.Config{
		ID:             cc.ID,
		Type:           t,
		Name:           cc.Name,
		Description:    firstNonEmpty(cc.Description, f.defaults.Description),
		PromptPreamble: firstNonEmpty(cc.PromptPreamble, tmpl.Preamble),
		Metadata:       map[string]any{},
	}

	switch {
	case cc.Objectives != nil:
		cfg.Objectives = append([]string(nil), cc.Objectives...)
	case f.defaults.Objectives != nil:
		cfg.Objectives = append([]string(nil), f.defaults.Objectives...)
	default:
		cfg.Objectives = append([]string(nil), tmpl.Objectives...)
	}

	for k, v := range f.defaults.Metadata {
		cfg.Metadata[k] = v
	}
	for k, v := range cc.Metadata {
		cfg.Metadata[k] = v
	}
	cfg.Metadata["created_at"] = time.Now().UTC().Format(time.RFC3339)

	return NewAgent(cfg, f.decider, f.validator), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
