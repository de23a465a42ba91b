package agent

import "testing"

func TestValidType(t *testing.T) {
	for _, typ := range Types() {
		if !ValidType(string(typ)) {
			t.Errorf("built-in type %s must be valid", typ)
		}
	}
	if ValidType("astrology") {
		t.Error("unknown type must be invalid")
	}
	if ValidType("") {
		t.Error("empty type must be invalid")
	}
}

func TestPersonaForAllTypes(t *testing.T) {
	for _, typ := range Types() {
		p, ok := PersonaFor(typ)
		if !ok {
			t.Errorf("missing persona for %s", typ)
			continue
		}
		if p.Preamble == "" || len(p.Objectives) == 0 {
			t.Errorf("persona for %s must carry a preamble and objectives", typ)
		}
	}
	if _, ok := PersonaFor(Type("astrology")); ok {
		t.Error("unknown type must have no persona")
	}
}

func TestPersonaForReturnsCopy(t *testing.T) {
	p, _ := PersonaFor(TypeTreasury)
	p.Objectives[0] = "mutated"
	fresh, _ := PersonaFor(TypeTreasury)
	if fresh.Objectives[0] == "mutated" {
		t.Error("mutating a returned persona must not touch the builtin table")
	}
}

func TestConfigClone(t *testing.T) {
	cfg := Config{
		ID:         "a1",
		Type:       TypeDeFi,
		Objectives: []string{"one"},
		Metadata:   map[string]any{"k": "v"},
	}
	clone := cfg.Clone()
	clone.Objectives[0] = "mutated"
	clone.Metadata["k"] = "mutated"

	if cfg.Objectives[0] != "one" {
		t.Error("clone must not share the objectives slice")
	}
	if cfg.Metadata["k"] != "v" {
		t.Error("clone must not share the metadata map")
	}
}
