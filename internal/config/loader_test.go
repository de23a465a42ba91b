package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom with missing file: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Decision.Provider != "static" {
		t.Errorf("expected default provider static, got %s", cfg.Decision.Provider)
	}
	if cfg.Risk.GateThreshold != 70 {
		t.Errorf("expected default gate threshold 70, got %v", cfg.Risk.GateThreshold)
	}
	if cfg.Swarm.MaxAgents != 32 {
		t.Errorf("expected default max agents 32, got %d", cfg.Swarm.MaxAgents)
	}
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainswarm.yaml")
	yaml := `
server:
  port: "9090"
risk:
  gate_threshold: 55
  deny_addresses:
    - "0x000000000000000000000000000000000000dead"
chain:
  snapshot_ttl: 30s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected yaml port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Risk.GateThreshold != 55 {
		t.Errorf("expected yaml gate threshold 55, got %v", cfg.Risk.GateThreshold)
	}
	if len(cfg.Risk.DenyAddresses) != 1 {
		t.Errorf("expected 1 deny address, got %v", cfg.Risk.DenyAddresses)
	}
	if cfg.Chain.SnapshotTTL != 30*time.Second {
		t.Errorf("expected 30s snapshot ttl, got %v", cfg.Chain.SnapshotTTL)
	}
	// untouched sections keep their defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default nats url, got %s", cfg.NATS.URL)
	}
}

func TestLoadFromEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainswarm.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CHAINSWARM_PORT", "7070")
	t.Setenv("CHAINSWARM_DECISION_PROVIDER", "anthropic")
	t.Setenv("CHAINSWARM_RISK_DENY_ADDRESSES", "0xabc, 0xdef")
	t.Setenv("CHAINSWARM_OTEL_ENABLED", "true")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env must override yaml, got port %s", cfg.Server.Port)
	}
	if cfg.Decision.Provider != "anthropic" {
		t.Errorf("expected env provider anthropic, got %s", cfg.Decision.Provider)
	}
	if len(cfg.Risk.DenyAddresses) != 2 || cfg.Risk.DenyAddresses[1] != "0xdef" {
		t.Errorf("expected trimmed deny list, got %v", cfg.Risk.DenyAddresses)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("expected telemetry enabled from env")
	}
}

func TestLoadFromMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chainswarm.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port"},
		{"empty dsn", func(c *Config) { c.Postgres.DSN = "" }, "postgres.dsn"},
		{"empty nats", func(c *Config) { c.NATS.URL = "" }, "nats.url"},
		{"zero max conns", func(c *Config) { c.Postgres.MaxConns = 0 }, "postgres.max_conns"},
		{"bad provider", func(c *Config) { c.Decision.Provider = "oracle" }, "decision.provider"},
		{"threshold above range", func(c *Config) { c.Risk.GateThreshold = 101 }, "gate_threshold"},
		{"threshold below range", func(c *Config) { c.Risk.GateThreshold = -1 }, "gate_threshold"},
		{"zero top k", func(c *Config) { c.Knowledge.TopK = 0 }, "top_k"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Defaults()
			c.mutate(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", c.wantErr, err)
			}
		})
	}
}
