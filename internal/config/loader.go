package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "chainswarm.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CHAINSWARM_PORT")
	setString(&cfg.Server.CORSOrigin, "CHAINSWARM_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CHAINSWARM_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CHAINSWARM_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CHAINSWARM_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CHAINSWARM_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CHAINSWARM_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Chain.RPCURL, "CHAINSWARM_RPC_URL")
	setDuration(&cfg.Chain.SnapshotTTL, "CHAINSWARM_SNAPSHOT_TTL")
	setString(&cfg.Decision.Provider, "CHAINSWARM_DECISION_PROVIDER")
	setString(&cfg.Decision.Model, "CHAINSWARM_DECISION_MODEL")
	setInt64(&cfg.Decision.MaxTokens, "CHAINSWARM_DECISION_MAX_TOKENS")
	setString(&cfg.Risk.MaxTransferWei, "CHAINSWARM_RISK_MAX_TRANSFER_WEI")
	setString(&cfg.Risk.WarnTransferWei, "CHAINSWARM_RISK_WARN_TRANSFER_WEI")
	setStrings(&cfg.Risk.DenyAddresses, "CHAINSWARM_RISK_DENY_ADDRESSES")
	setStrings(&cfg.Risk.AllowAddresses, "CHAINSWARM_RISK_ALLOW_ADDRESSES")
	setFloat64(&cfg.Risk.GateThreshold, "CHAINSWARM_RISK_GATE_THRESHOLD")
	setDuration(&cfg.Risk.VerdictTTL, "CHAINSWARM_RISK_VERDICT_TTL")
	setBool(&cfg.Risk.CheckBalances, "CHAINSWARM_RISK_CHECK_BALANCES")
	setString(&cfg.Knowledge.PersistPath, "CHAINSWARM_KNOWLEDGE_PATH")
	setString(&cfg.Knowledge.Collection, "CHAINSWARM_KNOWLEDGE_COLLECTION")
	setInt(&cfg.Knowledge.TopK, "CHAINSWARM_KNOWLEDGE_TOP_K")
	setInt(&cfg.Swarm.MaxAgents, "CHAINSWARM_SWARM_MAX_AGENTS")
	setInt64(&cfg.Cache.MaxBytes, "CHAINSWARM_CACHE_MAX_BYTES")
	setString(&cfg.Logging.Level, "CHAINSWARM_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CHAINSWARM_LOG_SERVICE")
	setBool(&cfg.Telemetry.Enabled, "CHAINSWARM_OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	switch cfg.Decision.Provider {
	case "openai", "anthropic", "static":
	default:
		return fmt.Errorf("decision.provider %q must be one of openai, anthropic, static", cfg.Decision.Provider)
	}
	if cfg.Risk.GateThreshold < 0 || cfg.Risk.GateThreshold > 100 {
		return errors.New("risk.gate_threshold must be within [0, 100]")
	}
	if cfg.Knowledge.TopK < 1 {
		return errors.New("knowledge.top_k must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStrings(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
