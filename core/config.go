package core

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the single configuration document: agents, server,
// logging, telemetry, quota, and postgres sections.
type Config struct {
	Agents    AgentsConfig    `toml:"agents"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Quota     QuotaConfig     `toml:"quota"`
	Postgres  PostgresConfig  `toml:"postgres"`
}

// AgentsConfig controls persona mode, provider wiring and tier defaults.
type AgentsConfig struct {
	Mode              string `toml:"mode"`               // "single" | "multi"
	Cloud             string `toml:"cloud"`              // e.g. "azure"
	Provider          string `toml:"provider"`           // default LLM provider tag
	DefaultTier       string `toml:"default_tier"`       // "light" | "main"
	Model             string `toml:"model"`              // main-tier model name recorded on UsageRecord
	Turbo             bool   `toml:"turbo"`              // advisory; providers may ignore
	ForcedPersona     string `toml:"forced_persona,omitempty"`
	AutoDelegate      bool   `toml:"auto_delegate"`
	QuestionThreshold string `toml:"question_threshold"` // confidence at/below which a clarification question is generated
}

// ServerConfig controls the HTTP transport surface.
type ServerConfig struct {
	Port int `toml:"port"`
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" | "json"
}

// TelemetryConfig names the usage sink path and an optional remote sink.
type TelemetryConfig struct {
	UsageLogPath  string `toml:"usage_log_path"`
	RemoteSinkURL string `toml:"remote_sink_url,omitempty"`
	EnableOTEL    bool   `toml:"enable_otel"`
}

// QuotaConfig holds the rolling-window quota limits plus an enforcement flag.
type QuotaConfig struct {
	DailyTokenLimit *int64 `toml:"daily_token_limit,omitempty"`
	WindowHours     int    `toml:"window_hours"`
	TurnReserve     int64  `toml:"turn_reserve"` // tokens reserved for an incoming turn at admission
	Enforce         bool   `toml:"enforce"`
}

// PostgresConfig configures the optional Postgres-backed AnalyticalStore.
type PostgresConfig struct {
	DSN      string `toml:"dsn,omitempty"`
	Enabled  bool   `toml:"enabled"`
	MaxConns int32  `toml:"max_conns"`
}

// LoadConfig loads and defaults the configuration document from a TOML file.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML configuration: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Agents.DefaultTier == "" {
		cfg.Agents.DefaultTier = "light"
	}
	if cfg.Agents.Model == "" {
		cfg.Agents.Model = "gpt-4o"
	}
	if cfg.Agents.QuestionThreshold == "" {
		cfg.Agents.QuestionThreshold = "low"
	}
	if cfg.Quota.WindowHours == 0 {
		cfg.Quota.WindowHours = 24
	}
	if cfg.Quota.TurnReserve == 0 {
		cfg.Quota.TurnReserve = 100
	}
	if cfg.Telemetry.UsageLogPath == "" {
		cfg.Telemetry.UsageLogPath = "usage.log"
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 4
	}
}
