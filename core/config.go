package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a mindhive process. It follows the
// same three-layer priority as gomind's configuration:
//  1. Default values (lowest priority)
//  2. Environment variables
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("mastermind-prime"),
//	    WithDataDir("/var/lib/mindhive"),
//	)
type Config struct {
	Name      string `json:"name" env:"MINDHIVE_AGENT_NAME" default:"mindhive"`
	ID        string `json:"id" env:"MINDHIVE_AGENT_ID"`
	Namespace string `json:"namespace" env:"MINDHIVE_NAMESPACE" default:"default"`
	DataDir   string `json:"data_dir" env:"MINDHIVE_DATA_DIR" default:"./data"`

	Identity    IdentityConfig    `json:"identity"`
	Guardian    GuardianConfig    `json:"guardian"`
	Belief      BeliefConfig      `json:"belief"`
	Memory      MemoryConfig      `json:"memory"`
	Coordinator CoordinatorConfig `json:"coordinator"`
	BDI         BDIConfig         `json:"bdi"`
	Cognition   CognitionConfig   `json:"cognition"`
	Strategy    StrategyConfig    `json:"strategy"`
	Audit       AuditConfig       `json:"audit"`
	Resilience  ResilienceConfig  `json:"resilience"`
	Tools       ToolsConfig       `json:"tools"`
	Telemetry   TelemetryConfig   `json:"telemetry"`
	Logging     LoggingConfig     `json:"logging"`
	Development DevelopmentConfig `json:"development"`

	logger Logger `json:"-"`
}

// IdentityConfig tunes the IDManager's sealed key store.
type IdentityConfig struct {
	KeyStorePath string `json:"key_store_path" env:"MINDHIVE_KEYSTORE_PATH" default:"./data/identity.env"`
}

// GuardianConfig tunes the admission-control challenge/response protocol.
type GuardianConfig struct {
	AgentID               string        `json:"agent_id" env:"MINDHIVE_GUARDIAN_ID" default:"guardian_agent_main"`
	ChallengeExpiry       time.Duration `json:"challenge_expiry" env:"MINDHIVE_GUARDIAN_CHALLENGE_EXPIRY" default:"5m"`
	RegistryPath          string        `json:"registry_path" env:"MINDHIVE_AGENT_REGISTRY_PATH" default:"./data/official_agents_registry.json"`
	RequireWorkspaceCheck bool          `json:"require_workspace_check" env:"MINDHIVE_GUARDIAN_REQUIRE_WORKSPACE" default:"true"`
}

// BeliefConfig tunes the shared BeliefSystem's snapshot persistence.
type BeliefConfig struct {
	SnapshotPath string `json:"snapshot_path" env:"MINDHIVE_BELIEFS_PATH" default:"./data/beliefs.json"`
	Persist      bool   `json:"persist" env:"MINDHIVE_BELIEFS_PERSIST" default:"true"`
}

// MemoryConfig tunes the MemoryAgent process-trace store.
type MemoryConfig struct {
	Provider  string `json:"provider" env:"MINDHIVE_MEMORY_PROVIDER" default:"file"`
	TracesDir string `json:"traces_dir" env:"MINDHIVE_TRACES_DIR" default:"./data/traces"`
	RedisURL  string `json:"redis_url" env:"MINDHIVE_REDIS_URL,REDIS_URL"`
}

// CoordinatorConfig tunes the agent/tool registries and improvement backlog.
type CoordinatorConfig struct {
	AgentRegistryPath string `json:"agent_registry_path" env:"MINDHIVE_AGENT_REGISTRY_PATH" default:"./data/official_agents_registry.json"`
	ToolRegistryPath  string `json:"tool_registry_path" env:"MINDHIVE_TOOL_REGISTRY_PATH" default:"./data/official_tools_registry.json"`
	BacklogPath       string `json:"backlog_path" env:"MINDHIVE_BACKLOG_PATH" default:"./data/improvement_backlog.json"`
	RedisURL          string `json:"redis_url" env:"MINDHIVE_REDIS_URL,REDIS_URL"`
}

// BDIConfig tunes the BDI executor's plan-execution limits.
type BDIConfig struct {
	MaxReplans int `json:"max_replans" env:"MINDHIVE_BDI_MAX_REPLANS" default:"3"`
}

// CognitionConfig tunes the AGInt perceive-orient-decide-act loop.
type CognitionConfig struct {
	CycleDelay           time.Duration `json:"cycle_delay" env:"MINDHIVE_AGINT_CYCLE_DELAY" default:"5s"`
	LLMFailureCooldown   time.Duration `json:"llm_failure_cooldown" env:"MINDHIVE_AGINT_LLM_COOLDOWN" default:"30s"`
	BDIDelegationCycles  int           `json:"bdi_delegation_cycles" env:"MINDHIVE_AGINT_BDI_CYCLES" default:"20"`
}

// StrategyConfig tunes the Mastermind strategic planner.
type StrategyConfig struct {
	AgentID               string `json:"agent_id" env:"MINDHIVE_MASTERMIND_ID" default:"mastermind_prime"`
	CampaignHistoryPath   string `json:"campaign_history_path" env:"MINDHIVE_CAMPAIGN_HISTORY_PATH" default:"./data/mastermind_campaigns_history.json"`
	MaxBDICyclesPerRun    int    `json:"max_bdi_cycles_per_run" env:"MINDHIVE_MASTERMIND_MAX_BDI_CYCLES" default:"25"`
}

// AuditConfig tunes the recurring audit→backlog injection loop.
type AuditConfig struct {
	Interval      time.Duration `json:"interval" env:"MINDHIVE_AUDIT_INTERVAL" default:"1h"`
	Enabled       bool          `json:"enabled" env:"MINDHIVE_AUDIT_ENABLED" default:"true"`
	MinConfidence float64       `json:"min_confidence" env:"MINDHIVE_AUDIT_MIN_CONFIDENCE" default:"0.5"`
}

// ResilienceConfig mirrors gomind's retry/circuit-breaker knobs.
type ResilienceConfig struct {
	CircuitBreakerThreshold int           `json:"circuit_breaker_threshold" env:"MINDHIVE_CB_THRESHOLD" default:"5"`
	CircuitBreakerTimeout   time.Duration `json:"circuit_breaker_timeout" env:"MINDHIVE_CB_TIMEOUT" default:"30s"`
	RetryMaxAttempts        int           `json:"retry_max_attempts" env:"MINDHIVE_RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialInterval    time.Duration `json:"retry_initial_interval" env:"MINDHIVE_RETRY_INITIAL_INTERVAL" default:"100ms"`
}

// ToolsConfig tunes the tool registry's network-facing tools.
type ToolsConfig struct {
	WebSearchEndpoint string `json:"web_search_endpoint" env:"MINDHIVE_WEB_SEARCH_ENDPOINT"`
}

// TelemetryConfig tunes the OpenTelemetry-backed Telemetry implementation.
// Traces export via OTLP/gRPC when OTLPEndpoint is set, and fall back to a
// pretty-printed stdout exporter otherwise, so a developer running without a
// collector still sees spans instead of silently losing them.
type TelemetryConfig struct {
	Enabled      bool   `json:"enabled" env:"MINDHIVE_TELEMETRY_ENABLED" default:"false"`
	OTLPEndpoint string `json:"otlp_endpoint" env:"MINDHIVE_OTLP_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoggingConfig controls ProductionLogger output.
type LoggingConfig struct {
	Level  string `json:"level" env:"MINDHIVE_LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"MINDHIVE_LOG_FORMAT" default:"json"`
	Output string `json:"output" env:"MINDHIVE_LOG_OUTPUT" default:"stdout"`
}

// DevelopmentConfig enables local-friendly defaults (pretty logs, mock
// discovery backends instead of Redis).
type DevelopmentConfig struct {
	Enabled       bool `json:"enabled" env:"MINDHIVE_DEV_MODE" default:"false"`
	DebugLogging  bool `json:"debug_logging" env:"MINDHIVE_DEBUG" default:"false"`
	PrettyLogs    bool `json:"pretty_logs" env:"MINDHIVE_PRETTY_LOGS" default:"false"`
	MockDiscovery bool `json:"mock_discovery" env:"MINDHIVE_MOCK_DISCOVERY" default:"false"`
}

// Option configures a Config during NewConfig.
type Option func(*Config) error

// DefaultConfig returns a Config populated with the struct-tag defaults
// above, independent of environment or functional options.
func DefaultConfig() *Config {
	return &Config{
		Name:      "mindhive",
		Namespace: "default",
		DataDir:   "./data",
		Identity: IdentityConfig{
			KeyStorePath: "./data/identity.env",
		},
		Guardian: GuardianConfig{
			AgentID:               "guardian_agent_main",
			ChallengeExpiry:       5 * time.Minute,
			RegistryPath:          "./data/official_agents_registry.json",
			RequireWorkspaceCheck: true,
		},
		Belief: BeliefConfig{
			SnapshotPath: "./data/beliefs.json",
			Persist:      true,
		},
		Memory: MemoryConfig{
			Provider:  "file",
			TracesDir: "./data/traces",
		},
		Coordinator: CoordinatorConfig{
			AgentRegistryPath: "./data/official_agents_registry.json",
			ToolRegistryPath:  "./data/official_tools_registry.json",
			BacklogPath:       "./data/improvement_backlog.json",
		},
		BDI: BDIConfig{
			MaxReplans: 3,
		},
		Cognition: CognitionConfig{
			CycleDelay:          5 * time.Second,
			LLMFailureCooldown:  30 * time.Second,
			BDIDelegationCycles: 20,
		},
		Strategy: StrategyConfig{
			AgentID:             "mastermind_prime",
			CampaignHistoryPath: "./data/mastermind_campaigns_history.json",
			MaxBDICyclesPerRun:  25,
		},
		Audit: AuditConfig{
			Interval:      time.Hour,
			Enabled:       true,
			MinConfidence: 0.5,
		},
		Resilience: ResilienceConfig{
			CircuitBreakerThreshold: 5,
			CircuitBreakerTimeout:   30 * time.Second,
			RetryMaxAttempts:        3,
			RetryInitialInterval:    100 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Development: DevelopmentConfig{},
	}
}

// LoadFromEnv overlays environment variables on top of the current values.
// Env vars take precedence over defaults but are overridden by functional
// options applied afterward in NewConfig. Each variable is read explicitly
// below; the struct's env tags are not read. MINDHIVE_AUDIT_MIN_CONFIDENCE,
// MINDHIVE_CB_THRESHOLD, MINDHIVE_CB_TIMEOUT, MINDHIVE_RETRY_MAX_ATTEMPTS,
// MINDHIVE_RETRY_INITIAL_INTERVAL, MINDHIVE_PRETTY_LOGS and
// MINDHIVE_MOCK_DISCOVERY appear as tags but are not loaded from the
// environment.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("MINDHIVE_AGENT_NAME"); v != "" {
		c.Name = v
	}
	if v := os.Getenv("MINDHIVE_AGENT_ID"); v != "" {
		c.ID = v
	}
	if v := os.Getenv("MINDHIVE_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("MINDHIVE_DATA_DIR"); v != "" {
		c.DataDir = v
	}

	if v := os.Getenv("MINDHIVE_KEYSTORE_PATH"); v != "" {
		c.Identity.KeyStorePath = v
	}

	if v := os.Getenv("MINDHIVE_GUARDIAN_ID"); v != "" {
		c.Guardian.AgentID = v
	}
	if v := os.Getenv("MINDHIVE_GUARDIAN_CHALLENGE_EXPIRY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Guardian.ChallengeExpiry = d
		}
	}
	if v := os.Getenv("MINDHIVE_AGENT_REGISTRY_PATH"); v != "" {
		c.Guardian.RegistryPath = v
		c.Coordinator.AgentRegistryPath = v
	}
	if v := os.Getenv("MINDHIVE_GUARDIAN_REQUIRE_WORKSPACE"); v != "" {
		c.Guardian.RequireWorkspaceCheck = parseBool(v)
	}

	if v := os.Getenv("MINDHIVE_BELIEFS_PATH"); v != "" {
		c.Belief.SnapshotPath = v
	}
	if v := os.Getenv("MINDHIVE_BELIEFS_PERSIST"); v != "" {
		c.Belief.Persist = parseBool(v)
	}

	if v := os.Getenv("MINDHIVE_MEMORY_PROVIDER"); v != "" {
		c.Memory.Provider = v
	}
	if v := os.Getenv("MINDHIVE_TRACES_DIR"); v != "" {
		c.Memory.TracesDir = v
	}
	if v := firstNonEmpty(os.Getenv("MINDHIVE_REDIS_URL"), os.Getenv("REDIS_URL")); v != "" {
		c.Memory.RedisURL = v
		c.Coordinator.RedisURL = v
	}

	if v := os.Getenv("MINDHIVE_TOOL_REGISTRY_PATH"); v != "" {
		c.Coordinator.ToolRegistryPath = v
	}
	if v := os.Getenv("MINDHIVE_BACKLOG_PATH"); v != "" {
		c.Coordinator.BacklogPath = v
	}

	if v := os.Getenv("MINDHIVE_BDI_MAX_REPLANS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BDI.MaxReplans = n
		}
	}

	if v := os.Getenv("MINDHIVE_AGINT_CYCLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cognition.CycleDelay = d
		}
	}
	if v := os.Getenv("MINDHIVE_AGINT_LLM_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cognition.LLMFailureCooldown = d
		}
	}
	if v := os.Getenv("MINDHIVE_AGINT_BDI_CYCLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cognition.BDIDelegationCycles = n
		}
	}

	if v := os.Getenv("MINDHIVE_MASTERMIND_ID"); v != "" {
		c.Strategy.AgentID = v
	}
	if v := os.Getenv("MINDHIVE_CAMPAIGN_HISTORY_PATH"); v != "" {
		c.Strategy.CampaignHistoryPath = v
	}
	if v := os.Getenv("MINDHIVE_MASTERMIND_MAX_BDI_CYCLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Strategy.MaxBDICyclesPerRun = n
		}
	}

	if v := os.Getenv("MINDHIVE_AUDIT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Audit.Interval = d
		}
	}
	if v := os.Getenv("MINDHIVE_AUDIT_ENABLED"); v != "" {
		c.Audit.Enabled = parseBool(v)
	}

	if v := os.Getenv("MINDHIVE_WEB_SEARCH_ENDPOINT"); v != "" {
		c.Tools.WebSearchEndpoint = v
	}

	if v := os.Getenv("MINDHIVE_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := firstNonEmpty(os.Getenv("MINDHIVE_OTLP_ENDPOINT"), os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}

	if v := os.Getenv("MINDHIVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MINDHIVE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("MINDHIVE_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}

	if v := os.Getenv("MINDHIVE_DEV_MODE"); v != "" {
		c.Development.Enabled = parseBool(v)
	}
	if v := os.Getenv("MINDHIVE_DEBUG"); v != "" {
		c.Development.DebugLogging = parseBool(v)
	}

	return c.Validate()
}

// LoadFromFile merges YAML configuration from path into c. Only non-zero
// fields present in the file override the current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Validate checks invariants that must hold before a Config is usable.
func (c *Config) Validate() error {
	if c.Name == "" {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "name is required", Err: ErrInvalidConfiguration}
	}
	if c.Guardian.ChallengeExpiry <= 0 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "guardian.challenge_expiry must be positive", Err: ErrInvalidConfiguration}
	}
	if c.Cognition.CycleDelay <= 0 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "cognition.cycle_delay must be positive", Err: ErrInvalidConfiguration}
	}
	if c.Audit.MinConfidence < 0 || c.Audit.MinConfidence > 1 {
		return &FrameworkError{Op: "Config.Validate", Kind: "config", Message: "audit.min_confidence must be in [0,1]", Err: ErrInvalidConfiguration}
	}
	return nil
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// WithName sets the agent/process name.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithID sets an explicit process/agent ID instead of one generated at runtime.
func WithID(id string) Option {
	return func(c *Config) error {
		c.ID = id
		return nil
	}
}

// WithDataDir sets the root directory for all flat-file stores (registries,
// backlog, belief snapshot, traces) that don't have an explicit path override.
func WithDataDir(dir string) Option {
	return func(c *Config) error {
		c.DataDir = dir
		c.Identity.KeyStorePath = filepath.Join(dir, "identity.env")
		c.Guardian.RegistryPath = filepath.Join(dir, "official_agents_registry.json")
		c.Belief.SnapshotPath = filepath.Join(dir, "beliefs.json")
		c.Memory.TracesDir = filepath.Join(dir, "traces")
		c.Coordinator.AgentRegistryPath = filepath.Join(dir, "official_agents_registry.json")
		c.Coordinator.ToolRegistryPath = filepath.Join(dir, "official_tools_registry.json")
		c.Coordinator.BacklogPath = filepath.Join(dir, "improvement_backlog.json")
		c.Strategy.CampaignHistoryPath = filepath.Join(dir, "mastermind_campaigns_history.json")
		return nil
	}
}

// WithRedisURL enables a shared-state backend for memory traces and the
// coordinator's backlog/registry mirrors.
func WithRedisURL(url string) Option {
	return func(c *Config) error {
		c.Memory.RedisURL = url
		c.Coordinator.RedisURL = url
		return nil
	}
}

// WithLogLevel overrides the logging level ("debug", "info", "warn", "error").
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = strings.ToLower(level)
		return nil
	}
}

// WithLogFormat overrides the logging format ("json" or "text").
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithDevelopmentMode toggles pretty logs and mock discovery backends for
// local runs without Redis.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		c.Development.PrettyLogs = enabled
		c.Development.MockDiscovery = enabled
		if enabled {
			c.Logging.Format = "text"
		}
		return nil
	}
}

// WithConfigFile loads YAML configuration from path at the point in the
// option list where it appears. NewConfig applies the options both before
// and after reading the environment, so values from the file override
// environment variables, and options listed after WithConfigFile override
// the file.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithLogger attaches a logger used during configuration loading itself
// (e.g. to report which environment variables were picked up).
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// NewConfig builds a Config using the three-layer priority: defaults, then
// environment variables, then the supplied functional options.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying config option: %w", err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying config option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
