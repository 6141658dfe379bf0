// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kathir-ks/a2a-ledger/internal/roles"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. A2A_LEDGER_LOG_LEVEL.
const EnvPrefix = "A2A_LEDGER"

// Completion providers.
const (
	ProviderProcess = "process"
	ProviderGemini  = "gemini"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"` // text | json

	// --- Ledger ---
	ProjectPath     string `mapstructure:"PROJECT_PATH"`
	LedgerFile      string `mapstructure:"LEDGER_FILE"`
	PlanFile        string `mapstructure:"PLAN_FILE"`
	MaxHeadingDepth int    `mapstructure:"MAX_HEADING_DEPTH"`

	// --- Driver loop ---
	DispatchTimeout  time.Duration `mapstructure:"DISPATCH_TIMEOUT"`
	DiscoveryTimeout time.Duration `mapstructure:"DISCOVERY_TIMEOUT"`
	RoundPause       time.Duration `mapstructure:"ROUND_PAUSE"`
	StallRounds      int           `mapstructure:"STALL_ROUNDS"`
	MaxRounds        int           `mapstructure:"MAX_ROUNDS"`
	MetricsAddr      string        `mapstructure:"METRICS_ADDR"` // driver /metrics listener; empty disables

	// --- Agent servers ---
	ListenHost  string `mapstructure:"LISTEN_HOST"`
	MaxInFlight int    `mapstructure:"MAX_IN_FLIGHT"`
	PlannerURL  string `mapstructure:"PLANNER_URL"`
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	BackendURL  string `mapstructure:"BACKEND_URL"`

	// --- Completion subsystem ---
	CompletionProvider string        `mapstructure:"COMPLETION_PROVIDER"`
	CompletionCommand  string        `mapstructure:"COMPLETION_COMMAND"`
	CompletionArgs     []string      `mapstructure:"COMPLETION_ARGS"`
	CompletionEnv      []string      `mapstructure:"COMPLETION_ENV"` // extra KEY=VALUE pairs for the process provider
	CompletionTimeout  time.Duration `mapstructure:"COMPLETION_TIMEOUT"`
	GeminiAPIKey       string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel        string        `mapstructure:"GEMINI_MODEL"`

	// --- Redis (optional; empty address means in-memory) ---
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	KeyPrefix     string        `mapstructure:"KEY_PREFIX"`
	TaskTTL       time.Duration `mapstructure:"TASK_TTL"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("PROJECT_PATH", ".")
	v.SetDefault("LEDGER_FILE", "tasks.md")
	v.SetDefault("PLAN_FILE", "plan.md")
	v.SetDefault("MAX_HEADING_DEPTH", 3)

	v.SetDefault("DISPATCH_TIMEOUT", 5*time.Minute)
	v.SetDefault("DISCOVERY_TIMEOUT", 10*time.Second)
	v.SetDefault("ROUND_PAUSE", 3*time.Second)
	v.SetDefault("STALL_ROUNDS", 5)
	v.SetDefault("MAX_ROUNDS", 0)
	v.SetDefault("METRICS_ADDR", "")

	v.SetDefault("LISTEN_HOST", "0.0.0.0")
	v.SetDefault("MAX_IN_FLIGHT", 1)
	v.SetDefault("PLANNER_URL", "http://localhost:5001")
	v.SetDefault("FRONTEND_URL", "http://localhost:5002")
	v.SetDefault("BACKEND_URL", "http://localhost:5003")

	v.SetDefault("COMPLETION_PROVIDER", ProviderProcess)
	v.SetDefault("COMPLETION_COMMAND", "")
	v.SetDefault("COMPLETION_ARGS", []string{})
	v.SetDefault("COMPLETION_ENV", []string{})
	v.SetDefault("COMPLETION_TIMEOUT", 0)
	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KEY_PREFIX", "a2a-ledger:")
	v.SetDefault("TASK_TTL", 24*time.Hour)
}

// LoadConfig reads configuration from file and environment variables.
// An explicit file wins over the search paths; a missing searched-for
// config.yaml is not an error.
func LoadConfig(file string, configPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		for _, path := range configPaths {
			if path != "" {
				v.AddConfigPath(path)
			}
		}
	}

	// --- Environment Variables ---
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// --- Read Config File ---
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Debug("Config file not found, using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		log.Infof("Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Validate log level
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		log.Warnf("Invalid LOG_LEVEL '%s' found in config, defaulting to 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Debugf("Configuration loaded (project: %s, ledger: %s, provider: %s)", cfg.ProjectPath, cfg.LedgerFile, cfg.CompletionProvider)
	return &cfg, nil
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	var problems []string
	if c.DispatchTimeout <= 0 {
		problems = append(problems, "DISPATCH_TIMEOUT must be positive")
	}
	if c.DiscoveryTimeout <= 0 {
		problems = append(problems, "DISCOVERY_TIMEOUT must be positive")
	}
	if c.RoundPause < 0 {
		problems = append(problems, "ROUND_PAUSE must not be negative")
	}
	if c.StallRounds < 1 {
		problems = append(problems, "STALL_ROUNDS must be at least 1")
	}
	if c.MaxInFlight < 1 {
		problems = append(problems, "MAX_IN_FLIGHT must be at least 1")
	}
	if c.MaxHeadingDepth < 1 || c.MaxHeadingDepth > 6 {
		problems = append(problems, "MAX_HEADING_DEPTH must be between 1 and 6")
	}
	switch c.CompletionProvider {
	case ProviderProcess, ProviderGemini:
	default:
		problems = append(problems, fmt.Sprintf("unknown COMPLETION_PROVIDER %q", c.CompletionProvider))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RoleURL returns the base URL configured for a role's agent.
func (c *Config) RoleURL(role string) (string, error) {
	switch role {
	case roles.Planning:
		return c.PlannerURL, nil
	case roles.Frontend:
		return c.FrontendURL, nil
	case roles.Backend:
		return c.BackendURL, nil
	}
	return "", fmt.Errorf("%w: %q", roles.ErrUnknownRole, role)
}

// LedgerPath resolves the ledger file for a project directory.
func (c *Config) LedgerPath(projectPath string) string {
	return resolve(projectPath, c.LedgerFile)
}

// PlanPath resolves the plan file for a project directory.
func (c *Config) PlanPath(projectPath string) string {
	return resolve(projectPath, c.PlanFile)
}

func resolve(dir, file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(dir, file)
}
