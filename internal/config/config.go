// Package config holds all classlens configuration: the generation
// channel, the analysis policy knobs, and logging. Options are loaded
// from a YAML file with environment-variable overrides; nothing in the
// pipeline reads ambient state directly.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full classlens configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	LLM      LLMConfig      `yaml:"llm"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the generation channel. Timeout is a Go duration
// string ("2m", "90s").
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // gemini, openai, anthropic
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// AnalysisConfig carries the report policy knobs. These replace the
// option toggles the orchestrator and composer would otherwise have to
// read from ambient state. Delay and timeout values are Go duration
// strings.
type AnalysisConfig struct {
	BatchSize           int    `yaml:"batch_size"`
	SingleShotThreshold int    `yaml:"single_shot_threshold"`
	UseAnnotations      bool   `yaml:"use_annotations"`
	MinLength           int    `yaml:"min_length"` // per-student narrative, characters
	MaxLength           int    `yaml:"max_length"`
	PacingDelay         string `yaml:"pacing_delay"`    // between batch calls
	RequestTimeout      string `yaml:"request_timeout"` // per generation call
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty = stderr
}

// Observed policy defaults. Batch size and single-shot threshold are
// deliberate constants, not derived values.
const (
	DefaultBatchSize           = 15
	DefaultSingleShotThreshold = 30
	DefaultPacingDelay         = 2 * time.Second
	DefaultRequestTimeout      = 30 * time.Second
	DefaultLLMTimeout          = 2 * time.Minute
)

// DefaultConfig returns the default configuration. Provider is left
// empty so env detection can fill it; it resolves to gemini when nothing
// else claims it.
func DefaultConfig() *Config {
	return &Config{
		Name:    "classlens",
		Version: "1.0.0",
		LLM: LLMConfig{
			Temperature: 0.7,
			MaxTokens:   8192,
			Timeout:     "2m",
		},
		Analysis: AnalysisConfig{
			BatchSize:           DefaultBatchSize,
			SingleShotThreshold: DefaultSingleShotThreshold,
			UseAnnotations:      true,
			MinLength:           80,
			MaxLength:           220,
			PacingDelay:         "2s",
			RequestTimeout:      "30s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a YAML config file over the defaults and applies env
// overrides. A missing file is not an error; defaults plus environment
// are a complete configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "gemini"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides fills the API key from the environment when the file
// did not set one, and the provider when it is still unset.
// Precedence: GEMINI > OPENAI > ANTHROPIC.
func (c *Config) applyEnvOverrides() {
	chain := []struct {
		envVar   string
		provider string
	}{
		{"GEMINI_API_KEY", "gemini"},
		{"OPENAI_API_KEY", "openai"},
		{"ANTHROPIC_API_KEY", "anthropic"},
	}

	for _, cand := range chain {
		key := os.Getenv(cand.envVar)
		if key == "" {
			continue
		}
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.LLM.Provider == "" {
			c.LLM.Provider = cand.provider
		}
		return
	}
}

// Validate checks the policy values that have hard preconditions.
func (c *Config) Validate() error {
	if c.Analysis.BatchSize < 1 {
		return fmt.Errorf("analysis.batch_size must be at least 1, got %d", c.Analysis.BatchSize)
	}
	if c.Analysis.SingleShotThreshold < 1 {
		return fmt.Errorf("analysis.single_shot_threshold must be at least 1, got %d", c.Analysis.SingleShotThreshold)
	}
	if c.Analysis.MaxLength > 0 && c.Analysis.MinLength > c.Analysis.MaxLength {
		return fmt.Errorf("analysis.min_length %d exceeds max_length %d", c.Analysis.MinLength, c.Analysis.MaxLength)
	}
	for _, d := range []struct{ name, val string }{
		{"analysis.pacing_delay", c.Analysis.PacingDelay},
		{"analysis.request_timeout", c.Analysis.RequestTimeout},
		{"llm.timeout", c.LLM.Timeout},
	} {
		if d.val == "" {
			continue
		}
		if _, err := time.ParseDuration(d.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.val, err)
		}
	}
	switch c.LLM.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// PacingDelayDuration returns the parsed inter-batch pacing delay.
func (a AnalysisConfig) PacingDelayDuration() time.Duration {
	return parseDuration(a.PacingDelay, DefaultPacingDelay)
}

// RequestTimeoutDuration returns the parsed per-call inactivity ceiling.
func (a AnalysisConfig) RequestTimeoutDuration() time.Duration {
	return parseDuration(a.RequestTimeout, DefaultRequestTimeout)
}

// TimeoutDuration returns the parsed transport timeout.
func (l LLMConfig) TimeoutDuration() time.Duration {
	return parseDuration(l.Timeout, DefaultLLMTimeout)
}
