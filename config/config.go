// Package config loads the run configuration from rlm_config.yaml and the
// environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/rlmesh/core"
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = "rlm_config.yaml"

	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIKey          = "RLM_MODEL_API_KEY"
	EnvOpenRouterKey   = "OPENROUTER_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvBaseURL         = "RLM_MODEL_BASE_URL"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

const defaultConfigYAML = `# rlmesh configuration
primary_agent: z-ai/glm-5
sub_agent: minimax/minimax-m2.5

# Invocations at this depth can no longer call rlm.Query.
max_depth: 3
max_calls_per_subagent: 20
truncate_len: 2000

# Tree-wide ceilings. A value <= 0 disables the ceiling.
max_money_spent: 1.0
max_completion_tokens: 50000
max_prompt_tokens: 200000

log_dir: logs
log_prefix: run

# openai (any OpenAI compatible endpoint, OpenRouter by default) or anthropic.
provider: openai
# base_url: https://openrouter.ai/api/v1
`

// Config models rlm_config.yaml.
type Config struct {
	PrimaryAgent        string  `yaml:"primary_agent"`
	SubAgent            string  `yaml:"sub_agent"`
	MaxDepth            int     `yaml:"max_depth"`
	MaxCallsPerSubagent int     `yaml:"max_calls_per_subagent"`
	TruncateLen         int     `yaml:"truncate_len"`
	MaxMoneySpent       float64 `yaml:"max_money_spent"`
	MaxCompletionTokens int64   `yaml:"max_completion_tokens"`
	MaxPromptTokens     int64   `yaml:"max_prompt_tokens"`

	LogDir    string `yaml:"log_dir,omitempty"`
	LogPrefix string `yaml:"log_prefix,omitempty"`
	Provider  string `yaml:"provider,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`

	// APIKey is only ever read from the environment.
	APIKey string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &cfg); err != nil {
		panic(fmt.Sprintf("config: default document is invalid: %v", err))
	}
	return cfg
}

// DefaultYAML returns the commented default configuration document.
func DefaultYAML() string { return defaultConfigYAML }

// Load reads path on top of the defaults, applies the environment and
// validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadDefault loads FileName from the working directory if it exists and
// falls back to Default otherwise.
func LoadDefault() (Config, error) {
	cfg, err := Load(FileName)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.ApplyEnv()
		return cfg, cfg.Validate()
	}
	return cfg, err
}

// Parse overlays a YAML document on the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, err
		}
	}

	cfg.ApplyEnv()

	return cfg, cfg.Validate()
}

// ApplyEnv fills credentials and endpoint overrides from the environment.
func (c *Config) ApplyEnv() {
	keys := []string{EnvAPIKey, EnvOpenRouterKey}
	if c.Provider == ProviderAnthropic {
		keys = []string{EnvAPIKey, EnvAnthropicAPIKey}
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			c.APIKey = v
			break
		}
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
}

// Validate reports every problem at once, wrapped in ErrInvalid.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.PrimaryAgent) == "" {
		problems = append(problems, "primary_agent is required")
	}
	if strings.TrimSpace(c.SubAgent) == "" {
		problems = append(problems, "sub_agent is required")
	}
	if c.MaxDepth < 0 {
		problems = append(problems, "max_depth must be >= 0")
	}
	if c.MaxCallsPerSubagent <= 0 {
		problems = append(problems, "max_calls_per_subagent must be > 0")
	}
	if c.TruncateLen < 0 {
		problems = append(problems, "truncate_len must be >= 0")
	}
	switch c.Provider {
	case "", ProviderOpenAI, ProviderAnthropic:
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q", c.Provider))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Settings converts the file configuration into orchestration settings.
func (c Config) Settings() core.Settings {
	return core.Settings{
		PrimaryModel: c.PrimaryAgent,
		SubModel:     c.SubAgent,
		MaxDepth:     c.MaxDepth,
		MaxSteps:     c.MaxCallsPerSubagent,
		TruncateLen:  c.TruncateLen,
		Limits: core.Limits{
			MaxCost:             c.MaxMoneySpent,
			MaxCompletionTokens: c.MaxCompletionTokens,
			MaxPromptTokens:     c.MaxPromptTokens,
		},
	}
}
