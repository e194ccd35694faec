// Package config loads and validates the pipeline's configuration:
// repository scope, LLM endpoints and models, token budgets, and
// output options. Nothing is persisted in the user's home directory;
// this package only reads a project-local config file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	pelletier "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"codedoc/internal/model"
)

// Config is the complete pipeline configuration.
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version"`

	Repository RepositoryConfig `json:"repository" mapstructure:"repository" toml:"repository"`
	LLM        LLMConfig        `json:"llm" mapstructure:"llm" toml:"llm"`
	Budgets    BudgetsConfig    `json:"budgets" mapstructure:"budgets" toml:"budgets"`
	Output     OutputConfig     `json:"output" mapstructure:"output" toml:"output"`
	DocType    DocTypeConfig    `json:"docType" mapstructure:"docType" toml:"docType"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging" toml:"logging"`
}

// RepositoryConfig scopes the analysis to a file tree.
type RepositoryConfig struct {
	Root            string   `json:"root" mapstructure:"root" toml:"root"`
	IncludePatterns []string `json:"includePatterns" mapstructure:"includePatterns" toml:"includePatterns"`
	ExcludePatterns []string `json:"excludePatterns" mapstructure:"excludePatterns" toml:"excludePatterns"`
	FocusModules    []string `json:"focusModules" mapstructure:"focusModules" toml:"focusModules"`
}

// LLMConfig names the models and endpoint backing the clusterer and
// the agent runtime's fallback chain.
type LLMConfig struct {
	BaseURL         string   `json:"baseUrl" mapstructure:"baseUrl" toml:"baseUrl"`
	APIKeyEnv       string   `json:"apiKeyEnv" mapstructure:"apiKeyEnv" toml:"apiKeyEnv"`
	MainModel       string   `json:"mainModel" mapstructure:"mainModel" toml:"mainModel"`
	ClusterModel    string   `json:"clusterModel" mapstructure:"clusterModel" toml:"clusterModel"`
	FallbackModels  []string `json:"fallbackModels" mapstructure:"fallbackModels" toml:"fallbackModels"`
	RequestTimeoutS int      `json:"requestTimeoutSeconds" mapstructure:"requestTimeoutSeconds" toml:"requestTimeoutSeconds"`
}

// BudgetsConfig mirrors model.TokenBudgets for config-file purposes.
type BudgetsConfig struct {
	MaxOutputTokens        int `json:"maxOutputTokens" mapstructure:"maxOutputTokens" toml:"maxOutputTokens"`
	MaxTokensPerModule     int `json:"maxTokensPerModule" mapstructure:"maxTokensPerModule" toml:"maxTokensPerModule"`
	MaxTokensPerLeafModule int `json:"maxTokensPerLeafModule" mapstructure:"maxTokensPerLeafModule" toml:"maxTokensPerLeafModule"`
	MaxDepth               int `json:"maxDepth" mapstructure:"maxDepth" toml:"maxDepth"`
}

// OutputConfig controls where and how artifacts are written.
type OutputConfig struct {
	Directory          string `json:"directory" mapstructure:"directory" toml:"directory"`
	CompressArtifacts  bool   `json:"compressArtifacts" mapstructure:"compressArtifacts" toml:"compressArtifacts"`
	EmitYAMLModuleTree bool   `json:"emitYamlModuleTree" mapstructure:"emitYamlModuleTree" toml:"emitYamlModuleTree"`
}

// DocTypeConfig tailors the agent's system prompt emphasis.
type DocTypeConfig struct {
	Type               string `json:"type" mapstructure:"type" toml:"type"` // api | architecture | user-guide | developer
	CustomInstructions string `json:"customInstructions" mapstructure:"customInstructions" toml:"customInstructions"`
}

// LoggingConfig controls the ambient logger.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format" toml:"format"`
	Level  string `json:"level" mapstructure:"level" toml:"level"`
}

// DefaultConfig returns the configuration used absent any project
// config file.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Repository: RepositoryConfig{
			Root:            ".",
			IncludePatterns: []string{},
			ExcludePatterns: []string{},
			FocusModules:    []string{},
		},
		LLM: LLMConfig{
			BaseURL:         "https://api.openai.com/v1",
			APIKeyEnv:       "CODEDOC_LLM_API_KEY",
			MainModel:       "gpt-4o",
			ClusterModel:    "gpt-4o",
			FallbackModels:  []string{"gpt-4o-mini"},
			RequestTimeoutS: 120,
		},
		Budgets: BudgetsConfig{
			MaxOutputTokens:        4096,
			MaxTokensPerModule:     12000,
			MaxTokensPerLeafModule: 16000,
			MaxDepth:               4,
		},
		Output: OutputConfig{
			Directory:          "docs",
			CompressArtifacts:  false,
			EmitYAMLModuleTree: false,
		},
		DocType: DocTypeConfig{
			Type: "developer",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads configuration from <repoRoot>/.codedoc/config.{json,toml}.
// A missing file is not an error; DefaultConfig is returned instead.
func Load(repoRoot string) (*Config, error) {
	dir := filepath.Join(repoRoot, ".codedoc")

	if data, err := os.ReadFile(filepath.Join(dir, "config.toml")); err == nil {
		cfg := DefaultConfig()
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as both the human-editable
// config.toml (the format Load prefers) and a config.json mirror kept
// for tooling that parses JSON directly. TOML is encoded with
// pelletier/go-toml/v2, a distinct library from the BurntSushi/toml
// decoder Load uses, matching how config.json is written with the
// standard encoding/json encoder rather than hand-rolled formatting.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".codedoc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tomlData, err := pelletier.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), tomlData, 0o644); err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), jsonData, 0o644)
}

// Validate performs basic sanity checks.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.LLM.MainModel == "" {
		return &ConfigError{Field: "llm.mainModel", Message: "main model must be set"}
	}
	if c.Budgets.MaxRecursionDepthOrDefault() < 1 {
		return &ConfigError{Field: "budgets.maxDepth", Message: "max depth must be at least 1"}
	}
	return nil
}

// TokenBudgets converts the config-file representation into the
// runtime model.TokenBudgets the graph, clusterer, and agent consume.
func (b BudgetsConfig) TokenBudgets() model.TokenBudgets {
	return model.TokenBudgets{
		MaxTokensPerModule:     b.MaxTokensPerModule,
		MaxTokensPerLeafModule: b.MaxTokensPerLeafModule,
		MaxOutputTokens:        b.MaxOutputTokens,
		MaxRecursionDepth:      b.MaxRecursionDepthOrDefault(),
	}
}

// MaxRecursionDepthOrDefault returns MaxDepth, defaulting to 4 when unset.
func (b BudgetsConfig) MaxRecursionDepthOrDefault() int {
	if b.MaxDepth <= 0 {
		return 4
	}
	return b.MaxDepth
}

// ConfigError names the offending field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
