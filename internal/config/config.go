// Package config loads and validates tagvault configuration.
//
// Configuration is resolved in three layers, later layers winning:
//  1. Built-in defaults
//  2. YAML config file (~/.tagvault/config.yaml by default)
//  3. TAGVAULT_* environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDimensions is the embedding dimension for the default model
// (all-minilm produces 384-dimensional vectors). The vector index is built
// with this dimension and must be recreated if it changes.
const DefaultDimensions = 384

// Config represents the complete tagvault configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Notes      NotesConfig      `yaml:"notes"`
	DataDir    string           `yaml:"data_dir"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Similarity SimilarityConfig `yaml:"similarity"`
	Suggest    SuggestConfig    `yaml:"suggest"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NotesConfig configures the note collection.
type NotesConfig struct {
	// Dir is the root directory of the markdown note collection.
	Dir string `yaml:"dir"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedding backend: "ollama" (default) or "static".
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions is the vector dimension; all stored embeddings share it.
	Dimensions int `yaml:"dimensions"`
	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`
	// Timeout bounds a single embedding request.
	Timeout time.Duration `yaml:"timeout"`
	// CacheSize is the number of embeddings memoized in memory.
	CacheSize int `yaml:"cache_size"`
}

// SimilarityConfig configures the similarity engine.
type SimilarityConfig struct {
	// RefineThreshold is the minimum similarity at which a suggested tag
	// is replaced by an existing one.
	RefineThreshold float64 `yaml:"refine_threshold"`
	// MergeThreshold is the minimum similarity for merge suggestions.
	MergeThreshold float64 `yaml:"merge_threshold"`
	// MaxResults is the default result cap for similar-tag queries.
	MaxResults int `yaml:"max_results"`
}

// SuggestConfig configures the LLM tag suggestion service.
type SuggestConfig struct {
	// Endpoint is the messages API endpoint.
	Endpoint string `yaml:"endpoint"`
	// Model is the model used for suggestions.
	Model string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env"`
	// Timeout bounds a single suggestion request.
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Notes:   NotesConfig{Dir: "."},
		DataDir: DefaultDataDir(),
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "all-minilm",
			Dimensions: DefaultDimensions,
			OllamaHost: "http://localhost:11434",
			Timeout:    30 * time.Second,
			CacheSize:  1000,
		},
		Similarity: SimilarityConfig{
			RefineThreshold: 0.7,
			MergeThreshold:  0.9,
			MaxResults:      5,
		},
		Suggest: SuggestConfig{
			Endpoint:  "https://api.anthropic.com/v1/messages",
			Model:     "claude-3-5-haiku-latest",
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Timeout:   60 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultDataDir returns the default data directory (~/.tagvault).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".tagvault")
	}
	return filepath.Join(home, ".tagvault")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

// Load reads configuration from path, applies env overrides, and validates.
// A missing file is not an error: defaults are used.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML to path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// applyEnvOverrides applies TAGVAULT_* environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("TAGVAULT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("TAGVAULT_NOTES_DIR"); v != "" {
		c.Notes.Dir = v
	}
	if v := os.Getenv("TAGVAULT_EMBED_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("TAGVAULT_EMBED_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("TAGVAULT_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("TAGVAULT_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("TAGVAULT_SUGGEST_ENDPOINT"); v != "" {
		c.Suggest.Endpoint = v
	}
	if v := os.Getenv("TAGVAULT_SUGGEST_MODEL"); v != "" {
		c.Suggest.Model = v
	}
	if v := os.Getenv("TAGVAULT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive, got %d", c.Embeddings.Dimensions)
	}
	switch c.Embeddings.Provider {
	case "ollama", "static":
	default:
		return fmt.Errorf("embeddings.provider must be \"ollama\" or \"static\", got %q", c.Embeddings.Provider)
	}
	if c.Similarity.RefineThreshold < -1 || c.Similarity.RefineThreshold > 1 {
		return fmt.Errorf("similarity.refine_threshold must be in [-1, 1], got %v", c.Similarity.RefineThreshold)
	}
	if c.Similarity.MergeThreshold < -1 || c.Similarity.MergeThreshold > 1 {
		return fmt.Errorf("similarity.merge_threshold must be in [-1, 1], got %v", c.Similarity.MergeThreshold)
	}
	if c.Similarity.MaxResults <= 0 {
		return fmt.Errorf("similarity.max_results must be positive, got %d", c.Similarity.MaxResults)
	}
	return nil
}

// VectorPath returns the vector store file location.
func (c *Config) VectorPath() string {
	return filepath.Join(c.DataDir, "vectors.gob")
}

// LedgerPath returns the usage ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "ledger.db")
}

// LockPath returns the data directory lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, ".lock")
}

// LogPath returns the log file location under the data directory.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "tagvault.log")
}
