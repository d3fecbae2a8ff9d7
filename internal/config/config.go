package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the paperask configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Documents  DocumentsConfig  `yaml:"documents"`
	Index      IndexConfig      `yaml:"index"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Cache      CacheConfig      `yaml:"cache"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DocumentsConfig locates the PDF library to ingest.
type DocumentsConfig struct {
	Dir string `yaml:"dir"`
}

// IndexConfig holds vector index storage settings.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// ChunkingConfig controls how extracted text is split into passages.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
}

// CacheConfig enables the Redis-backed embedding cache when addrs are set.
// Re-running ingestion over an unchanged library then costs zero tokens.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

// GenerationConfig holds generation backend settings.
type GenerationConfig struct {
	Default    string           `yaml:"default"`
	TimeoutSec int              `yaml:"timeout_sec"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	ChatGPTWeb ChatGPTWebConfig `yaml:"chatgpt_web"`
}

// OpenAIConfig holds the hosted-API generation backend settings.
type OpenAIConfig struct {
	APIKey  string   `yaml:"api_key"`
	BaseURL string   `yaml:"base_url"`
	Model   string   `yaml:"model"`
	Models  []string `yaml:"models"` // allowlist of selectable models
}

// ChatGPTWebConfig holds the browser-automated generation backend settings.
type ChatGPTWebConfig struct {
	Enabled      bool   `yaml:"enabled"`
	UserDataDir  string `yaml:"user_data_dir"`
	Headless     bool   `yaml:"headless"`
	LoginWaitSec int    `yaml:"login_wait_sec"`
}

// RetrievalConfig bounds the number of chunks retrieved per question.
type RetrievalConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 5001
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Generation can take minutes on a loaded backend.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Documents.Dir == "" {
		c.Documents.Dir = "data/papers"
	}
	if c.Index.Path == "" {
		c.Index.Path = "index/paperask.idx"
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 1200
	}
	if c.Chunking.Overlap <= 0 {
		c.Chunking.Overlap = 200
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Generation.Default == "" {
		c.Generation.Default = "openai"
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 120
	}
	if c.Generation.OpenAI.BaseURL == "" {
		c.Generation.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.Generation.OpenAI.Model == "" {
		c.Generation.OpenAI.Model = "gpt-4o-mini"
	}
	if len(c.Generation.OpenAI.Models) == 0 {
		c.Generation.OpenAI.Models = []string{"gpt-4o-mini", "gpt-4o", "gpt-3.5-turbo"}
	}
	if c.Generation.ChatGPTWeb.UserDataDir == "" {
		c.Generation.ChatGPTWeb.UserDataDir = defaultBrowserProfileDir()
	}
	if c.Generation.ChatGPTWeb.LoginWaitSec <= 0 {
		c.Generation.ChatGPTWeb.LoginWaitSec = 300
	}
	if c.Retrieval.DefaultK <= 0 {
		c.Retrieval.DefaultK = 6
	}
	if c.Retrieval.MaxK <= 0 {
		c.Retrieval.MaxK = 50
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}
	if c.Retrieval.DefaultK > c.Retrieval.MaxK {
		return fmt.Errorf("retrieval.default_k (%d) exceeds retrieval.max_k (%d)",
			c.Retrieval.DefaultK, c.Retrieval.MaxK)
	}
	switch c.Generation.Default {
	case "openai", "chatgpt-web":
		// ok
	default:
		return fmt.Errorf("generation.default must be \"openai\" or \"chatgpt-web\", got %q",
			c.Generation.Default)
	}
	if c.Generation.Default == "chatgpt-web" && !c.Generation.ChatGPTWeb.Enabled {
		return fmt.Errorf("generation.default is chatgpt-web but generation.chatgpt_web.enabled is false")
	}
	return nil
}

func defaultBrowserProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatgpt-browser"
	}
	return filepath.Join(home, ".chatgpt-browser")
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
