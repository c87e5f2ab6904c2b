package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size" validate:"gt=0"`
	MaxRetries  int    `yaml:"max_retries" validate:"gte=0"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type" validate:"oneof=openai"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty" validate:"required"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string        `yaml:"type" validate:"oneof=sqlite qdrant memory"`
	Collection string        `yaml:"collection" validate:"required"`
	Dimension  int           `yaml:"dimension" validate:"gt=0"`
	SQLite     *SQLiteConfig `yaml:"sqlite,omitempty" validate:"required_if=Type sqlite"`
	Qdrant     *QdrantConfig `yaml:"qdrant,omitempty" validate:"required_if=Type qdrant"`
}

// SQLiteConfig points at the embedded, file-backed store.
type SQLiteConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKey      string `yaml:"api_key"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// GeneratorConfig configures the hosted chat-completion model.
type GeneratorConfig struct {
	BaseURL     string  `yaml:"base_url" validate:"required,url"`
	APIKeyEnv   string  `yaml:"api_key_env" validate:"required"`
	Model       string  `yaml:"model" validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	TimeoutSecs int     `yaml:"timeout_secs" validate:"gte=0"`
}

// RetrievalConfig controls how many documents back each answer.
type RetrievalConfig struct {
	TopK int `yaml:"top_k" validate:"gt=0"`
}

// IndexConfig configures the offline index build.
type IndexConfig struct {
	BatchSize     int    `yaml:"batch_size" validate:"gt=0"`
	DocumentsPath string `yaml:"documents_path" validate:"required"`
}

// DatasetConfig locates the raw and cleaned tabular files.
type DatasetConfig struct {
	RawPath     string `yaml:"raw_path" validate:"required"`
	CleanedPath string `yaml:"cleaned_path" validate:"required"`
}

// ChatConfig configures the interactive session.
type ChatConfig struct {
	TurnTimeoutSecs int `yaml:"turn_timeout_secs" validate:"gte=0"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Index       IndexConfig       `yaml:"index"`
	Dataset     DatasetConfig     `yaml:"dataset"`
	Chat        ChatConfig        `yaml:"chat"`
	Log         LogConfig         `yaml:"log"`
}

const (
	DefaultEmbeddingModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"
	DefaultCollection     = "turkish_health_qa"
	DefaultDimension      = 384
	DefaultTopK           = 3
	DefaultIndexBatchSize = 1000
	DefaultGeneratorURL   = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultGeneratorModel = "gemini-2.0-flash-exp"
	DefaultAPIKeyEnv      = "GOOGLE_API_KEY"
)

// TurnTimeout returns the bound applied to one chat turn; zero means unbounded.
func (c *AppConfig) TurnTimeout() time.Duration {
	return time.Duration(c.Chat.TurnTimeoutSecs) * time.Second
}

// Validate checks the configuration against its struct constraints.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/healthqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/healthqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "healthqa", "config.yaml"), nil
}

// Default returns the deployment defaults.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.OpenAI == nil {
		cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	}
	if cfg.Embedder.OpenAI.BaseURL == "" {
		cfg.Embedder.OpenAI.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Embedder.OpenAI.Model == "" {
		cfg.Embedder.OpenAI.Model = DefaultEmbeddingModel
	}
	if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
		cfg.Embedder.OpenAI.TimeoutSecs = 30
	}
	if cfg.Embedder.OpenAI.BatchSize == 0 {
		cfg.Embedder.OpenAI.BatchSize = 32
	}
	if cfg.Embedder.OpenAI.MaxRetries == 0 {
		cfg.Embedder.OpenAI.MaxRetries = 3
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "sqlite"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = DefaultCollection
	}
	if cfg.VectorStore.Dimension == 0 {
		cfg.VectorStore.Dimension = DefaultDimension
	}
	if cfg.VectorStore.Type == "sqlite" {
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.Path == "" {
			cfg.VectorStore.SQLite.Path = filepath.Join("healthqa_db", "store.db")
		}
	}
	if cfg.VectorStore.Type == "qdrant" && cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}

	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = DefaultGeneratorURL
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = DefaultGeneratorModel
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = DefaultIndexBatchSize
	}
	if cfg.Index.DocumentsPath == "" {
		cfg.Index.DocumentsPath = "documents.jsonl"
	}
	if cfg.Dataset.RawPath == "" {
		cfg.Dataset.RawPath = "patient_doctor_qa.csv"
	}
	if cfg.Dataset.CleanedPath == "" {
		cfg.Dataset.CleanedPath = "cleaned_patient_doctor_qa.csv"
	}
	if cfg.Chat.TurnTimeoutSecs == 0 {
		cfg.Chat.TurnTimeoutSecs = 120
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "healthqa.log"
	}
}
