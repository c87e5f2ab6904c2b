package service

import (
	"fmt"
	"time"

	"healthqa/internal/config"
	"healthqa/internal/embedding/openai"
	"healthqa/internal/llm"
	"healthqa/internal/vectorstore"
	"healthqa/internal/vectorstore/memory"
	"healthqa/internal/vectorstore/qdrant"
	"healthqa/internal/vectorstore/sqlite"
)

// ErrMissingCredential is returned when the generator API key is not set.
var ErrMissingCredential = llm.ErrMissingCredential

// NewStorage builds the configured document store backend. It does not open it.
func NewStorage(cfg config.VectorStoreConfig) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.SQLite == nil {
			return nil, fmt.Errorf("sqlite config missing")
		}
		return sqlite.NewStorage(cfg.SQLite.Path, cfg.Collection), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	case "memory":
		return memory.NewStorage(), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// NewEmbedder builds the text embedder. Retries are applied only when
// withRetries is set, which the index build does and the chat path does not.
func NewEmbedder(cfg config.EmbedderConfig, dimension int, withRetries bool) (*openai.Client, error) {
	switch cfg.Type {
	case "openai", "":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		retries := 0
		if withRetries {
			retries = cfg.OpenAI.MaxRetries
		}
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Dimension:  dimension,
			BatchSize:  cfg.OpenAI.BatchSize,
			MaxRetries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// NewGenerator builds the chat model client. It fails with
// ErrMissingCredential when the key variable is empty.
func NewGenerator(cfg config.GeneratorConfig) (*llm.Generator, error) {
	return llm.NewGenerator(llm.Config{
		BaseURL:     cfg.BaseURL,
		APIKeyEnv:   cfg.APIKeyEnv,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
	})
}
