package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"healthqa/internal/config"
	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

// InitError reports which component stopped the pipeline from starting.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string { return fmt.Sprintf("init %s: %v", e.Component, e.Err) }

func (e *InitError) Unwrap() error { return e.Err }

// Pipeline is a fully constructed set of components ready to answer turns.
type Pipeline struct {
	Service   *RAGService
	Store     vectorstore.Storage
	Backend   string
	Dimension int
	Documents int
}

// Factories builds the pipeline components. Tests substitute fakes.
type Factories struct {
	Store     func(config.VectorStoreConfig) (vectorstore.Storage, error)
	Embedder  func(config.EmbedderConfig, int) (domain.Embedder, error)
	Generator func(config.GeneratorConfig) (domain.Generator, error)
}

// DefaultFactories wires the configured backends.
func DefaultFactories() Factories {
	return Factories{
		Store: NewStorage,
		Embedder: func(cfg config.EmbedderConfig, dim int) (domain.Embedder, error) {
			return NewEmbedder(cfg, dim, false)
		},
		Generator: func(cfg config.GeneratorConfig) (domain.Generator, error) {
			return NewGenerator(cfg)
		},
	}
}

// Runtime owns the process-wide pipeline. Pipeline builds it on first use and
// memoizes the outcome, success or failure; Close tears it down and clears
// the memo.
type Runtime struct {
	cfg       *config.AppConfig
	factories Factories
	log       *zap.Logger

	mu       sync.Mutex
	done     bool
	pipeline *Pipeline
	err      error
}

func NewRuntime(cfg *config.AppConfig, factories Factories, log *zap.Logger) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runtime{cfg: cfg, factories: factories, log: log}
}

// Pipeline returns the shared pipeline, constructing it once. When any
// component fails, already opened resources are closed and no pipeline is
// returned.
func (r *Runtime) Pipeline(ctx context.Context) (*Pipeline, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done {
		return r.pipeline, r.err
	}
	r.pipeline, r.err = r.build(ctx)
	r.done = true
	if r.err != nil {
		r.log.Error("pipeline unavailable", zap.Error(r.err))
	}
	return r.pipeline, r.err
}

func (r *Runtime) build(ctx context.Context) (*Pipeline, error) {
	gen, err := r.factories.Generator(r.cfg.Generator)
	if err != nil {
		return nil, &InitError{Component: "generator", Err: err}
	}

	vs := r.cfg.VectorStore
	store, err := r.factories.Store(vs)
	if err != nil {
		return nil, &InitError{Component: "store", Err: err}
	}
	if err := store.Open(ctx, vs.Dimension); err != nil {
		_ = store.Close()
		return nil, &InitError{Component: "store", Err: err}
	}
	count, err := store.Count(ctx)
	if err != nil {
		_ = store.Close()
		return nil, &InitError{Component: "store", Err: err}
	}

	emb, err := r.factories.Embedder(r.cfg.Embedder, vs.Dimension)
	if err != nil {
		_ = store.Close()
		return nil, &InitError{Component: "embedder", Err: err}
	}

	r.log.Info("pipeline ready",
		zap.String("store", vs.Type),
		zap.String("collection", vs.Collection),
		zap.Int("documents", count),
		zap.String("embedder", emb.Name()),
		zap.String("generator", gen.Name()))

	return &Pipeline{
		Service:   NewRAGService(emb, store, gen, r.cfg.Retrieval.TopK, r.log),
		Store:     store,
		Backend:   vs.Type,
		Dimension: vs.Dimension,
		Documents: count,
	}, nil
}

// Close releases the store and forgets the memoized outcome.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var err error
	if r.pipeline != nil {
		err = r.pipeline.Store.Close()
	}
	r.done, r.pipeline, r.err = false, nil, nil
	return err
}

// IsContention reports whether err means another process holds the store.
func IsContention(err error) bool { return errors.Is(err, vectorstore.ErrStoreInUse) }

// IsMissingStore reports whether err means no index exists yet.
func IsMissingStore(err error) bool { return errors.Is(err, vectorstore.ErrStoreNotFound) }

// IsMissingCredential reports whether err means the API key is not set.
func IsMissingCredential(err error) bool { return errors.Is(err, ErrMissingCredential) }
