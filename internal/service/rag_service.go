package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"healthqa/internal/domain"
	"healthqa/internal/prompt"
)

// ErrEmptyQuery is returned for a question that is blank after trimming.
var ErrEmptyQuery = errors.New("empty query")

// Stage names the step of a RAG turn that failed.
type Stage string

const (
	StageEmbed    Stage = "embed"
	StageRetrieve Stage = "retrieve"
	StageGenerate Stage = "generate"
)

// QueryError is a failure of a single turn. It never outlives the turn.
type QueryError struct {
	Stage Stage
	Err   error
}

func (e *QueryError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *QueryError) Unwrap() error { return e.Err }

// Searcher is the read side of the document store used by a turn.
type Searcher interface {
	Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error)
}

// Answer is the outcome of one successful turn.
type Answer struct {
	Text    string
	Sources []domain.SearchResult
	Prompt  []domain.Message
}

// RAGService runs embed, retrieve, assemble and generate in that order.
type RAGService struct {
	embedder  domain.Embedder
	store     Searcher
	generator domain.Generator
	topK      int
	system    string
	log       *zap.Logger
}

func NewRAGService(embedder domain.Embedder, store Searcher, generator domain.Generator, topK int, log *zap.Logger) *RAGService {
	if topK <= 0 {
		topK = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RAGService{
		embedder:  embedder,
		store:     store,
		generator: generator,
		topK:      topK,
		system:    prompt.SystemPolicy,
		log:       log,
	}
}

// Answer runs one turn. Any stage failure aborts the turn with a *QueryError;
// nothing is retried.
func (s *RAGService) Answer(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuery
	}
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, s.fail(StageEmbed, err)
	}

	results, err := s.store.Search(ctx, vec, s.topK)
	if err != nil {
		return Answer{}, s.fail(StageRetrieve, err)
	}
	if len(results) > s.topK {
		results = results[:s.topK]
	}
	s.log.Debug("retrieved documents", zap.Int("count", len(results)))

	messages := prompt.Build(s.system, results, question)

	reply, err := s.generator.Generate(ctx, messages)
	if err != nil {
		return Answer{}, s.fail(StageGenerate, err)
	}
	s.log.Info("turn answered",
		zap.Int("sources", len(results)),
		zap.Duration("elapsed", time.Since(start)))
	return Answer{Text: reply, Sources: results, Prompt: messages}, nil
}

func (s *RAGService) fail(stage Stage, err error) error {
	s.log.Error("turn failed", zap.String("stage", string(stage)), zap.Error(err))
	return &QueryError{Stage: stage, Err: err}
}
