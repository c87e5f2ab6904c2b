package service

import (
	"context"
	"errors"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
	"healthqa/internal/vectorstore/memory"
)

type fakeEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (f *fakeEmbedder) Name() string   { return "fake-embedder" }
func (f *fakeEmbedder) Dimension() int { return len(f.vec) }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	f.calls++
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeGenerator struct {
	reply    string
	err      error
	calls    int
	messages []domain.Message
}

func (f *fakeGenerator) Name() string { return "fake-generator" }

func (f *fakeGenerator) Generate(_ context.Context, messages []domain.Message) (string, error) {
	f.calls++
	f.messages = messages
	return f.reply, f.err
}

// trackedStore wraps the memory backend and records lifecycle calls.
type trackedStore struct {
	*memory.Storage
	openErr error
	opened  int
	closed  int
}

func (s *trackedStore) Open(ctx context.Context, dim int) error {
	s.opened++
	if s.openErr != nil {
		return s.openErr
	}
	return s.Storage.Open(ctx, dim)
}

func (s *trackedStore) Close() error {
	s.closed++
	return s.Storage.Close()
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, []float64, int) ([]domain.SearchResult, error) {
	return nil, errors.New("connection refused")
}

var _ vectorstore.Storage = (*trackedStore)(nil)
