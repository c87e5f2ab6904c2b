// Package indexer rebuilds the document store from the document cache.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

// Report summarizes one build.
type Report struct {
	Total         int
	Indexed       int
	FailedBatches int
	Count         int
	Elapsed       time.Duration
}

// Builder embeds documents in fixed-size batches and writes them to the store.
type Builder struct {
	store     vectorstore.Storage
	embedder  domain.Embedder
	dimension int
	batchSize int
	log       *zap.Logger
}

func NewBuilder(store vectorstore.Storage, embedder domain.Embedder, dimension, batchSize int, log *zap.Logger) *Builder {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{store: store, embedder: embedder, dimension: dimension, batchSize: batchSize, log: log}
}

// Build drops any existing collection and indexes docs from scratch.
// Batches are independent: a failed batch is logged and counted while the
// batches already written stay in place.
func (b *Builder) Build(ctx context.Context, docs []domain.Document) (Report, error) {
	start := time.Now()
	rep := Report{Total: len(docs)}

	if err := b.store.Reset(ctx, b.dimension); err != nil {
		return rep, fmt.Errorf("reset store: %w", err)
	}
	b.log.Info("indexing started",
		zap.Int("documents", len(docs)),
		zap.Int("batch_size", b.batchSize),
		zap.String("embedder", b.embedder.Name()))

	batches := (len(docs) + b.batchSize - 1) / b.batchSize
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			rep.Elapsed = time.Since(start)
			return rep, err
		}
		lo := i * b.batchSize
		hi := min(lo+b.batchSize, len(docs))
		if err := b.writeBatch(ctx, docs[lo:hi]); err != nil {
			rep.FailedBatches++
			b.log.Error("batch failed",
				zap.Int("batch", i+1),
				zap.Int("of", batches),
				zap.Error(err))
			continue
		}
		rep.Indexed += hi - lo
		b.log.Info("batch indexed",
			zap.Int("batch", i+1),
			zap.Int("of", batches),
			zap.Int("indexed", rep.Indexed))
	}

	count, err := b.store.Count(ctx)
	if err != nil {
		rep.Elapsed = time.Since(start)
		return rep, fmt.Errorf("count documents: %w", err)
	}
	rep.Count = count
	rep.Elapsed = time.Since(start)
	b.log.Info("indexing finished",
		zap.Int("count", rep.Count),
		zap.Int("failed_batches", rep.FailedBatches),
		zap.Duration("elapsed", rep.Elapsed))

	if sample, err := b.store.Sample(ctx, 1); err == nil && len(sample) > 0 {
		d := sample[0]
		b.log.Info("sample document",
			zap.String("id", d.ID),
			zap.String("speciality", d.Meta.DoctorSpeciality),
			zap.String("question", truncate(d.Meta.Question, 80)),
			zap.String("content", truncate(d.Content, 120)))
	}
	return rep, nil
}

func (b *Builder) writeBatch(ctx context.Context, batch []domain.Document) error {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.Content
	}
	vecs, err := b.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if err := vectorstore.CheckBatch(batch, vecs, b.dimension); err != nil {
		return err
	}
	return b.store.Write(ctx, batch, vecs)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
