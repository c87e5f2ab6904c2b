package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"healthqa/internal/config"
	"healthqa/internal/dataset"
	"healthqa/internal/indexer"
	"healthqa/internal/logging"
	"healthqa/internal/service"
	"healthqa/internal/watch"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, docsPath string
	var watchMode bool
	var debounce time.Duration
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/healthqa/config.yaml if not provided)")
	flag.StringVar(&docsPath, "documents", "", "Document cache to index (overrides index.documents_path)")
	flag.BoolVar(&watchMode, "watch", false, "Keep running and rebuild whenever the document cache changes")
	flag.DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period before a watched change triggers a rebuild")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.NewConsole(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if docsPath == "" {
		docsPath = cfg.Index.DocumentsPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := service.NewStorage(cfg.VectorStore)
	if err != nil {
		log.Fatal("vector store init failed", zap.Error(err))
	}

	emb, err := service.NewEmbedder(cfg.Embedder, cfg.VectorStore.Dimension, true)
	if err != nil {
		log.Fatal("embedder init failed", zap.Error(err))
	}
	builder := indexer.NewBuilder(store, emb, cfg.VectorStore.Dimension, cfg.Index.BatchSize, log)

	rebuild := func(ctx context.Context) {
		docs, err := dataset.ReadDocuments(docsPath, log)
		if err != nil {
			log.Error("read document cache", zap.String("path", docsPath), zap.Error(err))
			return
		}
		if len(docs) == 0 {
			log.Warn("no documents to index", zap.String("path", docsPath))
			return
		}
		// release the store between builds so the chat app can open it
		defer store.Close()
		rep, err := builder.Build(ctx, docs)
		if err != nil {
			if service.IsContention(err) {
				log.Error("vector store is in use by another process; close the chat app and retry", zap.Error(err))
				return
			}
			log.Error("index build failed", zap.Error(err))
			return
		}
		log.Info("index ready",
			zap.Int("total", rep.Total),
			zap.Int("indexed", rep.Indexed),
			zap.Int("failed_batches", rep.FailedBatches),
			zap.Int("count", rep.Count),
			zap.Duration("elapsed", rep.Elapsed))
	}

	rebuild(ctx)
	if !watchMode {
		return
	}

	w, err := watch.NewFileWatcher(docsPath, debounce, log)
	if err != nil {
		log.Fatal("watcher init failed", zap.Error(err))
	}
	defer w.Stop()
	log.Info("watching document cache", zap.String("path", docsPath))
	if err := w.Run(ctx, rebuild); err != nil && ctx.Err() == nil {
		log.Error("watcher stopped", zap.Error(err))
	}
}
