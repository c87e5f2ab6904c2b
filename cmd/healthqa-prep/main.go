package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"healthqa/internal/config"
	"healthqa/internal/dataset"
	"healthqa/internal/logging"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, rawPath, cleanedPath, docsPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/healthqa/config.yaml if not provided)")
	flag.StringVar(&rawPath, "in", "", "Raw CSV export (overrides dataset.raw_path)")
	flag.StringVar(&cleanedPath, "out", "", "Cleaned CSV output (overrides dataset.cleaned_path)")
	flag.StringVar(&docsPath, "documents", "", "Document cache output (overrides index.documents_path)")
	flag.Parse()

	cfg, err := loadConfig(cfgPath)
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

	if rawPath == "" {
		rawPath = cfg.Dataset.RawPath
	}
	if cleanedPath == "" {
		cleanedPath = cfg.Dataset.CleanedPath
	}
	if docsPath == "" {
		docsPath = cfg.Index.DocumentsPath
	}

	records, err := dataset.ReadCSVFile(rawPath)
	if err != nil {
		log.Fatal("read raw dataset", zap.String("path", rawPath), zap.Error(err))
	}
	cleaned, st := dataset.Clean(records)
	log.Info("dataset cleaned",
		zap.Int("raw", st.Raw),
		zap.Int("non_empty", st.NonEmpty),
		zap.Int("deduplicated", st.Deduped),
		zap.Int("duplicates", st.Duplicates))

	if err := dataset.WriteCSVFile(cleanedPath, cleaned); err != nil {
		log.Fatal("write cleaned csv", zap.String("path", cleanedPath), zap.Error(err))
	}
	log.Info("cleaned csv written", zap.String("path", cleanedPath))

	docs, err := dataset.LoadDocuments(cleanedPath, log)
	if err != nil {
		log.Fatal("load documents", zap.Error(err))
	}
	if err := dataset.SaveDocuments(docsPath, docs); err != nil {
		log.Fatal("save document cache", zap.String("path", docsPath), zap.Error(err))
	}
	log.Info("document cache written", zap.String("path", docsPath), zap.Int("documents", len(docs)))
}

func loadConfig(path string) (*config.AppConfig, error) {
	if path == "" {
		cfg, _, err := config.LoadDefault()
		return cfg, err
	}
	return config.Load(path)
}
