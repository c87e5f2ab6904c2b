package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"healthqa/internal/domain"
)

// ToDocuments maps cleaned records to documents: the doctor's answer is the
// retrievable content, the question and doctor attributes ride along as metadata.
func ToDocuments(records []Record) []domain.Document {
	docs := make([]domain.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, domain.Document{
			Content: r.Answer,
			Meta: domain.Metadata{
				Question:         r.Question,
				DoctorTitle:      r.DoctorTitle,
				DoctorSpeciality: r.DoctorSpeciality,
			},
		})
	}
	return docs
}

// LoadDocuments reads a cleaned CSV and converts it to documents.
// A missing file is logged and yields an empty result, not an error.
func LoadDocuments(path string, log *zap.Logger) ([]domain.Document, error) {
	records, err := ReadCSVFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("cleaned csv not found", zap.String("path", path))
			return []domain.Document{}, nil
		}
		return nil, err
	}
	docs := ToDocuments(records)
	log.Info("documents created", zap.Int("count", len(docs)))
	return docs, nil
}

// SaveDocuments writes the document cache as JSON Lines.
func SaveDocuments(path string, docs []domain.Document) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for i := range docs {
		if err := enc.Encode(&docs[i]); err != nil {
			_ = f.Close()
			return fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadDocuments loads the document cache written by SaveDocuments.
// A missing cache is logged and yields an empty result, not an error.
func ReadDocuments(path string, log *zap.Logger) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("document cache not found; run healthqa-prep first", zap.String("path", path))
			return []domain.Document{}, nil
		}
		return nil, err
	}
	defer f.Close()

	var docs []domain.Document
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var d domain.Document
		if err := json.Unmarshal(sc.Bytes(), &d); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		docs = append(docs, d)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	log.Info("documents loaded", zap.Int("count", len(docs)))
	return docs, nil
}
