package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// It uses cosine distance and keeps document fields in the point payload.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// statusError carries the HTTP status of a failed Qdrant call.
type statusError struct {
	method, url string
	status      int
	body        string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %d %s", e.method, e.url, e.status, e.body)
}

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

// Reset drops the collection if present and recreates it empty.
func (s *Storage) Reset(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.status == http.StatusNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(), body, nil); err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

// Open verifies the collection exists with the expected vector size.
func (s *Storage) Open(ctx context.Context, dimension int) error {
	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &resp)
	var se *statusError
	if errors.As(err, &se) && se.status == http.StatusNotFound {
		return fmt.Errorf("%w: collection %s", vectorstore.ErrStoreNotFound, s.collection)
	}
	if err != nil {
		return err
	}
	if size := resp.Result.Config.Params.Vectors.Size; size != 0 && size != dimension {
		return fmt.Errorf("%w: collection has %d, want %d", vectorstore.ErrDimension, size, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Write(ctx context.Context, docs []domain.Document, vectors [][]float64) error {
	if s.dimension == 0 {
		return vectorstore.ErrNotOpen
	}
	if err := vectorstore.CheckBatch(docs, vectors, s.dimension); err != nil {
		return err
	}
	points := make([]map[string]any, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		points[i] = map[string]any{
			"id":     id,
			"vector": vectors[i],
			"payload": map[string]any{
				"content":           d.Content,
				"question":          d.Meta.Question,
				"doctor_title":      d.Meta.DoctorTitle,
				"doctor_speciality": d.Meta.DoctorSpeciality,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *Storage) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/count", map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

type point struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (p point) document() domain.Document {
	str := func(key string) string {
		v, _ := p.Payload[key].(string)
		return v
	}
	return domain.Document{
		ID:      fmt.Sprint(p.ID),
		Content: str("content"),
		Meta: domain.Metadata{
			Question:         str("question"),
			DoctorTitle:      str("doctor_title"),
			DoctorSpeciality: str("doctor_speciality"),
		},
	}
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 3
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, p := range resp.Result {
		results = append(results, domain.SearchResult{Document: p.document(), Score: p.Score})
	}
	return results, nil
}

func (s *Storage) Sample(ctx context.Context, n int) ([]domain.Document, error) {
	var resp struct {
		Result struct {
			Points []point `json:"points"`
		} `json:"result"`
	}
	req := map[string]any{"limit": n, "with_payload": true}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/scroll", req, &resp); err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		docs = append(docs, p.document())
	}
	return docs, nil
}

// Close is a no-op; the server owns the collection.
func (s *Storage) Close() error { return nil }

func (s *Storage) do(ctx context.Context, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, url: url, status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
