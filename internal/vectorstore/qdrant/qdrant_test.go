package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

// fakeQdrant emulates the handful of REST endpoints the client touches.
type fakeQdrant struct {
	mu     sync.Mutex
	size   int
	exists bool
	points []map[string]any
	apiKey string
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = r.Header.Get("api-key")
	reply := func(v any) { _ = json.NewEncoder(w).Encode(map[string]any{"result": v}) }
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	path := strings.TrimPrefix(r.URL.Path, "/collections/qa")
	switch {
	case path == "" && r.Method == http.MethodDelete:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		f.exists, f.points = false, nil
		reply(true)
	case path == "" && r.Method == http.MethodPut:
		f.exists = true
		f.size = int(body["vectors"].(map[string]any)["size"].(float64))
		reply(true)
	case path == "" && r.Method == http.MethodGet:
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		reply(map[string]any{"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": f.size}}}})
	case path == "/points" && r.Method == http.MethodPut:
		for _, p := range body["points"].([]any) {
			f.points = append(f.points, p.(map[string]any))
		}
		reply(map[string]any{"status": "completed"})
	case path == "/points/count":
		reply(map[string]any{"count": len(f.points)})
	case path == "/points/search":
		limit := int(body["limit"].(float64))
		var out []map[string]any
		for i, p := range f.points {
			if i == limit {
				break
			}
			out = append(out, map[string]any{"id": p["id"], "score": 1.0 - float64(i)/10, "payload": p["payload"]})
		}
		reply(out)
	case path == "/points/scroll":
		reply(map[string]any{"points": f.points})
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func TestOpenMissingCollection(t *testing.T) {
	srv := httptest.NewServer(&fakeQdrant{})
	defer srv.Close()
	s := NewStorage(Config{URL: srv.URL, Collection: "qa"})
	assert.ErrorIs(t, s.Open(context.Background(), 4), vectorstore.ErrStoreNotFound)
}

func TestResetWriteSearch(t *testing.T) {
	fake := &fakeQdrant{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	s := NewStorage(Config{URL: srv.URL + "/", APIKey: "k", Collection: "qa"})
	require.NoError(t, s.Reset(ctx, 2))
	assert.Equal(t, 2, fake.size)
	assert.Equal(t, "k", fake.apiKey)

	docs := []domain.Document{
		{Content: "Dinlenin.", Meta: domain.Metadata{Question: "Baş ağrısı", DoctorSpeciality: "Nöroloji"}},
		{Content: "Su için.", Meta: domain.Metadata{Question: "Halsizlik", DoctorSpeciality: "Dahiliye"}},
	}
	require.NoError(t, s.Write(ctx, docs, [][]float64{{1, 0}, {0, 1}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := s.Search(ctx, []float64{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Nöroloji", res[0].Document.Meta.DoctorSpeciality)
	assert.Equal(t, "Dinlenin.", res[0].Document.Content)
	assert.NotEmpty(t, res[0].Document.ID)

	sample, err := s.Sample(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, sample, 2)

	reopened := NewStorage(Config{URL: srv.URL, Collection: "qa"})
	require.NoError(t, reopened.Open(ctx, 2))
	assert.ErrorIs(t, reopened.Open(ctx, 3), vectorstore.ErrDimension)
}

func TestWriteBeforeOpen(t *testing.T) {
	s := NewStorage(Config{URL: "http://127.0.0.1:1", Collection: "qa"})
	err := s.Write(context.Background(), []domain.Document{{Content: "x"}}, [][]float64{{1}})
	assert.ErrorIs(t, err, vectorstore.ErrNotOpen)
}
