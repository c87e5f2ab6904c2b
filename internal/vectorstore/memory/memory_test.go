package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthqa/internal/domain"
	"healthqa/internal/vectorstore"
)

func TestOpenBeforeResetNotFound(t *testing.T) {
	s := NewStorage()
	assert.ErrorIs(t, s.Open(context.Background(), 2), vectorstore.ErrStoreNotFound)
	_, err := s.Count(context.Background())
	assert.ErrorIs(t, err, vectorstore.ErrNotOpen)
}

func TestWriteSearchCount(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Reset(ctx, 2))

	docs := []domain.Document{
		{Content: "baş ağrısı", Meta: domain.Metadata{DoctorSpeciality: "Nöroloji"}},
		{Content: "mide bulantısı", Meta: domain.Metadata{DoctorSpeciality: "Gastroenteroloji"}},
		{Content: "sırt ağrısı", Meta: domain.Metadata{DoctorSpeciality: "Ortopedi"}},
		{Content: "öksürük", Meta: domain.Metadata{DoctorSpeciality: "Göğüs Hastalıkları"}},
	}
	vecs := [][]float64{{1, 0}, {0, 1}, {0.8, 0.2}, {-1, 0}}
	require.NoError(t, s.Write(ctx, docs, vecs))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "Nöroloji", res[0].Document.Meta.DoctorSpeciality)
	assert.Equal(t, "Ortopedi", res[1].Document.Meta.DoctorSpeciality)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
	}
	for _, r := range res {
		assert.NotEmpty(t, r.Document.ID)
	}
}

func TestSearchFewerThanK(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Write(ctx, []domain.Document{{Content: "tek"}}, [][]float64{{1, 1}}))

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestResetClearsAndReopen(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Reset(ctx, 2))
	require.NoError(t, s.Write(ctx, []domain.Document{{Content: "a"}}, [][]float64{{1, 0}}))
	require.NoError(t, s.Reset(ctx, 2))

	require.NoError(t, s.Open(ctx, 2))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, s.Open(ctx, 3), vectorstore.ErrDimension)
}

func TestWriteRejectsWrongDimension(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Reset(ctx, 3))
	err := s.Write(ctx, []domain.Document{{Content: "a"}}, [][]float64{{1, 0}})
	assert.ErrorIs(t, err, vectorstore.ErrDimension)
}

func TestSample(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Reset(ctx, 1))
	require.NoError(t, s.Write(ctx,
		[]domain.Document{{Content: "a"}, {Content: "b"}, {Content: "c"}},
		[][]float64{{1}, {1}, {1}}))
	docs, err := s.Sample(ctx, 2)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].Content)
}
