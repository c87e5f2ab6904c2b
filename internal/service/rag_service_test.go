package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"healthqa/internal/domain"
	"healthqa/internal/prompt"
	"healthqa/internal/vectorstore/memory"
)

func seededStore(t *testing.T) *memory.Storage {
	t.Helper()
	ctx := context.Background()
	s := memory.NewStorage()
	require.NoError(t, s.Reset(ctx, 2))
	docs := []domain.Document{
		{
			Content: "Ani ve şiddetli baş ağrısı, bilinç bulanıklığı veya görme kaybı varsa acile başvurun.",
			Meta: domain.Metadata{
				Question:         "Baş ağrısı ne zaman tehlikeli olur, sürekli baş ağrısı çekiyorum",
				DoctorTitle:      "Uzm. Dr.",
				DoctorSpeciality: "Nöroloji",
			},
		},
		{
			Content: "Reflü için akşam yemeklerini erken yiyin.",
			Meta:    domain.Metadata{Question: "Mide yanması", DoctorSpeciality: "Gastroenteroloji"},
		},
		{
			Content: "Düzenli egzersiz yapın.",
			Meta:    domain.Metadata{Question: "Bel ağrısı", DoctorSpeciality: "Ortopedi"},
		},
		{
			Content: "Bol su için.",
			Meta:    domain.Metadata{Question: "Halsizlik", DoctorSpeciality: "Dahiliye"},
		},
	}
	require.NoError(t, s.Write(ctx, docs, [][]float64{{1, 0}, {0, 1}, {0.6, 0.4}, {0.2, 0.8}}))
	return s
}

func TestAnswerHeadacheScenario(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0.05}}
	gen := &fakeGenerator{reply: "Sağlanan bilgilere göre: ... Geçmiş olsun."}
	svc := NewRAGService(emb, seededStore(t), gen, 3, zaptest.NewLogger(t))

	ans, err := svc.Answer(context.Background(), "Baş ağrısı ne zaman tehlikelidir?")
	require.NoError(t, err)
	assert.Equal(t, gen.reply, ans.Text)

	require.NotEmpty(t, ans.Sources)
	assert.LessOrEqual(t, len(ans.Sources), 3)
	for i := 1; i < len(ans.Sources); i++ {
		assert.GreaterOrEqual(t, ans.Sources[i-1].Score, ans.Sources[i].Score)
	}
	top := ans.Sources[0].Document
	assert.Equal(t, "Nöroloji", top.Meta.DoctorSpeciality)

	require.Len(t, gen.messages, 2)
	assert.Equal(t, domain.RoleSystem, gen.messages[0].Role)
	assert.Equal(t, prompt.SystemPolicy, gen.messages[0].Content)
	user := gen.messages[1].Content
	assert.Contains(t, user, top.Meta.DoctorSpeciality)
	assert.Contains(t, user, top.Meta.Question)
	assert.Contains(t, user, top.Content)
	assert.Contains(t, user, "Soru: Baş ağrısı ne zaman tehlikelidir?")
	assert.Equal(t, gen.messages, ans.Prompt)
}

func TestAnswerEmptyStoreStillGenerates(t *testing.T) {
	s := memory.NewStorage()
	require.NoError(t, s.Reset(context.Background(), 2))
	gen := &fakeGenerator{reply: prompt.InsufficientInfo}
	svc := NewRAGService(&fakeEmbedder{vec: []float64{1, 0}}, s, gen, 3, nil)

	ans, err := svc.Answer(context.Background(), "Nadir bir hastalık?")
	require.NoError(t, err)
	assert.Empty(t, ans.Sources)
	assert.Contains(t, gen.messages[1].Content, prompt.InsufficientInfo)
}

func TestAnswerEmptyQuery(t *testing.T) {
	emb := &fakeEmbedder{vec: []float64{1, 0}}
	svc := NewRAGService(emb, seededStore(t), &fakeGenerator{}, 3, nil)
	_, err := svc.Answer(context.Background(), "  \t ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, emb.calls)
}

func TestAnswerStageErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		emb   *fakeEmbedder
		store Searcher
		gen   *fakeGenerator
		stage Stage
	}{
		{"embed", &fakeEmbedder{err: boom}, seededStore(t), &fakeGenerator{}, StageEmbed},
		{"retrieve", &fakeEmbedder{vec: []float64{1, 0}}, failingSearcher{}, &fakeGenerator{}, StageRetrieve},
		{"generate", &fakeEmbedder{vec: []float64{1, 0}}, seededStore(t), &fakeGenerator{err: boom}, StageGenerate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewRAGService(tt.emb, tt.store, tt.gen, 3, zaptest.NewLogger(t))
			_, err := svc.Answer(context.Background(), "soru")
			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.stage, qe.Stage)
			if tt.stage != StageGenerate {
				assert.Zero(t, tt.gen.calls)
			}
		})
	}
}
