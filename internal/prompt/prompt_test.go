package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthqa/internal/domain"
)

func neurologyResult() domain.SearchResult {
	return domain.SearchResult{
		Score: 0.91,
		Document: domain.Document{
			Content: "Ani başlayan, şiddetli ve bulantıyla seyreden baş ağrısında acile başvurun.",
			Meta: domain.Metadata{
				Question:         "Baş ağrısı ne zaman tehlikelidir, baş ağrısı için ne yapmalıyım?",
				DoctorTitle:      "Uzm. Dr.",
				DoctorSpeciality: "Nöroloji",
			},
		},
	}
}

func TestBuildShape(t *testing.T) {
	msgs := Build(SystemPolicy, []domain.SearchResult{neurologyResult()}, "Baş ağrısı ne zaman tehlikelidir?")
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, SystemPolicy, msgs[0].Content)
	assert.Equal(t, domain.RoleUser, msgs[1].Role)

	user := msgs[1].Content
	assert.Contains(t, user, "- Uzmanlık Alanı: Nöroloji\n")
	assert.Contains(t, user, "- Orijinal Soru: Baş ağrısı ne zaman tehlikelidir, baş ağrısı için ne yapmalıyım?\n")
	assert.Contains(t, user, "- Cevap İçeriği: Ani başlayan, şiddetli ve bulantıyla seyreden baş ağrısında acile başvurun.\n")
	assert.Contains(t, user, "Soru: Baş ağrısı ne zaman tehlikelidir?\n")
}

func TestUserMessageExactRendering(t *testing.T) {
	r := domain.SearchResult{Document: domain.Document{
		Content: "C", Meta: domain.Metadata{Question: "Q", DoctorSpeciality: "S"},
	}}
	want := "Belgeler:\n    \n    - Uzmanlık Alanı: S\n    - Orijinal Soru: Q\n    - Cevap İçeriği: C\n    " +
		"\n\n    Soru: soru\n\n    Yanıt formatı:\n\n" +
		"    - Eğer belgelerde yeterli bilgi **yoksa**:\n" +
		"      \"Sağlanan bilgilere göre bu konuda yeterli veri bulunmamaktadır. Lütfen doktorunuza danışınız.\" ifadesini **aynen** yaz. Başka hiçbir şey ekleme.\n\n" +
		"    - Eğer belgelerde yeterli bilgi **varsa**:\n" +
		"      Sağlanan bilgilere göre:\n" +
		"      1. **Kısa Özet:** (sorunun genel yanıtını 1-2 cümlede açıkla)\n" +
		"      2. **Detaylı Açıklama:** (doktor cevaplarına dayalı detayları ve olası nedenleri açıkla)\n" +
		"      3. **Uyarı veya Öneri:** (doktorların vurguladığı önemli noktaları belirt)\n" +
		"      4. **Kaynakça:** \n" +
		"         - Yalnızca yanıtla doğrudan ilişkili uzmanlık alanlarını listele.\n" +
		"      5. **Empatik Kapanış:** \"Geçmiş olsun.\" ifadesini ekle.\n" +
		"    "
	assert.Equal(t, want, UserMessage([]domain.SearchResult{r}, "soru"))
}

func TestEmptyResultsStillCarryInsufficientInfo(t *testing.T) {
	msgs := Build(SystemPolicy, nil, "Kulak çınlaması neden olur?")
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, InsufficientInfo)
	assert.Contains(t, msgs[1].Content, InsufficientInfo)
	assert.NotContains(t, msgs[1].Content, "Uzmanlık Alanı")
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Belgeler:\n    \n\n    Soru: Kulak çınlaması neden olur?"))
}

func TestBuildDeterministic(t *testing.T) {
	results := []domain.SearchResult{neurologyResult(), neurologyResult()}
	a := Build(SystemPolicy, results, "Baş ağrısı?")
	b := Build(SystemPolicy, results, "Baş ağrısı?")
	assert.Equal(t, a, b)
}

func TestPlaceholdersInValuesAreNotExpanded(t *testing.T) {
	r := domain.SearchResult{Document: domain.Document{Content: "{question}", Meta: domain.Metadata{Question: "gerçek"}}}
	user := UserMessage([]domain.SearchResult{r}, "soru")
	assert.Contains(t, user, "- Cevap İçeriği: {question}\n")
}
