// Package prompt builds the two-message chat prompt for a RAG turn.
package prompt

import (
	"strings"

	"healthqa/internal/domain"
)

// InsufficientInfo is the exact reply the model must give when the retrieved
// answers do not cover the question.
const InsufficientInfo = "Sağlanan bilgilere göre bu konuda yeterli veri bulunmamaktadır. Lütfen doktorunuza danışınız."

// SystemPolicy is the fixed system instruction of every turn.
const SystemPolicy = "Sen bir Türkçe sağlık danışmanlığı chatbotusun. " +
	"Rolün, yalnızca sağlanan doktor yanıtlarını analiz ederek hastanın sorusuna uygun açıklama üretmektir. " +
	"Kendi tıbbi yorumunu ekleme, varsayım yapma veya belgelerde yer almayan bilgileri kullanma. " +
	"Her yanıtın anlaşılır, sakin ve profesyonel bir tonda olmalı. " +
	"Eğer belgelerde yeterli veya ilgili bilgi yoksa, bunu açıkça belirt ('" + InsufficientInfo + "') " +
	"Başka bir şey yazma. " +
	"Eğer belgelerde yeterli bilgi varsa, yanıtını yapılandırılmış biçimde ve empatik bir kapanışla ver."

const (
	documentsHeader = "Belgeler:\n    "
	documentEntry   = "\n    - Uzmanlık Alanı: {speciality}\n    - Orijinal Soru: {question}\n    - Cevap İçeriği: {content}\n    "
	questionSection = "\n\n    Soru: {question}\n\n    Yanıt formatı:\n\n"
	// the trailing space after **Kaynakça:** is part of the wording
	formatSection = "    - Eğer belgelerde yeterli bilgi **yoksa**:\n" +
		"      \"" + InsufficientInfo + "\" ifadesini **aynen** yaz. Başka hiçbir şey ekleme.\n\n" +
		"    - Eğer belgelerde yeterli bilgi **varsa**:\n" +
		"      Sağlanan bilgilere göre:\n" +
		"      1. **Kısa Özet:** (sorunun genel yanıtını 1-2 cümlede açıkla)\n" +
		"      2. **Detaylı Açıklama:** (doktor cevaplarına dayalı detayları ve olası nedenleri açıkla)\n" +
		"      3. **Uyarı veya Öneri:** (doktorların vurguladığı önemli noktaları belirt)\n" +
		"      4. **Kaynakça:** \n" +
		"         - Yalnızca yanıtla doğrudan ilişkili uzmanlık alanlarını listele.\n" +
		"      5. **Empatik Kapanış:** \"Geçmiş olsun.\" ifadesini ekle.\n" +
		"    "
)

// UserMessage renders the retrieved answers, the question and the answer
// format into the user turn.
func UserMessage(results []domain.SearchResult, question string) string {
	var b strings.Builder
	b.WriteString(documentsHeader)
	for _, r := range results {
		entry := strings.NewReplacer(
			"{speciality}", r.Document.Meta.DoctorSpeciality,
			"{question}", r.Document.Meta.Question,
			"{content}", r.Document.Content,
		).Replace(documentEntry)
		b.WriteString(entry)
	}
	b.WriteString(strings.Replace(questionSection, "{question}", question, 1))
	b.WriteString(formatSection)
	return b.String()
}

// Build returns the prompt as exactly two messages: system, then user.
func Build(system string, results []domain.SearchResult, question string) []domain.Message {
	return []domain.Message{
		{Role: domain.RoleSystem, Content: system},
		{Role: domain.RoleUser, Content: UserMessage(results, question)},
	}
}
