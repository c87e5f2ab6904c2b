// Package dataset turns the raw patient/doctor Q&A export into cleaned
// records and the document cache consumed by the index build.
package dataset

import (
	"regexp"
	"strings"
)

// Record is one question/answer row of the source table.
type Record struct {
	Question         string
	Answer           string
	DoctorTitle      string
	DoctorSpeciality string
}

// Stats reports the row counts after each cleaning stage.
type Stats struct {
	Raw        int
	NonEmpty   int
	Deduped    int
	Duplicates int
}

// Matches the Unicode White_Space set, not just ASCII \s.
var whitespaceRe = regexp.MustCompile(`[\s\v\x{0085}\p{Z}]+`)

// NormalizeWhitespace collapses every whitespace run to a single space and
// trims both ends.
func NormalizeWhitespace(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Clean drops records with a blank question or answer, normalizes the text
// fields and removes exact (question, answer) duplicates. The first
// occurrence wins and input order is kept.
func Clean(records []Record) ([]Record, Stats) {
	st := Stats{Raw: len(records)}
	out := make([]Record, 0, len(records))
	seen := make(map[[2]string]struct{}, len(records))
	for _, r := range records {
		r.Question = NormalizeWhitespace(r.Question)
		r.Answer = NormalizeWhitespace(r.Answer)
		if r.Question == "" || r.Answer == "" {
			continue
		}
		st.NonEmpty++
		r.DoctorTitle = NormalizeWhitespace(r.DoctorTitle)
		r.DoctorSpeciality = NormalizeWhitespace(r.DoctorSpeciality)

		key := [2]string{r.Question, r.Answer}
		if _, dup := seen[key]; dup {
			st.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	st.Deduped = len(out)
	return out, st
}
