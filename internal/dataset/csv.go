package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Column names of the source dataset export.
const (
	ColQuestion         = "question_content"
	ColAnswer           = "question_answer"
	ColDoctorTitle      = "doctor_title"
	ColDoctorSpeciality = "doctor_speciality"
)

var header = []string{ColQuestion, ColAnswer, ColDoctorTitle, ColDoctorSpeciality}

// ReadCSV parses records from a CSV stream whose first row names the columns.
// Question and answer columns are required; doctor columns are optional.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header row")
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	idx := make(map[string]int, len(head))
	for i, name := range head {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, required := range []string{ColQuestion, ColAnswer} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("csv: missing column %q", required)
		}
	}

	field := func(row []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var out []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", len(out)+2, err)
		}
		out = append(out, Record{
			Question:         field(row, ColQuestion),
			Answer:           field(row, ColAnswer),
			DoctorTitle:      field(row, ColDoctorTitle),
			DoctorSpeciality: field(row, ColDoctorSpeciality),
		})
	}
	return out, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Question, r.Answer, r.DoctorTitle, r.DoctorSpeciality}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes records to path, creating parent directories.
func WriteCSVFile(path string, records []Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
