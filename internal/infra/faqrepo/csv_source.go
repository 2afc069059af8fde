package faqrepo

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yanqian/faq-rag/internal/domain/faq"
)

const (
	questionColumn = "question"
	answerColumn   = "answer"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSource reads FAQ rows from a UTF-8 CSV file with a header row that
// names a question and an answer column.
type CSVSource struct {
	path string
}

// NewCSVSource constructs the source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Load implements faq.CorpusSource.
func (s *CSVSource) Load(context.Context) ([]faq.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read faq csv: %w", err)
	}
	records, err := ParseCSV(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return records, nil
}

// ParseCSV decodes FAQ rows in file order. Extra columns are ignored,
// duplicate questions are kept and empty answers are valid.
func ParseCSV(r io.Reader) ([]faq.Record, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, err
	}

	qIdx, aIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case questionColumn:
			if qIdx < 0 {
				qIdx = i
			}
		case answerColumn:
			if aIdx < 0 {
				aIdx = i
			}
		}
	}
	if qIdx < 0 || aIdx < 0 {
		return nil, fmt.Errorf("header must contain %q and %q columns, got %v", questionColumn, answerColumn, header)
	}

	records := []faq.Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, faq.Record{
			Question: row[qIdx],
			Answer:   row[aIdx],
		})
	}
	return records, nil
}

var _ faq.CorpusSource = (*CSVSource)(nil)
