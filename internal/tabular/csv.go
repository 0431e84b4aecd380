package tabular

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMissingColumn is wrapped by Require when a header is absent.
var ErrMissingColumn = errors.New("missing required column")

// Table is a parsed CSV file with a header row. Rows may be ragged; Get returns
// "" for cells past the end of a short row.
type Table struct {
	Header []string
	Rows   [][]string

	col map[string]int
}

// naValues mirrors the tokens pandas treats as missing when it reads a CSV.
var naValues = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
}

// IsNA reports whether a cell should be treated as a missing value.
func IsNA(s string) bool {
	_, ok := naValues[strings.TrimSpace(s)]
	return ok
}

func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := Read(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func Read(in io.Reader) (*Table, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("csv has no header row")
	}

	header := records[0]
	// Handle BOM on first header cell
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &Table{Header: make([]string, len(header)), Rows: records[1:], col: map[string]int{}}
	for i, h := range header {
		h = strings.TrimSpace(h)
		t.Header[i] = h
		if _, dup := t.col[h]; !dup {
			t.col[h] = i
		}
	}
	return t, nil
}

// Require fails with the first header in cols that the table does not have.
func (t *Table) Require(cols ...string) error {
	for _, k := range cols {
		if _, ok := t.col[k]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, k)
		}
	}
	return nil
}

func (t *Table) Has(name string) bool {
	_, ok := t.col[name]
	return ok
}

func (t *Table) Len() int { return len(t.Rows) }

// Get returns the trimmed cell for column name in row i.
func (t *Table) Get(i int, name string) string {
	c, ok := t.col[name]
	if !ok {
		return ""
	}
	rec := t.Rows[i]
	if c >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[c])
}

// ColumnsContaining returns header names containing sub, in file order.
func (t *Table) ColumnsContaining(sub string) []string {
	var out []string
	for _, h := range t.Header {
		if strings.Contains(h, sub) {
			out = append(out, h)
		}
	}
	return out
}
