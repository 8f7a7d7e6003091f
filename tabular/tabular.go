// Package tabular writes rows to CSV files or SQLite tables. Output columns
// come from a static, versioned list, so the schema does not depend on the
// data seen.
package tabular

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/miku/purekit/normal"
	"gopkg.in/yaml.v3"
)

//go:embed columns.yaml
var columnsFile []byte

var ErrUnknownVersion = errors.New("unknown column list version")

// DefaultVersion is the richest column list.
const DefaultVersion = "v2"

func columnLists() (map[string][]string, error) {
	var lists map[string][]string
	if err := yaml.Unmarshal(columnsFile, &lists); err != nil {
		return nil, fmt.Errorf("parsing column lists: %w", err)
	}
	return lists, nil
}

// Versions returns the known column list versions.
func Versions() []string {
	lists, err := columnLists()
	if err != nil {
		return nil
	}
	var versions []string
	for k := range lists {
		versions = append(versions, k)
	}
	sort.Strings(versions)
	return versions
}

// Columns returns the static column list of a version, followed by the extra
// columns not already listed, in order.
func Columns(version string, extra ...[]string) ([]string, error) {
	lists, err := columnLists()
	if err != nil {
		return nil, err
	}
	static, ok := lists[version]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, version)
	}
	var (
		seen    = make(map[string]bool)
		columns []string
	)
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}
	for _, c := range static {
		add(c)
	}
	for _, cs := range extra {
		for _, c := range cs {
			add(c)
		}
	}
	return columns, nil
}

// Writer consumes rows. Fields not in the column list are ignored, missing
// fields are written empty.
type Writer interface {
	Write(row map[string]string) error
	Close() error
}

// Quoting controls which fields are quoted.
type Quoting int

const (
	// QuoteMinimal quotes only fields with delimiter, quote or line breaks.
	QuoteMinimal Quoting = iota
	// QuoteAll quotes every field.
	QuoteAll
)

// ParseQuoting parses "minimal" or "all".
func ParseQuoting(s string) (Quoting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "minimal":
		return QuoteMinimal, nil
	case "all":
		return QuoteAll, nil
	}
	return QuoteMinimal, fmt.Errorf("unknown quoting mode: %s", s)
}

// CSVOptions configures the CSV dialect.
type CSVOptions struct {
	Delimiter rune
	Quote     rune
	Quoting   Quoting
	// LineTerminator defaults to "\r\n".
	LineTerminator string
	// OneLine replaces line breaks and tabs inside fields with spaces.
	OneLine bool
}

// DefaultCSVOptions are the options of the historic output.
var DefaultCSVOptions = CSVOptions{
	Delimiter:      ';',
	Quote:          '"',
	Quoting:        QuoteMinimal,
	LineTerminator: "\r\n",
}

// CSVWriter writes a header and one line per row.
type CSVWriter struct {
	w       io.Writer
	columns []string
	opts    CSVOptions
	header  bool
	buf     strings.Builder
	// N counts rows written, excluding the header.
	N int
}

// NewCSVWriter returns a writer for the given columns.
func NewCSVWriter(w io.Writer, columns []string, opts CSVOptions) *CSVWriter {
	if opts.Delimiter == 0 {
		opts.Delimiter = DefaultCSVOptions.Delimiter
	}
	if opts.Quote == 0 {
		opts.Quote = DefaultCSVOptions.Quote
	}
	if opts.LineTerminator == "" {
		opts.LineTerminator = DefaultCSVOptions.LineTerminator
	}
	return &CSVWriter{w: w, columns: columns, opts: opts}
}

func (w *CSVWriter) needsQuote(s string) bool {
	if w.opts.Quoting == QuoteAll {
		return true
	}
	return strings.ContainsRune(s, w.opts.Delimiter) ||
		strings.ContainsRune(s, w.opts.Quote) ||
		strings.ContainsAny(s, "\r\n")
}

func (w *CSVWriter) writeLine(fields []string) error {
	w.buf.Reset()
	q := string(w.opts.Quote)
	for i, s := range fields {
		if i > 0 {
			w.buf.WriteRune(w.opts.Delimiter)
		}
		if w.opts.OneLine {
			s = normal.ReplaceNewlineAndTab(s)
		}
		if w.needsQuote(s) {
			w.buf.WriteString(q)
			w.buf.WriteString(strings.ReplaceAll(s, q, q+q))
			w.buf.WriteString(q)
		} else {
			w.buf.WriteString(s)
		}
	}
	w.buf.WriteString(w.opts.LineTerminator)
	_, err := io.WriteString(w.w, w.buf.String())
	return err
}

// Write writes a row, preceded by the header on first use.
func (w *CSVWriter) Write(row map[string]string) error {
	if !w.header {
		if err := w.writeLine(w.columns); err != nil {
			return err
		}
		w.header = true
	}
	fields := make([]string, len(w.columns))
	for i, c := range w.columns {
		fields[i] = row[c]
	}
	if err := w.writeLine(fields); err != nil {
		return err
	}
	w.N++
	return nil
}

// Close writes the header, if no row has been written. It does not close the
// underlying writer.
func (w *CSVWriter) Close() error {
	if !w.header {
		w.header = true
		return w.writeLine(w.columns)
	}
	return nil
}
