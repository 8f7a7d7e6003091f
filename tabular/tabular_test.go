package tabular

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/miku/purekit/flatten"
	"github.com/miku/purekit/keyword"
	"github.com/miku/purekit/ref"
)

func TestVersions(t *testing.T) {
	if diff := cmp.Diff([]string{"v1", "v2"}, Versions()); diff != "" {
		t.Errorf("Versions mismatch (-want +got):\n%s", diff)
	}
}

func TestColumns(t *testing.T) {
	columns, err := Columns("v1", []string{"keyword_openaccess", "uuid"}, []string{"jufo_2020"})
	if err != nil {
		t.Fatal(err)
	}
	if columns[0] != "uuid" {
		t.Errorf("got %v, want uuid first", columns[0])
	}
	n := len(columns)
	if diff := cmp.Diff([]string{"keyword_openaccess", "jufo_2020"}, columns[n-2:]); diff != "" {
		t.Errorf("extra columns mismatch (-want +got):\n%s", diff)
	}
	if _, err := Columns("v0"); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("got %v, want %v", err, ErrUnknownVersion)
	}
}

// TestColumnsKnown checks that every static column is produced by the
// flattener.
func TestColumnsKnown(t *testing.T) {
	f := flatten.New(ref.New(nil, ref.Options{}), nil, flatten.Options{Keywords: keyword.Options{}})
	known := make(map[string]bool)
	for _, c := range f.Columns() {
		known[c] = true
	}
	for _, v := range Versions() {
		columns, err := Columns(v)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range columns {
			if !known[c] {
				t.Errorf("%s: column %s is never written", v, c)
			}
		}
	}
}

func TestParseQuoting(t *testing.T) {
	var cases = []struct {
		s    string
		want Quoting
		err  bool
	}{
		{"", QuoteMinimal, false},
		{"minimal", QuoteMinimal, false},
		{"ALL", QuoteAll, false},
		{"some", QuoteMinimal, true},
	}
	for _, c := range cases {
		got, err := ParseQuoting(c.s)
		if got != c.want || (err != nil) != c.err {
			t.Errorf("ParseQuoting(%q) got %v %v", c.s, got, err)
		}
	}
}

func TestCSVWriter(t *testing.T) {
	rows := []map[string]string{
		{"uuid": "R1", "title": `A "quoted"; title`, "ignored": "x"},
		{"uuid": "R2", "title": "line\nbreak"},
		{"uuid": "R3"},
	}
	var cases = []struct {
		about string
		opts  CSVOptions
		want  string
	}{
		{
			"default",
			DefaultCSVOptions,
			"uuid;title\r\nR1;\"A \"\"quoted\"\"; title\"\r\nR2;\"line\nbreak\"\r\nR3;\r\n",
		},
		{
			"quote all, one line, comma",
			CSVOptions{Delimiter: ',', Quote: '\'', Quoting: QuoteAll, LineTerminator: "\n", OneLine: true},
			"'uuid','title'\n'R1','A \"quoted\"; title'\n'R2','line break'\n'R3',''\n",
		},
	}
	for _, c := range cases {
		t.Run(c.about, func(t *testing.T) {
			var sb strings.Builder
			w := NewCSVWriter(&sb, []string{"uuid", "title"}, c.opts)
			for _, row := range rows {
				if err := w.Write(row); err != nil {
					t.Fatal(err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}
			if sb.String() != c.want {
				t.Errorf("got %q, want %q", sb.String(), c.want)
			}
			if w.N != 3 {
				t.Errorf("got %d rows, want 3", w.N)
			}
		})
	}
}

func TestCSVWriterHeaderOnly(t *testing.T) {
	var sb strings.Builder
	w := NewCSVWriter(&sb, []string{"a", "b"}, CSVOptions{})
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if sb.String() != "a;b\r\n" {
		t.Errorf("got %q", sb.String())
	}
}

func TestSQLiteWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pure.db")
	columns := []string{"uuid", "title", "jufo_2020"}
	for run := 0; run < 2; run++ {
		w, err := NewSQLiteWriter(path, "research_outputs", columns)
		if err != nil {
			t.Fatal(err)
		}
		for _, row := range []map[string]string{
			{"uuid": "R1", "title": "First", "jufo_2020": "2"},
			{"uuid": "R1", "title": "First", "other": "x"},
		} {
			if err := w.Write(row); err != nil {
				t.Fatal(err)
			}
		}
		if err := w.Close(); err != nil {
			t.Fatal(err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM research_outputs`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	// the table is replaced on each run
	if n != 2 {
		t.Fatalf("got %d rows, want 2", n)
	}
	var level string
	if err := db.QueryRow(`SELECT "jufo_2020" FROM research_outputs WHERE "jufo_2020" != ''`).Scan(&level); err != nil {
		t.Fatal(err)
	}
	if level != "2" {
		t.Fatalf("got %v, want 2", level)
	}
	if _, err := NewSQLiteWriter(path, "bad name", columns); err == nil {
		t.Fatal("expected error for invalid table name")
	}
}
