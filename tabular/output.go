package tabular

import (
	"bufio"
	"fmt"
	"os"

	"github.com/miku/purekit/xio"
)

// Output formats.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Output is a writer backed by a file. Either Close or Abort must be called.
type Output interface {
	Writer
	// Abort discards everything written so far.
	Abort() error
}

type csvFile struct {
	*CSVWriter
	f *xio.WriteCloser
}

func (c *csvFile) Close() error {
	if err := c.CSVWriter.Close(); err != nil {
		_ = c.f.Abort()
		return err
	}
	return c.f.Close()
}

func (c *csvFile) Abort() error { return c.f.Abort() }

type csvStdout struct {
	*CSVWriter
	bw *bufio.Writer
}

func (c *csvStdout) Close() error {
	if err := c.CSVWriter.Close(); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *csvStdout) Abort() error { return c.bw.Flush() }

// Create opens an output of the given format. CSV files are written
// atomically and compressed by extension, "-" writes CSV to stdout. For
// SQLite, filename is the database and table is replaced.
func Create(format, filename, table string, columns []string, opts CSVOptions) (Output, error) {
	switch format {
	case FormatCSV, "":
		if filename == "-" {
			bw := bufio.NewWriter(os.Stdout)
			return &csvStdout{CSVWriter: NewCSVWriter(bw, columns, opts), bw: bw}, nil
		}
		f, err := xio.Create(filename)
		if err != nil {
			return nil, err
		}
		return &csvFile{CSVWriter: NewCSVWriter(f, columns, opts), f: f}, nil
	case FormatSQLite:
		return NewSQLiteWriter(filename, table, columns)
	}
	return nil, fmt.Errorf("unknown output format: %s", format)
}
