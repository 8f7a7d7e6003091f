package tabular

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SQLiteWriter writes rows into a table with one TEXT column per output
// column. All rows are inserted in a single transaction, committed on Close.
type SQLiteWriter struct {
	db      *sql.DB
	tx      *sql.Tx
	stmt    *sql.Stmt
	columns []string
	// N counts rows written.
	N int
}

// NewSQLiteWriter opens or creates the database at path and replaces table.
func NewSQLiteWriter(path, table string, columns []string) (*SQLiteWriter, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %q", table)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	var defs, names, params []string
	for _, c := range columns {
		defs = append(defs, quoteIdent(c)+" TEXT")
		names = append(names, quoteIdent(c))
		params = append(params, "?")
	}
	schema := fmt.Sprintf("DROP TABLE IF EXISTS %s; CREATE TABLE %s (%s);",
		quoteIdent(table), quoteIdent(table), strings.Join(defs, ", "))
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, err
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(params, ", ")))
	if err != nil {
		_ = tx.Rollback()
		db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	return &SQLiteWriter{db: db, tx: tx, stmt: stmt, columns: columns}, nil
}

// Write inserts a row.
func (w *SQLiteWriter) Write(row map[string]string) error {
	values := make([]any, len(w.columns))
	for i, c := range w.columns {
		values[i] = row[c]
	}
	if _, err := w.stmt.Exec(values...); err != nil {
		return fmt.Errorf("inserting row: %w", err)
	}
	w.N++
	return nil
}

// Close commits the transaction and closes the database.
func (w *SQLiteWriter) Close() error {
	if err := w.stmt.Close(); err != nil {
		_ = w.tx.Rollback()
		w.db.Close()
		return err
	}
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("committing: %w", err)
	}
	return w.db.Close()
}

// Abort rolls back all rows written and closes the database. The table stays
// in place, empty.
func (w *SQLiteWriter) Abort() error {
	_ = w.stmt.Close()
	err := w.tx.Rollback()
	if cerr := w.db.Close(); err == nil {
		err = cerr
	}
	return err
}
