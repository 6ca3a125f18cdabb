package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/casemap/internal/checksum"
	"github.com/starford/casemap/internal/dataset"
)

// DefaultTable is the table read when none is configured.
const DefaultTable = "cases"

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite reads every row of one table.
type SQLite struct {
	path  string
	table string
}

// NewSQLite returns a SQLite source. table must be a plain identifier.
func NewSQLite(path, table string) (*SQLite, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("source: invalid table name %q", table)
	}
	return &SQLite{path: path, table: table}, nil
}

// Read loads the table. NULL cells become empty strings.
func (s *SQLite) Read(ctx context.Context) (dataset.RawTable, string, error) {
	if _, err := os.Stat(s.path); err != nil {
		return dataset.RawTable{}, "", &dataset.LoadError{Op: "read", Err: err}
	}
	conn, err := sql.Open("sqlite3", "file:"+s.path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return dataset.RawTable{}, "", &dataset.LoadError{Op: "read", Err: err}
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT * FROM `+quoteIdent(s.table))
	if err != nil {
		return dataset.RawTable{}, "", &dataset.LoadError{Op: "read", Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return dataset.RawTable{}, "", &dataset.LoadError{Op: "header", Err: err}
	}

	digest := checksum.NewDigest()
	digest.Add(cols...)

	table := dataset.RawTable{Columns: cols}
	cells := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range cells {
		dest[i] = &cells[i]
	}
	vals := make([]string, len(cols))
	for n := 1; rows.Next(); n++ {
		if err := rows.Scan(dest...); err != nil {
			return dataset.RawTable{}, "", &dataset.LoadError{Op: "read", Row: n, Err: err}
		}
		row := make(dataset.RawRow, len(cols))
		for i, c := range cols {
			vals[i] = cells[i].String
			row[c] = cells[i].String
		}
		digest.Add(vals...)
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return dataset.RawTable{}, "", &dataset.LoadError{Op: "read", Err: err}
	}
	return table, digest.Sum(), nil
}

// Path returns the database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) String() string { return "sqlite:" + s.path + "#" + s.table }

// Import loads a CSV file into table, replacing any previous contents.
// Every column is stored as TEXT; empty cells are stored as NULL.
func Import(ctx context.Context, csvPath, dbPath, table string) (int, error) {
	if table == "" {
		table = DefaultTable
	}
	if !identRe.MatchString(table) {
		return 0, fmt.Errorf("source: invalid table name %q", table)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("source: open csv: %w", err)
	}
	defer f.Close()
	raw, err := dataset.ReadCSV(f)
	if err != nil {
		return 0, err
	}
	if len(raw.Columns) == 0 {
		return 0, errors.New("source: csv has no columns")
	}

	conn, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return 0, fmt.Errorf("source: open db: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("source: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	defs := make([]string, len(raw.Columns))
	marks := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		defs[i] = quoteIdent(c) + " TEXT"
		marks[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+quoteIdent(table)); err != nil {
		return 0, fmt.Errorf("source: drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+quoteIdent(table)+` (`+strings.Join(defs, ", ")+`)`); err != nil {
		return 0, fmt.Errorf("source: create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+quoteIdent(table)+` VALUES (`+strings.Join(marks, ", ")+`)`)
	if err != nil {
		return 0, fmt.Errorf("source: prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(raw.Columns))
	for _, row := range raw.Rows {
		for i, c := range raw.Columns {
			if v := row[c]; v != "" {
				args[i] = v
			} else {
				args[i] = nil
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("source: insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("source: commit: %w", err)
	}
	return len(raw.Rows), nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
