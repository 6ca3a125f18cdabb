// Package source reads the raw case table from a CSV file or a SQLite database.
package source

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/starford/casemap/internal/apperr"
	"github.com/starford/casemap/internal/checksum"
	"github.com/starford/casemap/internal/dataset"
)

// Source kinds.
const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

// Source yields the raw table and a checksum identifying its content.
type Source interface {
	Read(ctx context.Context) (dataset.RawTable, string, error)
	// Path is the file backing the source, used for change watching.
	Path() string
	String() string
}

// New returns the Source for kind.
func New(kind, path, table string) (Source, error) {
	switch kind {
	case KindCSV, "":
		return NewCSV(path), nil
	case KindSQLite:
		return NewSQLite(path, table)
	default:
		return nil, fmt.Errorf("%w: %q", apperr.ErrUnsupportedSource, kind)
	}
}

// CSV reads a comma-separated file with a header row.
type CSV struct {
	path string
}

// NewCSV returns a CSV source for path.
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Read loads the whole file. An unreadable file is a *dataset.LoadError.
func (c *CSV) Read(ctx context.Context) (dataset.RawTable, string, error) {
	if err := ctx.Err(); err != nil {
		return dataset.RawTable{}, "", err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return dataset.RawTable{}, "", &dataset.LoadError{Op: "read", Err: err}
	}
	table, err := dataset.ReadCSV(bytes.NewReader(data))
	if err != nil {
		return dataset.RawTable{}, "", err
	}
	return table, checksum.Sum(data), nil
}

// Path returns the CSV file path.
func (c *CSV) Path() string { return c.path }

func (c *CSV) String() string { return "csv:" + c.path }
