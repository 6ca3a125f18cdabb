// Package testutil provides shared test helpers for writing datasets and
// building snapshots.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/casemap/internal/dataset"
)

// Header is the column layout written by WriteCSV, a subset of the OWID export.
const Header = "iso_code,continent,location,date,total_cases,population"

// TwoDays is the USA fixture with one record on 2020-07-01 and one on 2020-07-02.
var TwoDays = []string{
	"USA,North America,United States,2020-07-01,100,1000",
	"USA,North America,United States,2020-07-02,200,1000",
}

// WriteCSV writes Header plus lines to a file in a temp dir and returns its path.
func WriteCSV(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "owid-covid-data.csv")
	if err := os.WriteFile(path, []byte(CSV(lines...)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// CSV joins Header and lines into CSV text.
func CSV(lines ...string) string {
	return Header + "\n" + strings.Join(lines, "\n") + "\n"
}

// Prepare parses CSV lines into a dataset and date index.
func Prepare(t *testing.T, lines ...string) (*dataset.Dataset, *dataset.DateIndex) {
	t.Helper()
	table, err := dataset.ReadCSV(strings.NewReader(CSV(lines...)))
	if err != nil {
		t.Fatal(err)
	}
	ds, idx, err := dataset.Prepare(table, dataset.DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	return ds, idx
}
