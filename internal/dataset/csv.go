package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ReadCSV reads comma-separated text with a header row into a RawTable.
// Short rows leave trailing columns empty; extra cells are ignored. Stray
// quotes inside unquoted cells are kept as literal text.
func ReadCSV(r io.Reader) (RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return RawTable{}, &LoadError{Op: "header", Err: errors.New("empty input")}
	}
	if err != nil {
		return RawTable{}, &LoadError{Op: "header", Err: err}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	table := RawTable{Columns: header}
	for n := 1; ; n++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return RawTable{}, &LoadError{Op: "read", Row: n, Err: err}
		}
		row := make(RawRow, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
