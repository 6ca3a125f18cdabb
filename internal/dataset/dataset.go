// Package dataset prepares the per-country case table and its date index.
//
// A Dataset and its DateIndex are built once by Prepare and never mutated,
// so any number of goroutines may read them without locking.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Record is one row of the source table.
type Record struct {
	Date           time.Time `json:"date"`
	LocationCode   string    `json:"location_code"`
	LocationName   string    `json:"location_name"`
	TotalCases     Float     `json:"total_cases"`
	Population     Float     `json:"population"`
	CasesPerCapita Float     `json:"cases_per_capita"`
}

// Columns maps record fields to source column names.
type Columns struct {
	Date         string `yaml:"date"`
	LocationCode string `yaml:"location_code"`
	LocationName string `yaml:"location_name"`
	TotalCases   string `yaml:"total_cases"`
	Population   string `yaml:"population"`
}

// DefaultColumns returns the column names used by the OWID COVID-19 export.
func DefaultColumns() Columns {
	return Columns{
		Date:         "date",
		LocationCode: "iso_code",
		LocationName: "location",
		TotalCases:   "total_cases",
		Population:   "population",
	}
}

// required returns the column names that must be present in the header.
func (c Columns) required() []string {
	return []string{c.Date, c.LocationCode, c.TotalCases, c.Population}
}

// RawRow maps a column name to its raw cell text.
type RawRow map[string]string

// RawTable is an unparsed table: header plus rows.
type RawTable struct {
	Columns []string
	Rows    []RawRow
}

// Dataset is the full, read-only collection of records in source order.
type Dataset struct {
	records []Record
}

// Prepare parses raw rows, derives cases_per_capita and builds the date index.
func Prepare(table RawTable, cols Columns) (*Dataset, *DateIndex, error) {
	header := make(map[string]struct{}, len(table.Columns))
	for _, c := range table.Columns {
		header[strings.TrimSpace(c)] = struct{}{}
	}
	for _, name := range cols.required() {
		if name == "" {
			return nil, nil, &LoadError{Op: "schema", Err: errors.New("required column name is empty")}
		}
		if _, ok := header[name]; !ok {
			return nil, nil, &LoadError{Op: "schema", Column: name, Err: errors.New("required column missing")}
		}
	}

	records := make([]Record, len(table.Rows))
	seen := make(map[time.Time]struct{})
	for i, row := range table.Rows {
		d, err := ParseDate(row[cols.Date])
		if err != nil {
			return nil, nil, &LoadError{Op: "date", Row: i + 1, Column: cols.Date, Err: err}
		}
		total := parseFloat(row[cols.TotalCases])
		pop := parseFloat(row[cols.Population])
		rec := Record{
			Date:           d,
			LocationCode:   strings.TrimSpace(row[cols.LocationCode]),
			TotalCases:     total,
			Population:     pop,
			CasesPerCapita: ratio(total, pop),
		}
		if cols.LocationName != "" {
			rec.LocationName = strings.TrimSpace(row[cols.LocationName])
		}
		records[i] = rec
		seen[d] = struct{}{}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return &Dataset{records: records}, &DateIndex{dates: dates}, nil
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate parses an ISO-8601-like date and truncates it to a UTC civil date.
// Timestamps with an offset are converted to UTC first.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// Len returns the number of records.
func (ds *Dataset) Len() int { return len(ds.records) }

// Records returns a copy of all records.
func (ds *Dataset) Records() []Record {
	out := make([]Record, len(ds.records))
	copy(out, ds.records)
	return out
}

// OnDate returns every record whose date equals d, in source order.
func (ds *Dataset) OnDate(d time.Time) []Record {
	out := []Record{}
	for _, r := range ds.records {
		if r.Date.Equal(d) {
			out = append(out, r)
		}
	}
	return out
}

// Locations returns the sorted distinct location codes.
func (ds *Dataset) Locations() []string {
	set := make(map[string]struct{})
	for _, r := range ds.records {
		if r.LocationCode != "" {
			set[r.LocationCode] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Summary describes a dataset for operators.
type Summary struct {
	Records       int `json:"records"`
	Locations     int `json:"locations"`
	MissingRatios int `json:"missing_ratios"`
}

// Summary counts records, locations and records without a ratio.
func (ds *Dataset) Summary() Summary {
	s := Summary{Records: len(ds.records), Locations: len(ds.Locations())}
	for _, r := range ds.records {
		if !r.CasesPerCapita.Valid {
			s.MissingRatios++
		}
	}
	return s
}

// DateIndex is the ascending, deduplicated sequence of dates in a Dataset.
// Positions are zero-based.
type DateIndex struct {
	dates []time.Time
}

// Len returns the number of distinct dates.
func (idx *DateIndex) Len() int { return len(idx.dates) }

// At returns the date at position p.
func (idx *DateIndex) At(p int) (time.Time, error) {
	if p < 0 || p >= len(idx.dates) {
		return time.Time{}, &RangeError{Position: p, Len: len(idx.dates)}
	}
	return idx.dates[p], nil
}

// Position returns the position of d, if indexed.
func (idx *DateIndex) Position(d time.Time) (int, bool) {
	i := sort.Search(len(idx.dates), func(i int) bool { return !idx.dates[i].Before(d) })
	if i < len(idx.dates) && idx.dates[i].Equal(d) {
		return i, true
	}
	return 0, false
}

// Dates returns a copy of the indexed dates.
func (idx *DateIndex) Dates() []time.Time {
	out := make([]time.Time, len(idx.dates))
	copy(out, idx.dates)
	return out
}

// First returns the earliest date, or the zero time for an empty index.
func (idx *DateIndex) First() time.Time {
	if len(idx.dates) == 0 {
		return time.Time{}
	}
	return idx.dates[0]
}

// Last returns the latest date, or the zero time for an empty index.
func (idx *DateIndex) Last() time.Time {
	if len(idx.dates) == 0 {
		return time.Time{}
	}
	return idx.dates[len(idx.dates)-1]
}
