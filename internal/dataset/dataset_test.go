package dataset

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func table(rows ...RawRow) RawTable {
	return RawTable{
		Columns: []string{"iso_code", "location", "date", "total_cases", "population"},
		Rows:    rows,
	}
}

func row(date, code string, total, pop string) RawRow {
	return RawRow{"iso_code": code, "location": code + " name", "date": date, "total_cases": total, "population": pop}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPrepare_DerivesRatio(t *testing.T) {
	ds, idx, err := Prepare(table(
		row("2020-07-01", "USA", "100", "1000"),
		row("2020-07-02", "USA", "200", "1000"),
	), DefaultColumns())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("records = %d, want 2", ds.Len())
	}
	recs := ds.Records()
	if !recs[0].CasesPerCapita.Valid || recs[0].CasesPerCapita.Value != 0.1 {
		t.Errorf("ratio = %v, want 0.1", recs[0].CasesPerCapita)
	}
	if recs[1].CasesPerCapita.Value != 0.2 {
		t.Errorf("ratio = %v, want 0.2", recs[1].CasesPerCapita)
	}
	if recs[0].LocationName != "USA name" {
		t.Errorf("location name = %q", recs[0].LocationName)
	}
	if idx.Len() != 2 {
		t.Fatalf("dates = %d, want 2", idx.Len())
	}
}

func TestPrepare_MissingRatio(t *testing.T) {
	cases := []struct {
		name       string
		total, pop string
	}{
		{"zero population", "10", "0"},
		{"empty population", "10", ""},
		{"empty total", "", "1000"},
		{"malformed total", "abc", "1000"},
		{"nan population", "10", "NaN"},
		{"infinite total", "Inf", "1000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ds, _, err := Prepare(table(row("2020-07-01", "FRA", tc.total, tc.pop)), DefaultColumns())
			if err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			r := ds.Records()[0]
			if r.CasesPerCapita.Valid {
				t.Errorf("ratio = %v, want missing", r.CasesPerCapita)
			}
			if r.CasesPerCapita.String() != "no data" {
				t.Errorf("String() = %q", r.CasesPerCapita.String())
			}
		})
	}
}

func TestPrepare_ThousandsSeparator(t *testing.T) {
	ds, _, err := Prepare(table(row("2020-07-01", "DEU", "1,000", "100,000")), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if got := ds.Records()[0].CasesPerCapita; got.Value != 0.01 {
		t.Errorf("ratio = %v, want 0.01", got)
	}
}

func TestParseFloat_Commas(t *testing.T) {
	cases := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"1,000", 1000, true},
		{"331,002,651", 331002651, true},
		{"-1,234.5", -1234.5, true},
		{"1234", 1234, true},
		{"1,5", 0, false},
		{"12,34,567", 0, false},
		{"1,0000", 0, false},
		{",100", 0, false},
	}
	for _, tc := range cases {
		got := parseFloat(tc.raw)
		if got.Valid != tc.valid || (tc.valid && got.Value != tc.want) {
			t.Errorf("parseFloat(%q) = %+v, want valid=%v value=%v", tc.raw, got, tc.valid, tc.want)
		}
	}
}

func TestPrepare_RatioMissingIffInputsMissing(t *testing.T) {
	ds, _, err := Prepare(table(
		row("2020-01-01", "A", "1", "3"),
		row("2020-01-01", "B", "", "3"),
		row("2020-01-01", "C", "1", ""),
		row("2020-01-01", "D", "0", "7"),
		row("2020-01-01", "E", "5", "0"),
	), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range ds.Records() {
		wantMissing := !r.TotalCases.Valid || !r.Population.Valid || r.Population.Value == 0
		if r.CasesPerCapita.Valid == wantMissing {
			t.Errorf("%s: ratio valid = %v, want missing = %v", r.LocationCode, r.CasesPerCapita.Valid, wantMissing)
		}
		if !wantMissing && r.CasesPerCapita.Value != r.TotalCases.Value/r.Population.Value {
			t.Errorf("%s: ratio = %v", r.LocationCode, r.CasesPerCapita.Value)
		}
	}
}

func TestPrepare_DateIndexSortedDistinct(t *testing.T) {
	_, idx, err := Prepare(table(
		row("2020-03-05", "A", "1", "1"),
		row("2020-01-01", "A", "1", "1"),
		row("2020-03-05", "B", "1", "1"),
		row("2020-02-10", "B", "1", "1"),
		row("2020-01-01", "C", "1", "1"),
	), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	want := []time.Time{day(2020, 1, 1), day(2020, 2, 10), day(2020, 3, 5)}
	got := idx.Dates()
	if len(got) != len(want) {
		t.Fatalf("dates = %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("dates[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	for p := 1; p < idx.Len(); p++ {
		prev, _ := idx.At(p - 1)
		cur, _ := idx.At(p)
		if !prev.Before(cur) {
			t.Errorf("index not strictly ascending at %d", p)
		}
	}
	if !idx.First().Equal(want[0]) || !idx.Last().Equal(want[2]) {
		t.Errorf("first/last = %v/%v", idx.First(), idx.Last())
	}
}

func TestPrepare_MissingRequiredColumn(t *testing.T) {
	tbl := RawTable{
		Columns: []string{"iso_code", "date", "total_cases"},
		Rows:    []RawRow{{"iso_code": "USA", "date": "2020-07-01", "total_cases": "1"}},
	}
	_, _, err := Prepare(tbl, DefaultColumns())
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
	if le.Column != "population" {
		t.Errorf("column = %q, want population", le.Column)
	}
}

func TestPrepare_LocationNameOptional(t *testing.T) {
	tbl := RawTable{
		Columns: []string{"iso_code", "date", "total_cases", "population"},
		Rows:    []RawRow{{"iso_code": "USA", "date": "2020-07-01", "total_cases": "1", "population": "2"}},
	}
	ds, _, err := Prepare(tbl, DefaultColumns())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if ds.Records()[0].LocationName != "" {
		t.Errorf("location name = %q, want empty", ds.Records()[0].LocationName)
	}
}

func TestPrepare_BadDateIsLoadError(t *testing.T) {
	_, _, err := Prepare(table(
		row("2020-07-01", "USA", "1", "1"),
		row("July first", "USA", "1", "1"),
	), DefaultColumns())
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want *LoadError", err)
	}
	if le.Row != 2 || le.Op != "date" {
		t.Errorf("load error = %+v", le)
	}
}

func TestPrepare_EmptyTable(t *testing.T) {
	ds, idx, err := Prepare(table(), DefaultColumns())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if ds.Len() != 0 || idx.Len() != 0 {
		t.Errorf("len = %d/%d, want 0/0", ds.Len(), idx.Len())
	}
	if !idx.First().IsZero() {
		t.Errorf("first = %v, want zero", idx.First())
	}
}

func TestParseDate_Layouts(t *testing.T) {
	want := day(2020, 7, 2)
	for _, s := range []string{"2020-07-02", "2020/07/02", "2020-07-02T13:45:00Z", "2020-07-02 08:00:00", " 2020-07-02 "} {
		got, err := ParseDate(s)
		if err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := ParseDate(""); err == nil {
		t.Error("empty date should fail")
	}
}

func TestParseDate_OffsetConvertedToUTC(t *testing.T) {
	got, err := ParseDate("2020-07-01T23:30:00-05:00")
	if err != nil {
		t.Fatal(err)
	}
	if want := day(2020, 7, 2); !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got, want)
	}
}

func TestDateIndex_AtOutOfRange(t *testing.T) {
	_, idx, _ := Prepare(table(row("2020-07-01", "USA", "1", "1"), row("2020-07-02", "USA", "1", "1")), DefaultColumns())
	for _, p := range []int{-1, 2, 99} {
		_, err := idx.At(p)
		var re *RangeError
		if !errors.As(err, &re) {
			t.Errorf("At(%d) err = %v, want *RangeError", p, err)
			continue
		}
		if re.Max() != 1 {
			t.Errorf("Max() = %d, want 1", re.Max())
		}
	}
}

func TestDateIndex_Position(t *testing.T) {
	_, idx, _ := Prepare(table(row("2020-07-01", "USA", "1", "1"), row("2020-07-03", "USA", "1", "1")), DefaultColumns())
	if p, ok := idx.Position(day(2020, 7, 3)); !ok || p != 1 {
		t.Errorf("Position = %d, %v; want 1, true", p, ok)
	}
	if _, ok := idx.Position(day(2020, 7, 2)); ok {
		t.Error("unindexed date should not be found")
	}
}

func TestRangeError_Clamp(t *testing.T) {
	cases := []struct {
		pos, n, want int
	}{
		{-3, 5, 0},
		{7, 5, 4},
		{2, 5, 2},
		{1, 0, 0},
	}
	for _, tc := range cases {
		e := &RangeError{Position: tc.pos, Len: tc.n}
		if got := e.Clamp(); got != tc.want {
			t.Errorf("Clamp(%d, len %d) = %d, want %d", tc.pos, tc.n, got, tc.want)
		}
	}
}

func TestDataset_OnDate(t *testing.T) {
	ds, _, _ := Prepare(table(
		row("2020-07-01", "USA", "1", "10"),
		row("2020-07-02", "USA", "2", "10"),
		row("2020-07-01", "FRA", "3", "10"),
	), DefaultColumns())
	got := ds.OnDate(day(2020, 7, 1))
	if len(got) != 2 || got[0].LocationCode != "USA" || got[1].LocationCode != "FRA" {
		t.Errorf("OnDate = %+v", got)
	}
	if none := ds.OnDate(day(2021, 1, 1)); none == nil || len(none) != 0 {
		t.Errorf("OnDate(unknown) = %v, want empty slice", none)
	}
}

func TestDataset_Summary(t *testing.T) {
	ds, _, _ := Prepare(table(
		row("2020-07-01", "USA", "1", "10"),
		row("2020-07-01", "FRA", "", "10"),
		row("2020-07-02", "USA", "2", "0"),
	), DefaultColumns())
	s := ds.Summary()
	if s.Records != 3 || s.Locations != 2 || s.MissingRatios != 2 {
		t.Errorf("summary = %+v", s)
	}
}

func TestFloat_JSON(t *testing.T) {
	b, _ := json.Marshal([]Float{Some(0.1), Missing(), Some(0)})
	if string(b) != "[0.1,null,0]" {
		t.Errorf("json = %s", b)
	}
	var back []Float
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back[0].Valid || back[1].Valid || !back[2].Valid {
		t.Errorf("round trip = %+v", back)
	}
	if back[0].Value != 0.1 {
		t.Errorf("value = %v", back[0].Value)
	}
}
