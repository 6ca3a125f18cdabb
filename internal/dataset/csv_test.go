package dataset

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffiso_code,continent,location,date,total_cases,population\n" +
		"USA,North America,United States,2020-07-01,100,1000\n" +
		"OWID_WRL,,World,2020-07-01,,\n" +
		"FRA,Europe,France,2020-07-02\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if tbl.Columns[0] != "iso_code" {
		t.Errorf("BOM not stripped: %q", tbl.Columns[0])
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(tbl.Rows))
	}
	if tbl.Rows[0]["location"] != "United States" {
		t.Errorf("location = %q", tbl.Rows[0]["location"])
	}
	if tbl.Rows[2]["population"] != "" {
		t.Errorf("short row population = %q, want empty", tbl.Rows[2]["population"])
	}

	ds, idx, err := Prepare(tbl, DefaultColumns())
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if ds.Len() != 3 || idx.Len() != 2 {
		t.Errorf("len = %d/%d, want 3/2", ds.Len(), idx.Len())
	}
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	var le *LoadError
	if !errors.As(err, &le) || le.Op != "header" {
		t.Fatalf("err = %v, want header LoadError", err)
	}
}

func TestReadCSV_StrayQuoteKeepsRows(t *testing.T) {
	input := "iso_code,location,date,total_cases,population\n" +
		"USA,United States,2020-07-01,100,1000\n" +
		"CIV,Cote d\"Ivoire,2020-07-01,5,1000\n" +
		"FRA,France,2020-07-01,50,1000\n"

	tbl, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(tbl.Rows))
	}
	if got := tbl.Rows[1]["location"]; got != `Cote d"Ivoire` {
		t.Errorf("location = %q", got)
	}
	if got := tbl.Rows[2]["iso_code"]; got != "FRA" {
		t.Errorf("row after stray quote = %q, want FRA", got)
	}
}

func TestReadCSV_ReadFailure(t *testing.T) {
	r := io.MultiReader(
		strings.NewReader("date,iso_code\n2020-01-01,USA\n"),
		iotest.ErrReader(errors.New("disk gone")),
	)
	_, err := ReadCSV(r)
	var le *LoadError
	if !errors.As(err, &le) {
		t.Fatalf("err = %v, want LoadError", err)
	}
	if le.Op != "read" || le.Row != 2 {
		t.Errorf("op = %q, row = %d, want read row 2", le.Op, le.Row)
	}
}
