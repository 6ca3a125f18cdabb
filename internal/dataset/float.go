package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// groupedRe matches numbers written with comma thousands separators.
var groupedRe = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)

// Float is a nullable float64. The zero value is missing.
type Float struct {
	Value float64
	Valid bool
}

// Some returns a present Float.
func Some(v float64) Float { return Float{Value: v, Valid: true} }

// Missing returns an absent Float.
func Missing() Float { return Float{} }

// String renders the exact value, or "no data" when missing.
func (f Float) String() string {
	if !f.Valid {
		return "no data"
	}
	return strconv.FormatFloat(f.Value, 'g', -1, 64)
}

// MarshalJSON encodes a missing value as null.
func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f.Value, 'g', -1, 64), nil
}

// UnmarshalJSON accepts a number or null.
func (f *Float) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = Float{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = Some(v)
	return nil
}

// parseFloat degrades empty, malformed and non-finite cells to missing.
// Commas are accepted only as thousands separators, so "1,5" is missing.
func parseFloat(raw string) Float {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Missing()
	}
	if strings.Contains(s, ",") {
		if !groupedRe.MatchString(s) {
			return Missing()
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return Some(v)
}

// ratio divides num by den. Missing when either side is missing or den is zero.
func ratio(num, den Float) Float {
	if !num.Valid || !den.Valid || den.Value == 0 {
		return Missing()
	}
	v := num.Value / den.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return Some(v)
}
