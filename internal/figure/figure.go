// Package figure resolves a slider position into a display label and a
// choropleth figure for one day of the dataset.
package figure

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/starford/casemap/internal/apperr"
	"github.com/starford/casemap/internal/dataset"
)

// Label format. Source dates carry no time of day, so the clock is always zero.
const (
	LabelPrefix = "Viewing: "
	LabelLayout = "Jan 02 2006 15:04:05"
)

// The color domain is fixed so that frames for different dates share one
// scale. Ratios above ColorRangeMax saturate to the darkest color.
const (
	ColorRangeMin = 0.0
	ColorRangeMax = 0.008
)

// Map projection settings.
const (
	LocationMode = "ISO-3"
	Scope        = "world"
	Theme        = "plotly_dark"
	ColorBy      = "cases_per_capita"
)

// ColorStop is one stop of a continuous color scale.
type ColorStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// YlOrRd is the sequential light-yellow to dark-red palette.
var YlOrRd = []ColorStop{
	{0.000, "rgb(255,255,204)"},
	{0.125, "rgb(255,237,160)"},
	{0.250, "rgb(254,217,118)"},
	{0.375, "rgb(254,178,76)"},
	{0.500, "rgb(253,141,60)"},
	{0.625, "rgb(252,78,42)"},
	{0.750, "rgb(227,26,28)"},
	{0.875, "rgb(189,0,38)"},
	{1.000, "rgb(128,0,38)"},
}

// ErrDateNotIndexed is returned by ResolveDate for a date absent from the index.
var ErrDateNotIndexed = fmt.Errorf("date not in index: %w", apperr.ErrNotFound)

// Point is one shaded region.
type Point struct {
	LocationCode   string        `json:"location_code"`
	LocationName   string        `json:"location_name"`
	CasesPerCapita dataset.Float `json:"cases_per_capita"`
	TotalCases     dataset.Float `json:"total_cases"`
	Population     dataset.Float `json:"population"`
	Hover          string        `json:"hover"`
}

// NoData reports whether the point renders as "no data".
func (p Point) NoData() bool { return !p.CasesPerCapita.Valid }

// Figure describes a choropleth independent of any rendering library.
type Figure struct {
	LocationMode string      `json:"location_mode"`
	Scope        string      `json:"scope"`
	ColorBy      string      `json:"color_by"`
	ColorScale   []ColorStop `json:"color_scale"`
	ColorRange   [2]float64  `json:"color_range"`
	Theme        string      `json:"theme"`
	Points       []Point     `json:"points"`
}

// Selection is the result of resolving one slider position.
type Selection struct {
	Position int              `json:"position"`
	Date     time.Time        `json:"date"`
	Label    string           `json:"label"`
	Records  []dataset.Record `json:"-"`
	Figure   *Figure          `json:"figure"`
}

// Label formats d for display.
func Label(d time.Time) string {
	return LabelPrefix + d.UTC().Format(LabelLayout)
}

// Resolve maps a zero-based slider position to its label and figure.
// It does not modify ds or idx and returns identical output for identical input.
func Resolve(position int, ds *dataset.Dataset, idx *dataset.DateIndex) (*Selection, error) {
	d, err := idx.At(position)
	if err != nil {
		return nil, err
	}
	recs := ds.OnDate(d)
	return &Selection{
		Position: position,
		Date:     d,
		Label:    Label(d),
		Records:  recs,
		Figure:   Build(recs),
	}, nil
}

// ResolveDate resolves the position holding date d.
func ResolveDate(d time.Time, ds *dataset.Dataset, idx *dataset.DateIndex) (*Selection, error) {
	pos, ok := idx.Position(d)
	if !ok {
		return nil, ErrDateNotIndexed
	}
	return Resolve(pos, ds, idx)
}

// Build creates the choropleth for a set of records sharing one date.
// An empty set yields a figure without points.
func Build(recs []dataset.Record) *Figure {
	scale := make([]ColorStop, len(YlOrRd))
	copy(scale, YlOrRd)

	p := message.NewPrinter(language.English)
	points := make([]Point, 0, len(recs))
	for _, r := range recs {
		points = append(points, Point{
			LocationCode:   r.LocationCode,
			LocationName:   r.LocationName,
			CasesPerCapita: r.CasesPerCapita,
			TotalCases:     r.TotalCases,
			Population:     r.Population,
			Hover:          hover(p, r),
		})
	}
	return &Figure{
		LocationMode: LocationMode,
		Scope:        Scope,
		ColorBy:      ColorBy,
		ColorScale:   scale,
		ColorRange:   [2]float64{ColorRangeMin, ColorRangeMax},
		Theme:        Theme,
		Points:       points,
	}
}

func hover(p *message.Printer, r dataset.Record) string {
	name := r.LocationName
	if name == "" {
		name = r.LocationCode
	}
	return p.Sprintf("%s<br>cases_per_capita=%s<br>total_cases=%s<br>population=%s",
		name, r.CasesPerCapita.String(), count(p, r.TotalCases), count(p, r.Population))
}

func count(p *message.Printer, f dataset.Float) string {
	if !f.Valid {
		return "no data"
	}
	return p.Sprintf("%d", int64(math.Round(f.Value)))
}
