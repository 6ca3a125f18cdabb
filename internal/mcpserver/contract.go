package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/casemap/internal/figure"
)

// FigureContract describes how slider positions map to labels and maps, so
// that LLM consumers can reason about tool output without reading the code.
var FigureContract = buildContract()

func buildContract() string {
	var b strings.Builder
	b.WriteString(`# Casemap Figure Contract

Every figure is a world choropleth of cumulative confirmed cases per person
for exactly one calendar date.

## Positions

1. Positions are **zero-based**. Position 0 is the earliest date in the
   dataset and position count-1 is the latest. Call ` + "`list_dates`" + ` for
   the current bounds.
2. Dates are distinct and strictly ascending. Adjacent positions may skip
   calendar days when the dataset has gaps.
3. A position outside [0, count-1] is an error. It is never wrapped or
   silently clamped unless the caller asks for clamping.
4. The date list can grow when the dataset is reloaded. A position keeps
   meaning the same date only while the dataset is unchanged.

## Label

`)
	fmt.Fprintf(&b, "The label is %q followed by the date in Go layout %q,\n", figure.LabelPrefix, figure.LabelLayout)
	b.WriteString("for example `Viewing: Jul 01 2020 00:00:00`. The time is always midnight UTC.\n\n")
	b.WriteString("## Color\n\n")
	fmt.Fprintf(&b, "- Regions are colored by `%s` = total_cases / population.\n", figure.ColorBy)
	fmt.Fprintf(&b, "- The color range is fixed at [%g, %g] for every date, so colors are\n  comparable across dates. Values above the maximum saturate.\n", figure.ColorRangeMin, figure.ColorRangeMax)
	b.WriteString("- The palette is sequential yellow-orange-red, low to high:\n")
	for _, stop := range figure.YlOrRd {
		fmt.Fprintf(&b, "  - %g: %s\n", stop.Offset, stop.Color)
	}
	fmt.Fprintf(&b, "- Regions are keyed by ISO 3166-1 alpha-3 code (%s) on a %s map.\n\n", figure.LocationMode, figure.Scope)
	b.WriteString(`## Missing data

A region whose total_cases or population is missing, or whose population is
zero, has ` + "`cases_per_capita: null`" + ` and is rendered as "no data". It is
never shown as zero.
`)
	return b.String()
}
