package api

import (
	"github.com/starford/casemap/internal/dashboard"
	"github.com/starford/casemap/internal/figure"
)

// DatesResponse lists the slider domain.
type DatesResponse struct {
	Dates []string `json:"dates"`
	Count int      `json:"count"`
	Min   int      `json:"min"`
	Max   int      `json:"max"`
}

// FigureResponse is the label and map for one slider position.
type FigureResponse struct {
	Position int            `json:"position"`
	Date     string         `json:"date"`
	Label    string         `json:"label"`
	Points   []figure.Point `json:"points"`
	Figure   figure.Plotly  `json:"figure"`
}

// RangeErrorResponse reports an out-of-range position with the valid bounds.
type RangeErrorResponse struct {
	Error    string `json:"error"`
	Position int    `json:"position"`
	Min      int    `json:"min"`
	Max      int    `json:"max"`
}

// SummaryResponse describes the loaded dataset.
type SummaryResponse = dashboard.Summary

func newFigureResponse(sel *figure.Selection) FigureResponse {
	return FigureResponse{
		Position: sel.Position,
		Date:     sel.Date.Format(dashboard.DateLayout),
		Label:    sel.Label,
		Points:   sel.Figure.Points,
		Figure:   sel.Figure.Plotly(),
	}
}
