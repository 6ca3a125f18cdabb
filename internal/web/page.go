// Package web serves the single dashboard page.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/starford/casemap/internal/dashboard"
	"github.com/starford/casemap/internal/figure"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// DefaultPlotlyURL is the plotly.js bundle the page loads.
const DefaultPlotlyURL = "https://cdn.plot.ly/plotly-2.35.2.min.js"

// Options configures the page chrome.
type Options struct {
	Title     string
	Footer    string
	PlotlyURL string
	APIBase   string
}

type pageData struct {
	Options
	Background string
	Text       string
	Max        int
	Label      string
}

// Snapshotter returns the currently published dataset snapshot.
type Snapshotter interface {
	Current() (*dashboard.Snapshot, error)
}

// Handler renders the dashboard page. The slider bounds and first label are
// rendered from the current snapshot; the map itself is fetched by the page.
func Handler(svc Snapshotter, opts Options) http.HandlerFunc {
	if opts.PlotlyURL == "" {
		opts.PlotlyURL = DefaultPlotlyURL
	}
	if opts.APIBase == "" {
		opts.APIBase = "/api"
	}
	return func(w http.ResponseWriter, r *http.Request) {
		data := pageData{
			Options:    opts,
			Background: figure.DarkBackground,
			Text:       figure.DarkText,
			Max:        -1,
			Label:      "Loading dataset",
		}
		if snap, err := svc.Current(); err == nil && snap.Index.Len() > 0 {
			data.Max = snap.Index.Len() - 1
			data.Label = figure.Label(snap.Index.First())
		}

		var buf bytes.Buffer
		if err := pageTemplate.Execute(&buf, data); err != nil {
			slog.Error("render page failed", slog.String("error", err.Error()))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(buf.Bytes())
	}
}
