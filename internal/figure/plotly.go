package figure

import "github.com/starford/casemap/internal/dataset"

// Dark theme colors shared by the map and the page.
const (
	DarkBackground = "#0e0e0e"
	DarkText       = "#7FDBFF"
	darkLand       = "#2a2a2a"
	darkCoast      = "#506784"
)

// Plotly is a plotly.js figure document: pass Data and Layout to Plotly.react.
type Plotly struct {
	Data   []PlotlyTrace `json:"data"`
	Layout PlotlyLayout  `json:"layout"`
}

// PlotlyTrace is a choropleth trace.
type PlotlyTrace struct {
	Type          string          `json:"type"`
	LocationMode  string          `json:"locationmode"`
	Locations     []string        `json:"locations"`
	Z             []dataset.Float `json:"z"`
	ZMin          float64         `json:"zmin"`
	ZMax          float64         `json:"zmax"`
	ZAuto         bool            `json:"zauto"`
	ColorScale    [][2]any        `json:"colorscale"`
	Text          []string        `json:"text"`
	HoverTemplate string          `json:"hovertemplate"`
	ColorBar      PlotlyColorBar  `json:"colorbar"`
	Marker        PlotlyMarker    `json:"marker"`
}

// PlotlyColorBar titles the color bar.
type PlotlyColorBar struct {
	Title string `json:"title"`
}

// PlotlyMarker styles region borders.
type PlotlyMarker struct {
	Line PlotlyLine `json:"line"`
}

// PlotlyLine is a border line.
type PlotlyLine struct {
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// PlotlyLayout is the dark-themed map layout.
type PlotlyLayout struct {
	PaperBGColor string       `json:"paper_bgcolor"`
	PlotBGColor  string       `json:"plot_bgcolor"`
	Font         PlotlyFont   `json:"font"`
	Geo          PlotlyGeo    `json:"geo"`
	Margin       PlotlyMargin `json:"margin"`
}

// PlotlyFont sets the text color.
type PlotlyFont struct {
	Color string `json:"color"`
}

// PlotlyGeo configures the world map.
type PlotlyGeo struct {
	Scope          string `json:"scope"`
	BGColor        string `json:"bgcolor"`
	LandColor      string `json:"landcolor"`
	ShowLand       bool   `json:"showland"`
	CoastlineColor string `json:"coastlinecolor"`
	ShowFrame      bool   `json:"showframe"`
}

// PlotlyMargin sets figure margins in pixels.
type PlotlyMargin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// Plotly converts the figure to a plotly.js document. Missing ratios become
// null z values, which plotly leaves unshaded.
func (f *Figure) Plotly() Plotly {
	n := len(f.Points)
	trace := PlotlyTrace{
		Type:          "choropleth",
		LocationMode:  f.LocationMode,
		Locations:     make([]string, n),
		Z:             make([]dataset.Float, n),
		ZMin:          f.ColorRange[0],
		ZMax:          f.ColorRange[1],
		ColorScale:    make([][2]any, len(f.ColorScale)),
		Text:          make([]string, n),
		HoverTemplate: "%{text}<extra></extra>",
		ColorBar:      PlotlyColorBar{Title: f.ColorBy},
		Marker:        PlotlyMarker{Line: PlotlyLine{Color: darkCoast, Width: 0.5}},
	}
	for i, p := range f.Points {
		trace.Locations[i] = p.LocationCode
		trace.Z[i] = p.CasesPerCapita
		trace.Text[i] = p.Hover
	}
	for i, s := range f.ColorScale {
		trace.ColorScale[i] = [2]any{s.Offset, s.Color}
	}
	return Plotly{
		Data: []PlotlyTrace{trace},
		Layout: PlotlyLayout{
			PaperBGColor: DarkBackground,
			PlotBGColor:  DarkBackground,
			Font:         PlotlyFont{Color: DarkText},
			Geo: PlotlyGeo{
				Scope:          f.Scope,
				BGColor:        DarkBackground,
				LandColor:      darkLand,
				ShowLand:       true,
				CoastlineColor: darkCoast,
			},
			Margin: PlotlyMargin{L: 0, R: 0, T: 0, B: 0},
		},
	}
}
