// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the dashboard resolver as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/casemap/internal/dashboard"
	"github.com/starford/casemap/internal/dataset"
	"github.com/starford/casemap/internal/figure"
)

// ContractURI is the resource URI of FigureContract.
const ContractURI = "casemap://figure-contract"

// Server wraps the MCP server with casemap tools.
type Server struct {
	mcp *server.MCPServer
	svc *dashboard.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *dashboard.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Casemap",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_dates",
		mcp.WithDescription("List the dataset dates in slider order with the valid position bounds."),
	), s.listDates)

	s.mcp.AddTool(mcp.NewTool("resolve_position",
		mcp.WithDescription("Resolve a zero-based slider position to its label and per-country cases per capita. "+
			"Read the figure contract first via get_figure_contract or the "+ContractURI+" resource."),
		mcp.WithNumber("position", mcp.Required(), mcp.Description("Zero-based slider position")),
		mcp.WithBoolean("clamp", mcp.Description("Clamp out-of-range positions to the nearest valid one")),
	), s.resolvePosition)

	s.mcp.AddTool(mcp.NewTool("resolve_date",
		mcp.WithDescription("Resolve a calendar date to its slider position, label and per-country cases per capita."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date, YYYY-MM-DD")),
	), s.resolveDate)

	s.mcp.AddTool(mcp.NewTool("dataset_summary",
		mcp.WithDescription("Describe the loaded dataset: source, checksum, record and date counts."),
	), s.datasetSummary)

	s.mcp.AddTool(mcp.NewTool("get_figure_contract",
		mcp.WithDescription("Returns the contract for positions, labels, color scale and missing data."),
	), s.getFigureContract)

	s.mcp.AddResource(
		mcp.NewResource(ContractURI, "Figure Contract",
			mcp.WithResourceDescription("How slider positions map to labels and choropleth maps."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type datesResult struct {
	Dates []string `json:"dates"`
	Count int      `json:"count"`
	Min   int      `json:"min"`
	Max   int      `json:"max"`
}

type pointResult struct {
	Code           string        `json:"code"`
	Name           string        `json:"name,omitempty"`
	CasesPerCapita dataset.Float `json:"cases_per_capita"`
	TotalCases     dataset.Float `json:"total_cases"`
	Population     dataset.Float `json:"population"`
}

type selectionResult struct {
	Position int           `json:"position"`
	Date     string        `json:"date"`
	Label    string        `json:"label"`
	Points   []pointResult `json:"points"`
	NoData   int           `json:"no_data"`
}

func newSelectionResult(sel *figure.Selection) selectionResult {
	res := selectionResult{
		Position: sel.Position,
		Date:     sel.Date.Format(dashboard.DateLayout),
		Label:    sel.Label,
		Points:   make([]pointResult, 0, len(sel.Figure.Points)),
	}
	for _, p := range sel.Figure.Points {
		if p.NoData() {
			res.NoData++
		}
		res.Points = append(res.Points, pointResult{
			Code:           p.LocationCode,
			Name:           p.LocationName,
			CasesPerCapita: p.CasesPerCapita,
			TotalCases:     p.TotalCases,
			Population:     p.Population,
		})
	}
	return res
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Current()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dates := snap.Dates()
	return jsonResult(datesResult{Dates: dates, Count: len(dates), Min: 0, Max: len(dates) - 1})
}

func (s *Server) resolvePosition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireFloat("position")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if raw != math.Trunc(raw) || math.IsInf(raw, 0) {
		return mcp.NewToolResultError(fmt.Sprintf("position must be an integer, got %v", raw)), nil
	}
	sel, _, err := s.svc.Resolve(ctx, int(raw))
	var re *dataset.RangeError
	if errors.As(err, &re) && re.Len > 0 && req.GetBool("clamp", false) {
		sel, _, err = s.svc.Resolve(ctx, re.Clamp())
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(newSelectionResult(sel))
}

func (s *Server) resolveDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := req.RequireString("date")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel, _, err := s.svc.ResolveDate(ctx, date)
	if errors.Is(err, figure.ErrDateNotIndexed) {
		return mcp.NewToolResultError(fmt.Sprintf("no data for %s: %v", date, err)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(newSelectionResult(sel))
}

func (s *Server) datasetSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.svc.Current()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(snap.Summary())
}

func (s *Server) getFigureContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FigureContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ContractURI,
			MIMEType: "text/markdown",
			Text:     FigureContract,
		},
	}, nil
}
