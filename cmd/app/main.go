package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/casemap/internal"
	"github.com/starford/casemap/internal/dataset"
	"github.com/starford/casemap/internal/source"
	pkgconfig "github.com/starford/casemap/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	if dataPath := cmd.String("dataset"); dataPath != "" {
		cfg.Dataset.Path = dataPath
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func resolve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	err = internal.Resolve(ctx, int(cmd.Int("position")), cmd.Bool("plotly"), os.Stdout, internal.WithConfig(cfg))
	var re *dataset.RangeError
	if errors.As(err, &re) {
		return fmt.Errorf("%w (valid positions are 0..%d)", err, re.Max())
	}
	return err
}

func importCSV(ctx context.Context, cmd *cli.Command) error {
	n, err := source.Import(ctx, cmd.String("csv"), cmd.String("db"), cmd.String("table"))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	slog.Info("import complete",
		slog.String("csv", cmd.String("csv")),
		slog.String("db", cmd.String("db")),
		slog.String("table", cmd.String("table")),
		slog.Int("rows", n))
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "casemap",
		Usage:   "World map of COVID-19 cases per capita with a date slider",
		Version: internal.Version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "dataset",
				Aliases: []string{"d"},
				Usage:   "Override dataset.path from the config file",
				Sources: cli.EnvVars("CASEMAP_DATASET"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the dashboard page and REST API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the resolver as MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "resolve",
				Usage:  "Print the label and map for one zero-based slider position",
				Action: resolve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "position",
						Aliases:  []string{"p"},
						Usage:    "Zero-based slider position",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "plotly",
						Usage: "Emit the plotly.js figure document instead of the plain figure",
					},
				},
			},
			{
				Name:   "import",
				Usage:  "Copy a CSV export into a SQLite table for the sqlite source",
				Action: importCSV,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "csv",
						Usage:    "CSV file to import",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "db",
						Usage:    "SQLite database file (created if missing)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "table",
						Usage: "Destination table, replaced if it exists",
						Value: source.DefaultTable,
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
