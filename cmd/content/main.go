// Command content maintains a SkyGuessr content directory: it scaffolds
// location records from captured panoramas, pads map images square and
// validates the catalogs against the files on disk.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/skyguessr/game/content"
)

// ErrInvalidContent is returned by validate when the report fails
var ErrInvalidContent = errors.New("content is invalid")

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env")
	}

	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "content",
		Usage:     "Maintain a SkyGuessr content directory",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "content-dir",
				Value:   "content",
				Usage:   "Directory containing location_data.json, map_data.json and the images",
				Sources: cli.EnvVars("CONTENT_DIR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := zerolog.InfoLevel
			if cmd.Bool("debug") {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "scaffold",
				Usage: "Add skeleton location records for every new image of a map",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "map",
						Usage:    "Map whose image directory to scan",
						Required: true,
					},
				},
				Action: runScaffold,
			},
			{
				Name:  "square",
				Usage: "Pad map images to a square canvas",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory of map images (default <content-dir>/maps)",
					},
				},
				Action: runSquare,
			},
			{
				Name:  "validate",
				Usage: "Check the catalogs against the files on disk",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Treat warnings as errors",
					},
				},
				Action: runValidate,
			},
		},
	}
}

func runScaffold(ctx context.Context, cmd *cli.Command) error {
	result, err := content.Scaffold(cmd.String("content-dir"), cmd.String("map"))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	fmt.Fprintf(out, "%s: %d added, %d already present\n", result.Map, len(result.Added), len(result.Skipped))
	for _, id := range result.Added {
		fmt.Fprintf(out, "  + %s\n", id)
	}
	return nil
}

func runSquare(ctx context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	if dir == "" {
		dir = filepath.Join(cmd.String("content-dir"), "maps")
	}

	results, err := content.SquareMaps(dir)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, r := range results {
		status := "already square"
		if r.Padded {
			size := max(r.Width, r.Height)
			status = fmt.Sprintf("padded to %dx%d", size, size)
		}
		fmt.Fprintf(out, "%s (%dx%d): %s\n", r.File, r.Width, r.Height, status)
	}
	return nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	report := content.Validate(cmd.String("content-dir"))
	out := cmd.Root().Writer

	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 40))
	fmt.Fprintf(out, "Maps: %d  Locations: %d  Skeletons: %d\n", report.Maps, report.Locations, report.Skeletons)
	fmt.Fprintf(out, "Playable: %s\n", strings.Join(report.Playable, ", "))

	for _, e := range report.Errors {
		fmt.Fprintf(out, "  ❌ %s\n", e)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(out, "  ⚠️  %s\n", w)
	}
	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 40))

	if !report.Valid() || (cmd.Bool("strict") && len(report.Warnings) > 0) {
		fmt.Fprintln(out, "❌ Content has problems")
		return ErrInvalidContent
	}
	fmt.Fprintln(out, "✅ Content is valid")
	return nil
}
