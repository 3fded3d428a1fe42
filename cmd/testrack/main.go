package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/testrack/internal/apperr"
)

var version = "dev"

// Exit codes by error category.
const (
	exitInternal   = 1
	exitValidation = 2
	exitResolution = 3
)

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	switch apperr.Category(err) {
	case apperr.CategoryValidation:
		return exitValidation
	case apperr.CategoryResolution:
		return exitResolution
	default:
		return exitInternal
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "testrack",
		Usage:   "Track test suites and test cases stored as YAML files",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "testrack.yaml",
				Value:       "testrack.yaml",
				Sources:     cli.EnvVars("TESTRACK_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Workspace root, overrides workspace.root from the config file",
				Sources: cli.EnvVars("TESTRACK_ROOT"),
			},
		},
		Commands: commands(),
		// main owns the exit code.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("testrack error",
			slog.String("category", apperr.Category(err)),
			slog.String("error", err.Error()))
		os.Exit(exitCode(err))
	}
}
