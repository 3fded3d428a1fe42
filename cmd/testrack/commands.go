package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/testrack/internal"
	"github.com/starford/testrack/internal/apperr"
	"github.com/starford/testrack/internal/catalog"
	"github.com/starford/testrack/internal/filter"
	"github.com/starford/testrack/internal/models"
	"github.com/starford/testrack/internal/parser"
	"github.com/starford/testrack/internal/tracker"
	pkgconfig "github.com/starford/testrack/pkg/config"
)

// loadConfig reads the optional config file and applies the global flag
// overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadWithDefaults(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Workspace.Root = root
	}
	return cfg, nil
}

type serviceAction func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error

// withService opens the workspace around fn. The search catalog is only
// opened for commands that query it.
func withService(useCatalog bool, fn serviceAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.SQLite.Enabled = cfg.SQLite.Enabled && useCatalog
		logger := internal.NewLogger(cfg, cmd.Root().ErrWriter)
		ws, err := internal.OpenWorkspace(cfg, logger)
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(ctx, cmd, ws.Service)
	}
}

func printJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// argN returns the n-th positional argument or a usage error naming it.
func argN(cmd *cli.Command, n int, name string) (string, error) {
	if cmd.Args().Len() <= n || cmd.Args().Get(n) == "" {
		return "", cli.Exit(fmt.Sprintf("missing argument <%s>", name), exitInternal)
	}
	return cmd.Args().Get(n), nil
}

// recordFlag decodes a YAML or JSON object given inline.
func recordFlag(cmd *cli.Command, name string) (models.Record, error) {
	raw := cmd.String(name)
	if raw == "" {
		return nil, nil
	}
	rec, err := parser.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return rec, nil
}

func commands() []*cli.Command {
	return []*cli.Command{
		lintCommand(),
		checkCommand(),
		listCommand(),
		{
			Name:      "show",
			Usage:     "Show an entity with its related entities and back-references",
			ArgsUsage: "<id>",
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				id, err := argN(cmd, 0, "id")
				if err != nil {
					return err
				}
				d, err := svc.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, d)
			}),
		},
		createCommand("create-suite", "Create a suite at <dir>/<id>/index.yaml", (*tracker.Service).CreateSuite),
		createCommand("create-case", "Create a test case at <dir>/<id>.testcase.yaml", (*tracker.Service).CreateCase),
		{
			Name:      "template",
			Usage:     "Copy an entity under a new id, resetting its execution state",
			ArgsUsage: "<source-id> <new-id>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title of the copy", Required: true},
				&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Target directory (default: next to the source)"},
			},
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				src, err := argN(cmd, 0, "source-id")
				if err != nil {
					return err
				}
				id, err := argN(cmd, 1, "new-id")
				if err != nil {
					return err
				}
				res, err := svc.CreateFromTemplate(ctx, tracker.TemplateInput{
					SourceID: src, ID: id, Title: cmd.String("title"), Dir: cmd.String("dir"),
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			}),
		},
		{
			Name:      "update",
			Usage:     "Merge a partial update into an entity",
			ArgsUsage: "<id>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "patch", Aliases: []string{"p"}, Usage: `Fields to replace, e.g. '{status: done, completedDay: 2026-03-05}'`, Required: true},
			},
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				id, err := argN(cmd, 0, "id")
				if err != nil {
					return err
				}
				patch, err := recordFlag(cmd, "patch")
				if err != nil {
					return err
				}
				res, err := svc.Update(ctx, id, patch)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			}),
		},
		{
			Name:      "delete",
			Usage:     "Delete an entity file (moved to .trash unless --hard)",
			ArgsUsage: "<id>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the deletion"},
				&cli.BoolFlag{Name: "hard", Usage: "Remove permanently"},
			},
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				id, err := argN(cmd, 0, "id")
				if err != nil {
					return err
				}
				res, err := svc.Delete(ctx, id, tracker.DeleteOptions{Confirm: cmd.Bool("yes"), Hard: cmd.Bool("hard")})
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			}),
		},
		{
			Name:      "burndown",
			Usage:     "Burndown and status summary for a suite",
			ArgsUsage: "<suite-id>",
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				id, err := argN(cmd, 0, "suite-id")
				if err != nil {
					return err
				}
				report, err := svc.SuiteBurndown(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			}),
		},
		{
			Name:      "related",
			Usage:     "Resolve an entity's related ids and back-references",
			ArgsUsage: "<id>",
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				id, err := argN(cmd, 0, "id")
				if err != nil {
					return err
				}
				rel, err := svc.Related(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd, rel)
			}),
		},
		linkCommand("link", "Add each entity to the other's related list", (*tracker.Service).Link),
		linkCommand("unlink", "Remove each entity from the other's related list", (*tracker.Service).Unlink),
		{
			Name:  "sync-related",
			Usage: "Make every resolvable related link bidirectional",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Report changes without writing"},
			},
			Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				report, err := svc.SyncRelated(ctx, cmd.Bool("dry-run"))
				if err != nil {
					return err
				}
				return printJSON(cmd, report)
			}),
		},
		{
			Name:      "search",
			Usage:     "Full-text search through the catalog",
			ArgsUsage: "<query>",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum results"},
				&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Only suites or only cases"},
				&cli.StringFlag{Name: "status", Usage: "Only cases with this status"},
				&cli.StringFlag{Name: "related", Usage: "Only entities whose related list names this id"},
			},
			Action: withService(true, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
				q, err := argN(cmd, 0, "query")
				if err != nil {
					return err
				}
				hits, err := svc.Search(ctx, catalog.Query{
					Text:    q,
					Kind:    cmd.String("type"),
					Status:  cmd.String("status"),
					Related: cmd.String("related"),
					Limit:   int(cmd.Int("limit")),
				})
				if err != nil {
					return err
				}
				return printJSON(cmd, hits)
			}),
		},
		{
			Name:   "serve",
			Usage:  "Serve MCP tools on stdio while keeping the catalog in sync",
			Action: runApp(true),
		},
		{
			Name:   "watch",
			Usage:  "Watch the workspace and log changes and invalid files",
			Action: runApp(false),
		},
	}
}

func runApp(mcp bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithVersion(version),
			internal.WithLogOutput(cmd.Root().ErrWriter),
		}
		if mcp {
			opts = append(opts, internal.WithMCP(os.Stdin, cmd.Root().Writer))
		}
		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func lintCommand() *cli.Command {
	return &cli.Command{
		Name:    "lint",
		Aliases: []string{"validate"},
		Usage:   "Strictly validate every file in the workspace",
		Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
			report, err := svc.Lint(ctx)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if !report.OK() {
				return fmt.Errorf("lint: %d errors, %d duplicate ids: %w",
					report.Errors, len(report.Duplicates), apperr.ErrValidation)
			}
			return nil
		}),
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Validate a single payload and preview its normalized form without writing",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "suite or case (default: from the file name)"},
		},
		Action: withService(false, func(_ context.Context, cmd *cli.Command, svc *tracker.Service) error {
			src, err := argN(cmd, 0, "file")
			if err != nil {
				return err
			}
			var data []byte
			if src == "-" {
				data, err = io.ReadAll(cmd.Root().Reader)
			} else {
				data, err = os.ReadFile(src)
			}
			if err != nil {
				return fmt.Errorf("read %s: %w", src, err)
			}
			kind := models.Kind(cmd.String("type"))
			if kind == "" {
				k, ok := parser.Classify(src)
				if !ok {
					return cli.Exit("cannot infer entity type; pass --type suite|case", exitInternal)
				}
				kind = k
			}
			raw, err := parser.Decode(data)
			if err != nil {
				return fmt.Errorf("%s: %w", src, err)
			}
			res, err := svc.Check(kind, raw)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("check %s: %d errors: %w", src, len(res.Errors), apperr.ErrValidation)
			}
			return nil
		}),
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List suites and cases matching the given filters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "suite or case"},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Workspace-relative directory"},
			&cli.StringSliceFlag{Name: "tag", Usage: "Match any of these tags"},
			&cli.StringSliceFlag{Name: "owner", Usage: "Match any of these owners"},
			&cli.StringSliceFlag{Name: "status", Usage: "Match any of these case statuses"},
			&cli.StringSliceFlag{Name: "test-status", Usage: "Match any of these test item statuses"},
			&cli.StringFlag{Name: "date-field", Usage: "Date field to compare (default: completedDay or the scheduled start)"},
			&cli.StringFlag{Name: "since", Usage: "On or after YYYY-MM-DD"},
			&cli.StringFlag{Name: "until", Usage: "On or before YYYY-MM-DD"},
		},
		Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
			res, err := svc.List(ctx, tracker.ListOptions{
				Type:    models.Kind(cmd.String("type")),
				Dir:     cmd.String("dir"),
				Filters: listFilters(cmd),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}

func listFilters(cmd *cli.Command) filter.Filters {
	f := filter.Filters{
		Tags:           cmd.StringSlice("tag"),
		Owners:         cmd.StringSlice("owner"),
		TestcaseStatus: cmd.StringSlice("status"),
		TestStatus:     cmd.StringSlice("test-status"),
	}
	since, until := cmd.String("since"), cmd.String("until")
	field := cmd.String("date-field")
	switch {
	case since != "" && until != "":
		f.Date = &filter.DateFilter{Field: field, Operator: filter.OpBetween, From: since, To: until}
	case since != "":
		f.Date = &filter.DateFilter{Field: field, Operator: filter.OpOnOrAfter, From: since}
	case until != "":
		f.Date = &filter.DateFilter{Field: field, Operator: filter.OpOnOrBefore, From: until}
	}
	return f
}

func createCommand(name, usage string, create func(*tracker.Service, context.Context, tracker.CreateInput) (*tracker.Result, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title", Required: true},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Workspace-relative directory"},
			&cli.StringFlag{Name: "fields", Aliases: []string{"f"}, Usage: "Other fields as a YAML or JSON object"},
		},
		Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
			id, err := argN(cmd, 0, "id")
			if err != nil {
				return err
			}
			fields, err := recordFlag(cmd, "fields")
			if err != nil {
				return err
			}
			res, err := create(svc, ctx, tracker.CreateInput{
				Dir: cmd.String("dir"), ID: id, Title: cmd.String("title"), Fields: fields,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}

func linkCommand(name, usage string, op func(*tracker.Service, context.Context, string, string) (*tracker.LinkResult, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<id> <id>",
		Action: withService(false, func(ctx context.Context, cmd *cli.Command, svc *tracker.Service) error {
			a, err := argN(cmd, 0, "id")
			if err != nil {
				return err
			}
			b, err := argN(cmd, 1, "id")
			if err != nil {
				return err
			}
			res, err := op(svc, ctx, a, b)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		}),
	}
}
