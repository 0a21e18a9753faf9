package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/ygalaxyy/bookmarkbot/internal/classify"
	"github.com/ygalaxyy/bookmarkbot/internal/config"
	"github.com/ygalaxyy/bookmarkbot/internal/errors"
	"github.com/ygalaxyy/bookmarkbot/internal/llm"
	"github.com/ygalaxyy/bookmarkbot/internal/mcp"
	"github.com/ygalaxyy/bookmarkbot/internal/publish"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
	"github.com/ygalaxyy/bookmarkbot/internal/telegram"
	"github.com/ygalaxyy/bookmarkbot/internal/web"
	"github.com/ygalaxyy/bookmarkbot/internal/workflow"
)

// maxStdinBytes caps text piped into classify and publish.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "bookmarkbot",
		Usage:   "Classify chat messages and publish them as bookmark cards",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "home",
				Value:   defaultHome(),
				EnvVars: []string{"BOOKMARKBOT_HOME"},
				Usage:   "Directory holding config.json and the database",
			},
		},
		Commands: []*cli.Command{
			serveCmd(d),
			classifyCmd(d),
			publishCmd(d),
			seedCmd(d),
			historyCmd(d),
			exportCmd(d),
			mcpCmd(d),
		},
		After: func(_ *cli.Context) error {
			d.close()
			return nil
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// backendFlags are shared by the commands that classify.
func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "backend", Aliases: []string{"b"}, Usage: "Backend as provider/model, repeatable; replaces the configured cascade"},
		&cli.BoolFlag{Name: "offline", Usage: "Skip the backends; use the heuristic and the link fallback only"},
	}
}

// classifierFor builds a classifier honouring the backend flags.
func classifierFor(c *cli.Context, d *deps) (*classify.Classifier, error) {
	backends := d.cfg.Backends
	if flags := c.StringSlice("backend"); len(flags) > 0 {
		backends = make([]llm.Config, 0, len(flags))
		for _, f := range flags {
			b, err := llm.ParseBackendFlag(f)
			if err != nil {
				return nil, errors.NewInvalidRequest(err.Error())
			}
			backends = append(backends, b)
		}
		// Keys come from the environment for flag-defined backends.
		overlay := &config.Config{Backends: backends}
		overlay.ApplyEnv(os.Getenv)
		backends = overlay.Backends
	}

	cls, err := d.classifier(backends, c.Bool("offline"))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return cls, nil
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the Telegram bot and the liveness endpoint",
		Flags: append(backendFlags(),
			&cli.StringFlag{Name: "bind", Value: "0.0.0.0", Usage: "Liveness endpoint bind address"},
		),
		Action: func(c *cli.Context) error {
			if err := d.open(c.Context, c.String("home")); err != nil {
				return outputError(err)
			}
			cfg := d.cfg
			if err := telegram.ValidateToken(cfg.Telegram.Token); err != nil {
				return outputError(errors.NewInvalidRequest(err.Error() + " (set TG_TOKEN)"))
			}
			delay, err := cfg.RestartDelayDuration()
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			cls, err := classifierFor(c, d)
			if err != nil {
				return outputError(err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.Store == config.StoreSQLite {
				if created, err := publish.Seed(ctx, d.store, cfg.DocumentID, d.taxonomy); err != nil {
					return outputError(errors.NewStore(err))
				} else if created {
					d.logger.Info("seeded document", "document_id", cfg.DocumentID)
				}
			}

			client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL, cfg.Telegram.PollTimeout)
			flow := workflow.New(cls, d.gateway(), telegram.NewTransport(client), workflow.Options{
				Taxonomy:    d.taxonomy,
				SelfDomains: cfg.SelfDomains,
				Logger:      d.logger,
			})
			srv := web.NewServer(d.db, "bookmarkbot", c.String("bind"), cfg.HTTPPort)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return web.Run(gctx, srv, d.logger)
			})
			g.Go(func() error {
				return supervise(gctx, "telegram", delay, d.logger, func(ctx context.Context) error {
					bot := telegram.NewBot(client, flow, telegram.Options{
						PollTimeout: cfg.Telegram.PollTimeout,
						Logger:      d.logger,
					})
					return bot.Run(ctx)
				})
			})

			d.logger.Info("bookmarkbot started", "version", Version, "store", cfg.Store, "document_id", cfg.DocumentID)
			if err := g.Wait(); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// classifyCmd creates the classify command.
func classifyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify text without publishing (text as arguments or stdin)",
		ArgsUsage: "[text]",
		Flags:     backendFlags(),
		Action: func(c *cli.Context) error {
			text, err := textInput(c)
			if err != nil {
				return outputError(err)
			}
			if err := d.open(c.Context, c.String("home")); err != nil {
				return outputError(err)
			}

			cls, err := classifierFor(c, d)
			if err != nil {
				return outputError(err)
			}
			result, err := cls.Classify(c.Context, text)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(result)
		},
	}
}

// publishOutput is printed by the publish command.
type publishOutput struct {
	Record  record.Record   `json:"record"`
	Source  string          `json:"source"`
	Outcome publish.Outcome `json:"outcome"`
	ID      string          `json:"id,omitempty"`
}

// publishCmd creates the publish command.
func publishCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Classify text and publish it into the document (text as arguments or stdin)",
		ArgsUsage: "[text]",
		Flags: append(backendFlags(),
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Override the classified section"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Override the classified link"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Publish even if the link is already in the document"},
		),
		Action: func(c *cli.Context) error {
			text, err := textInput(c)
			if err != nil {
				return outputError(err)
			}
			if err := d.open(c.Context, c.String("home")); err != nil {
				return outputError(err)
			}

			var section record.Section
			if s := c.String("section"); s != "" {
				parsed, ok := d.taxonomy.Parse(s)
				if !ok {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("unknown section %q (known: %s)", s, knownSections(d.taxonomy))))
				}
				section = parsed
			}

			cls, err := classifierFor(c, d)
			if err != nil {
				return outputError(err)
			}
			result, err := cls.Classify(c.Context, text)
			if err != nil {
				return outputError(err)
			}

			rec := result.Record
			if section != "" {
				rec.Section = section
			}
			if u := c.String("url"); u != "" {
				rec.URL = u
			}
			rec.Clean(d.taxonomy)

			res := d.gateway().Publish(c.Context, rec, c.Bool("force"))
			if res.Outcome != publish.OutcomeOK && res.Outcome != publish.OutcomeDuplicate {
				return outputError(res.Error)
			}
			return outputJSON(publishOutput{
				Record:  rec,
				Source:  result.Source,
				Outcome: res.Outcome,
				ID:      res.ID,
			})
		},
	}
}

// seedCmd creates the seed command.
func seedCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Create the document with one insertion marker per section",
		Action: func(c *cli.Context) error {
			if err := d.open(c.Context, c.String("home")); err != nil {
				return outputError(err)
			}
			created, err := publish.Seed(c.Context, d.store, d.cfg.DocumentID, d.taxonomy)
			if err != nil {
				return outputError(errors.NewStore(err))
			}
			return outputJSON(map[string]any{
				"document_id": d.cfg.DocumentID,
				"created":     created,
			})
		},
	}
}

// historyCmd creates the history command.
func historyCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List published items, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Filter by section"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: publish.DefaultHistoryLimit, Usage: "Max items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			if err := d.open(c.Context, c.String("home")); err != nil {
				return outputError(err)
			}
			output, err := publish.History(c.Context, d.db, publish.HistoryInput{
				Section: c.String("section"),
				Limit:   c.Int("limit"),
				Offset:  c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the publication log to JSONL (file must be directly in <home>/exports)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (default: <home>/exports/publications-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Filter by section"},
		},
		Action: func(c *cli.Context) error {
			home := c.String("home")
			if err := d.open(c.Context, home); err != nil {
				return outputError(err)
			}
			output, err := publish.Export(c.Context, d.db, filepath.Join(home, "exports"), publish.ExportInput{
				Path:    c.String("path"),
				Section: c.String("section"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the bookmark tools over MCP stdio",
		Flags: backendFlags(),
		Action: func(c *cli.Context) error {
			if err := d.open(c.Context, c.String("home")); err != nil {
				return outputError(err)
			}
			if unknown := mcp.ValidateDisabledTools(d.cfg.DisabledTools); len(unknown) > 0 {
				d.logger.Warn("unknown tools in disabled_tools", "tools", unknown, "known", mcp.AllToolNames())
			}

			cls, err := classifierFor(c, d)
			if err != nil {
				return outputError(err)
			}
			h := mcp.NewHandlers(cls, cls.Links(), d.gateway(), d.db, d.taxonomy)
			if err := mcp.Run(h, d.cfg, Version); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var bErr *errors.BotError
	if stderrors.As(err, &bErr) && bErr != nil {
		return cli.Exit(fmt.Sprintf("[%s] %s", bErr.Code, bErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// knownSections lists the section codes for error messages.
func knownSections(t *record.Taxonomy) string {
	codes := t.Codes()
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// textInput joins the positional arguments, or reads stdin when there are none.
func textInput(c *cli.Context) (string, error) {
	text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if text == "" && stdinHasData() {
		var err error
		text, err = readStdinWithLimit(os.Stdin, maxStdinBytes)
		if err != nil {
			return "", err
		}
	}
	if text == "" {
		return "", errors.NewInvalidRequest("text is required (pass it as arguments or via stdin)")
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdinWithLimit reads at most limit bytes from r.
func readStdinWithLimit(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInvalidRequest(fmt.Sprintf("input exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}
