package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/ygalaxyy/bookmarkbot/internal/classify"
	"github.com/ygalaxyy/bookmarkbot/internal/config"
	"github.com/ygalaxyy/bookmarkbot/internal/db"
	"github.com/ygalaxyy/bookmarkbot/internal/llm"
	"github.com/ygalaxyy/bookmarkbot/internal/publish"
	"github.com/ygalaxyy/bookmarkbot/internal/record"
	"github.com/ygalaxyy/bookmarkbot/internal/render"
	"github.com/ygalaxyy/bookmarkbot/internal/store"
)

// deps holds the dependencies shared by all commands. It is filled on
// first use so that --help and --version never touch the disk.
type deps struct {
	logger   *slog.Logger
	cfg      *config.Config
	db       *sql.DB
	store    store.Store
	taxonomy *record.Taxonomy

	ownsDB bool
}

// defaultHome returns ~/.bookmarkbot.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bookmarkbot"
	}
	return filepath.Join(home, ".bookmarkbot")
}

// open loads config.json from home and opens the database and document store.
// It is a no-op once populated.
func (d *deps) open(ctx context.Context, home string) error {
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.taxonomy == nil {
		d.taxonomy = record.DefaultTaxonomy()
	}
	if d.cfg != nil {
		return nil
	}

	cfg, err := config.Load(home)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	database, err := db.Init(home)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	s, err := openStore(ctx, cfg, database, d.logger)
	if err != nil {
		database.Close()
		return err
	}

	d.cfg, d.db, d.store, d.ownsDB = cfg, database, s, true
	return nil
}

// close releases the database if open created it.
func (d *deps) close() {
	if d.ownsDB && d.db != nil {
		d.db.Close()
		d.cfg, d.db, d.store, d.ownsDB = nil, nil, nil, false
	}
}

// openStore selects the document store driver named by cfg.Store.
func openStore(ctx context.Context, cfg *config.Config, database *sql.DB, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store {
	case config.StoreAzure:
		var s *store.AzureBlob
		var err error
		if cfg.Azure.ConnectionString != "" {
			s, err = store.NewAzureBlob(ctx, cfg.Azure.ConnectionString, cfg.Azure.Container, logger)
		} else {
			s, err = store.NewAzureBlobFromAccount(ctx, cfg.Azure.AccountURL, cfg.Azure.Container, logger)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open azure store: %w", err)
		}
		return s, nil
	case config.StoreGitHub:
		s, err := store.NewGitHub(cfg.GitHub.Repo, cfg.GitHub.Branch, cfg.GitHub.Token, cfg.GitHub.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open github store: %w", err)
		}
		return s, nil
	default:
		return store.NewSQLite(database), nil
	}
}

// classifier builds the classification pipeline. With offline set, or with
// no backends, only the heuristic and the fallback run.
func (d *deps) classifier(backends []llm.Config, offline bool) (*classify.Classifier, error) {
	links := classify.NewLinkExtractor(d.cfg.PlatformHosts)
	if offline || len(backends) == 0 {
		return classify.New(links, nil, d.taxonomy, d.logger), nil
	}

	providers, err := llm.NewProviders(backends)
	if err != nil {
		return nil, err
	}
	cascade := classify.NewCascade(providers, d.taxonomy, classify.CascadeOptions{
		MaxInputChars: d.cfg.MaxInputChars,
		MaxTokens:     d.cfg.MaxOutputTokens,
		Temperature:   d.cfg.SamplingTemperature(),
		Backoff:       d.cfg.Backoff(),
	}, d.logger)
	return classify.New(links, cascade, d.taxonomy, d.logger), nil
}

// gateway builds the publishing gateway over the configured store.
func (d *deps) gateway() *publish.Gateway {
	return publish.NewGateway(d.store, render.New(d.taxonomy), publish.Options{
		DocumentID: d.cfg.DocumentID,
		Log:        d.db,
		Logger:     d.logger,
	})
}

// supervise runs fn until ctx is cancelled. Whenever fn returns or panics
// while ctx is still live, it is restarted after delay.
func supervise(ctx context.Context, name string, delay time.Duration, logger *slog.Logger, fn func(context.Context) error) error {
	for {
		err := runRecovered(ctx, fn)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = errors.New("exited unexpectedly")
		}
		logger.Error("restarting", "system", name, "error", err, "delay", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func runRecovered(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}
