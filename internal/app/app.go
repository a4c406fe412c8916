// Package app wires the local stores, the catalog client and the tracker
// into one value shared by the CLI and the MCP server.
package app

import (
	"database/sql"
	"path/filepath"

	"github.com/hpungsan/pmprep/internal/catalog"
	"github.com/hpungsan/pmprep/internal/config"
	"github.com/hpungsan/pmprep/internal/db"
	"github.com/hpungsan/pmprep/internal/kv"
	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/notes"
	"github.com/hpungsan/pmprep/internal/progress"
	"github.com/hpungsan/pmprep/internal/question"
	"github.com/hpungsan/pmprep/internal/session"
	"github.com/hpungsan/pmprep/internal/tracker"
)

// App holds everything a front end needs.
type App struct {
	BaseDir   string
	Config    *config.Config
	Log       *logger.Logger
	DB        *sql.DB
	KV        kv.Store
	Progress  *progress.Store
	Notes     *notes.Store
	Panel     *notes.Panel
	Catalog   *catalog.Cache
	Tracker   *tracker.Tracker
	Session   *session.Session
	ExportDir string
}

// Open initializes the database under baseDir and builds an App. The
// catalog is not fetched; call Tracker.Load when it is needed.
func Open(baseDir string, cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)

	a, err := New(baseDir, cfg, log, database, kv.NewSQLite(database), nil)
	if err != nil {
		database.Close()
		return nil, err
	}
	return a, nil
}

// New builds an App from already-open parts. A nil source means an HTTP
// client for cfg.CatalogURL.
func New(baseDir string, cfg *config.Config, log *logger.Logger, database *sql.DB, store kv.Store, source catalog.Source) (*App, error) {
	log = logger.OrNop(log)
	if source == nil {
		client, err := catalog.New(catalog.Config{BaseURL: cfg.CatalogURL, Timeout: cfg.FetchTimeout()}, log)
		if err != nil {
			return nil, err
		}
		source = client
	}
	cache := catalog.NewCache(source)
	ps := progress.New(store, log)

	tr, err := tracker.New(tracker.Options{
		Mode:     cfg.ToggleMode,
		Taxonomy: question.DefaultTaxonomy(),
		Source:   cache,
		Progress: ps,
		Log:      log,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		BaseDir:   baseDir,
		Config:    cfg,
		Log:       log,
		DB:        database,
		KV:        store,
		Progress:  ps,
		Notes:     notes.New(store, log),
		Panel:     notes.NewPanel(store, log),
		Catalog:   cache,
		Tracker:   tr,
		Session:   session.New(session.WithReporter(session.LogReporter(log))),
		ExportDir: filepath.Join(baseDir, "exports"),
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
