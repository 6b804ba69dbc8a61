package cli

import (
	"log/slog"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/catalog"
	"github.com/roach88/assetaudit/internal/config"
	"github.com/roach88/assetaudit/internal/reconcile"
	"github.com/roach88/assetaudit/internal/store"
	"github.com/roach88/assetaudit/internal/tasks"
)

// app is the wired service graph shared by the commands.
type app struct {
	cfg     config.Config
	store   *store.Store
	catalog catalog.Catalog
	engine  *reconcile.Engine
	svc     *tasks.Service
	clock   audit.Clock
	logger  *slog.Logger
}

// openApp loads settings, opens the database and builds the service.
// Failures are reported through formatter; the returned error is an
// ExitError.
func openApp(opts *RootOptions, formatter *OutputFormatter) (*app, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, outputError(formatter, ErrCodeConfig, err)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	if opts.Catalog != "" {
		cfg.Catalog = opts.Catalog
	}

	var cat catalog.Catalog = catalog.Default()
	if cfg.Catalog != "" {
		loaded, err := catalog.Load(cfg.Catalog)
		if err != nil {
			return nil, outputError(formatter, ErrCodeCatalog, err)
		}
		cat = loaded
	}

	logger := slog.Default()
	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, outputError(formatter, ErrCodeStorage, err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = audit.SystemClock{}
	}

	return &app{
		cfg:     cfg,
		store:   st,
		catalog: cat,
		engine:  reconcile.New(cat, audit.UUIDv7Generator{}, clock),
		svc: tasks.New(st,
			tasks.WithClock(clock),
			tasks.WithLogger(logger),
			tasks.WithRequireChecklist(cfg.RequireChecklist),
			tasks.WithReconciliation(cfg.ReconcileMissing),
		),
		clock:  clock,
		logger: logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
