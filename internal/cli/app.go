package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/aggregate"
	"github.com/cella-health/cella/internal/assistant"
	"github.com/cella-health/cella/internal/cache"
	"github.com/cella-health/cella/internal/config"
	"github.com/cella-health/cella/internal/invalidate"
	"github.com/cella-health/cella/internal/logging"
	"github.com/cella-health/cella/internal/mailer"
	"github.com/cella-health/cella/internal/paths"
	"github.com/cella-health/cella/internal/remote"
	"github.com/cella-health/cella/pkg/store"
	"github.com/cella-health/cella/pkg/types"
)

// app is the wired set of components a data command works with.
type app struct {
	settings  config.Settings
	logger    *zap.Logger
	backend   types.Backend
	cache     *cache.Cache
	query     *aggregate.Query
	mutator   *invalidate.Mutator
	assistant *assistant.Client
	mailer    *mailer.Mailer
}

// loadSettings resolves the config directory and reads config.yaml.
func loadSettings() (string, config.Settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return "", config.Settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	settings, err := config.Load(configDir)
	if err != nil {
		return "", config.Settings{}, err
	}
	return configDir, settings, nil
}

// openApp loads configuration, attaches the backend and wires the cache,
// query, mutator and remote clients. The backend credentials are required;
// without them no data command runs. The caller must Close the app.
func openApp() (*app, error) {
	creds, err := config.LoadRemote()
	if err != nil {
		return nil, fmt.Errorf("backend credentials: %w", err)
	}
	_, settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}
	logger, err := logging.New(settings.LogLevel, flags.debug)
	if err != nil {
		return nil, err
	}

	backend, err := store.Open(settings.StoreConfig(dataDir))
	if err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}

	c := cache.New(cache.WithGracePeriod(settings.CacheGrace), cache.WithLogger(logger))
	rc := remote.New(creds.URL, creds.APIKey)
	return &app{
		settings: settings,
		logger:   logger,
		backend:  backend,
		cache:    c,
		query: aggregate.New(backend, c,
			aggregate.WithConcurrency(settings.Concurrency),
			aggregate.WithLogger(logger)),
		mutator:   invalidate.NewMutator(backend, invalidate.New(c, invalidate.DefaultGraph(), logger)),
		assistant: assistant.New(rc, logger),
		mailer:    mailer.New(rc, logger),
	}, nil
}

// Close detaches the backend and flushes the logger.
func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.backend.Detach()
}
