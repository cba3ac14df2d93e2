// Package app is the composition root. It constructs one instance of every
// component — config, logger, preference store, theme state, toast center,
// HTTP client, cache service, repositories — and wires them together. No
// component is a package-level singleton; consumers receive references.
package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nadav-galili/starter/internal/cache"
	"github.com/nadav-galili/starter/internal/config"
	"github.com/nadav-galili/starter/internal/httpclient"
	"github.com/nadav-galili/starter/internal/logging"
	"github.com/nadav-galili/starter/internal/prefs"
	"github.com/nadav-galili/starter/internal/repository"
	"github.com/nadav-galili/starter/internal/repository/mock"
	"github.com/nadav-galili/starter/internal/theme"
	"github.com/nadav-galili/starter/internal/toast"
	"github.com/nadav-galili/starter/internal/validate"
)

// Application owns the wired component graph.
type Application struct {
	Config    *config.Config
	Log       zerolog.Logger
	Prefs     *prefs.Store
	Theme     *theme.Store
	Toasts    *toast.Center
	HTTP      *httpclient.Client
	Cache     *cache.Service
	Validator *validate.Validator
	Repos     repository.Registry
}

// Options tweak wiring, mostly for tests and the demo binary.
type Options struct {
	Config       *config.Config
	SystemScheme theme.SystemSchemeFunc
	ExtraSinks   []toast.Sink
}

// New constructs and wires the application.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	store, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}

	toasts := toast.NewCenter(toast.LogSink{Log: log.With().Str("component", "toast").Logger()})
	for _, s := range opts.ExtraSinks {
		toasts.Register(s)
	}

	themeStore := theme.NewStore(store, opts.SystemScheme, log.With().Str("component", "theme").Logger())
	themeStore.Load()

	httpClient := httpclient.New(httpclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Logger:  log.With().Str("component", "http").Logger(),
	})

	cacheSvc := cache.NewService(cache.Options{
		StaleAfter:      cfg.Cache.StaleAfter,
		GCAfter:         cfg.Cache.GCAfter,
		QueryRetries:    cfg.Cache.QueryRetries,
		MutationRetries: cfg.Cache.MutationRetries,
		Notifier:        toasts,
		Logger:          log.With().Str("component", "cache").Logger(),
	})

	return &Application{
		Config:    cfg,
		Log:       log,
		Prefs:     store,
		Theme:     themeStore,
		Toasts:    toasts,
		HTTP:      httpClient,
		Cache:     cacheSvc,
		Validator: validate.NewValidator(),
		Repos:     mock.NewRegistry(),
	}, nil
}

// Close releases the application's resources.
func (a *Application) Close() error {
	a.Cache.Close()
	if err := a.Prefs.Close(); err != nil {
		return fmt.Errorf("close preference store: %w", err)
	}
	return nil
}
