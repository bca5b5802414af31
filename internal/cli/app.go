package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/climatevalue/internal/config"
	"github.com/roach88/climatevalue/internal/fetch"
	"github.com/roach88/climatevalue/internal/metrics"
	"github.com/roach88/climatevalue/internal/model"
	"github.com/roach88/climatevalue/internal/store"
)

// app holds the components a command needs, built from configuration.
type app struct {
	cfg     *config.Config
	store   *store.Store
	logger  *slog.Logger
	metrics *metrics.Recorder
	out     *OutputFormatter

	cache   fetch.Cache
	closers []io.Closer
}

// newApp loads configuration, installs the logger and opens the store.
func newApp(cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.Verbose)
	slog.SetDefault(logger)

	logger.Debug("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(commandContext(cmd), cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &app{
		cfg:     cfg,
		store:   st,
		logger:  logger,
		metrics: metrics.New(),
		out:     &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

// newLogger builds a text logger on w. Verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Close writes the metrics textfile and releases resources.
func (a *app) Close() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("failed to write metrics", "error", err)
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("failed to close resource", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// source builds the fetch service configured for a domain.
func (a *app) source(ctx context.Context, d config.Domain) (fetch.Source, error) {
	src := d.Source
	if src.Kind == config.SourceStatic {
		return loadStatic(src.Path)
	}

	g, err := a.getter(ctx, src)
	if err != nil {
		return nil, err
	}

	switch src.Kind {
	case config.SourceOpenMeteo:
		return openMeteo(g, src), nil
	case config.SourceVisualCrossing:
		vc := fetch.NewVisualCrossing(g, src.APIKey)
		if src.URL != "" {
			vc.BaseURL = src.URL
		}
		return vc, nil
	case config.SourceListings:
		return fetch.NewListings(g, src.URL, nil)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// openMeteo builds an Open-Meteo source. An unset hour keeps the source
// default; hour 0 selects midnight.
func openMeteo(g fetch.Getter, src config.Source) *fetch.OpenMeteo {
	om := fetch.NewOpenMeteo(g)
	if src.URL != "" {
		om.BaseURL = src.URL
	}
	if src.Hour != nil {
		om.Hour = *src.Hour
	}
	if len(src.Variables) > 0 {
		om.Variables = src.Variables
	}
	return om
}

// getter returns an HTTP getter behind the configured document cache.
func (a *app) getter(ctx context.Context, src config.Source) (fetch.Getter, error) {
	opts := []fetch.ClientOption{fetch.WithClientLogger(a.logger)}
	if src.RateLimit > 0 {
		opts = append(opts, fetch.WithRateLimit(src.RateLimit, 1))
	}
	client := fetch.NewClient(opts...)

	cache, err := a.fetchCache(ctx)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return client, nil
	}
	return fetch.NewCached(client, cache, a.cfg.Cache.TTL, a.logger), nil
}

// fetchCache opens the configured cache once per process.
func (a *app) fetchCache(ctx context.Context) (fetch.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	switch a.cfg.Cache.Backend {
	case config.CacheMemory:
		a.cache = fetch.NewMemoryCache()
	case config.CacheRedis:
		rc, err := fetch.OpenRedisCache(ctx, a.cfg.Cache.RedisURL, a.cfg.Cache.Prefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rc)
		a.cache = rc
	}
	return a.cache, nil
}

// loadStatic reads a JSON object mapping entity keys to candidate records.
func loadStatic(path string) (*fetch.Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read static records: %w", err)
	}
	var records map[string][]model.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse static records %s: %w", path, err)
	}
	return fetch.NewStatic(records), nil
}

// domain looks up a configured domain, mapping a miss to a command error.
func (a *app) domain(name string) (config.Domain, error) {
	d, err := a.cfg.Domain(strings.TrimSpace(name))
	if err != nil {
		return config.Domain{}, WrapExitError(ExitCommandError, "unknown domain", err)
	}
	return d, nil
}
