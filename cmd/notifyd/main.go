// Command notifyd runs the notification pipeline: it consumes row changes
// from the configured feed, stores notifications, pushes them and serves the
// inbox HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/propnotify/modules/inbox"
	"github.com/dmitrymomot/propnotify/pkg/badge"
	"github.com/dmitrymomot/propnotify/pkg/config"
	"github.com/dmitrymomot/propnotify/pkg/events"
	"github.com/dmitrymomot/propnotify/pkg/filter"
	"github.com/dmitrymomot/propnotify/pkg/httpserver"
	"github.com/dmitrymomot/propnotify/pkg/kvstore"
	"github.com/dmitrymomot/propnotify/pkg/logger"
	"github.com/dmitrymomot/propnotify/pkg/notifications"
	"github.com/dmitrymomot/propnotify/pkg/pipeline"
	"github.com/dmitrymomot/propnotify/pkg/push"
	"github.com/dmitrymomot/propnotify/pkg/realtime"
	"github.com/dmitrymomot/propnotify/pkg/requestid"
	"github.com/dmitrymomot/propnotify/pkg/search"
)

type appConfig struct {
	Storage      string        `env:"STORAGE_DRIVER" envDefault:"memory"`
	Feed         string        `env:"FEED_DRIVER" envDefault:"none"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`
	PresetsFile  string        `env:"FILTER_PRESETS_FILE"`
	SkipDeletes  bool          `env:"PIPELINE_SKIP_DELETES" envDefault:"false"`
	IgnoreTypes  bool          `env:"PIPELINE_IGNORE_UNKNOWN_TYPES" envDefault:"false"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("notifyd stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load[appConfig](config.WithEnvFiles(".env"))
	if err != nil {
		return err
	}
	logCfg, err := config.Load[logger.Config]()
	if err != nil {
		return err
	}
	log, err := logger.NewFromConfig(logCfg, logger.WithContextExtractors(requestid.LoggerExtractor()))
	if err != nil {
		return err
	}
	logger.SetAsDefault(log)

	b := &backends{}
	defer b.Close()
	if err := b.openStore(ctx, cfg.Storage, log); err != nil {
		return err
	}
	kv := kvstore.WithTimeout(b.kv, cfg.StoreTimeout)

	notifyCfg, err := config.Load[notifications.Config]()
	if err != nil {
		return err
	}
	store := notifications.NewStoreFromConfig(kv, notifyCfg, notifications.WithLogger(log))

	badgeCfg, err := config.Load[badge.Config]()
	if err != nil {
		return err
	}
	badges := badge.NewFromConfig(store, badgeCfg, badge.WithLogger(log))
	engine := search.New(search.WithLogger(log))

	filters := filter.New(filter.WithLogger(log))
	if err := filters.Load(ctx, kv); err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "filter state reset to defaults", logger.Error(err))
	}
	if cfg.PresetsFile != "" {
		if err := loadPresets(filters, cfg.PresetsFile); err != nil {
			return err
		}
	}

	pushCfg, err := config.Load[push.Config]()
	if err != nil {
		return err
	}
	gateway, err := push.NewFromConfig(pushCfg, log)
	if err != nil {
		return err
	}

	var transformerOpts []events.Option
	if cfg.IgnoreTypes {
		transformerOpts = append(transformerOpts, events.WithIgnoreUnknown())
	}
	popts := []pipeline.Option{
		pipeline.WithTransformer(events.NewTransformer(transformerOpts...)),
		pipeline.WithBadges(badges),
		pipeline.WithSearch(engine),
		pipeline.WithGateway(gateway),
		pipeline.WithPreferences(pushCfg.Preferences()),
		pipeline.WithLogger(log),
	}
	if cfg.SkipDeletes {
		popts = append(popts, pipeline.WithSkipDeletes())
	}

	var rt *realtime.Manager
	feed, err := b.openFeed(ctx, cfg.Feed, log)
	if err != nil {
		return err
	}
	if feed != nil {
		rtCfg, err := config.Load[realtime.Config]()
		if err != nil {
			return err
		}
		rt = realtime.NewFromConfig(feed, rtCfg, realtime.WithLogger(log))
		rt.OnStatus(func(s realtime.Status) {
			log.LogAttrs(context.Background(), slog.LevelInfo, "realtime status changed",
				logger.Status(string(s.State)),
				logger.Attempt(s.Attempt),
				slog.String("message", s.Message),
			)
		})
		popts = append(popts, pipeline.WithRealtime(rt))
	}

	p := pipeline.New(store, popts...)
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := p.Stop(context.Background()); err != nil {
			log.LogAttrs(context.Background(), slog.LevelWarn, "pipeline stop", logger.Error(err))
		}
	}()

	mopts := []inbox.Option{
		inbox.WithFilters(filters),
		inbox.WithSearch(engine),
		inbox.WithBadges(badges),
		inbox.WithFilterStore(kv),
		inbox.WithLogger(log),
	}
	if rt != nil {
		mopts = append(mopts, inbox.WithRealtime(rt))
	}

	router := chi.NewRouter()
	router.Use(requestid.Middleware, middleware.RealIP, middleware.Recoverer)
	router.Get("/health/live", httpserver.HealthCheckHandler(log))
	router.Get("/health/ready", httpserver.HealthCheckHandler(log, b.checks...))
	router.Mount("/api", inbox.New(p, mopts...).Router())

	httpCfg, err := config.Load[httpserver.Config]()
	if err != nil {
		return err
	}
	srv := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))
	if err := srv.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadPresets(filters *filter.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = filters.LoadPresetsYAML(f)
	return err
}
