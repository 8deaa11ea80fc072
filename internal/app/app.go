// Package app assembles the catalog bot from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/bookbot/core/bootstrap"
	coreconfig "github.com/m3rciful/bookbot/core/config"
	"github.com/m3rciful/bookbot/core/health"
	"github.com/m3rciful/bookbot/core/logger"
	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/router"
	"github.com/m3rciful/bookbot/core/telegram/sender"
	"github.com/m3rciful/bookbot/core/telegram/ui"
	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/bot"
	"github.com/m3rciful/bookbot/internal/delivery"
	"github.com/m3rciful/bookbot/internal/pager"
	"github.com/m3rciful/bookbot/internal/remote"

	tele "gopkg.in/telebot.v4"
)

const (
	janitorInterval = time.Minute
	refKeyPrefix    = "bookbot:pageref"
)

// App holds the wired bot and the infrastructure it owns.
type App struct {
	cfg     *coreconfig.Config
	infra   *bootstrap.Result
	store   *books.Store
	storage *remote.Client

	tele       *tele.Bot
	dispatcher *sender.Dispatcher
	registry   *tg.Registry
	bot        *bot.Bot

	stopBackground context.CancelFunc
}

// Seeders returns the bootstrap seeders configured for cfg.
func Seeders(cfg *coreconfig.Config) []bootstrap.Seeder {
	if cfg.Catalog.SeedFile == "" {
		return nil
	}
	path := cfg.Catalog.SeedFile
	return []bootstrap.Seeder{
		bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
			_, err := books.SeedFromFile(ctx, books.NewStore(db), path)
			return err
		}),
	}
}

// New bootstraps infrastructure and wires every handler.
func New(ctx context.Context, cfg *coreconfig.Config) (*App, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:      cfg,
		Modules:     bootstrap.Modules{Seeders: Seeders(cfg)},
		WaitTimeout: bootstrap.DefaultWaitTimeout,
	})
	if err != nil {
		return nil, err
	}
	a, err := wire(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg *coreconfig.Config, infra *bootstrap.Result) (*App, error) {
	storage, err := remote.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	teleBot, err := tg.NewBot(cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		infra:      infra,
		store:      books.NewStore(infra.DB),
		storage:    storage,
		tele:       teleBot,
		dispatcher: sender.NewDispatcher(sender.Options{}),
		registry:   tg.NewRegistry(),
	}
	msg := sender.NewMessenger(teleBot, a.dispatcher)

	var (
		rdb  redis.UniversalClient
		refs pager.RefStore = pager.NewMemoryRefStore(cfg.Catalog.PageRefTTL)
	)
	if infra.Redis != nil {
		rdb = infra.Redis
		refs = pager.NewRedisRefStore(infra.Redis, refKeyPrefix, cfg.Catalog.PageRefTTL)
	}

	pages := pager.New(a.store, msg, pager.Options{PageSize: cfg.Catalog.PageSize, Refs: refs})
	deliverer := delivery.New(a.store, storage, msg, delivery.Options{
		CacheDir:     cfg.Storage.CacheDir,
		MaxSendBytes: cfg.Storage.MaxSendBytes,
	})
	a.bot = bot.New(bot.Options{
		Catalog:    a.store,
		Paginator:  pages,
		Deliverer:  deliverer,
		Messenger:  msg,
		Redis:      rdb,
		SessionTTL: cfg.Catalog.SessionTTL,
		TopN:       cfg.Catalog.LeaderboardTop,
		Stats: func() bot.Stats {
			return bot.Stats{SendErrors: a.dispatcher.ErrorCount()}
		},
	})
	if err := a.bot.Register(a.registry); err != nil {
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}
	a.registry.SetCallbackNotFound(a.bot.UnknownCallback())
	return a, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	var fb ui.Fallbacks = a.bot
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID})
	routes = append(routes, router.TextRoutes(a.bot.Conversations(), a.registry, router.TextOptions{
		UnknownText:     fb.UnknownText(),
		UnknownDocument: fb.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(a.registry))

	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Bot:         a.tele,
		Dispatcher:  a.dispatcher,
		Middlewares: tg.DefaultMiddlewares(a.cfg, fb.RateLimited),
		Routes:      routes,
		OnStart:     a.startBackground,
		OnStop: func(context.Context, tg.Runtime) error {
			if a.stopBackground != nil {
				a.stopBackground()
			}
			return nil
		},
	}, nil
}

func (a *App) startBackground(ctx context.Context, _ tg.Runtime) error {
	bg, cancel := context.WithCancel(ctx)
	a.stopBackground = cancel
	a.bot.RunJanitors(bg, janitorInterval)

	if a.cfg.Health.Listen == "" {
		return nil
	}
	go func() {
		if err := health.Serve(bg, a.cfg.Health.Listen, a.Checks()...); err != nil {
			logger.Error(bg, "health", "serve", slog.String("status", "fail"), slog.String("err", err.Error()))
		}
	}()
	return nil
}

// Checks lists readiness probes for the app's dependencies.
func (a *App) Checks() []health.Check {
	checks := []health.Check{
		{Name: "database", Probe: a.store.Ping},
		{Name: "storage", Probe: a.storage.Ping},
	}
	if a.infra.Redis != nil {
		rdb := a.infra.Redis
		checks = append(checks, health.Check{Name: "redis", Probe: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

// Close implements cmd.TelegramApp.
func (a *App) Close() error {
	return a.infra.Close()
}
