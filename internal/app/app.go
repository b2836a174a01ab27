// Package app assembles the homework bot from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/m3rciful/homeworkbot/core/bootstrap"
	corecmd "github.com/m3rciful/homeworkbot/core/cmd"
	coreconfig "github.com/m3rciful/homeworkbot/core/config"
	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/metrics"
	tg "github.com/m3rciful/homeworkbot/core/telegram"
	"github.com/m3rciful/homeworkbot/core/telegram/state"
	"github.com/m3rciful/homeworkbot/internal/bot"
	"github.com/m3rciful/homeworkbot/internal/config"
	"github.com/m3rciful/homeworkbot/internal/conversation"
	"github.com/m3rciful/homeworkbot/internal/homework"
	"github.com/m3rciful/homeworkbot/internal/storage/filestore"
	"github.com/m3rciful/homeworkbot/internal/storage/sqlstore"
	"github.com/m3rciful/homeworkbot/migrations"
)

// Options overrides infrastructure hooks, mostly for tests.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
}

// App holds the wired components of a running bot.
type App struct {
	cfg      *config.Config
	store    homework.Store
	service  *homework.Service
	sessions state.Manager[conversation.State]
	machine  *conversation.Machine
	bot      *bot.Bot
	registry *tg.Registry

	stopSweeper context.CancelFunc
	sweeperDone chan struct{}
	closeOnce   sync.Once
}

// Bootstrap adapts New to the core runner.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(cfg, Options{})
}

// LoadConfig adapts config.Load to the core runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// New initialises logging, metrics and storage, runs the legacy import when
// configured, and registers the bot handlers.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	res, err := bootstrap.Run(bootstrap.Options{
		Config:       &cfg.Config,
		Database:     cfg.Database,
		Migrations:   migrations.FS,
		SkipDatabase: cfg.Storage.Backend == config.BackendJSON,
		LoggerInit:   opts.LoggerInit,
	})
	if err != nil {
		return nil, err
	}

	var store homework.Store
	switch cfg.Storage.Backend {
	case config.BackendJSON:
		fstore, err := filestore.New(cfg.Storage.JSONPath)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		store = fstore
	default:
		store = sqlstore.New(res.DB)
	}
	logger.Info(context.Background(), "storage", "store.open", slog.String("backend", cfg.Storage.Backend))

	var modules bootstrap.Modules
	if path := cfg.Storage.ImportJSON; path != "" {
		modules.Seeders = append(modules.Seeders, legacyImport(path))
	}
	if err := modules.RunSeeders(context.Background(), store); err != nil {
		_ = store.Close()
		return nil, err
	}

	sessions := state.NewMemoryManager[conversation.State](state.Options{TTL: cfg.Homework.SessionTTL})
	service := homework.NewService(store, homework.Options{Shared: cfg.Homework.SharedList})
	machine := conversation.New(service, sessions)
	b := bot.New(service, machine, bot.Options{Shared: cfg.Homework.SharedList})

	reg := tg.NewRegistry()
	if err := b.Register(reg); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	return &App{
		cfg:      cfg,
		store:    store,
		service:  service,
		sessions: sessions,
		machine:  machine,
		bot:      b,
		registry: reg,
	}, nil
}

func legacyImport(path string) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, storage bootstrap.Storage) error {
		dst, ok := storage.(homework.Store)
		if !ok {
			return fmt.Errorf("legacy import: unexpected storage %T", storage)
		}
		_, err := filestore.Import(ctx, path, dst)
		return err
	})
}

// TelegramRunOptions builds the runtime options for core/telegram.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: a.bot.Middlewares(core),
		Routes:      a.bot.Routes(core, a.registry),
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ tg.Runtime) error {
	every := a.cfg.Homework.SweepInterval
	if every <= 0 {
		return nil
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.stopSweeper = cancel
	a.sweeperDone = done
	go func() {
		defer close(done)
		state.RunSweeper(sweepCtx, a.sessions, every, func(live int) {
			metrics.Default().SetActiveSessions(live)
		})
	}()
	return nil
}

func (a *App) onStop(context.Context, tg.Runtime) error {
	if a.stopSweeper != nil {
		a.stopSweeper()
		<-a.sweeperDone
	}
	return a.Close()
}

// Close releases the store. It is safe to call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		err = a.store.Close()
	})
	return err
}
