// Package app assembles quizbot from its configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/quizbot/core/bootstrap"
	"github.com/m3rciful/quizbot/core/cmd"
	"github.com/m3rciful/quizbot/core/logger"
	coretelegram "github.com/m3rciful/quizbot/core/telegram"
	"github.com/m3rciful/quizbot/core/telegram/router"
	"github.com/m3rciful/quizbot/quiz/authoring"
	"github.com/m3rciful/quizbot/quiz/bot"
	"github.com/m3rciful/quizbot/quiz/dispatch"
	"github.com/m3rciful/quizbot/quiz/play"
	"github.com/m3rciful/quizbot/quiz/storage"
)

// App holds the wired services of a running bot.
type App struct {
	cfg   *Config
	infra *bootstrap.Result

	Repo      *storage.Store
	Authoring *authoring.Service
	Play      *play.Service
	Bot       *bot.Bot
}

var _ cmd.TelegramApp = (*App)(nil)

// Bootstrap initializes logging and storage and wires the quiz services.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	opts := bootstrap.Options{Config: &cfg.Config}
	if cfg.UsesDatabase() {
		opts.Database = &cfg.Database
	}
	infra, err := bootstrap.Run(ctx, opts)
	if err != nil {
		return nil, err
	}
	return Assemble(ctx, cfg, infra)
}

// Assemble wires the services on top of already initialized infrastructure.
func Assemble(ctx context.Context, cfg *Config, infra *bootstrap.Result) (*App, error) {
	if infra == nil {
		infra = &bootstrap.Result{}
	}
	backend, err := NewBackend(cfg.Storage, infra.DB)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	repo := storage.Open(ctx, backend)

	a := &App{
		cfg:       cfg,
		infra:     infra,
		Repo:      repo,
		Authoring: authoring.New(repo),
		Play:      play.New(repo),
	}
	a.Bot = bot.New(dispatch.New(a.Authoring, a.Play))
	logger.Info(ctx, "app", "app.assemble",
		slog.String("status", "ok"),
		slog.String("storage", backend.Name()),
		slog.Int("questions", repo.Len()),
		slog.Duration("session_ttl", cfg.Sessions.IdleTTL),
	)
	return a, nil
}

// NewBackend builds the storage backend named by cfg. SQL backends need db.
func NewBackend(cfg StorageConfig, db *sqlx.DB) (storage.Backend, error) {
	switch cfg.Backend {
	case BackendFile, "":
		return storage.NewFileBackend(cfg.File), nil
	case BackendPostgres, BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("storage backend %q needs a database connection", cfg.Backend)
		}
		return storage.NewSQLBackend(db), nil
	}
	return nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Backend)
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions(context.Context) (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	a.Bot.Register(reg)

	routes := append(router.CommandRoutes(reg), router.TextRoutes(reg)...)
	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    reg,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			a.StartSweepers(ctx)
			return nil
		},
	}, nil
}

// StartSweepers expires idle sessions in the background until ctx is done.
// It does nothing when no TTL is configured.
func (a *App) StartSweepers(ctx context.Context) {
	s := a.cfg.Sessions
	if s.IdleTTL <= 0 {
		return
	}
	go a.Authoring.RunSweeper(ctx, s.SweepInterval, s.IdleTTL)
	go a.Play.RunSweeper(ctx, s.SweepInterval, s.IdleTTL)
}

// Close implements cmd.TelegramApp.
func (a *App) Close() error {
	return a.infra.Close()
}

// Run is the quizbot entrypoint used by main.
func Run() error {
	return cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return Bootstrap(ctx, cfg.(*Config))
		},
	})
}
