package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/quizbot/core/logger"
)

const migrateComponent = "db.migrate"

// MigrationsPath resolves the directory holding migrations for cfg.Driver.
func MigrationsPath(cfg Config) (string, error) {
	dir := cfg.MigrationsDir
	if dir == "" {
		dir = "migrations"
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	return filepath.Join(dir, cfg.Driver), nil
}

// RunMigrations applies all up migrations for the configured driver.
func RunMigrations(ctx context.Context, cfg Config) error {
	if cfg.Driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
			logger.Error(ctx, migrateComponent, "db.migrate",
				slog.String("status", "fail"),
				slog.String("reason", "not_ready"),
				logger.Err(err),
			)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	path, err := MigrationsPath(cfg)
	if err != nil {
		return err
	}
	files := listMigrationFiles(path)
	logger.Debug(ctx, migrateComponent, "migrate.resolve",
		slog.String("path", path),
		slog.Int("files_total", len(files)),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(path), cfg.MigrateURL())
	if err != nil {
		logger.Error(ctx, migrateComponent, "db.migrate",
			slog.String("status", "fail"),
			slog.String("reason", "init"),
			logger.Err(err),
		)
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn(ctx, migrateComponent, "migrate.close", logger.Err(err))
		}
	}()

	fromVer, _, _ := m.Version()

	start := time.Now()
	upErr := m.Up()
	took := logger.Took(start)

	switch {
	case upErr == nil:
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info(ctx, migrateComponent, "migrate.summary",
			slog.String("status", "ok"),
			slog.Uint64("from_ver", uint64(fromVer)),
			slog.Uint64("to_ver", uint64(fromVer)),
			slog.Int("files", 0),
			slog.Duration("duration", took),
		)
		return nil
	default:
		logger.Error(ctx, migrateComponent, "migrate.apply",
			slog.String("status", "fail"),
			slog.Duration("duration", took),
			logger.Err(upErr),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	toVer, _, _ := m.Version()
	applied := selectApplied(files, uint64(fromVer), uint64(toVer))
	logger.Info(ctx, migrateComponent, "migrate.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(applied)),
		slog.String("applied", strings.Join(applied, ",")),
		slog.Duration("duration", took),
	)
	return nil
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
