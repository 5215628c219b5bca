package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m3rciful/quizbot/core/bootstrap"
	coredatabase "github.com/m3rciful/quizbot/core/database"
	"github.com/m3rciful/quizbot/quiz"
	"github.com/m3rciful/quizbot/quiz/authoring"
	"github.com/m3rciful/quizbot/quiz/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "telegram:\n  token: abc\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.File != storage.DefaultFile {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.UsesDatabase() || cfg.Sessions.IdleTTL != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.CoreConfig().Telegram.Token != "abc" {
		t.Fatal("core config not embedded")
	}
}

func TestLoadConfigSQLiteAndSessions(t *testing.T) {
	t.Setenv("DB_SQLITE_PATH", "/var/lib/quiz/quiz.db")
	t.Setenv("SESSIONS_IDLE_TTL", "30s")
	cfg, err := LoadConfig(writeConfig(t, `
telegram:
  token: abc
storage:
  backend: sqlite3
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite || cfg.Database.Driver != coredatabase.DriverSQLite {
		t.Fatalf("backend=%q driver=%q", cfg.Storage.Backend, cfg.Database.Driver)
	}
	if cfg.Database.SQLitePath != "/var/lib/quiz/quiz.db" {
		t.Fatalf("sqlite path = %q", cfg.Database.SQLitePath)
	}
	if cfg.Sessions.IdleTTL != 30*time.Second || cfg.Sessions.SweepInterval != 30*time.Second {
		t.Fatalf("sessions = %+v", cfg.Sessions)
	}
	if !cfg.UsesDatabase() {
		t.Fatal("sqlite backend must use the database")
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "telegram:\n  token: abc\nstorage:\n  backend: redis\n"))
	if !errors.Is(err, storage.ErrUnknownBackend) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(StorageConfig{Backend: BackendFile, File: "q.json"}, nil)
	if err != nil || b.Name() != "file" {
		t.Fatalf("file backend = %v, %v", b, err)
	}
	if _, err := NewBackend(StorageConfig{Backend: BackendPostgres}, nil); err == nil {
		t.Fatal("sql backend without a connection must fail")
	}
	if _, err := NewBackend(StorageConfig{Backend: "nope"}, nil); !errors.Is(err, storage.ErrUnknownBackend) {
		t.Fatalf("err = %v", err)
	}
}

func TestAssembleLoadsStoredQuestions(t *testing.T) {
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "storage.json")
	seed := storage.NewFileBackend(file)
	q := quiz.Question{Text: "2+2?", Answers: []quiz.Answer{{Text: "4", Correct: true}}}
	if err := seed.Save(ctx, []quiz.Question{q}); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Storage: StorageConfig{Backend: BackendFile, File: file}}
	cfg.Telegram.Token = "abc"
	a, err := Assemble(ctx, cfg, &bootstrap.Result{})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	defer a.Close()
	if a.Repo.Len() != 1 {
		t.Fatalf("repo len = %d", a.Repo.Len())
	}

	opts, err := a.TelegramRunOptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Registry == nil || len(opts.Registry.Commands()) != 5 {
		t.Fatalf("registry = %+v", opts.Registry)
	}
	// five commands, four aliases and the text route
	if len(opts.Routes) != 10 {
		t.Fatalf("routes = %d", len(opts.Routes))
	}
}

func TestStartSweepersDisabledByDefault(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := &Config{Storage: StorageConfig{Backend: BackendFile, File: filepath.Join(t.TempDir(), "s.json")}}
	a, err := Assemble(ctx, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	a.StartSweepers(ctx)
	a.Authoring.Start(ctx, authoring.Key{Channel: 1, User: 1})
	if a.Authoring.Len() != 1 {
		t.Fatal("session should stay without a ttl")
	}
}
