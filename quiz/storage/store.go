// Package storage keeps the authored question collection in memory and
// writes it through to a durable backend.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/m3rciful/quizbot/core/logger"
	"github.com/m3rciful/quizbot/quiz"
)

const component = "storage"

// ErrUnknownBackend is returned for a storage backend name nothing implements.
var ErrUnknownBackend = errors.New("storage: unknown backend")

// Repository is the question collection as seen by the quiz flows.
type Repository interface {
	// Append adds q to the in-memory collection and returns the new size.
	Append(ctx context.Context, q quiz.Question) int
	// Persist overwrites the durable copy with the whole collection.
	// Failures are logged as warnings and returned for the caller's information.
	Persist(ctx context.Context) error
	// All returns a snapshot of the collection in insertion order.
	All() []quiz.Question
	// Len returns the collection size.
	Len() int
}

// Backend loads and saves the full collection.
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]quiz.Question, error)
	Save(ctx context.Context, questions []quiz.Question) error
}

// Store is the default Repository: an in-memory slice written through to a Backend.
type Store struct {
	mu        sync.Mutex
	questions []quiz.Question
	backend   Backend
}

var _ Repository = (*Store)(nil)

// Open loads the collection from backend. A failed read is reported as a
// warning and yields an empty collection, never an error.
func Open(ctx context.Context, backend Backend) *Store {
	s := &Store{backend: backend}
	if backend == nil {
		return s
	}
	start := time.Now()
	questions, err := backend.Load(ctx)
	if err != nil {
		logger.Warn(ctx, component, "storage.load",
			slog.String("status", "fail"),
			slog.String("backend", backend.Name()),
			logger.Err(err),
		)
		return s
	}
	s.questions = questions
	logger.Info(ctx, component, "storage.load",
		slog.String("status", "ok"),
		slog.String("backend", backend.Name()),
		slog.Int("count", len(questions)),
		slog.Duration("duration", logger.Took(start)),
	)
	return s
}

// Append implements Repository.
func (s *Store) Append(_ context.Context, q quiz.Question) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, q.Clone())
	return len(s.questions)
}

// Persist implements Repository. The lock is held for the whole write so
// the backend always sees a collection no append is racing with.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	start := time.Now()
	if err := s.backend.Save(ctx, s.questions); err != nil {
		logger.Warn(ctx, component, "storage.persist",
			slog.String("status", "fail"),
			slog.String("backend", s.backend.Name()),
			slog.Int("count", len(s.questions)),
			logger.Err(err),
		)
		return err
	}
	logger.Debug(ctx, component, "storage.persist",
		slog.String("status", "ok"),
		slog.String("backend", s.backend.Name()),
		slog.Int("count", len(s.questions)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// All implements Repository.
func (s *Store) All() []quiz.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]quiz.Question(nil), s.questions...)
}

// Len implements Repository.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions)
}

// Random picks a question uniformly from repo. The second result is false
// when the repository is empty.
func Random(repo Repository, pick func(n int) int) (quiz.Question, bool) {
	all := repo.All()
	if len(all) == 0 {
		return quiz.Question{}, false
	}
	if pick == nil {
		pick = rand.IntN
	}
	return all[pick(len(all))], true
}
