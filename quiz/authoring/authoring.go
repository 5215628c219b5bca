// Package authoring runs the interactive question-creation conversations.
//
// A session belongs to one user in one chat and moves through two phases:
// it first waits for the question text, then collects answers until the
// author saves or aborts.
package authoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/quizbot/core/logger"
	"github.com/m3rciful/quizbot/core/session"
	"github.com/m3rciful/quizbot/quiz"
	"github.com/m3rciful/quizbot/quiz/storage"
)

const component = "quiz.authoring"

// Phase is the position of a session in the text-then-answers protocol.
type Phase int

const (
	// PhaseAwaitingQuestionText waits for the question text.
	PhaseAwaitingQuestionText Phase = iota
	// PhaseAwaitingAnswer collects answers until save.
	PhaseAwaitingAnswer
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingQuestionText:
		return "awaiting_question_text"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	}
	return "unknown"
}

// Key identifies an authoring session: one per user per chat.
type Key struct {
	Channel int64
	User    int64
}

// Session is one question under construction.
type Session struct {
	ID        string
	Phase     Phase
	Question  quiz.Question
	StartedAt time.Time
}

// Replies sent to authors.
const (
	MsgStart = "You are about to create a question. You can create a multiple choice question, " +
		"that can then be played by other users with the !question command.\n" +
		"You can cancel with the !abort command.\n" +
		"Please first tell us what the question text should be:"
	MsgAlreadyAuthoring = "You are already creating a question in this chat. " +
		"Finish it with !save or cancel it with !abort."
	MsgQuestionNoted = "Your question text has been noted. Please add some possible answers.\n" +
		"Please now enter the first answer by first writing wrong or right followed by the text for the answer.\n" +
		"E.g. 'right Neil Armstrong'\n" +
		"Enter your answer now:"
	MsgAnswerNoted = "Your answer text has been noted.\n" +
		"Please now enter the next answer by first writing wrong or right followed by the text for the answer.\n" +
		"If you are finished answer !save instead.\n" +
		"E.g. 'right Neil Armstrong'\n" +
		"Enter your answer now:"
	MsgInvalidAnswer = "Invalid response. Please try again or abort with !abort. " +
		"Your answer needs to begin with either 'right ' or 'wrong '."
	MsgNeedCorrect = "You need at least one correct answer. Just add one now and try to save afterwards.\n" +
		"E.g. right Neil Armstrong\n" +
		"Let's go:"
	MsgSaved = "Your question has been saved. Play it with !question."
)

// Service owns the authoring registry.
type Service struct {
	sessions *session.Registry[Key, Session]
	repo     storage.Repository
	now      func() time.Time
	newID    func() string
}

// New constructs a Service that saves finished questions into repo.
func New(repo storage.Repository) *Service {
	return &Service{
		sessions: session.NewRegistry[Key, Session](),
		repo:     repo,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Active reports whether key has a session in progress.
func (s *Service) Active(key Key) bool {
	return s.sessions.Has(key)
}

// Session returns a copy of the session for key.
func (s *Service) Session(key Key) (Session, bool) {
	sess, ok := s.sessions.Get(key)
	if ok {
		sess.Question = sess.Question.Clone()
	}
	return sess, ok
}

// Len returns the number of sessions in progress.
func (s *Service) Len() int {
	return s.sessions.Len()
}

// Start opens a session for key. A second start while one is running is
// rejected and leaves the running session untouched.
func (s *Service) Start(ctx context.Context, key Key) string {
	sess := Session{
		ID:        s.newID(),
		Phase:     PhaseAwaitingQuestionText,
		StartedAt: s.now(),
	}
	if !s.sessions.Insert(key, sess) {
		logger.Info(ctx, component, "authoring.start",
			slog.String("status", "skip"),
			slog.String("reason", "already_active"),
		)
		return MsgAlreadyAuthoring
	}
	logger.Info(ctx, component, "authoring.start",
		slog.String("status", "ok"),
		slog.String("session_id", sess.ID),
	)
	return MsgStart
}

// Handle feeds one free-text message into the session for key. It returns
// the reply to send, or "" when key has no session.
func (s *Service) Handle(ctx context.Context, key Key, text string) string {
	current, ok := s.sessions.Get(key)
	if !ok {
		return ""
	}
	if current.Phase == PhaseAwaitingAnswer && text == quiz.CmdSave {
		return s.save(ctx, key)
	}

	var reply string
	s.sessions.Update(key, func(sess *Session) {
		switch sess.Phase {
		case PhaseAwaitingQuestionText:
			sess.Question.Text = text
			sess.Phase = PhaseAwaitingAnswer
			reply = MsgQuestionNoted
		case PhaseAwaitingAnswer:
			answer, err := quiz.ParseAnswer(text)
			if err != nil {
				reply = MsgInvalidAnswer
				return
			}
			sess.Question.Answers = append(sess.Question.Answers, answer)
			reply = MsgAnswerNoted
		}
	})
	logger.Debug(ctx, component, "authoring.input",
		slog.String("session_id", current.ID),
		slog.String("phase", current.Phase.String()),
		slog.Bool("accepted", reply != MsgInvalidAnswer),
	)
	return reply
}

func (s *Service) save(ctx context.Context, key Key) string {
	sess, ok := s.sessions.Take(key, func(v Session) bool {
		return v.Phase == PhaseAwaitingAnswer && v.Question.HasCorrectAnswer()
	})
	if !ok {
		if !s.sessions.Has(key) {
			return ""
		}
		logger.Info(ctx, component, "authoring.save",
			slog.String("status", "skip"),
			slog.String("reason", "no_correct_answer"),
		)
		return MsgNeedCorrect
	}

	size := s.repo.Append(ctx, sess.Question)
	err := s.repo.Persist(ctx)
	logger.Info(ctx, component, "authoring.save",
		slog.String("status", logger.Status(err)),
		slog.String("session_id", sess.ID),
		slog.Int("answers", len(sess.Question.Answers)),
		slog.Int("count", size),
		slog.Duration("duration", s.now().Sub(sess.StartedAt)),
	)
	return MsgSaved
}

// Abort drops the session for key. It reports whether one existed.
func (s *Service) Abort(ctx context.Context, key Key) bool {
	if !s.sessions.Delete(key) {
		return false
	}
	logger.Info(ctx, component, "authoring.abort", slog.String("status", "ok"))
	return true
}

// RunSweeper expires sessions idle for longer than ttl until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	s.sessions.RunSweeper(ctx, interval, ttl, func(keys []Key) {
		logger.Info(ctx, component, "session.sweep",
			slog.String("status", "ok"),
			slog.Int("count", len(keys)),
		)
	})
}
