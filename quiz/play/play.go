// Package play asks stored questions in a chat and judges the answers.
package play

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/quizbot/core/logger"
	"github.com/m3rciful/quizbot/core/session"
	"github.com/m3rciful/quizbot/quiz"
	"github.com/m3rciful/quizbot/quiz/storage"
)

const component = "quiz.play"

// Replies sent to players.
const (
	MsgNoQuestions   = "No questions available"
	MsgNoSession     = "No question found that could be answered"
	MsgInvalid       = "Invalid command"
	msgNoSuchAnswer  = "There is no answer with index %s"
	msgRightTemplate = "%s, congratulations your answer was right."
	msgWrongTemplate = "%s, we are sorry your answer was wrong."
)

var answerPattern = regexp.MustCompile(`^` + regexp.QuoteMeta(quiz.CmdAnswer) + ` (\d+)$`)

// Session is the question currently live in a chat.
type Session struct {
	ID       string
	Question quiz.Question
	AskedAt  time.Time
}

// Service owns the play registry, one session per chat.
type Service struct {
	sessions *session.Registry[int64, Session]
	repo     storage.Repository
	pick     func(n int) int
	now      func() time.Time
	newID    func() string
}

// New constructs a Service drawing questions from repo.
func New(repo storage.Repository) *Service {
	return &Service{
		sessions: session.NewRegistry[int64, Session](),
		repo:     repo,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Active reports whether channel has a live question.
func (s *Service) Active(channel int64) bool {
	return s.sessions.Has(channel)
}

// Session returns the live session for channel.
func (s *Service) Session(channel int64) (Session, bool) {
	return s.sessions.Get(channel)
}

// Len returns the number of chats with a live question.
func (s *Service) Len() int {
	return s.sessions.Len()
}

// Ask picks a random question and makes it live in channel, replacing
// whatever was live there before.
func (s *Service) Ask(ctx context.Context, channel int64) string {
	q, ok := storage.Random(s.repo, s.pick)
	if !ok {
		logger.Info(ctx, component, "play.ask",
			slog.String("status", "skip"),
			slog.String("reason", "empty_repository"),
		)
		return MsgNoQuestions
	}
	sess := Session{ID: s.newID(), Question: q, AskedAt: s.now()}
	_, replaced := s.sessions.Put(channel, sess)
	logger.Info(ctx, component, "play.ask",
		slog.String("status", "ok"),
		slog.String("session_id", sess.ID),
		slog.Int("answers", len(q.Answers)),
		slog.Bool("replaced", replaced),
	)
	return q.Format()
}

// Answer judges an "!answer N" message sent by player in channel.
// A right answer ends the session; a wrong one leaves it open for retries.
func (s *Service) Answer(ctx context.Context, channel int64, player, text string) string {
	m := answerPattern.FindStringSubmatch(text)
	if m == nil {
		return MsgInvalid
	}
	digits := m[1]

	var (
		reply   string
		correct bool
		found   bool
	)
	sess, ok := s.sessions.Take(channel, func(v Session) bool {
		found = true
		answer, inRange := answerAt(v.Question, digits)
		switch {
		case !inRange:
			reply = fmt.Sprintf(msgNoSuchAnswer, digits)
		case answer.Correct:
			correct = true
			reply = fmt.Sprintf(msgRightTemplate, player)
		default:
			reply = fmt.Sprintf(msgWrongTemplate, player)
		}
		return correct
	})
	if !found {
		return MsgNoSession
	}
	if ok {
		logger.Info(ctx, component, "play.answer",
			slog.String("status", "ok"),
			slog.String("session_id", sess.ID),
			slog.String("index", digits),
			slog.Bool("correct", true),
			slog.Duration("duration", s.now().Sub(sess.AskedAt)),
		)
		return reply
	}
	logger.Debug(ctx, component, "play.answer",
		slog.String("status", "ok"),
		slog.String("index", digits),
		slog.Bool("correct", false),
	)
	return reply
}

// answerAt resolves the 1-based decimal index. Indexes too large for an
// int are simply out of range.
func answerAt(q quiz.Question, digits string) (quiz.Answer, bool) {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return quiz.Answer{}, false
	}
	return q.AnswerAt(n)
}

// Abort drops the live question in channel. It reports whether one existed.
func (s *Service) Abort(ctx context.Context, channel int64) bool {
	if !s.sessions.Delete(channel) {
		return false
	}
	logger.Info(ctx, component, "play.abort", slog.String("status", "ok"))
	return true
}

// RunSweeper expires questions left unanswered for longer than ttl.
func (s *Service) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	s.sessions.RunSweeper(ctx, interval, ttl, func(channels []int64) {
		logger.Info(ctx, component, "session.sweep",
			slog.String("status", "ok"),
			slog.Int("count", len(channels)),
		)
	})
}
