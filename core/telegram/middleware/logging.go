package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quizbot/core/logger"
	tghelpers "github.com/m3rciful/quizbot/core/telegram/helpers"
)

// seenUpdates remembers recently logged update ids so an update passing
// through several wrapped handlers is logged once.
type seenUpdates struct {
	mu   sync.Mutex
	ids  map[int]time.Time
	keep time.Duration
}

var recent = &seenUpdates{ids: make(map[int]time.Time), keep: 10 * time.Second}

func (s *seenUpdates) first(id int, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.ids {
		if now.Sub(ts) > s.keep {
			delete(s.ids, k)
		}
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = now
	return true
}

// LoggerMiddleware assigns the request id, stores the logging context on c
// and logs one sampled receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		updateID := c.Update().ID
		chatID, userID := tghelpers.ChatAndUser(c)
		rid := logger.BuildRID(updateID, chatID, userID)
		c.Set(tghelpers.RIDKey, rid)

		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && recent.first(updateID, time.Now()) {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}
