package router

import (
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quizbot/core/logger"
	tghelpers "github.com/m3rciful/quizbot/core/telegram/helpers"
	"github.com/m3rciful/quizbot/core/telegram/middleware"
)

// handleWithSummary runs fn under handlerName and logs one summary line.
func handleWithSummary(c tele.Context, handlerName string, fn tele.HandlerFunc) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, handlerName)
	err := fn(c)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Int("replies", middleware.RepliesSent(c)),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs, logger.Err(err))
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
	return err
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}
