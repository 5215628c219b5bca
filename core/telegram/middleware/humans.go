package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quizbot/core/logger"
	tghelpers "github.com/m3rciful/quizbot/core/telegram/helpers"
)

// HumansOnly drops updates without a sender or sent by bots, including this one.
func HumansOnly(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil || user.IsBot {
			logger.Debug(tghelpers.BuildContext(c), "tg", "update.skip",
				slog.String("reason", "not_human"),
			)
			return nil
		}
		return next(c)
	}
}
