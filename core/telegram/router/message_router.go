package router

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/quizbot/core/telegram"
)

// TextRoutes routes plain text. Slash text that telebot did not match to an
// endpoint is looked up among command aliases; everything else goes to the
// registry's text fallback. Text with no handler is dropped.
func TextRoutes(reg *tg.Registry) []tg.Route {
	handler := func(c tele.Context) error {
		if reg == nil {
			return nil
		}
		text := c.Text()
		if strings.HasPrefix(text, "/") {
			if key, cmd, ok := reg.LookupCommand(text); ok {
				return handleWithSummary(c, normalizeHandlerName(key), cmd.Handler)
			}
		}
		if fb := reg.TextFallback(); fb != nil {
			return handleWithSummary(c, "text", fb)
		}
		return nil
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
