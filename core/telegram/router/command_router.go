// Package router turns the command registry into telebot routes.
package router

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quizbot/core/logger"
	tg "github.com/m3rciful/quizbot/core/telegram"
)

// CommandRoutes returns one route per registered command and alias.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}
	var routes []tg.Route
	for name, def := range reg.Commands() {
		name, h := name, def.Handler
		handler := func(c tele.Context) error {
			return handleWithSummary(c, normalizeHandlerName(name), h)
		}
		routes = append(routes, tg.Route{Endpoint: name, Handler: handler})
		for _, alias := range def.Aliases {
			if alias != "" && alias[0] == '/' {
				routes = append(routes, tg.Route{Endpoint: alias, Handler: handler})
			}
		}
	}
	logger.Info(context.Background(), "tg.wire", "tg.wire",
		slog.String("status", "ok"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("routes", len(routes)),
	)
	return routes
}
