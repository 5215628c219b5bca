package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level  slog.Leveler
	writer io.Writer
	format logFormat
}

// contextHandler decorates an slog handler with correlation fields taken
// from the record context and fills a default component.
type contextHandler struct {
	next         slog.Handler
	hasComponent bool
}

func newStructuredHandler(cfg handlerConfig) slog.Handler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:       cfg.level,
		ReplaceAttr: replaceAttr,
	}
	var next slog.Handler
	if cfg.format == formatKV {
		next = slog.NewTextHandler(cfg.writer, opts)
	} else {
		next = slog.NewJSONHandler(cfg.writer, opts)
	}
	return &contextHandler{next: next}
}

// Enabled reports whether the wrapped handler accepts level.
func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle appends context attributes not already present on the record.
func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Message == "" {
		r.Message = "unknown"
	}
	present := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		present[a.Key] = struct{}{}
		return true
	})
	if !h.hasComponent {
		if _, ok := present["component"]; !ok {
			r.AddAttrs(slog.String("component", "app"))
		}
	}
	for _, a := range contextAttrs(ctx) {
		if _, ok := present[a.Key]; ok {
			continue
		}
		r.AddAttrs(a)
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs returns a handler enriched with attrs.
func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	has := h.hasComponent
	for _, a := range attrs {
		if a.Key == "component" {
			has = true
		}
	}
	return &contextHandler{next: h.next.WithAttrs(attrs), hasComponent: has}
}

// WithGroup returns a handler with an additional group prefix.
func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &contextHandler{next: h.next.WithGroup(name), hasComponent: h.hasComponent}
}

// replaceAttr renames the builtin keys to ts/level/event and folds
// durations into *_ms integers.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			return slog.String("ts", a.Value.Time().UTC().Format(timeFormatMillis))
		case slog.MessageKey:
			return slog.String("event", a.Value.String())
		case slog.LevelKey:
			return slog.String("level", strings.ToUpper(a.Value.String()))
		}
	}
	if a.Value.Kind() == slog.KindDuration {
		return slog.Int64(durationKey(a.Key), RoundMS(a.Value.Duration()).Milliseconds())
	}
	if a.Value.Kind() == slog.KindString {
		a.Value = slog.StringValue(strings.TrimSpace(a.Value.String()))
	}
	return a
}

func durationKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}
