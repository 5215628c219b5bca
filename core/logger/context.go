package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey struct{}

type loggerKey struct{}

// meta is the per-update correlation data carried through context.
type meta struct {
	rid      string
	updateID int
	chatID   int64
	userID   int64
	handler  string
}

func metaFrom(ctx context.Context) meta {
	if ctx == nil {
		return meta{}
	}
	m, _ := ctx.Value(ctxKey{}).(meta)
	return m
}

func withMeta(ctx context.Context, fn func(*meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, ctxKey{}, m)
}

// WithLogger stores the provided slog.Logger in context for propagation across layers.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext extracts slog.Logger from context or returns the global one.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID attaches request correlation id into context.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *meta) { m.rid = rid })
}

// WithUpdateMeta attaches update, user and chat identifiers to context.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *meta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// WithHandler stores handler name in context for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *meta) { m.handler = handler })
}

// RIDFrom extracts rid from context if present.
func RIDFrom(ctx context.Context) string { return metaFrom(ctx).rid }

// UpdateIDFrom extracts update identifier from context.
func UpdateIDFrom(ctx context.Context) int { return metaFrom(ctx).updateID }

// UserIDFrom extracts Telegram user ID from context.
func UserIDFrom(ctx context.Context) int64 { return metaFrom(ctx).userID }

// ChatIDFrom extracts chat id from context.
func ChatIDFrom(ctx context.Context) int64 { return metaFrom(ctx).chatID }

// HandlerFrom returns handler name from context if present.
func HandlerFrom(ctx context.Context) string { return metaFrom(ctx).handler }

// contextAttrs lists correlation attributes found in ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	m := metaFrom(ctx)
	var attrs []slog.Attr
	if m.rid != "" {
		attrs = append(attrs, slog.String("rid", CompactRID(m.rid)))
	}
	if m.updateID != 0 {
		attrs = append(attrs, slog.Int("update_id", m.updateID))
	}
	if m.chatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", m.chatID))
	}
	if m.userID != 0 {
		attrs = append(attrs, slog.Int64("user_id", m.userID))
	}
	if m.handler != "" {
		attrs = append(attrs, slog.String("handler", m.handler))
	}
	return attrs
}

// Sanitize drops control and format runes except tab and newline.
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeLimit applies Sanitize and limits the output length in runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(Sanitize(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max])
}

// BuildRID returns a correlation identifier in the format updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID shortens a colon-separated RID into base36 segments.
// Input in any other shape is returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}
