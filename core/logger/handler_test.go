package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newTestLogger(t *testing.T, format logFormat) (*slog.Logger, *asyncWriter, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelInfo,
		writer: aw,
		format: format,
	})
	return slog.New(h), aw, buf
}

func TestStructuredHandlerKVFields(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatKV)
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	LogEvent(ctx, log.With("component", "quiz.play"), slog.LevelInfo, "play.ask",
		slog.String("status", "ok"),
	)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"level=INFO", "event=play.ask", "component=quiz.play", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %s", want, line)
		}
	}
	if !strings.HasPrefix(line, "ts=") {
		t.Fatalf("expected ts first, got %s", line)
	}
}

func TestStructuredHandlerJSONFields(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatJSON)
	ctx := WithRID(context.Background(), "12:34:56")
	ctx = WithHandler(ctx, "answer")

	LogEvent(ctx, log, slog.LevelError, "storage.persist",
		slog.String("status", "fail"),
		slog.Duration("duration", 1500*time.Microsecond),
	)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"level":     "ERROR",
		"event":     "storage.persist",
		"component": "app",
		"status":    "fail",
		"rid":       CompactRID("12:34:56"),
		"handler":   "answer",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %v, want %v (line %s)", k, got[k], v, buf.String())
		}
	}
	if got["duration_ms"] != float64(2) {
		t.Fatalf("duration_ms = %v, want 2", got["duration_ms"])
	}
}

func TestStructuredHandlerRecordAttrsWin(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatJSON)
	ctx := WithUpdateMeta(context.Background(), 1, 2, 3)

	LogEvent(ctx, log, slog.LevelInfo, "override", slog.Int64("chat_id", 99))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if strings.Count(buf.String(), `"chat_id"`) != 1 || !strings.Contains(buf.String(), `"chat_id":99`) {
		t.Fatalf("record chat_id should win over context: %s", buf.String())
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	log, aw, buf := newTestLogger(t, formatKV)
	LogEvent(context.Background(), log, slog.LevelDebug, "dropped")
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("debug line should be filtered, got %s", buf.String())
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("36:72:1"); got != "10.20.1" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("CompactRID should keep unknown input, got %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var allowed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Fatalf("allowed = %d, want 3", allowed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
	if n, d := parseRatioSpec("2/5"); n != 2 || d != 5 {
		t.Fatalf("parseRatioSpec(2/5) = %d/%d", n, d)
	}
	if n, d := parseRatioSpec("10"); n != 1 || d != 10 {
		t.Fatalf("parseRatioSpec(10) = %d/%d", n, d)
	}
}

func TestHelpersAreNoopsBeforeInit(t *testing.T) {
	if L != nil {
		t.Skip("global logger already initialised")
	}
	Info(context.Background(), "quiz", "noop", slog.String("status", "ok"))
}
