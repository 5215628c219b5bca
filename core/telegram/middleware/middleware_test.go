package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/quizbot/core/config"
	tghelpers "github.com/m3rciful/quizbot/core/telegram/helpers"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return b
}

func textUpdate(id int, user *tele.User, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Sender: user,
			Chat:   &tele.Chat{ID: -500, Type: tele.ChatGroup},
			Text:   text,
		},
	}
}

func TestHumansOnly(t *testing.T) {
	b := offlineBot(t)
	calls := 0
	h := HumansOnly(func(tele.Context) error { calls++; return nil })

	_ = h(b.NewContext(textUpdate(1, &tele.User{ID: 1, FirstName: "Ann"}, "hi")))
	_ = h(b.NewContext(textUpdate(2, &tele.User{ID: 2, IsBot: true}, "hi")))
	_ = h(b.NewContext(tele.Update{ID: 3}))
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestRateLimit(t *testing.T) {
	b := offlineBot(t)
	now := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: func(tele.Context) error { limited++; return nil },
		now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	ann := &tele.User{ID: 1}
	bo := &tele.User{ID: 2}

	_ = h(b.NewContext(textUpdate(1, ann, "a")))
	_ = h(b.NewContext(textUpdate(2, ann, "b")))
	_ = h(b.NewContext(textUpdate(3, bo, "c")))
	now = now.Add(2 * time.Second)
	_ = h(b.NewContext(textUpdate(4, ann, "d")))

	if calls != 3 || limited != 1 {
		t.Fatalf("calls=%d limited=%d", calls, limited)
	}
}

func TestRateLimitExclusions(t *testing.T) {
	b := offlineBot(t)
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{coreconfig.UpdateMessage: {}},
	})
	calls := 0
	h := mw(func(tele.Context) error { calls++; return nil })
	for i := 0; i < 3; i++ {
		_ = h(b.NewContext(textUpdate(i, &tele.User{ID: 1}, "x")))
	}
	if calls != 3 {
		t.Fatalf("excluded updates were limited: calls=%d", calls)
	}
}

func TestRecoverSwallowsPanic(t *testing.T) {
	b := offlineBot(t)
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	if err := h(b.NewContext(textUpdate(1, &tele.User{ID: 1}, "x"))); err != nil {
		t.Fatalf("err = %v", err)
	}
	want := errors.New("plain")
	h = RecoverMiddleware(func(tele.Context) error { return want })
	if err := h(b.NewContext(textUpdate(2, &tele.User{ID: 1}, "x"))); !errors.Is(err, want) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	b := offlineBot(t)
	var rid string
	h := LoggerMiddleware(func(c tele.Context) error {
		rid, _ = c.Get(tghelpers.RIDKey).(string)
		return nil
	})
	_ = h(b.NewContext(textUpdate(42, &tele.User{ID: 7}, "x")))
	if rid != "42:-500:7" {
		t.Fatalf("rid = %q", rid)
	}
}

func TestRepliesSentWithoutMiddleware(t *testing.T) {
	b := offlineBot(t)
	if n := RepliesSent(b.NewContext(tele.Update{ID: 1})); n != 0 {
		t.Fatalf("replies = %d", n)
	}
}
