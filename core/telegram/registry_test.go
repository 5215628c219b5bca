package telegram

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/quizbot/core/config"
	"github.com/m3rciful/quizbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("question", commands.Command{Handler: noop, Description: "x"})
	r.RegisterCommand("/question", commands.Command{Description: "x"})
	r.RegisterCommand("/question", commands.Command{Handler: noop})
	if len(r.Commands()) != 0 {
		t.Fatalf("invalid commands registered: %v", r.Commands())
	}
	r.RegisterCommand("/question", commands.Command{Handler: noop, Description: "first"})
	r.RegisterCommand("/question", commands.Command{Handler: noop, Description: "second"})
	if r.Commands()["/question"].Description != "first" {
		t.Fatal("duplicate replaced the original")
	}
}

func TestListAndLookup(t *testing.T) {
	r := NewRegistry()
	r.RegisterCommand("/save", commands.Command{Handler: noop, Description: "save"})
	r.RegisterCommand("/abort", commands.Command{Handler: noop, Description: "abort", Aliases: []string{"cancel"}})

	list := r.ListCommands()
	if len(list) != 2 || list[0].Text != "abort" || list[1].Text != "save" {
		t.Fatalf("list = %+v", list)
	}

	for in, want := range map[string]string{"/abort": "/abort", "/cancel now": "/abort", "save": "/save"} {
		key, _, ok := r.LookupCommand(in)
		if !ok || key != want {
			t.Fatalf("LookupCommand(%q) = %q, %v", in, key, ok)
		}
	}
	if _, _, ok := r.LookupCommand("  "); ok {
		t.Fatal("blank text matched a command")
	}
}

func TestBuildPoller(t *testing.T) {
	cfg := &coreconfig.Config{}
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	lp, ok := BuildPoller(cfg).(*tele.LongPoller)
	if !ok || lp.Timeout != defaultLongPollTimeout {
		t.Fatalf("poller = %#v", lp)
	}

	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	cfg.Webhook.URL = "https://quiz.example.org/hook"
	wh, ok := BuildPoller(cfg).(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != cfg.Webhook.URL {
		t.Fatalf("poller = %#v", wh)
	}
}

func TestDefaultMiddlewares(t *testing.T) {
	cfg := &coreconfig.Config{}
	names := func(mws []Middleware) []string {
		var out []string
		for _, m := range mws {
			out = append(out, m.Name)
		}
		return out
	}
	if got := names(DefaultMiddlewares(cfg, nil)); len(got) != 4 {
		t.Fatalf("without rate limit: %v", got)
	}
	cfg.RateLimit.IntervalMS = 500
	got := names(DefaultMiddlewares(cfg, nil))
	if len(got) != 5 || got[3] != "rate_limit" {
		t.Fatalf("with rate limit: %v", got)
	}
}
