package router

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/quizbot/core/telegram"
	"github.com/m3rciful/quizbot/core/telegram/commands"
)

func newContext(t *testing.T, text string) tele.Context {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	if err != nil {
		t.Fatal(err)
	}
	return b.NewContext(tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: 1},
		Chat:   &tele.Chat{ID: 1},
		Text:   text,
	}})
}

func TestTextRoutes(t *testing.T) {
	var got []string
	reg := tg.NewRegistry()
	reg.RegisterCommand("/question", commands.Command{
		Description: "ask",
		Aliases:     []string{"/q"},
		Handler:     func(tele.Context) error { got = append(got, "cmd"); return nil },
	})
	reg.SetTextFallback(func(c tele.Context) error { got = append(got, "text:"+c.Text()); return nil })

	routes := TextRoutes(reg)
	if len(routes) != 1 || routes[0].Endpoint != tele.OnText {
		t.Fatalf("routes = %+v", routes)
	}
	h := routes[0].Handler
	for _, in := range []string{"/q", "question", "/unknown", "hello"} {
		if err := h(newContext(t, in)); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"cmd", "text:question", "text:/unknown", "text:hello"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTextRoutesWithoutFallback(t *testing.T) {
	h := TextRoutes(tg.NewRegistry())[0].Handler
	if err := h(newContext(t, "hello")); err != nil {
		t.Fatal(err)
	}
}

func TestCommandRoutesIncludeAliases(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/createquestion", commands.Command{
		Description: "create",
		Aliases:     []string{"/new", "new2"},
		Handler:     func(tele.Context) error { return nil },
	})
	endpoints := map[any]bool{}
	for _, r := range CommandRoutes(reg) {
		endpoints[r.Endpoint] = true
	}
	if len(endpoints) != 2 || !endpoints["/createquestion"] || !endpoints["/new"] {
		t.Fatalf("endpoints = %v", endpoints)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{"/Question": "question", "": "unknown", " a b ": "a_b"}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q, want %q", in, got, want)
		}
	}
}
