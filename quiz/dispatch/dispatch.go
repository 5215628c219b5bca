// Package dispatch routes raw chat text to the authoring and play flows.
//
// It is transport neutral: adapters convert their updates into a Message and
// supply a Replier that posts text back to the originating chat.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/m3rciful/quizbot/core/logger"
	"github.com/m3rciful/quizbot/quiz"
	"github.com/m3rciful/quizbot/quiz/authoring"
	"github.com/m3rciful/quizbot/quiz/play"
)

const component = "quiz.dispatch"

// MsgUnexpected is sent when handling a message panics.
const MsgUnexpected = "Unexpected error occurred!"

// Message is one inbound chat message from a human participant.
type Message struct {
	Channel  int64
	User     int64
	UserName string
	Text     string
}

// Replier posts text to the chat a Message came from.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, text string) error

// Reply implements Replier.
func (f ReplierFunc) Reply(ctx context.Context, text string) error { return f(ctx, text) }

// Dispatcher owns no state of its own; sessions live in the two services.
type Dispatcher struct {
	authoring *authoring.Service
	play      *play.Service
}

// New wires a Dispatcher over the two flows.
func New(a *authoring.Service, p *play.Service) *Dispatcher {
	return &Dispatcher{authoring: a, play: p}
}

// Route names the branch a text would take. It is used for log labels.
func Route(text string) string {
	switch {
	case text == quiz.CmdAbort:
		return "abort"
	case text == quiz.CmdCreateQuestion:
		return "create_question"
	case text == quiz.CmdQuestion:
		return "question"
	case strings.HasPrefix(text, quiz.CmdAnswer):
		return "answer"
	}
	return "text"
}

// Handle interprets msg and sends at most one reply. A panic while handling
// is recovered, logged and answered with MsgUnexpected.
func (d *Dispatcher) Handle(ctx context.Context, msg Message, r Replier) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, component, "dispatch.panic",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(fmt.Sprint(rec), 256)),
				slog.String("stack", string(debug.Stack())),
			)
			err = r.Reply(ctx, MsgUnexpected)
		}
	}()

	reply := d.route(ctx, msg)
	if reply == "" {
		return nil
	}
	return r.Reply(ctx, reply)
}

func (d *Dispatcher) route(ctx context.Context, msg Message) string {
	key := authoring.Key{Channel: msg.Channel, User: msg.User}

	switch Route(msg.Text) {
	case "abort":
		// Both flows are aborted; either may have nothing to drop.
		d.authoring.Abort(ctx, key)
		d.play.Abort(ctx, msg.Channel)
		return ""
	case "create_question":
		return d.authoring.Start(ctx, key)
	case "question":
		return d.play.Ask(ctx, msg.Channel)
	case "answer":
		return d.play.Answer(ctx, msg.Channel, msg.UserName, msg.Text)
	}

	if d.authoring.Active(key) {
		return d.authoring.Handle(ctx, key, msg.Text)
	}
	logger.Debug(ctx, component, "dispatch.ignore", slog.String("reason", "no_session"))
	return ""
}
