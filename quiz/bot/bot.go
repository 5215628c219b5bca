// Package bot connects the quiz dispatcher to Telegram.
package bot

import (
	"context"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/quizbot/core/telegram"
	"github.com/m3rciful/quizbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/quizbot/core/telegram/helpers"
	"github.com/m3rciful/quizbot/quiz"
	"github.com/m3rciful/quizbot/quiz/dispatch"
)

// Bot turns Telegram updates into dispatcher messages.
type Bot struct {
	dispatcher *dispatch.Dispatcher
	reply      func(c tele.Context, text string) error
}

// New wraps d.
func New(d *dispatch.Dispatcher) *Bot {
	return &Bot{dispatcher: d, reply: tghelpers.SendText}
}

type slashCommand struct {
	name        string
	aliases     []string
	token       string
	description string
	withPayload bool
}

// Menu commands and the chat token each one stands for.
var slashCommands = []slashCommand{
	{name: "/createquestion", aliases: []string{"/createQuestion", "/new"}, token: quiz.CmdCreateQuestion, description: "Create a new multiple choice question"},
	{name: "/question", aliases: []string{"/ask"}, token: quiz.CmdQuestion, description: "Ask a random question in this chat"},
	{name: "/answer", token: quiz.CmdAnswer, description: "Answer the current question, e.g. /answer 2", withPayload: true},
	{name: "/save", token: quiz.CmdSave, description: "Save the question you are creating"},
	{name: "/abort", aliases: []string{"/cancel"}, token: quiz.CmdAbort, description: "Cancel what you are doing"},
}

// Register adds the slash commands and makes every other text go to the dispatcher.
func (b *Bot) Register(reg *tg.Registry) {
	for _, sc := range slashCommands {
		reg.RegisterCommand(sc.name, commands.Command{
			Description: sc.description,
			Aliases:     sc.aliases,
			Handler:     b.slash(sc),
		})
	}
	reg.SetTextFallback(b.HandleText)
}

func (b *Bot) slash(sc slashCommand) tele.HandlerFunc {
	return func(c tele.Context) error {
		text := sc.token
		if sc.withPayload {
			if msg := c.Message(); msg != nil && msg.Payload != "" {
				text += " " + msg.Payload
			}
		}
		return b.dispatch(c, text)
	}
}

// HandleText dispatches the raw message text.
func (b *Bot) HandleText(c tele.Context) error {
	return b.dispatch(c, c.Text())
}

func (b *Bot) dispatch(c tele.Context, text string) error {
	msg, ok := MessageFrom(c)
	if !ok {
		return nil
	}
	msg.Text = text
	replier := dispatch.ReplierFunc(func(_ context.Context, reply string) error {
		return b.reply(c, reply)
	})
	return b.dispatcher.Handle(tghelpers.BuildContext(c), msg, replier)
}

// MessageFrom extracts chat, sender and text from c. It reports false for
// updates without a chat or a human sender.
func MessageFrom(c tele.Context) (dispatch.Message, bool) {
	chat, user := c.Chat(), c.Sender()
	if chat == nil || user == nil || user.IsBot {
		return dispatch.Message{}, false
	}
	return dispatch.Message{
		Channel:  chat.ID,
		User:     user.ID,
		UserName: DisplayName(user),
		Text:     c.Text(),
	}, true
}

// DisplayName is how a user is addressed in replies.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "user " + strconv.FormatInt(u.ID, 10)
}
