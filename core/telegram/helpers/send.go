package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quizbot/core/logger"
	"github.com/m3rciful/quizbot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by SendText. With no
// dispatcher set, sends happen inline.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	var chat int64
	if ch := c.Chat(); ch != nil {
		chat = ch.ID
	}
	err := disp.Enqueue(ctx, sender.Job{Chat: chat, Action: action, Run: run})
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			logger.Err(err),
		)
		return run()
	}
	return err
}

// SendText sends raw text, without parse mode or link previews, to the current chat.
func SendText(c tele.Context, text string) error {
	opts := &tele.SendOptions{DisableWebPagePreview: true}
	return sendAsync(c, "send.text", func() error {
		return c.Send(text, opts)
	})
}
