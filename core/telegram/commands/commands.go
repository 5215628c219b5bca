// Package commands describes the slash commands a bot exposes in the Telegram menu.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one slash command with its menu description. Aliases are extra
// spellings routed to the same handler and left out of the menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Aliases     []string
}
