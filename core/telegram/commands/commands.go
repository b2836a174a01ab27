package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	// IdleOnly commands are handed to the active conversation instead of
	// running when the sender is mid-dialog.
	IdleOnly bool
	Aliases  []string
}
