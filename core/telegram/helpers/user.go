package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// UserID returns the Telegram id of the update sender or 0 for senderless updates.
func UserID(c tele.Context) int64 {
	if c == nil {
		return 0
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// FirstName returns the sender's first name, or fallback when it is unknown or blank.
func FirstName(c tele.Context, fallback string) string {
	if c == nil {
		return fallback
	}
	if u := c.Sender(); u != nil {
		if name := strings.TrimSpace(u.FirstName); name != "" {
			return name
		}
	}
	return fallback
}
