// Package view holds the user-facing texts and keyboards of the bot.
package view

import (
	"fmt"
	"strings"

	"github.com/m3rciful/homeworkbot/core/buildinfo"
	"github.com/m3rciful/homeworkbot/core/telegram/format"
	"github.com/m3rciful/homeworkbot/internal/homework"
)

// Reply keyboard labels. They double as command aliases.
const (
	BtnAdd          = "📝 Add homework"
	BtnList         = "📋 Show full list"
	BtnClear        = "🗑️ Clear"
	BtnHelp         = "❓ Help"
	BtnStop         = "⛔ Stop"
	BtnClearAll     = "🧹 Clear all"
	BtnDeleteByDate = "📅 Delete by date"
)

// Callback unique for inline date buttons in the delete prompt.
const CallbackDeleteDate = "delete_date"

const (
	TextHelp = "📚 *How to use the bot:*\n\n" +
		"1️⃣ Press '" + BtnAdd + "'\n" +
		"2️⃣ Enter a date (for example: 26.02.2026)\n" +
		"3️⃣ Send the tasks one message at a time\n" +
		"4️⃣ Press '" + BtnStop + "' to save\n\n" +
		"📋 *Other commands:*\n" +
		"• /list - show your list\n" +
		"• /clear - clear tasks\n" +
		"• /help - this help\n\n" +
		"🔒 *Note:* everyone sees only their own tasks!"
	TextHelpShared = "📚 *How to use the bot:*\n\n" +
		"1️⃣ Press '" + BtnAdd + "'\n" +
		"2️⃣ Enter a date (for example: 26.02.2026)\n" +
		"3️⃣ Send the tasks one message at a time\n" +
		"4️⃣ Press '" + BtnStop + "' to save\n\n" +
		"📋 *Other commands:*\n" +
		"• /list - show the list\n" +
		"• /clear - clear tasks\n" +
		"• /help - this help\n\n" +
		"👥 *Note:* the list is shared by everyone using this bot."

	TextAskDate = "📅 Enter the date in DD.MM.YYYY format\n" +
		"For example: 26.02.2026\n\n" +
		"Or press '" + BtnStop + "' to cancel"
	TextBadDate = "❌ Wrong date format!\n" +
		"Enter the date as DD.MM.YYYY\n" +
		"For example: 26.02.2026"
	TextBadDeleteDate = "❌ Wrong date format!\n" +
		"Use DD.MM.YYYY"

	TextDeleteStopHint = "Or press '" + BtnStop + "' to cancel"

	TextAddCancelled    = "❌ Adding cancelled"
	TextCancelled       = "❌ Cancelled"
	TextActionCancelled = "⏹️ Action cancelled"
	TextNothingToSave   = "❌ No tasks to save"
	TextSaveFailed      = "❌ Error while saving"
	TextDeleteFailed    = "❌ Error while deleting"
	TextLoadFailed      = "❌ Could not read the list, please try again later"
	TextEmptyList       = "📭 Your list is empty"
	TextAllCleared      = "✅ All your tasks have been deleted!"
	TextUseMenu         = "Use the menu buttons"
	TextEmptyItem       = "✏️ Send the task as a text message"
	TextUnknownDocument = "I only understand text messages. Use the menu buttons"
	TextStaleButton     = "This menu is no longer active"
	TextRateLimited     = "⏳ Too many messages, slow down a little"
	TextAdminOnly       = "⛔ This command is for the bot admin only"

	TextClearMenu = "🗑️ *Clearing your tasks:*\n\n" +
		BtnClearAll + " - delete everything\n" +
		BtnDeleteByDate + " - delete tasks for one date"
)

// Start greets the user by first name.
func Start(firstName string, shared bool) string {
	scope := "📝 *Every user has a personal homework list*"
	if shared {
		scope = "👥 *Everyone shares one homework list*"
	}
	return fmt.Sprintf("👋 Hi, %s!\n\n%s\n\n"+
		"What I can do:\n"+
		"• 📝 Add homework\n"+
		"• 📋 Show your list\n"+
		"• 🗑️ Clear your tasks\n"+
		"• ❓ Help\n\n"+
		"Choose an action:", format.EscapeV1(firstName), scope)
}

// Help returns the usage text for the storage mode.
func Help(shared bool) string {
	if shared {
		return TextHelpShared
	}
	return TextHelp
}

// AskItems prompts for tasks after a valid date.
func AskItems(date homework.Date) string {
	return fmt.Sprintf("📝 Enter the tasks for %s\n\n"+
		"Example:\n"+
		"Math: p. 45, #123\n"+
		"History: read paragraph 5\n\n"+
		"When you are done, press '%s'", date, BtnStop)
}

// ItemAdded echoes the running numbered list.
func ItemAdded(items []string) string {
	return "✅ Added!\n\nCurrent list:\n" + homework.Numbered(items)
}

// Saved confirms a stored entry.
func Saved(date homework.Date) string {
	return fmt.Sprintf("✅ Tasks for %s saved!", date)
}

// Deleted confirms removal of one date.
func Deleted(date homework.Date) string {
	return fmt.Sprintf("✅ Tasks for %s deleted!", date)
}

// DateNotFound reports a date missing from the list.
func DateNotFound(date homework.Date) string {
	return fmt.Sprintf("❌ %s is not in your list", date)
}

// DeletePrompt lists the user's dates and asks which to delete.
func DeletePrompt(dates []homework.Date) string {
	var b strings.Builder
	b.WriteString("📅 *Your dates:*\n\n")
	for _, d := range dates {
		b.WriteString("• ")
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	b.WriteString("\n✏️ Enter the date to delete or pick it below:")
	return b.String()
}

// Stats renders the admin summary.
func Stats(st homework.Stats, sessions int) string {
	return fmt.Sprintf("📊 *Stats*\n\nOwners: %d\nEntries: %d\nItems: %d\nActive dialogs: %d\nBuild: %s",
		st.Owners, st.Entries, st.Items, sessions, format.EscapeV1(buildinfo.String()))
}

// IsStop reports whether text asks to stop the current step.
func IsStop(text string) bool {
	t := strings.TrimSpace(text)
	return t == BtnStop || strings.EqualFold(t, "/stop") || strings.EqualFold(t, "stop")
}
