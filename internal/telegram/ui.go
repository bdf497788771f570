package telegram

import (
	"fmt"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"

	"empirepilot/internal/admin"
	"empirepilot/internal/pilot"
)

const (
	cbPrefix       = "ep:"
	cbActionPrefix = cbPrefix + "qa:"
)

func quickActionKeyboard() gotgbot.InlineKeyboardMarkup {
	actions := pilot.QuickActions()
	rows := make([][]gotgbot.InlineKeyboardButton, 0, (len(actions)+1)/2)
	for i := 0; i < len(actions); i += 2 {
		row := []gotgbot.InlineKeyboardButton{button(actions[i])}
		if i+1 < len(actions) {
			row = append(row, button(actions[i+1]))
		}
		rows = append(rows, row)
	}
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func button(qa pilot.QuickAction) gotgbot.InlineKeyboardButton {
	return gotgbot.InlineKeyboardButton{Text: qa.Label, CallbackData: cbActionPrefix + string(qa.Action)}
}

func helpText() string {
	lines := []string{
		"Empire Pilot can answer questions about HMO conversions, planning and our credentials, and take your project details for a quote.",
		"",
		"Just type your question, or use:",
	}
	for _, qa := range pilot.QuickActions() {
		lines = append(lines, fmt.Sprintf("/%s - %s", qa.Action, qa.Label))
	}
	return strings.Join(lines, "\n")
}

func statsText(st admin.Stats) string {
	return strings.Join([]string{
		"Empire Pilot stats",
		"",
		fmt.Sprintf("Total chats: %d", st.TotalChats),
		fmt.Sprintf("Qualified leads: %d", st.QualifiedLeads),
		fmt.Sprintf("Active conversations: %d", st.ActiveConversations),
		fmt.Sprintf("News posts: %d", st.NewsPosts),
		fmt.Sprintf("Quote requests: %d", st.Quotes),
	}, "\n")
}
