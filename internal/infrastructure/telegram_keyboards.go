package infrastructure

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	callbackQuestionPrefix = "q:"
	callbackMenu           = "action:menu"
)

// SuggestedQuestionsKeyboard puts one suggested question per row
func SuggestedQuestionsKeyboard(questions []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, q := range questions {
		btn := tgbotapi.NewInlineKeyboardButtonData("💬 "+q, fmt.Sprintf("%s%d", callbackQuestionPrefix, i))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(btn))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// FollowUpKeyboard is attached to every answer
func FollowUpKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Ask More", callbackMenu),
		),
	)
}

// questionIndex parses "q:<n>" callback data
func questionIndex(data string) (int, bool) {
	if !strings.HasPrefix(data, callbackQuestionPrefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(data, callbackQuestionPrefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
