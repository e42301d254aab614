package bot

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) createCancelButton() tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData("❌ Cancel search", callbackCancel)
}

func (b *Bot) createPaginationKeyboard(page int, hasNext bool) tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	if page > 1 {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("⬅", callbackPage+":"+strconv.Itoa(page-1)))
	}
	if hasNext {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("➡", callbackPage+":"+strconv.Itoa(page+1)))
	}

	rows := [][]tgbotapi.InlineKeyboardButton{}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(b.createCancelButton()))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
