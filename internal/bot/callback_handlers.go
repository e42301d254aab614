package bot

import (
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cast"

	"wikilist/internal/model"
)

const (
	callbackPage   = "page"
	callbackCancel = "cancel_search"
)

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	if query.Message == nil || query.Message.Chat == nil {
		slog.Warn("Received callback without message", "data", query.Data)
		return
	}

	callbackConfig := tgbotapi.CallbackConfig{
		CallbackQueryID: query.ID,
	}
	if _, err := b.api.Request(callbackConfig); err != nil {
		slog.Error("Error sending callback response", "error", err)
	}

	data := query.Data
	parts := strings.Split(data, ":")
	chatID := query.Message.Chat.ID

	switch parts[0] {
	case callbackCancel:
		b.closeSession(chatID)
		b.deleteState(chatID)
		reply := tgbotapi.NewMessage(chatID, "Search cancelled. Send /start to begin again.")
		_, err := b.api.Send(reply)
		if err != nil {
			slog.Error("Error sending cancel message", "error", err)
		}
	case callbackPage:
		if len(parts) < 2 {
			slog.Warn("Invalid callback format", "data", data)
			return
		}
		page, err := cast.ToIntE(parts[1])
		if err != nil || page < 1 {
			slog.Warn("Invalid page in callback", "data", data, "error", err)
			return
		}
		b.handlePagination(chatID, page)
	default:
		slog.Warn("Unknown callback", "data", data)
	}
}

// handlePagination moves the chat's view to page. After a restart the view
// is rebuilt from the state saved in redis.
func (b *Bot) handlePagination(chatID int64, page int) {
	if s, _ := b.session(chatID, false); s != nil {
		s.view.SetPage(page)
		return
	}

	state, err := b.loadState(chatID)
	if err != nil {
		slog.Error("Error getting state in handlePagination", "error", err)
		b.sendStateExpired(chatID)
		return
	}
	if state == nil {
		b.sendStateExpired(chatID)
		return
	}

	s, _ := b.session(chatID, true)
	b.saveState(chatID, model.SearchState{Query: state.Query, Page: page})
	s.view.Resume(state.Query, page)
}
