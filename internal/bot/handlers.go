package bot

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wikilist/internal/model"
	"wikilist/internal/search"
)

func (b *Bot) handleStartCommand(msg *tgbotapi.Message) {
	text := "Hi! I search the wiki profile directory.\n\n" +
		"Just type a name. I wait until you stop typing, then show who I found."
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	_, err := b.api.Send(reply)
	if err != nil {
		slog.Error("Error sending message in handleStartCommand", "error", err)
	}

	b.closeSession(msg.Chat.ID)
	s, _ := b.session(msg.Chat.ID, true)
	b.saveState(msg.Chat.ID, model.SearchState{Page: 1})
	s.view.Mount()
}

func (b *Bot) handleHelpCommand(msg *tgbotapi.Message) {
	text := "How to use the bot:\n\n" +
		"1. Send a name (or part of one)\n" +
		"2. Keep typing; the search runs once you pause\n" +
		"3. Use ⬅ ➡ to move between pages\n\n" +
		"Commands:\n" +
		"/start - show the whole directory\n" +
		"/help - show this help"
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	_, err := b.api.Send(reply)
	if err != nil {
		slog.Error("Error sending message in handleHelpCommand", "error", err)
	}
}

// handleMessage treats every text message as the new content of the search
// field. Stickers, photos and other messages without text are ignored.
func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.Chat == nil || msg.Text == "" {
		return
	}
	s, _ := b.session(msg.Chat.ID, true)
	s.view.InputChange(msg.Text)
}

// handleViewEvent runs on the session worker, one event at a time.
func (b *Bot) handleViewEvent(chatID int64, s *session, e search.Event) {
	screen := search.Render(e.State)

	switch e.Kind {
	case search.EventInput, search.EventPage:
		b.saveState(chatID, model.SearchState{Query: e.State.Input, Page: e.State.Page})
		b.sendStatus(chatID, s, screen, false)
	case search.EventResults:
		b.sendStatus(chatID, s, screen, true)
		b.sendGrid(s.ctx, chatID, screen, e.State.Page)
	case search.EventFailed:
		b.sendStatus(chatID, s, screen, true)
	}
}
