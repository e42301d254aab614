package bot

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"wikilist/internal/search"
)

func (b *Bot) pageSize() int {
	if b.viewOpts.PageSize > 0 {
		return b.viewOpts.PageSize
	}
	return search.DefaultPageSize
}

func (b *Bot) sendStateExpired(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "The search session has expired. Please send a name again.")
	_, err := b.api.Send(msg)
	if err != nil {
		slog.Error("Error sending session expired message", "error", err)
	}
}

// sendStatus shows the screen's status line, editing the chat's current
// status message in place when there is one. A final status closes that
// message so the next search starts a new one.
func (b *Bot) sendStatus(chatID int64, s *session, screen search.Screen, final bool) {
	if final {
		defer func() { s.statusMessageID = 0 }()
	}
	if screen.Status == search.StatusNone {
		return
	}

	if s.statusMessageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, s.statusMessageID, screen.Message)
		_, err := b.api.Send(edit)
		if err == nil {
			return
		}
		slog.Warn("Error editing status message, sending a new one", "error", err)
	}

	sent, err := b.api.Send(tgbotapi.NewMessage(chatID, screen.Message))
	if err != nil {
		slog.Error("Error sending status message", "error", err)
		return
	}
	s.statusMessageID = sent.MessageID
}

func (b *Bot) sendGrid(ctx context.Context, chatID int64, screen search.Screen, page int) {
	start := time.Now()
	defer func() {
		slog.Debug("sendGrid executed",
			"duration", time.Since(start).Seconds(),
			"profiles", len(screen.Items))
	}()

	if screen.NotFoundImage {
		b.sendNotFound(chatID)
	}
	if len(screen.Items) == 0 {
		return
	}

	b.sendChatAction(chatID, tgbotapi.ChatUploadPhoto)
	images := b.images.GetAll(ctx, screen.Items)
	if ctx.Err() != nil {
		return
	}
	b.sendMediaGroupOrFallback(chatID, screen.Items, images)
	if ctx.Err() != nil {
		return
	}
	b.sendPagination(chatID, screen, page)
}

func (b *Bot) sendNotFound(chatID int64) {
	_, err := b.api.Send(tgbotapi.NewPhoto(chatID, b.images.NotFound()))
	if err != nil {
		slog.Error("Error sending not-found image", "error", err)
	}
}

func (b *Bot) sendChatAction(chatID int64, action string) {
	_, err := b.api.Request(tgbotapi.NewChatAction(chatID, action))
	if err != nil {
		slog.Error("Error sending chat action", "action", action, "error", err)
	}
}

func (b *Bot) createMediaGroup(items []search.Item, images []tgbotapi.RequestFileData) []interface{} {
	var mediaGroup []interface{}
	for i, item := range items {
		photo := tgbotapi.NewInputMediaPhoto(images[i])
		photo.Caption = formatProfileCaption(item)
		mediaGroup = append(mediaGroup, photo)
	}
	return mediaGroup
}

// sendMediaGroupOrFallback sends the grid as one album. Telegram albums need
// at least two photos, so a single profile and failed albums go one by one.
func (b *Bot) sendMediaGroupOrFallback(chatID int64, items []search.Item, images []tgbotapi.RequestFileData) {
	if len(items) > 1 {
		_, err := b.api.SendMediaGroup(tgbotapi.MediaGroupConfig{
			ChatID: chatID,
			Media:  b.createMediaGroup(items, images),
		})
		if err == nil {
			return
		}
		slog.Error("SendMediaGroup error:", "error", err)
	}

	for i, item := range items {
		b.sendSingleProfile(chatID, item, images[i])
	}
}

func (b *Bot) sendSingleProfile(chatID int64, item search.Item, image tgbotapi.RequestFileData) {
	photoMsg := tgbotapi.NewPhoto(chatID, image)
	photoMsg.Caption = formatProfileCaption(item)
	_, err := b.api.Send(photoMsg)
	if err != nil {
		slog.Error("Failed to send profile picture", "profile", item.Name, "error", err)
	}
}

func (b *Bot) sendPagination(chatID int64, screen search.Screen, page int) {
	pageSize := b.pageSize()
	text := formatProfileList(screen.Items, page, pageSize) + "\nPage: " + strconv.Itoa(page)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.createPaginationKeyboard(page, hasNextPage(page, pageSize, screen.TotalCount))
	_, err := b.api.Send(msg)
	if err != nil {
		slog.Error("Send pagination buttons err:", "error", err)
	}
}
