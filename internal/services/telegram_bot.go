package services

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladChristmas/bot/internal/models"
)

// TelegramService is the Telegram-backed Gateway. The announcement text
// it sends is exactly what the reply matcher later parses back out.
type TelegramService struct {
	api *tgbotapi.BotAPI
}

func NewTelegramService(api *tgbotapi.BotAPI) *TelegramService {
	return &TelegramService{api: api}
}

// SendTask delivers one task announcement plus its media to one chat.
// Media is sent as replies to the announcement so the thread stays
// together. A media failure after a delivered announcement still
// counts as success: the recipient can see and answer the task.
func (t *TelegramService) SendTask(ctx context.Context, chatID int64, text string, media []models.MediaItem) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s %s", TaskAnnouncePrefix, text))
	sent, err := t.api.Send(msg)
	if err != nil {
		return fmt.Errorf("send task to chat %d: %w", chatID, err)
	}

	for _, m := range media {
		if err := t.sendMedia(chatID, m, sent.MessageID); err != nil {
			log.Printf("[tg][media][err] chat=%d file=%s: %v", chatID, m.FileID, err)
		}
	}
	return nil
}

// SendText sends a plain message with no keyboard.
func (t *TelegramService) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendMedia sends a stored media item, optionally as a reply.
func (t *TelegramService) SendMedia(ctx context.Context, chatID int64, m models.MediaItem, inReplyTo int) error {
	return t.sendMedia(chatID, m, inReplyTo)
}

func (t *TelegramService) sendMedia(chatID int64, m models.MediaItem, replyTo int) error {
	var msg tgbotapi.Chattable
	switch m.FileType {
	case models.MediaPhoto:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(m.FileID))
		photo.ReplyToMessageID = replyTo
		msg = photo
	case models.MediaDocument:
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(m.FileID))
		doc.ReplyToMessageID = replyTo
		msg = doc
	default:
		return fmt.Errorf("unsupported media type %q", m.FileType)
	}
	_, err := t.api.Send(msg)
	return err
}
