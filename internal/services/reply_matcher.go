package services

import (
	"context"
	"strings"

	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/repositories"
)

// Announcement literals. Replies are matched against the exact text the
// bot sent out, so these must stay in sync with the render side.
const (
	TaskAnnouncePrefix = "📝 Новое задание:"
	TaskBlockHeader    = "📝 Задание №"
	RecipientsMarker   = "Получатели:"
)

// ReplyMatcher associates an inbound reply with the open task it
// answers. It is a pure lookup and never mutates state; completion
// stays with the task service.
type ReplyMatcher interface {
	FindOpenRecipient(ctx context.Context, chatID int64, extractedText string) (taskID int64, err error)
}

type replyMatcher struct {
	repo repositories.TaskRepository
}

func NewReplyMatcher(repo repositories.TaskRepository) ReplyMatcher {
	return &replyMatcher{repo: repo}
}

func (m *replyMatcher) FindOpenRecipient(ctx context.Context, chatID int64, extractedText string) (int64, error) {
	text := strings.TrimSpace(extractedText)
	if text == "" {
		return 0, models.ErrNoMatch
	}
	return m.repo.FindOpenRecipient(ctx, chatID, text)
}

// ExtractTaskText recovers the original task text from the message the
// reply points at. Two shapes are recognized: the single-task
// announcement ("📝 Новое задание: <text>") and the multi-line task
// block ("📝 Задание №N:" followed by the text and a trailing
// recipients section, which is not part of the text).
func ExtractTaskText(message string) (string, error) {
	if strings.Contains(message, TaskAnnouncePrefix) {
		parts := strings.SplitN(message, TaskAnnouncePrefix, 2)
		text := strings.TrimSpace(parts[1])
		if text == "" {
			return "", models.ErrNoMatch
		}
		return text, nil
	}

	if strings.Contains(message, TaskBlockHeader) {
		var taskLines []string
		found := false
		for _, line := range strings.Split(message, "\n") {
			if strings.Contains(line, TaskBlockHeader) {
				found = true
				continue
			}
			if !found {
				continue
			}
			if strings.HasPrefix(line, RecipientsMarker) {
				break
			}
			if strings.TrimSpace(line) != "" {
				taskLines = append(taskLines, strings.TrimSpace(line))
			}
		}
		if len(taskLines) > 0 {
			return strings.Join(taskLines, "\n"), nil
		}
	}

	return "", models.ErrNoMatch
}
