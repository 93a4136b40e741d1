package services

import (
	"context"
	"log"

	"github.com/VladChristmas/bot/internal/models"
)

// Gateway is the outbound side of the messaging platform. The core only
// cares whether a send succeeded; delivery-layer error codes are opaque.
type Gateway interface {
	SendTask(ctx context.Context, chatID int64, text string, media []models.MediaItem) error
}

// BroadcastService fans a task out to a recipient set: every chat gets
// an independent delivery attempt, and only chats that actually
// received the task are tracked as pending recipients.
type BroadcastService interface {
	Broadcast(ctx context.Context, text string, createdBy int64, media []models.MediaItem, chatIDs []int64, groupID *int64) (taskID int64, report models.DeliveryReport, err error)
}

type broadcastService struct {
	tasks   TaskService
	gateway Gateway
}

func NewBroadcastService(tasks TaskService, gateway Gateway) BroadcastService {
	return &broadcastService{tasks: tasks, gateway: gateway}
}

// Broadcast creates the task, then attempts delivery chat by chat. A
// failed send is logged and reported, never escalated: the rest of the
// batch still goes out. An unreachable chat is left out of the
// recipient set entirely, otherwise the task could never complete.
func (s *broadcastService) Broadcast(ctx context.Context, text string, createdBy int64, media []models.MediaItem, chatIDs []int64, groupID *int64) (int64, models.DeliveryReport, error) {
	var report models.DeliveryReport

	taskID, err := s.tasks.Create(ctx, text, createdBy, media)
	if err != nil {
		return 0, report, err
	}
	log.Printf("[broadcast] task=%d recipients=%d", taskID, len(chatIDs))

	for _, chatID := range chatIDs {
		if err := s.gateway.SendTask(ctx, chatID, text, media); err != nil {
			log.Printf("[broadcast][send][err] task=%d chat=%d: %v", taskID, chatID, err)
			report.Failed = append(report.Failed, chatID)
			continue
		}
		report.Succeeded = append(report.Succeeded, chatID)
	}

	if len(report.Succeeded) > 0 {
		if err := s.tasks.AssignRecipients(ctx, taskID, report.Succeeded, groupID); err != nil {
			return taskID, report, err
		}
	}

	log.Printf("[broadcast] task=%d delivered %d of %d", taskID, len(report.Succeeded), len(chatIDs))
	return taskID, report, nil
}
