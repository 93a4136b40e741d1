package services

import (
	"context"
	"strings"
	"sync"

	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/repositories"
)

// TaskService defines the task lifecycle: creation, recipient
// assignment, completion and the active-task snapshot.
type TaskService interface {
	Create(ctx context.Context, text string, createdBy int64, media []models.MediaItem) (int64, error)
	AssignRecipients(ctx context.Context, taskID int64, chatIDs []int64, groupID *int64) error
	CompleteRecipient(ctx context.Context, taskID, chatID int64, responseMedia []models.MediaItem) (taskCompleted bool, err error)
	ActiveTasks(ctx context.Context) (map[int64]models.TaskSnapshot, error)
}

type taskService struct {
	repo repositories.TaskRepository

	// Per-task locks serialize CompleteRecipient: the recipient update
	// and the all-recipients recount must not interleave for the same
	// task, or two final replies can both miss the task-level flip.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(repo repositories.TaskRepository) TaskService {
	return &taskService{repo: repo, locks: make(map[int64]*sync.Mutex)}
}

func (s *taskService) Create(ctx context.Context, text string, createdBy int64, media []models.MediaItem) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, models.ErrEmptyText
	}
	return s.repo.CreateTask(ctx, text, createdBy, media)
}

func (s *taskService) AssignRecipients(ctx context.Context, taskID int64, chatIDs []int64, groupID *int64) error {
	return s.repo.AssignRecipients(ctx, taskID, chatIDs, groupID)
}

func (s *taskService) CompleteRecipient(ctx context.Context, taskID, chatID int64, responseMedia []models.MediaItem) (bool, error) {
	lock := s.taskLock(taskID)
	lock.Lock()
	defer lock.Unlock()
	return s.repo.CompleteRecipient(ctx, taskID, chatID, responseMedia)
}

func (s *taskService) ActiveTasks(ctx context.Context) (map[int64]models.TaskSnapshot, error) {
	return s.repo.ActiveTasks(ctx)
}

func (s *taskService) taskLock(taskID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[taskID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[taskID] = lock
	}
	return lock
}
