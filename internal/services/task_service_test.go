package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/VladChristmas/bot/internal/database"
	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/repositories"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := database.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTaskService(t *testing.T, chatIDs ...int64) (TaskService, ReplyMatcher) {
	t.Helper()
	db := newTestDB(t)
	chats := repositories.NewChatRepository(db)
	ctx := context.Background()
	for _, id := range chatIDs {
		if _, err := chats.RegisterChat(ctx, id, fmt.Sprintf("chat %d", id), false); err != nil {
			t.Fatal(err)
		}
	}
	taskRepo := repositories.NewTaskRepository(db, "sqlite3")
	return NewTaskService(taskRepo), NewReplyMatcher(taskRepo)
}

func TestCreateRejectsEmptyText(t *testing.T) {
	svc, _ := setupTaskService(t)
	if _, err := svc.Create(context.Background(), "   ", 42, nil); !errors.Is(err, models.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestConcurrentCompletionsSingleTransition(t *testing.T) {
	chatIDs := []int64{1, 2, 3, 4, 5}
	svc, _ := setupTaskService(t, chatIDs...)
	ctx := context.Background()

	taskID, err := svc.Create(ctx, "Weekly report", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignRecipients(ctx, taskID, chatIDs, nil); err != nil {
		t.Fatal(err)
	}

	var (
		wg          sync.WaitGroup
		transitions atomic.Int64
		failures    atomic.Int64
	)
	for _, chatID := range chatIDs {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			done, err := svc.CompleteRecipient(ctx, taskID, chatID, nil)
			if err != nil {
				failures.Add(1)
				t.Errorf("chat %d: %v", chatID, err)
				return
			}
			if done {
				transitions.Add(1)
			}
		}(chatID)
	}
	wg.Wait()

	if failures.Load() != 0 {
		t.Fatalf("%d completions failed", failures.Load())
	}
	if transitions.Load() != 1 {
		t.Fatalf("expected exactly one task-level transition, got %d", transitions.Load())
	}

	snapshot, err := svc.ActiveTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snapshot[taskID]; ok {
		t.Fatal("task should be completed and out of the active snapshot")
	}
}

func TestMatcherFindsOpenRecipient(t *testing.T) {
	svc, matcher := setupTaskService(t, 1)
	ctx := context.Background()

	taskID, err := svc.Create(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.AssignRecipients(ctx, taskID, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := matcher.FindOpenRecipient(ctx, 1, "Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if got != taskID {
		t.Fatalf("expected task %d, got %d", taskID, got)
	}

	if _, err := matcher.FindOpenRecipient(ctx, 1, ""); !errors.Is(err, models.ErrNoMatch) {
		t.Fatalf("empty text must not match, got %v", err)
	}
}
