package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/VladChristmas/bot/internal/models"
)

func setupTaskRepo(t *testing.T, chatIDs ...int64) (TaskRepository, ChatRepository) {
	t.Helper()
	db := newTestDB(t)
	chats := NewChatRepository(db)
	ctx := context.Background()
	for _, id := range chatIDs {
		if _, err := chats.RegisterChat(ctx, id, string(rune('A'+id)), false); err != nil {
			t.Fatal(err)
		}
	}
	return NewTaskRepository(db, "sqlite3"), chats
}

func TestCompleteRecipientLifecycle(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1, 2)
	ctx := context.Background()

	taskID, err := repo.CreateTask(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1, 2}, nil); err != nil {
		t.Fatal(err)
	}

	done, err := repo.CompleteRecipient(ctx, taskID, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("task must not close with a pending recipient left")
	}

	done, err = repo.CompleteRecipient(ctx, taskID, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatal("last completion must close the task")
	}

	// The closed task no longer matches replies.
	if _, err := repo.FindOpenRecipient(ctx, 1, "Buy milk"); !errors.Is(err, models.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch after close, got %v", err)
	}
}

func TestCompleteRecipientTwiceFails(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1, 2)
	ctx := context.Background()

	taskID, err := repo.CreateTask(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1, 2}, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := repo.CompleteRecipient(ctx, taskID, 1, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CompleteRecipient(ctx, taskID, 1, nil); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("second completion must fail with ErrNotFound, got %v", err)
	}
}

func TestCompleteRecipientUnknownPair(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1)
	ctx := context.Background()

	if _, err := repo.CompleteRecipient(ctx, 77, 1, nil); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssignRecipientsDuplicate(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1)
	ctx := context.Background()

	taskID, err := repo.CreateTask(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}
	err = repo.AssignRecipients(ctx, taskID, []int64{1}, nil)
	if !errors.Is(err, models.ErrDuplicateRecipient) {
		t.Fatalf("expected ErrDuplicateRecipient, got %v", err)
	}
}

func TestFindOpenRecipientExactMatch(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1)
	ctx := context.Background()

	taskID, err := repo.CreateTask(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindOpenRecipient(ctx, 1, "Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if got != taskID {
		t.Fatalf("expected task %d, got %d", taskID, got)
	}

	// Matching is exact after trimming, not case-insensitive.
	if _, err := repo.FindOpenRecipient(ctx, 1, "buy milk"); !errors.Is(err, models.ErrNoMatch) {
		t.Fatalf("case-different text must not match, got %v", err)
	}
	// Trimming is applied to the stored side as well.
	if _, err := repo.FindOpenRecipient(ctx, 1, "  Buy milk  "); err != nil {
		t.Fatalf("trimmed text must match: %v", err)
	}
	// Wrong chat never matches.
	if _, err := repo.FindOpenRecipient(ctx, 2, "Buy milk"); !errors.Is(err, models.ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for unrelated chat, got %v", err)
	}
}

func TestFindOpenRecipientStoredTextTrimmed(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1)
	ctx := context.Background()

	taskID, err := repo.CreateTask(ctx, "  Buy milk ", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindOpenRecipient(ctx, 1, "Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if got != taskID {
		t.Fatalf("expected task %d, got %d", taskID, got)
	}
}

func TestFindOpenRecipientTrailingWhitespace(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1)
	ctx := context.Background()

	// Text entered with a trailing newline or tab must still match a
	// clean reply; both sides normalize with strings.TrimSpace.
	taskID, err := repo.CreateTask(ctx, "Buy milk\n", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindOpenRecipient(ctx, 1, "Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if got != taskID {
		t.Fatalf("expected task %d, got %d", taskID, got)
	}

	tabbed, err := repo.CreateTask(ctx, "Wash dishes\t", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, tabbed, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}
	if got, err := repo.FindOpenRecipient(ctx, 1, "Wash dishes"); err != nil || got != tabbed {
		t.Fatalf("expected task %d, got %d (%v)", tabbed, got, err)
	}
}

func TestFindOpenRecipientNewestWins(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1)
	ctx := context.Background()

	older, err := repo.CreateTask(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, older, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}
	newer, err := repo.CreateTask(ctx, "Buy milk", 42, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, newer, []int64{1}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindOpenRecipient(ctx, 1, "Buy milk")
	if err != nil {
		t.Fatal(err)
	}
	if got != newer {
		t.Fatalf("tie-break must prefer the newest task: got %d want %d", got, newer)
	}
}

func TestSnapshotTxOptionsPerDriver(t *testing.T) {
	opts := snapshotTxOptions("postgres")
	if opts == nil {
		t.Fatal("postgres snapshot must request explicit tx options")
	}
	if opts.Isolation != sql.LevelRepeatableRead || !opts.ReadOnly {
		t.Fatalf("postgres snapshot options: got %+v", opts)
	}
	// go-sqlite3 rejects ReadOnly and non-default isolation levels.
	if opts := snapshotTxOptions("sqlite3"); opts != nil {
		t.Fatalf("sqlite3 must use default tx options, got %+v", opts)
	}
}

func TestActiveTasksSnapshot(t *testing.T) {
	repo, _ := setupTaskRepo(t, 1, 2)
	ctx := context.Background()

	media := []models.MediaItem{{FileID: "f1", FileType: models.MediaPhoto}}
	taskID, err := repo.CreateTask(ctx, "Inventory check", 42, media)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.AssignRecipients(ctx, taskID, []int64{1, 2}, nil); err != nil {
		t.Fatal(err)
	}

	response := []models.MediaItem{{FileID: "r1", FileType: models.MediaDocument}}
	if _, err := repo.CompleteRecipient(ctx, taskID, 1, response); err != nil {
		t.Fatal(err)
	}

	tasks, err := repo.ActiveTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	snap, ok := tasks[taskID]
	if !ok {
		t.Fatalf("task %d missing from snapshot", taskID)
	}
	if snap.Text != "Inventory check" {
		t.Fatalf("unexpected text: %q", snap.Text)
	}
	if len(snap.Media) != 1 || snap.Media[0].FileID != "f1" {
		t.Fatalf("unexpected task media: %+v", snap.Media)
	}
	if len(snap.Recipients) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(snap.Recipients))
	}
	if snap.Recipients[1].Status != models.RecipientCompleted {
		t.Fatalf("recipient 1 should be completed: %+v", snap.Recipients[1])
	}
	if len(snap.Recipients[1].Media) != 1 || snap.Recipients[1].Media[0].FileID != "r1" {
		t.Fatalf("unexpected response media: %+v", snap.Recipients[1].Media)
	}
	if snap.Recipients[2].Status != models.RecipientPending {
		t.Fatalf("recipient 2 should be pending: %+v", snap.Recipients[2])
	}

	// A fully completed task drops out of the snapshot.
	if _, err := repo.CompleteRecipient(ctx, taskID, 2, nil); err != nil {
		t.Fatal(err)
	}
	tasks, err = repo.ActiveTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tasks[taskID]; ok {
		t.Fatal("completed task must not appear in the active snapshot")
	}
}
