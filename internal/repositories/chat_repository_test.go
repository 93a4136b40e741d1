package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/VladChristmas/bot/internal/models"
)

func TestRegisterChatIdempotent(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.RegisterChat(ctx, 100, "Team A", true)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("first registration should create the chat")
	}

	created, err = repo.RegisterChat(ctx, 100, "Team A", true)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("re-registration must be a no-op")
	}
}

func TestCreateGroupDuplicateName(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.CreateGroup(ctx, "branches"); err != nil {
		t.Fatal(err)
	}
	_, err := repo.CreateGroup(ctx, "branches")
	if !errors.Is(err, models.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	// Name matching is case-sensitive: a different case is a new group.
	if _, err := repo.CreateGroup(ctx, "Branches"); err != nil {
		t.Fatalf("case-different name should be allowed: %v", err)
	}
}

func TestAddChatToGroup(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.RegisterChat(ctx, 1, "Alpha", false); err != nil {
		t.Fatal(err)
	}
	groupID, err := repo.CreateGroup(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}

	if err := repo.AddChatToGroup(ctx, groupID, 1); err != nil {
		t.Fatal(err)
	}
	// Duplicate membership is ignored.
	if err := repo.AddChatToGroup(ctx, groupID, 1); err != nil {
		t.Fatalf("duplicate membership must be a no-op: %v", err)
	}

	if err := repo.AddChatToGroup(ctx, groupID, 999); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown chat: expected ErrNotFound, got %v", err)
	}
	if err := repo.AddChatToGroup(ctx, 999, 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("unknown group: expected ErrNotFound, got %v", err)
	}
}

func TestGroupChatsReflectsMembershipAtCallTime(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	for id, title := range map[int64]string{1: "A", 2: "B", 3: "C"} {
		if _, err := repo.RegisterChat(ctx, id, title, false); err != nil {
			t.Fatal(err)
		}
	}
	groupID, err := repo.CreateGroup(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []int64{1, 2} {
		if err := repo.AddChatToGroup(ctx, groupID, id); err != nil {
			t.Fatal(err)
		}
	}

	chats, err := repo.GroupChats(ctx, groupID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 2 || chats[0].Title != "A" || chats[1].Title != "B" {
		t.Fatalf("unexpected members before addition: %+v", chats)
	}

	if err := repo.AddChatToGroup(ctx, groupID, 3); err != nil {
		t.Fatal(err)
	}
	chats, err = repo.GroupChats(ctx, groupID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 3 || chats[2].Title != "C" {
		t.Fatalf("addition not visible at call time: %+v", chats)
	}
}

func TestListChatsOrdering(t *testing.T) {
	repo := NewChatRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.RegisterChat(ctx, 1, "Zeta", false); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.RegisterChat(ctx, 2, "Alpha", true); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.RegisterChat(ctx, 3, "Beta", true); err != nil {
		t.Fatal(err)
	}

	chats, err := repo.ListChats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]string, 0, len(chats))
	for _, c := range chats {
		got = append(got, c.Title)
	}
	// Group chats first, alphabetical inside each section.
	want := []string{"Alpha", "Beta", "Zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected order: %v", got)
		}
	}
}
