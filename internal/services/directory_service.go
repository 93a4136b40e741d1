package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/repositories"
)

// DirectoryService is the recipient directory: known chats, named chat
// groups and the resolution of a group name into concrete chat ids.
type DirectoryService interface {
	RegisterChat(ctx context.Context, chatID int64, title string, isGroup bool) (created bool, err error)
	FindChatByTitle(ctx context.Context, title string) (*models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)

	CreateGroup(ctx context.Context, name string) (int64, error)
	AddChatToGroup(ctx context.Context, groupID, chatID int64) error
	ListGroups(ctx context.Context) ([]models.ChatGroup, error)
	ResolveGroup(ctx context.Context, name string) (groupID int64, chats []models.Chat, err error)
}

type directoryService struct {
	repo repositories.ChatRepository
}

func NewDirectoryService(repo repositories.ChatRepository) DirectoryService {
	return &directoryService{repo: repo}
}

func (s *directoryService) RegisterChat(ctx context.Context, chatID int64, title string, isGroup bool) (bool, error) {
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("chat %d", chatID)
	}
	created, err := s.repo.RegisterChat(ctx, chatID, title, isGroup)
	if err != nil {
		return false, err
	}
	if created {
		log.Printf("[directory][register] chat=%d title=%q group=%v", chatID, title, isGroup)
	}
	return created, nil
}

func (s *directoryService) FindChatByTitle(ctx context.Context, title string) (*models.Chat, error) {
	return s.repo.FindChatByTitle(ctx, title)
}

func (s *directoryService) ListChats(ctx context.Context) ([]models.Chat, error) {
	return s.repo.ListChats(ctx)
}

func (s *directoryService) CreateGroup(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, models.ErrEmptyText
	}
	id, err := s.repo.CreateGroup(ctx, name)
	if err != nil {
		return 0, err
	}
	log.Printf("[directory][group] created id=%d name=%q", id, name)
	return id, nil
}

func (s *directoryService) AddChatToGroup(ctx context.Context, groupID, chatID int64) error {
	return s.repo.AddChatToGroup(ctx, groupID, chatID)
}

func (s *directoryService) ListGroups(ctx context.Context) ([]models.ChatGroup, error) {
	return s.repo.ListGroups(ctx)
}

// ResolveGroup returns the group's members as of the call, so chats
// added after group creation are included.
func (s *directoryService) ResolveGroup(ctx context.Context, name string) (int64, []models.Chat, error) {
	group, err := s.repo.FindGroupByName(ctx, name)
	if err != nil {
		return 0, nil, err
	}
	chats, err := s.repo.GroupChats(ctx, group.ID)
	if err != nil {
		return 0, nil, err
	}
	return group.ID, chats, nil
}
