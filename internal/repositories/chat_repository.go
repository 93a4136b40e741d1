package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/VladChristmas/bot/internal/models"
)

type ChatRepository interface {
	RegisterChat(ctx context.Context, chatID int64, title string, isGroup bool) (created bool, err error)
	FindChatByTitle(ctx context.Context, title string) (*models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)

	CreateGroup(ctx context.Context, name string) (int64, error)
	FindGroupByName(ctx context.Context, name string) (*models.ChatGroup, error)
	ListGroups(ctx context.Context) ([]models.ChatGroup, error)
	AddChatToGroup(ctx context.Context, groupID, chatID int64) error
	GroupChats(ctx context.Context, groupID int64) ([]models.Chat, error)
}

type chatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{db: db}
}

// RegisterChat inserts the chat if absent. Re-registering an existing
// chat is a no-op and reports created=false.
func (r *chatRepository) RegisterChat(ctx context.Context, chatID int64, title string, isGroup bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO chats (chat_id, title, is_group) VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO NOTHING`,
		chatID, title, isGroup)
	if err != nil {
		return false, fmt.Errorf("register chat %d: %w", chatID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *chatRepository) FindChatByTitle(ctx context.Context, title string) (*models.Chat, error) {
	chat := &models.Chat{}
	err := r.db.QueryRowContext(ctx, `
		SELECT chat_id, title, is_group, added_at FROM chats WHERE title = $1`,
		title).Scan(&chat.ChatID, &chat.Title, &chat.IsGroup, &chat.AddedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// ListChats returns all known chats, group chats first, then
// alphabetical by title.
func (r *chatRepository) ListChats(ctx context.Context) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT chat_id, title, is_group, added_at
		FROM chats
		ORDER BY is_group DESC, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChats(rows)
}

// CreateGroup fails with ErrDuplicateName on an exact name match. The
// pre-check and insert run in one transaction so a concurrent create
// cannot slip between them.
func (r *chatRepository) CreateGroup(ctx context.Context, name string) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM chat_groups WHERE name = $1`, name).Scan(&exists)
	if err == nil {
		return 0, models.ErrDuplicateName
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO chat_groups (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("create group %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *chatRepository) FindGroupByName(ctx context.Context, name string) (*models.ChatGroup, error) {
	g := &models.ChatGroup{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM chat_groups WHERE name = $1`,
		name).Scan(&g.ID, &g.Name, &g.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *chatRepository) ListGroups(ctx context.Context) ([]models.ChatGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM chat_groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []models.ChatGroup
	for rows.Next() {
		var g models.ChatGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// AddChatToGroup is idempotent: adding an existing membership is a
// no-op. Unknown group or chat ids fail with ErrNotFound.
func (r *chatRepository) AddChatToGroup(ctx context.Context, groupID, chatID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM chat_groups WHERE id = $1`, groupID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return models.ErrNotFound
		}
		return err
	}
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM chats WHERE chat_id = $1`, chatID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return models.ErrNotFound
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO group_chats (group_id, chat_id) VALUES ($1, $2)
		ON CONFLICT (group_id, chat_id) DO NOTHING`, groupID, chatID); err != nil {
		return fmt.Errorf("add chat %d to group %d: %w", chatID, groupID, err)
	}
	return tx.Commit()
}

// GroupChats returns current members of the group, reflecting
// membership at call time. Order is title, then chat id.
func (r *chatRepository) GroupChats(ctx context.Context, groupID int64) ([]models.Chat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.chat_id, c.title, c.is_group, c.added_at
		FROM chats c
		JOIN group_chats gc ON c.chat_id = gc.chat_id
		WHERE gc.group_id = $1
		ORDER BY c.title ASC, c.chat_id ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChats(rows)
}

func scanChats(rows *sql.Rows) ([]models.Chat, error) {
	var chats []models.Chat
	for rows.Next() {
		var c models.Chat
		if err := rows.Scan(&c.ChatID, &c.Title, &c.IsGroup, &c.AddedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
