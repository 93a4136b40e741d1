package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/VladChristmas/bot/internal/models"
)

type TaskRepository interface {
	CreateTask(ctx context.Context, text string, createdBy int64, media []models.MediaItem) (int64, error)
	AssignRecipients(ctx context.Context, taskID int64, chatIDs []int64, groupID *int64) error
	CompleteRecipient(ctx context.Context, taskID, chatID int64, responseMedia []models.MediaItem) (taskCompleted bool, err error)
	FindOpenRecipient(ctx context.Context, chatID int64, text string) (taskID int64, err error)
	ActiveTasks(ctx context.Context) (map[int64]models.TaskSnapshot, error)
}

type taskRepository struct {
	db         *sql.DB
	snapshotTx *sql.TxOptions
}

func NewTaskRepository(db *sql.DB, driver string) TaskRepository {
	return &taskRepository{db: db, snapshotTx: snapshotTxOptions(driver)}
}

// snapshotTxOptions picks the transaction options for the active-task
// snapshot read. Postgres runs statements at READ COMMITTED by
// default, where each query sees its own snapshot and a completion
// committing mid-read skews the result; REPEATABLE READ pins all four
// queries to one snapshot. The sqlite driver serializes writers and
// rejects non-default options, so it keeps the defaults.
func snapshotTxOptions(driver string) *sql.TxOptions {
	if driver == "postgres" {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// CreateTask inserts the task and its media in one transaction. The
// task starts active; a failed media insert rolls everything back.
// The text is stored trimmed: it is the matching key for replies, and
// replies are trimmed with strings.TrimSpace before lookup, so both
// sides must normalize the same way.
func (r *taskRepository) CreateTask(ctx context.Context, text string, createdBy int64, media []models.MediaItem) (int64, error) {
	text = strings.TrimSpace(text)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var id int64
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO tasks (text, created_by, status) VALUES ($1, $2, 'active')
		RETURNING id`, text, createdBy).Scan(&id); err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}

	for _, m := range media {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_media (task_id, file_id, file_type) VALUES ($1, $2, $3)`,
			id, m.FileID, m.FileType); err != nil {
			return 0, fmt.Errorf("attach media to task %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// AssignRecipients inserts one pending recipient per chat id. A
// (task, chat) pair that already exists fails the whole batch with
// ErrDuplicateRecipient; callers de-duplicate their selection first.
func (r *taskRepository) AssignRecipients(ctx context.Context, taskID int64, chatIDs []int64, groupID *int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, chatID := range chatIDs {
		var one int
		err := tx.QueryRowContext(ctx, `
			SELECT 1 FROM task_recipients WHERE task_id = $1 AND chat_id = $2`,
			taskID, chatID).Scan(&one)
		if err == nil {
			return fmt.Errorf("task %d chat %d: %w", taskID, chatID, models.ErrDuplicateRecipient)
		}
		if err != sql.ErrNoRows {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO task_recipients (task_id, chat_id, group_id, status)
			VALUES ($1, $2, $3, 'pending')`,
			taskID, chatID, groupID); err != nil {
			return fmt.Errorf("assign chat %d to task %d: %w", chatID, taskID, err)
		}
	}
	return tx.Commit()
}

// CompleteRecipient marks the (task, chat) pair completed, stores the
// response media and recomputes the task status, all in one
// transaction. Pairs that are unknown, already completed, or belong to
// a closed task fail with ErrNotFound so a reply is never counted
// twice. Returns whether this call closed the task itself.
func (r *taskRepository) CompleteRecipient(ctx context.Context, taskID, chatID int64, responseMedia []models.MediaItem) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE task_recipients SET status = 'completed'
		WHERE task_id = $1 AND chat_id = $2 AND status = 'pending'
		  AND EXISTS (SELECT 1 FROM tasks WHERE id = $1 AND status = 'active')`,
		taskID, chatID)
	if err != nil {
		return false, fmt.Errorf("complete recipient task=%d chat=%d: %w", taskID, chatID, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 0 {
		return false, models.ErrNotFound
	}

	for _, m := range responseMedia {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO response_media (task_id, chat_id, file_id, file_type)
			VALUES ($1, $2, $3, $4)`,
			taskID, chatID, m.FileID, m.FileType); err != nil {
			return false, fmt.Errorf("store response media task=%d chat=%d: %w", taskID, chatID, err)
		}
	}

	var total, completed int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM task_recipients WHERE task_id = $1`, taskID).Scan(&total, &completed); err != nil {
		return false, err
	}

	taskCompleted := false
	if total > 0 && total == completed {
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET status = 'completed' WHERE id = $1 AND status = 'active'`, taskID)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		taskCompleted = n > 0
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	if taskCompleted {
		log.Printf("[task][complete] task=%d closed by chat=%d (%d/%d)", taskID, chatID, completed, total)
	}
	return taskCompleted, nil
}

// FindOpenRecipient resolves a reply to the open task it answers:
// pending recipient of an active task whose text equals the trimmed
// extracted text. Stored text is already trimmed (CreateTask), so
// plain equality here is trimmed-equality on both sides — SQL TRIM
// would only strip spaces and miss tabs and newlines. If several
// match, the newest task wins (a tie-break, the selection flow keeps
// texts unique per chat).
func (r *taskRepository) FindOpenRecipient(ctx context.Context, chatID int64, text string) (int64, error) {
	var taskID int64
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id
		FROM tasks t
		JOIN task_recipients tr ON t.id = tr.task_id
		WHERE tr.chat_id = $1
		  AND t.status = 'active'
		  AND tr.status = 'pending'
		  AND t.text = $2
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT 1`,
		chatID, strings.TrimSpace(text)).Scan(&taskID)
	if err == sql.ErrNoRows {
		return 0, models.ErrNoMatch
	}
	if err != nil {
		return 0, err
	}
	return taskID, nil
}

// ActiveTasks returns every active task with its recipients and media
// as one consistent snapshot: all reads run inside a single
// transaction, at REPEATABLE READ on postgres so a completion
// committing between the queries cannot skew the result. Tasks that
// reached no recipient at all are not listed.
func (r *taskRepository) ActiveTasks(ctx context.Context) (map[int64]models.TaskSnapshot, error) {
	tx, err := r.db.BeginTx(ctx, r.snapshotTx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tasks := make(map[int64]models.TaskSnapshot)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, text, created_at FROM tasks
		WHERE status = 'active'
		  AND id IN (SELECT task_id FROM task_recipients)`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			id   int64
			snap models.TaskSnapshot
		)
		if err := rows.Scan(&id, &snap.Text, &snap.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap.Recipients = make(map[int64]models.RecipientSnapshot)
		tasks[id] = snap
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT tr.task_id, tr.chat_id, c.title, tr.status, COALESCE(cg.name, '')
		FROM task_recipients tr
		JOIN tasks t ON t.id = tr.task_id
		JOIN chats c ON c.chat_id = tr.chat_id
		LEFT JOIN chat_groups cg ON cg.id = tr.group_id
		WHERE t.status = 'active'`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			taskID, chatID int64
			rec            models.RecipientSnapshot
		)
		if err := rows.Scan(&taskID, &chatID, &rec.ChatTitle, &rec.Status, &rec.GroupName); err != nil {
			rows.Close()
			return nil, err
		}
		if snap, ok := tasks[taskID]; ok {
			snap.Recipients[chatID] = rec
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT tm.task_id, tm.file_id, tm.file_type
		FROM task_media tm
		JOIN tasks t ON t.id = tm.task_id
		WHERE t.status = 'active'
		ORDER BY tm.id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			taskID int64
			m      models.MediaItem
		)
		if err := rows.Scan(&taskID, &m.FileID, &m.FileType); err != nil {
			rows.Close()
			return nil, err
		}
		if snap, ok := tasks[taskID]; ok {
			snap.Media = append(snap.Media, m)
			tasks[taskID] = snap
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = tx.QueryContext(ctx, `
		SELECT rm.task_id, rm.chat_id, rm.file_id, rm.file_type
		FROM response_media rm
		JOIN tasks t ON t.id = rm.task_id
		WHERE t.status = 'active'
		ORDER BY rm.id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			taskID, chatID int64
			m              models.MediaItem
		)
		if err := rows.Scan(&taskID, &chatID, &m.FileID, &m.FileType); err != nil {
			rows.Close()
			return nil, err
		}
		if snap, ok := tasks[taskID]; ok {
			if rec, ok := snap.Recipients[chatID]; ok {
				rec.Media = append(rec.Media, m)
				snap.Recipients[chatID] = rec
			}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, tx.Commit()
}
