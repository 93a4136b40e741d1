// internal/models/task.go
package models

import "time"

// TaskStatus defines the possible statuses for a task.
type TaskStatus string

const (
	TaskActive    TaskStatus = "active"
	TaskCompleted TaskStatus = "completed"
)

// RecipientStatus defines the per-recipient completion status of a task.
type RecipientStatus string

const (
	RecipientPending   RecipientStatus = "pending"
	RecipientCompleted RecipientStatus = "completed"
)

// MediaType is the kind of an attached file as reported by Telegram.
type MediaType string

const (
	MediaPhoto    MediaType = "photo"
	MediaDocument MediaType = "document"
)

// MediaItem is an opaque file reference plus its kind. FileID is the
// Telegram file_id and is never interpreted by the core.
type MediaItem struct {
	FileID   string    `json:"file_id"`
	FileType MediaType `json:"file_type"`
}

// Task is a unit of work broadcast to one or more chats. Text is stored
// trimmed of surrounding whitespace: it doubles as the matching key
// for replies.
type Task struct {
	ID        int64      `json:"id"`
	Text      string     `json:"text"`
	Status    TaskStatus `json:"status"`
	CreatedBy int64      `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// TaskRecipient is one delivery target of a task. GroupID records which
// chat group the chat was selected through, if any (provenance only).
type TaskRecipient struct {
	TaskID  int64           `json:"task_id"`
	ChatID  int64           `json:"chat_id"`
	GroupID *int64          `json:"group_id,omitempty"`
	Status  RecipientStatus `json:"status"`
}

// RecipientSnapshot is the read-side view of one recipient within an
// active-task snapshot.
type RecipientSnapshot struct {
	ChatTitle string          `json:"chat_title"`
	GroupName string          `json:"group_name,omitempty"`
	Status    RecipientStatus `json:"status"`
	Media     []MediaItem     `json:"media,omitempty"`
}

// TaskSnapshot is the read-side view of one active task with all of its
// recipients, produced by a single transactional read.
type TaskSnapshot struct {
	Text       string                      `json:"text"`
	CreatedAt  time.Time                   `json:"created_at"`
	Media      []MediaItem                 `json:"media,omitempty"`
	Recipients map[int64]RecipientSnapshot `json:"recipients"`
}

// DeliveryReport summarises one fan-out: which chats received the task
// and which did not. Failed chats are not registered as recipients.
type DeliveryReport struct {
	Succeeded []int64 `json:"succeeded"`
	Failed    []int64 `json:"failed"`
}
