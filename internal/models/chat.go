// internal/models/chat.go
package models

import "time"

// Chat is a Telegram chat known to the bot. ChatID is the Telegram
// identifier and doubles as the primary key.
type Chat struct {
	ChatID  int64     `json:"chat_id"`
	Title   string    `json:"title"`
	IsGroup bool      `json:"is_group"`
	AddedAt time.Time `json:"added_at"`
}

// ChatGroup is a named, reusable set of chats usable as a single
// fan-out target.
type ChatGroup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
