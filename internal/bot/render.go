package bot

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/services"
)

// Button labels. The state machine matches on these exact strings.
const (
	BtnNewTask     = "📝 Создать новое задание"
	BtnActiveTasks = "📋 Просмотр активных заданий"
	BtnChatList    = "👥 Просмотр списка подключенных чатов"
	BtnNewGroup    = "👥 Создать группу чатов"
	BtnBack        = "🔙 Назад"
	BtnCancel      = "🔙 Отмена"
	BtnConfirm     = "✅ Подтвердить"
	BtnNext        = "➡️ Далее"
	BtnKindChats   = "👤 Отдельные чаты"
	BtnKindGroups  = "👥 Группы чатов"
)

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnNewTask)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnActiveTasks)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnChatList)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnNewGroup)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func backKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnCancel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func mediaStepKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnNext)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnCancel)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func recipientKindKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnKindChats)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnKindGroups)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)),
	)
	kb.ResizeKeyboard = true
	return kb
}

// selectionKeyboard renders a checkbox list: ✅ for selected labels, ⬜
// for the rest, confirm and back at the bottom.
func selectionKeyboard(labels []string, selected map[string]bool) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, label := range labels {
		mark := "⬜"
		if selected[label] {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("%s %s", mark, label))))
	}
	rows = append(rows,
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnConfirm)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnBack)))
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// stripSelectionMark removes a leading ⬜/✅ from a pressed button label.
func stripSelectionMark(label string) string {
	for _, mark := range []string{"⬜ ", "✅ "} {
		if strings.HasPrefix(label, mark) {
			return strings.TrimPrefix(label, mark)
		}
	}
	return label
}

func mediaIcon(t models.MediaType) string {
	if t == models.MediaPhoto {
		return "🖼"
	}
	return "📄"
}

// renderTaskBlock builds the multi-line task block. The reply matcher
// parses this exact shape back, stopping at the recipients marker.
func renderTaskBlock(taskID int64, snap models.TaskSnapshot) string {
	parts := []string{
		fmt.Sprintf("%s%d:", services.TaskBlockHeader, taskID),
		snap.Text + "\n",
	}

	if len(snap.Media) > 0 {
		parts = append(parts, "📎 Прикрепленные файлы к заданию:")
		for _, m := range snap.Media {
			parts = append(parts, fmt.Sprintf("%s %s", mediaIcon(m.FileType), m.FileType))
		}
		parts = append(parts, "")
	}

	parts = append(parts, services.RecipientsMarker)
	for _, chatID := range sortedRecipientIDs(snap.Recipients) {
		rec := snap.Recipients[chatID]
		status := "⏳"
		if rec.Status == models.RecipientCompleted {
			status = "✅"
		}
		parts = append(parts, fmt.Sprintf("%s %s", status, rec.ChatTitle))
		if len(rec.Media) > 0 {
			parts = append(parts, "  📎 Прикрепленные файлы в ответе:")
			for _, m := range rec.Media {
				parts = append(parts, fmt.Sprintf("  %s %s", mediaIcon(m.FileType), m.FileType))
			}
		}
	}

	parts = append(parts, fmt.Sprintf("\nСоздано: %s", snap.CreatedAt.Format("2006-01-02 15:04:05")))
	return strings.Join(parts, "\n")
}

// sortedTaskIDs orders tasks newest first for display.
func sortedTaskIDs(tasks map[int64]models.TaskSnapshot) []int64 {
	ids := make([]int64, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := tasks[ids[i]], tasks[ids[j]]
		if !ti.CreatedAt.Equal(tj.CreatedAt) {
			return ti.CreatedAt.After(tj.CreatedAt)
		}
		return ids[i] > ids[j]
	})
	return ids
}

func sortedRecipientIDs(recipients map[int64]models.RecipientSnapshot) []int64 {
	ids := make([]int64, 0, len(recipients))
	for id := range recipients {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := recipients[ids[i]].ChatTitle, recipients[ids[j]].ChatTitle
		if ti != tj {
			return ti < tj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// renderChatList formats the connected-chat overview: group chats
// first, then personal ones, then totals.
func renderChatList(chats []models.Chat) string {
	if len(chats) == 0 {
		return "📋 Нет подключенных чатов.\nДобавьте чаты с помощью команды /addchat в нужном чате"
	}

	parts := []string{"📋 Список подключенных чатов:\n"}

	var groups, personal []models.Chat
	for _, c := range chats {
		if c.IsGroup {
			groups = append(groups, c)
		} else {
			personal = append(personal, c)
		}
	}

	if len(groups) > 0 {
		parts = append(parts, "\n👥 Групповые чаты:")
		for _, c := range groups {
			parts = append(parts, fmt.Sprintf("• %s\n  ID: %d", c.Title, c.ChatID))
		}
	}
	if len(personal) > 0 {
		parts = append(parts, "\n👤 Личные чаты:")
		for _, c := range personal {
			parts = append(parts, fmt.Sprintf("• %s\n  ID: %d", c.Title, c.ChatID))
		}
	}

	parts = append(parts,
		fmt.Sprintf("\nВсего чатов: %d", len(chats)),
		fmt.Sprintf("• Групповых: %d", len(groups)),
		fmt.Sprintf("• Личных: %d", len(personal)))
	return strings.Join(parts, "\n")
}
