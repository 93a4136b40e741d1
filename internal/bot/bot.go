package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/VladChristmas/bot/internal/models"
	"github.com/VladChristmas/bot/internal/services"
)

// Gateway is the outbound surface the dispatcher uses for plain
// notifications and stored media. Task announcements go through the
// broadcast service instead.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendMedia(ctx context.Context, chatID int64, m models.MediaItem, inReplyTo int) error
}

var _ Gateway = (*services.TelegramService)(nil)

// Bot is the conversational dispatcher: it drives the admin menu flow
// and routes recipient replies into the completion path. All lifecycle
// rules live in the services; the bot only translates messages.
type Bot struct {
	api         *tgbotapi.BotAPI
	adminID     int64
	directory   services.DirectoryService
	tasks       services.TaskService
	matcher     services.ReplyMatcher
	broadcaster services.BroadcastService
	gateway     Gateway
	sessions    *SessionStore
}

func New(
	api *tgbotapi.BotAPI,
	adminID int64,
	directory services.DirectoryService,
	tasks services.TaskService,
	matcher services.ReplyMatcher,
	broadcaster services.BroadcastService,
	gateway Gateway,
) *Bot {
	return &Bot{
		api:         api,
		adminID:     adminID,
		directory:   directory,
		tasks:       tasks,
		matcher:     matcher,
		broadcaster: broadcaster,
		gateway:     gateway,
		sessions:    NewSessionStore(),
	}
}

// Run consumes the long-poll update stream until the context is done.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)
	log.Printf("[bot] started as @%s admin=%d", b.api.Self.UserName, b.adminID)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// A reply to one of the bot's own messages is a task response,
	// regardless of who sent it.
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil &&
		msg.ReplyToMessage.From.ID == b.api.Self.ID {
		b.handleTaskReply(ctx, msg)
		return
	}

	// Everything else is the admin conversation.
	if msg.From.ID != b.adminID {
		return
	}
	b.handleAdminMessage(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "addchat":
		title := msg.Chat.Title
		if title == "" {
			title = strings.TrimSpace(msg.Chat.FirstName + " " + msg.Chat.LastName)
		}
		isGroup := msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()
		created, err := b.directory.RegisterChat(ctx, msg.Chat.ID, title, isGroup)
		if err != nil {
			log.Printf("[bot][addchat][err] chat=%d: %v", msg.Chat.ID, err)
			b.reply(msg, "❌ Произошла ошибка при подключении чата")
			return
		}
		if created {
			b.reply(msg, "✅ Чат подключен к системе заданий")
		} else {
			b.reply(msg, "ℹ️ Этот чат уже подключен")
		}
	case "start":
		if msg.From.ID != b.adminID {
			b.reply(msg, "Это бот для управления заданиями.")
			return
		}
		b.sessions.Get(msg.From.ID).Reset()
		b.send(msg.Chat.ID, "Главное меню:", mainMenuKeyboard())
	}
}

// handleTaskReply resolves a reply to its open task and records the
// completion. The matcher is a pure lookup; the completion itself is a
// single atomic step inside the task service.
func (b *Bot) handleTaskReply(ctx context.Context, msg *tgbotapi.Message) {
	source := msg.ReplyToMessage.Text
	if source == "" {
		source = msg.ReplyToMessage.Caption
	}
	if source == "" {
		b.reply(msg, "❌ Ошибка: не удалось получить текст задания. Убедитесь, что отвечаете на сообщение с заданием, а не на медиафайл.")
		return
	}

	text, err := services.ExtractTaskText(source)
	if err != nil {
		b.reply(msg, "❌ Ошибка: это сообщение не является заданием. Пожалуйста, убедитесь, что вы отвечаете на сообщение с заданием.")
		return
	}

	taskID, err := b.matcher.FindOpenRecipient(ctx, msg.Chat.ID, text)
	if errors.Is(err, models.ErrNoMatch) {
		b.reply(msg, "❌ Не найдено активное задание. Возможно, оно уже выполнено или отменено.")
		return
	}
	if err != nil {
		log.Printf("[bot][reply][err] chat=%d: %v", msg.Chat.ID, err)
		b.reply(msg, "❌ Произошла ошибка при обработке ответа")
		return
	}

	taskDone, err := b.tasks.CompleteRecipient(ctx, taskID, msg.Chat.ID, messageMedia(msg))
	if errors.Is(err, models.ErrNotFound) {
		b.reply(msg, "❌ Не найдено активное задание. Возможно, оно уже выполнено или отменено.")
		return
	}
	if err != nil {
		log.Printf("[bot][reply][err] task=%d chat=%d: %v", taskID, msg.Chat.ID, err)
		b.reply(msg, "❌ Произошла ошибка при обработке ответа")
		return
	}

	b.reply(msg, "✅ Ответ принят. Задание отмечено как выполненное.")
	if taskDone {
		b.notifyTaskCompleted(ctx, taskID)
	}
}

// notifyTaskCompleted tells the admin that the last pending recipient
// of a task has answered.
func (b *Bot) notifyTaskCompleted(ctx context.Context, taskID int64) {
	text := fmt.Sprintf("✅ Задание №%d полностью выполнено всеми получателями.", taskID)
	if err := b.gateway.SendText(ctx, b.adminID, text); err != nil {
		log.Printf("[bot][notify][err] task=%d: %v", taskID, err)
	}
}

func (b *Bot) handleAdminMessage(ctx context.Context, msg *tgbotapi.Message) {
	session := b.sessions.Get(msg.From.ID)
	text := msg.Text

	switch text {
	case BtnCancel:
		session.Reset()
		b.send(msg.Chat.ID, "Главное меню:", mainMenuKeyboard())
		return
	case BtnBack:
		session.Back()
		b.prompt(ctx, msg.Chat.ID, session)
		return
	}

	switch session.State {
	case StateIdle:
		b.handleMainMenu(ctx, msg, session)
	case StateTaskText:
		b.handleTaskText(msg, session)
	case StateTaskMedia:
		b.handleTaskMedia(msg, session)
	case StateRecipientKind:
		b.handleRecipientKind(ctx, msg, session)
	case StateSelectChats, StateSelectGroups:
		b.handleSelection(ctx, msg, session)
	case StateGroupName:
		b.handleGroupName(ctx, msg, session)
	case StateGroupAddChats:
		b.handleGroupAddChats(ctx, msg, session)
	}
}

func (b *Bot) handleMainMenu(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	switch msg.Text {
	case BtnNewTask:
		session.Push(StateTaskText)
		b.send(msg.Chat.ID, "Введите текст задания:", cancelKeyboard())
	case BtnActiveTasks:
		b.showActiveTasks(ctx, msg.Chat.ID)
	case BtnChatList:
		chats, err := b.directory.ListChats(ctx)
		if err != nil {
			log.Printf("[bot][chats][err] %v", err)
			b.send(msg.Chat.ID, "❌ Произошла ошибка", mainMenuKeyboard())
			return
		}
		b.send(msg.Chat.ID, renderChatList(chats), backKeyboard())
	case BtnNewGroup:
		session.Push(StateGroupName)
		b.send(msg.Chat.ID, "Введите название группы чатов:", cancelKeyboard())
	default:
		b.send(msg.Chat.ID, "❓ Неизвестная команда. Используйте меню для навигации.", mainMenuKeyboard())
	}
}

func (b *Bot) handleTaskText(msg *tgbotapi.Message, session *Session) {
	if strings.TrimSpace(msg.Text) == "" {
		b.send(msg.Chat.ID, "❌ Текст задания не может быть пустым. Введите текст задания:", cancelKeyboard())
		return
	}
	session.TaskText = msg.Text
	session.Push(StateTaskMedia)
	b.send(msg.Chat.ID, "Прикрепите файлы к заданию или нажмите «Далее»", mediaStepKeyboard())
}

func (b *Bot) handleTaskMedia(msg *tgbotapi.Message, session *Session) {
	if media := messageMedia(msg); len(media) > 0 {
		session.Media = append(session.Media, media...)
		b.send(msg.Chat.ID, fmt.Sprintf("📎 Файл добавлен (всего: %d)", len(session.Media)), mediaStepKeyboard())
		return
	}
	if msg.Text == BtnNext {
		session.Push(StateRecipientKind)
		b.send(msg.Chat.ID, "Кому отправить задание?", recipientKindKeyboard())
		return
	}
	b.send(msg.Chat.ID, "❌ Неподдерживаемый тип файла. Прикрепите фото или документ, либо нажмите «Далее»", mediaStepKeyboard())
}

func (b *Bot) handleRecipientKind(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	switch msg.Text {
	case BtnKindChats:
		labels, err := b.chatLabels(ctx)
		if err != nil {
			log.Printf("[bot][select][err] %v", err)
			b.send(msg.Chat.ID, "❌ Произошла ошибка", recipientKindKeyboard())
			return
		}
		if len(labels) == 0 {
			b.send(msg.Chat.ID, "📋 Нет подключенных чатов. Добавьте чаты командой /addchat", recipientKindKeyboard())
			return
		}
		session.Kind = SelectChats
		session.Selected = make(map[string]bool)
		session.Push(StateSelectChats)
		b.send(msg.Chat.ID, "Выберите чаты для отправки задания:", selectionKeyboard(labels, session.Selected))
	case BtnKindGroups:
		labels, err := b.groupLabels(ctx)
		if err != nil {
			log.Printf("[bot][select][err] %v", err)
			b.send(msg.Chat.ID, "❌ Произошла ошибка", recipientKindKeyboard())
			return
		}
		if len(labels) == 0 {
			b.send(msg.Chat.ID, "📋 Нет групп чатов. Создайте группу в главном меню", recipientKindKeyboard())
			return
		}
		session.Kind = SelectGroups
		session.Selected = make(map[string]bool)
		session.Push(StateSelectGroups)
		b.send(msg.Chat.ID, "Выберите группы чатов для отправки задания:", selectionKeyboard(labels, session.Selected))
	default:
		b.send(msg.Chat.ID, "❌ Неверный выбор. Используйте кнопки для навигации.", recipientKindKeyboard())
	}
}

func (b *Bot) handleSelection(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	if msg.Text == BtnConfirm {
		b.confirmBroadcast(ctx, msg, session)
		return
	}

	labels, err := b.selectionLabels(ctx, session.Kind)
	if err != nil {
		log.Printf("[bot][select][err] %v", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка", mainMenuKeyboard())
		return
	}

	title := stripSelectionMark(msg.Text)
	if !contains(labels, title) {
		b.send(msg.Chat.ID, "❌ Неверный выбор. Используйте кнопки для навигации.", selectionKeyboard(labels, session.Selected))
		return
	}

	if session.Selected[title] {
		delete(session.Selected, title)
	} else {
		session.Selected[title] = true
	}
	b.send(msg.Chat.ID, "Выберите получателей задания:", selectionKeyboard(labels, session.Selected))
}

// confirmBroadcast resolves the selection into chat ids and hands the
// whole set to the fan-out coordinator. The selection is a set, so the
// recipient list is duplicate-free by construction; chats picked
// through several groups are folded once.
func (b *Bot) confirmBroadcast(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	if session.TaskText == "" {
		b.send(msg.Chat.ID, "❌ Ошибка: текст задания не найден", mainMenuKeyboard())
		session.Reset()
		return
	}

	var (
		chatIDs []int64
		groupID *int64
		seen    = make(map[int64]bool)
	)

	if session.Kind == SelectGroups {
		names := selectedSorted(session.Selected)
		for _, name := range names {
			gid, chats, err := b.directory.ResolveGroup(ctx, name)
			if err != nil {
				log.Printf("[bot][broadcast][err] group=%q: %v", name, err)
				continue
			}
			if len(names) == 1 {
				groupID = &gid
			}
			for _, c := range chats {
				if !seen[c.ChatID] {
					seen[c.ChatID] = true
					chatIDs = append(chatIDs, c.ChatID)
				}
			}
		}
	} else {
		for _, title := range selectedSorted(session.Selected) {
			chat, err := b.directory.FindChatByTitle(ctx, title)
			if err != nil {
				log.Printf("[bot][broadcast][err] chat=%q: %v", title, err)
				continue
			}
			if !seen[chat.ChatID] {
				seen[chat.ChatID] = true
				chatIDs = append(chatIDs, chat.ChatID)
			}
		}
	}

	if len(chatIDs) == 0 {
		b.send(msg.Chat.ID, "❌ Не выбраны получатели задания", mainMenuKeyboard())
		session.Reset()
		return
	}

	_, report, err := b.broadcaster.Broadcast(ctx, session.TaskText, msg.From.ID, session.Media, chatIDs, groupID)
	if err != nil {
		log.Printf("[bot][broadcast][err] %v", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка при отправке задания", mainMenuKeyboard())
		session.Reset()
		return
	}

	b.send(msg.Chat.ID, fmt.Sprintf("✅ Задание отправлено успешно!\nДоставлено: %d из %d получателей.",
		len(report.Succeeded), len(chatIDs)), mainMenuKeyboard())
	session.Reset()
}

func (b *Bot) handleGroupName(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	id, err := b.directory.CreateGroup(ctx, msg.Text)
	if errors.Is(err, models.ErrDuplicateName) {
		b.send(msg.Chat.ID, "❌ Группа с таким названием уже существует. Введите другое название:", cancelKeyboard())
		return
	}
	if errors.Is(err, models.ErrEmptyText) {
		b.send(msg.Chat.ID, "❌ Название группы не может быть пустым. Введите название:", cancelKeyboard())
		return
	}
	if err != nil {
		log.Printf("[bot][group][err] %v", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка при создании группы", mainMenuKeyboard())
		session.Reset()
		return
	}

	labels, err := b.chatLabels(ctx)
	if err != nil || len(labels) == 0 {
		b.send(msg.Chat.ID, "✅ Группа создана. Подключите чаты командой /addchat, затем добавьте их в группу.", mainMenuKeyboard())
		session.Reset()
		return
	}

	session.GroupID = id
	session.Selected = make(map[string]bool)
	session.Push(StateGroupAddChats)
	b.send(msg.Chat.ID, "Выберите чаты для группы:", selectionKeyboard(labels, session.Selected))
}

func (b *Bot) handleGroupAddChats(ctx context.Context, msg *tgbotapi.Message, session *Session) {
	if msg.Text == BtnConfirm {
		added := 0
		for _, title := range selectedSorted(session.Selected) {
			chat, err := b.directory.FindChatByTitle(ctx, title)
			if err != nil {
				continue
			}
			if err := b.directory.AddChatToGroup(ctx, session.GroupID, chat.ChatID); err != nil {
				log.Printf("[bot][group][err] add chat=%d: %v", chat.ChatID, err)
				continue
			}
			added++
		}
		b.send(msg.Chat.ID, fmt.Sprintf("✅ Группа создана. Добавлено чатов: %d", added), mainMenuKeyboard())
		session.Reset()
		return
	}

	labels, err := b.chatLabels(ctx)
	if err != nil {
		log.Printf("[bot][group][err] %v", err)
		return
	}
	title := stripSelectionMark(msg.Text)
	if !contains(labels, title) {
		b.send(msg.Chat.ID, "❌ Неверный выбор. Используйте кнопки для навигации.", selectionKeyboard(labels, session.Selected))
		return
	}
	if session.Selected[title] {
		delete(session.Selected, title)
	} else {
		session.Selected[title] = true
	}
	b.send(msg.Chat.ID, "Выберите чаты для группы:", selectionKeyboard(labels, session.Selected))
}

// showActiveTasks renders the snapshot, one block per task, with the
// task and response media sent after each block.
func (b *Bot) showActiveTasks(ctx context.Context, chatID int64) {
	tasks, err := b.tasks.ActiveTasks(ctx)
	if err != nil {
		log.Printf("[bot][tasks][err] %v", err)
		b.send(chatID, "❌ Произошла ошибка при получении заданий", mainMenuKeyboard())
		return
	}
	if len(tasks) == 0 {
		b.send(chatID, "📋 Нет активных заданий", backKeyboard())
		return
	}

	for _, taskID := range sortedTaskIDs(tasks) {
		snap := tasks[taskID]
		b.send(chatID, renderTaskBlock(taskID, snap), nil)

		for _, m := range snap.Media {
			if err := b.gateway.SendMedia(ctx, chatID, m, 0); err != nil {
				log.Printf("[bot][tasks][media][err] task=%d: %v", taskID, err)
			}
		}
		for _, rid := range sortedRecipientIDs(snap.Recipients) {
			rec := snap.Recipients[rid]
			if len(rec.Media) == 0 {
				continue
			}
			b.send(chatID, fmt.Sprintf("📎 Медиафайлы от %s:", rec.ChatTitle), nil)
			for _, m := range rec.Media {
				if err := b.gateway.SendMedia(ctx, chatID, m, 0); err != nil {
					log.Printf("[bot][tasks][media][err] task=%d chat=%d: %v", taskID, rid, err)
				}
			}
		}
	}
	b.send(chatID, "Конец списка активных заданий", backKeyboard())
}

// prompt re-issues the message for the session's current state, used
// after back navigation.
func (b *Bot) prompt(ctx context.Context, chatID int64, session *Session) {
	switch session.State {
	case StateTaskText:
		b.send(chatID, "Введите текст задания:", cancelKeyboard())
	case StateTaskMedia:
		b.send(chatID, "Прикрепите файлы к заданию или нажмите «Далее»", mediaStepKeyboard())
	case StateRecipientKind:
		b.send(chatID, "Кому отправить задание?", recipientKindKeyboard())
	case StateSelectChats, StateGroupAddChats:
		labels, err := b.chatLabels(ctx)
		if err != nil {
			b.send(chatID, "Главное меню:", mainMenuKeyboard())
			return
		}
		b.send(chatID, "Выберите получателей задания:", selectionKeyboard(labels, session.Selected))
	case StateSelectGroups:
		labels, err := b.groupLabels(ctx)
		if err != nil {
			b.send(chatID, "Главное меню:", mainMenuKeyboard())
			return
		}
		b.send(chatID, "Выберите группы чатов:", selectionKeyboard(labels, session.Selected))
	case StateGroupName:
		b.send(chatID, "Введите название группы чатов:", cancelKeyboard())
	default:
		b.send(chatID, "Главное меню:", mainMenuKeyboard())
	}
}

func (b *Bot) chatLabels(ctx context.Context) ([]string, error) {
	chats, err := b.directory.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(chats))
	for _, c := range chats {
		labels = append(labels, c.Title)
	}
	return labels, nil
}

func (b *Bot) groupLabels(ctx context.Context) ([]string, error) {
	groups, err := b.directory.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(groups))
	for _, g := range groups {
		labels = append(labels, g.Name)
	}
	return labels, nil
}

func (b *Bot) selectionLabels(ctx context.Context, kind SelectionKind) ([]string, error) {
	if kind == SelectGroups {
		return b.groupLabels(ctx)
	}
	return b.chatLabels(ctx)
}

func (b *Bot) send(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("[bot][send][err] chat=%d: %v", chatID, err)
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(out); err != nil {
		log.Printf("[bot][send][err] chat=%d: %v", msg.Chat.ID, err)
	}
}

// messageMedia extracts the attached media of a message: the largest
// photo size, or the document.
func messageMedia(msg *tgbotapi.Message) []models.MediaItem {
	var media []models.MediaItem
	if len(msg.Photo) > 0 {
		media = append(media, models.MediaItem{
			FileID:   msg.Photo[len(msg.Photo)-1].FileID,
			FileType: models.MediaPhoto,
		})
	}
	if msg.Document != nil {
		media = append(media, models.MediaItem{
			FileID:   msg.Document.FileID,
			FileType: models.MediaDocument,
		})
	}
	return media
}

func selectedSorted(selected map[string]bool) []string {
	out := make([]string, 0, len(selected))
	for k := range selected {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}
