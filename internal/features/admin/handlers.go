// Package admin — handlers.go обрабатывает взаимодействие с админ-панелью.
// Панель работает через Reply Keyboard в личных сообщениях.
// Поток: аутентификация → клавиатура → выбор действия → пошаговый диалог.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/rewards"
)

// Sender отправляет сообщения. Реализация — *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Handler обрабатывает админ-команды.
type Handler struct {
	service *Service
	bot     Sender
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, bot Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleAdminMessage обрабатывает сообщение в DM. Возвращает true, если
// сообщение относилось к админке и дальше его обрабатывать не нужно.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID int64, userID int64, text string) bool {
	if !h.service.IsAdmin(ctx, userID) {
		return false
	}
	text = strings.TrimSpace(text)
	state := h.service.GetState(userID)

	if state != nil && state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	if !h.service.HasActiveSession(ctx, userID) {
		if !isPanelRequest(text) {
			return false
		}
		// "/login <пароль>" проверяем сразу, без лишнего шага
		if pwd, ok := inlinePassword(text); ok {
			h.handlePasswordInput(ctx, chatID, userID, pwd)
			return true
		}
		h.sendMessage(chatID, "🔐 Введите пароль для доступа к админ-панели:")
		h.service.SetState(userID, StateAwaitingPassword, nil)
		return true
	}

	h.service.TouchSession(ctx, userID)

	if state != nil {
		switch state.State {
		case StateAssignRoleSelect, StateChangeRoleSelect:
			h.handleRoleSelect(chatID, userID, state, text)
			return true
		case StateAssignRoleText, StateChangeRoleText:
			h.handleRoleText(ctx, chatID, userID, state, text)
			return true
		case StateResetSelect, StateDeleteSelect:
			h.handleProgressSelect(chatID, userID, state, text)
			return true
		case StateResetConfirm, StateDeleteConfirm:
			h.handleProgressConfirm(ctx, chatID, userID, state, text)
			return true
		case StateStatsSelect:
			h.handleStatsSelect(ctx, chatID, userID, state, text)
			return true
		}
	}

	switch text {
	case ButtonAssignRole:
		h.startMemberPick(ctx, chatID, userID, StateAssignRoleSelect)
	case ButtonChangeRole:
		h.startMemberPick(ctx, chatID, userID, StateChangeRoleSelect)
	case ButtonReset:
		h.startMemberPick(ctx, chatID, userID, StateResetSelect)
	case ButtonDelete:
		h.startMemberPick(ctx, chatID, userID, StateDeleteSelect)
	case ButtonStats:
		h.startMemberPick(ctx, chatID, userID, StateStatsSelect)
	case ButtonReload:
		h.handleReload(chatID, userID)
	case ButtonClose:
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).WithField("user_id", userID).Error("Ошибка закрытия сессии")
		}
		msg := tgbotapi.NewMessage(chatID, "👋 Админ-панель закрыта")
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		h.send(msg)
	default:
		if !isPanelRequest(text) {
			return false
		}
		h.showKeyboard(chatID)
	}
	return true
}

// isPanelRequest — текст, открывающий панель.
func isPanelRequest(text string) bool {
	lower := strings.ToLower(text)
	if _, ok := inlinePassword(text); ok {
		return true
	}
	switch lower {
	case "/login", "!login", ".login", "админ", "панель":
		return true
	}
	return false
}

// inlinePassword достаёт пароль из "/login <пароль>".
func inlinePassword(text string) (string, bool) {
	for _, prefix := range []string{"/login ", "!login ", ".login "} {
		if len(text) > len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			pwd := strings.TrimSpace(text[len(prefix):])
			return pwd, pwd != ""
		}
	}
	return "", false
}

func (h *Handler) handlePasswordInput(ctx context.Context, chatID int64, userID int64, password string) {
	h.service.ClearState(userID)
	if err := h.service.VerifyPassword(ctx, userID, password); err != nil {
		switch {
		case errors.Is(err, common.ErrWrongPassword), errors.Is(err, common.ErrTooManyAttempts):
			h.sendMessage(chatID, "❌ "+err.Error())
		default:
			log.WithError(err).WithField("user_id", userID).Error("Ошибка входа в админку")
			h.sendMessage(chatID, "❌ Не удалось выполнить вход, попробуйте позже")
		}
		return
	}
	h.sendMessage(chatID, "✅ Аутентификация успешна!")
	h.showKeyboard(chatID)
}

func (h *Handler) showKeyboard(chatID int64) {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonAssignRole),
			tgbotapi.NewKeyboardButton(ButtonChangeRole),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonReset),
			tgbotapi.NewKeyboardButton(ButtonDelete),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonReload),
			tgbotapi.NewKeyboardButton(ButtonStats),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonClose),
		),
	)

	msg := tgbotapi.NewMessage(chatID, "✅ Админ-панель открыта")
	msg.ReplyMarkup = keyboard
	h.send(msg)
}

// startMemberPick — первый шаг любого действия над участником: нумерованный список.
func (h *Handler) startMemberPick(ctx context.Context, chatID int64, userID int64, next string) {
	var (
		users []*members.Member
		err   error
		empty string
	)
	switch next {
	case StateAssignRoleSelect:
		users, err = h.service.GetUsersWithoutRole(ctx)
		empty = "Все пользователи уже имеют роли"
	case StateChangeRoleSelect:
		users, err = h.service.GetUsersWithRole(ctx)
		empty = "Нет пользователей с назначенными ролями"
	default:
		users, err = h.service.GetAllMembers(ctx)
		empty = "Участников пока нет"
	}
	if err != nil {
		log.WithError(err).Error("Ошибка получения списка участников")
		h.sendMessage(chatID, "❌ Не удалось получить список участников")
		return
	}
	if len(users) == 0 {
		h.sendMessage(chatID, empty)
		return
	}

	h.sendMessage(chatID, renderMemberList(users))
	h.service.SetState(userID, next, users)
}

func renderMemberList(users []*members.Member) string {
	var sb strings.Builder
	sb.WriteString("Выберите пользователя (отправьте номер):\n\n")
	for i, user := range users {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, user.DisplayName()))
		if user.Role != nil && *user.Role != "" {
			sb.WriteString(" - " + *user.Role)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// pickMember разбирает номер из списка состояния.
func pickMember(state *AdminState, text string) (*members.Member, bool) {
	users, ok := state.Data.([]*members.Member)
	if !ok {
		return nil, false
	}
	num, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || num < 1 || num > len(users) {
		return nil, false
	}
	return users[num-1], true
}

// --- Роли ---

func (h *Handler) handleRoleSelect(chatID int64, userID int64, state *AdminState, text string) {
	selected, ok := pickMember(state, text)
	if !ok {
		h.sendMessage(chatID, "❌ Неверный номер. Попробуйте ещё раз.")
		return
	}

	next := StateAssignRoleText
	prompt := fmt.Sprintf("Введите роль для %s (максимум %d символа):", selected.DisplayName(), members.MaxRoleLength)
	if state.State == StateChangeRoleSelect {
		next = StateChangeRoleText
		current := ""
		if selected.Role != nil {
			current = *selected.Role
		}
		prompt = fmt.Sprintf("Текущая роль: %s\nВведите новую роль:", current)
	}
	h.sendMessage(chatID, prompt)
	h.service.SetState(userID, next, selected)
}

func (h *Handler) handleRoleText(ctx context.Context, chatID int64, userID int64, state *AdminState, text string) {
	selected, ok := state.Data.(*members.Member)
	if !ok {
		h.service.ClearState(userID)
		return
	}

	role := strings.TrimSpace(text)
	if err := h.service.AssignRole(ctx, selected.UserID, role); err != nil {
		if errors.Is(err, common.ErrRoleTooLong) {
			h.sendMessage(chatID, "❌ "+err.Error())
			return
		}
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
		h.service.ClearState(userID)
		return
	}

	verb := "назначена"
	if state.State == StateChangeRoleText {
		verb = "изменена"
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Роль %s: %s → %s", verb, selected.DisplayName(), role))
	h.service.ClearState(userID)
}

// --- Сброс и удаление прогресса ---

func (h *Handler) handleProgressSelect(chatID int64, userID int64, state *AdminState, text string) {
	selected, ok := pickMember(state, text)
	if !ok {
		h.sendMessage(chatID, "❌ Неверный номер. Попробуйте ещё раз.")
		return
	}

	next, action := StateResetConfirm, "Сбросить"
	if state.State == StateDeleteSelect {
		next, action = StateDeleteConfirm, "Удалить"
	}
	h.sendMessage(chatID, fmt.Sprintf("%s прогресс наград %s? Отправьте «да» для подтверждения.",
		action, selected.DisplayName()))
	h.service.SetState(userID, next, selected)
}

func (h *Handler) handleProgressConfirm(ctx context.Context, chatID int64, userID int64, state *AdminState, text string) {
	defer h.service.ClearState(userID)

	selected, ok := state.Data.(*members.Member)
	if !ok {
		return
	}
	if !strings.EqualFold(strings.TrimSpace(text), "да") {
		h.sendMessage(chatID, "Отменено")
		return
	}

	var err error
	done := "сброшен"
	if state.State == StateDeleteConfirm {
		err = h.service.DeleteProgress(ctx, userID, selected.UserID)
		done = "удалён"
	} else {
		err = h.service.ResetProgress(ctx, userID, selected.UserID)
	}
	if err != nil {
		log.WithError(err).WithField("user_id", selected.UserID).Error("Ошибка изменения прогресса")
		h.sendMessage(chatID, fmt.Sprintf("❌ Ошибка: %s", err.Error()))
		return
	}
	h.sendMessage(chatID, fmt.Sprintf("✅ Прогресс %s %s", selected.DisplayName(), done))
}

// --- Награды ---

func (h *Handler) handleReload(chatID int64, userID int64) {
	summary, err := h.service.ReloadRewards()
	if err != nil {
		log.WithError(err).WithField("admin_id", userID).Error("Перезагрузка наград не удалась")
		h.sendMessage(chatID, "❌ Файл наград не загружен, действуют прежние таблицы:\n"+err.Error())
		return
	}
	h.sendMessage(chatID, "🔄 Награды перезагружены\n\n"+summary)
}

func (h *Handler) handleStatsSelect(ctx context.Context, chatID int64, userID int64, state *AdminState, text string) {
	selected, ok := pickMember(state, text)
	if !ok {
		h.sendMessage(chatID, "❌ Неверный номер. Попробуйте ещё раз.")
		return
	}
	h.service.ClearState(userID)

	v, err := h.service.PlayerStats(ctx, selected.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", selected.UserID).Error("Ошибка получения статистики")
		h.sendMessage(chatID, "❌ Не удалось получить статистику")
		return
	}
	h.sendMessage(chatID, renderStats(selected, v))
}

func renderStats(m *members.Member, v *rewards.CalendarView) string {
	lines := []string{
		"📊 " + m.DisplayName(),
		fmt.Sprintf("День календаря: %d из %d", v.CurrentDay, v.TotalDays),
		fmt.Sprintf("Серия: %d, рекорд: %d", v.Streak, v.LongestStreak),
		fmt.Sprintf("Всего наград: %d", v.TotalClaimed),
	}
	if v.LastLoginDate != nil {
		lines = append(lines, "Последний вход: "+common.FormatDate(*v.LastLoginDate))
	} else {
		lines = append(lines, "Последний вход: никогда")
	}
	if v.CanClaim {
		lines = append(lines, "Награда за сегодня: не получена")
	} else {
		lines = append(lines, "Награда за сегодня: получена")
	}
	if v.ReturnTier != nil {
		lines = append(lines, fmt.Sprintf("Ждёт награда за возвращение (%d+ дн.)", v.ReturnTier.MinAbsenceDays))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) sendMessage(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text))
}

func (h *Handler) send(msg tgbotapi.MessageConfig) {
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", msg.ChatID).Error("Ошибка отправки сообщения")
	}
}
