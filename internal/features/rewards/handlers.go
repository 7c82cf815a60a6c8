// Package rewards — handlers.go обрабатывает команды наград:
// !награды (календарь), !забрать, !возврат, !вход, !инфо.
package rewards

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/features/calendar"
)

// calendarColumns — клеток в строке календаря.
const calendarColumns = 7

// Handler обрабатывает команды наград.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик команд наград.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service: service,
		bot:     bot,
	}
}

// HandleActivity вызывается на каждое сообщение участника в чате.
// Если началась новая сессия, уведомления уходят игроку в личку.
func (h *Handler) HandleActivity(ctx context.Context, userID int64) {
	out, err := h.service.Touch(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка обработки входа")
	}
	if out != nil {
		h.SendNotices(userID, out.Notices)
	}
}

// HandleCalendar обрабатывает команду !награды — календарь и сводка.
//
//	📅 Календарь наград (день 3 из 30)
//	✅ ✅ 🎁 🔒 🔒 🔒 🔒
//	...
func (h *Handler) HandleCalendar(ctx context.Context, chatID int64, userID int64) {
	view, err := h.service.Calendar(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения календаря")
		h.sendMessage(chatID, "❌ Ошибка получения календаря")
		return
	}
	h.sendMessage(chatID, renderCalendar(view)+"\n\n"+renderSummary(view))
}

// HandleInfo обрабатывает команду !инфо — сводка без клеток календаря.
func (h *Handler) HandleInfo(ctx context.Context, chatID int64, userID int64) {
	view, err := h.service.Info(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения сводки наград")
		h.sendMessage(chatID, "❌ Ошибка получения информации")
		return
	}
	h.sendMessage(chatID, renderSummary(view))
}

// HandleClaim обрабатывает команду !забрать.
func (h *Handler) HandleClaim(ctx context.Context, chatID int64, userID int64) {
	out, err := h.service.Claim(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения награды")
		if out == nil {
			h.sendMessage(chatID, "❌ Ошибка получения награды")
			return
		}
	}
	if out.Login != nil {
		h.SendNotices(userID, out.Login.Notices)
	}
	h.sendMessage(chatID, renderClaim(out))
}

// HandleReturn обрабатывает команду !возврат.
func (h *Handler) HandleReturn(ctx context.Context, chatID int64, userID int64) {
	out, err := h.service.ClaimReturn(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения награды за возвращение")
		if out == nil {
			h.sendMessage(chatID, "❌ Ошибка получения награды")
			return
		}
	}
	h.sendMessage(chatID, renderReturn(out))
}

// HandleLogin обрабатывает команду !вход — принудительно начинает новую сессию.
func (h *Handler) HandleLogin(ctx context.Context, chatID int64, userID int64) {
	out, err := h.service.Login(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка входа")
		if out == nil {
			h.sendMessage(chatID, "❌ Ошибка входа")
			return
		}
	}
	h.sendMessage(chatID, renderLogin(out))
	h.SendNotices(userID, out.Notices)
}

// SendNotices отправляет уведомления игроку в личные сообщения.
// Если игрок не начинал диалог с ботом, Telegram вернёт ошибку — это нормально.
func (h *Handler) SendNotices(userID int64, notices []string) {
	if len(notices) == 0 {
		return
	}
	msg := tgbotapi.NewMessage(userID, strings.Join(notices, "\n\n"))
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Уведомления в личку не доставлены")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}

func statusIcon(s calendar.Status) string {
	switch s {
	case calendar.StatusClaimed:
		return "✅"
	case calendar.StatusAvailable:
		return "🎁"
	case calendar.StatusMissed:
		return "❌"
	default:
		return "🔒"
	}
}

// renderCalendar рисует сетку календаря по 7 клеток в строке.
func renderCalendar(v *CalendarView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Календарь наград (день %d из %d)\n", v.CurrentDay, v.TotalDays)
	for i, cell := range v.Days {
		if i > 0 {
			if i%calendarColumns == 0 {
				sb.WriteString("\n")
			} else {
				sb.WriteString(" ")
			}
		}
		sb.WriteString(statusIcon(cell.Status))
	}
	sb.WriteString("\n✅ получено  🎁 сегодня  ❌ пропущено  🔒 впереди")
	return sb.String()
}

// renderSummary — серия, множители, ближайшая веха и состояние награды дня.
func renderSummary(v *CalendarView) string {
	var lines []string

	if v.TodayReward != nil {
		lines = append(lines, fmt.Sprintf("🎁 Награда дня %d: %s",
			v.CurrentDay, describeReward(v.TodayReward.Coins, v.TodayReward.XP, v.TodayReward.Items)))
	}
	switch {
	case !v.CanClaim:
		lines = append(lines, "✅ Награда за сегодня получена, приходи завтра")
	case v.TodayReward == nil:
		lines = append(lines, fmt.Sprintf("📭 За день %d награда не положена", v.CurrentDay))
	case v.Blocked != DenyNone:
		lines = append(lines, "⏳ "+denyText(v.Blocked, v.Wait, v.CurrentDay))
	default:
		lines = append(lines, "👉 Забрать: !забрать")
	}

	if v.StreakEnabled {
		lines = append(lines, fmt.Sprintf("🔥 Серия: %d %s (%s), рекорд: %d",
			v.Streak, common.PluralizeDays(v.Streak), formatMultiplier(v.StreakMultiplier), v.LongestStreak))
		if v.NextMilestone != nil {
			name := v.NextMilestone.Description
			if name == "" {
				name = fmt.Sprintf("%d %s подряд", v.NextMilestone.Days, common.PluralizeDays(v.NextMilestone.Days))
			}
			lines = append(lines, fmt.Sprintf("🏆 До вехи «%s»: %d %s",
				name, v.DaysToMilestone, common.PluralizeDays(v.DaysToMilestone)))
		}
	}
	if v.VIPMultiplier.GreaterThan(one) {
		lines = append(lines, "💎 VIP-бонус: "+formatMultiplier(v.VIPMultiplier))
	}
	if v.ReturnTier != nil {
		lines = append(lines, "🏠 Ждёт награда за возвращение: !возврат")
	}
	lines = append(lines, fmt.Sprintf("📊 Всего наград: %d", v.TotalClaimed))
	return strings.Join(lines, "\n")
}

// denyText объясняет отказ. day нужен только для no_reward.
func denyText(reason DenyReason, wait time.Duration, day int) string {
	switch reason {
	case DenyMinOnline:
		return fmt.Sprintf("Награду можно забрать через %s активности в чате", formatWait(wait))
	case DenyCooldown:
		return fmt.Sprintf("Слишком часто. Попробуй через %s", formatWait(wait))
	case DenyDailyLimit:
		return "Лимит наград на сегодня исчерпан"
	case DenyAlreadyClaimed:
		return "Награда за сегодня уже получена, приходи завтра"
	case DenyNoReward:
		return fmt.Sprintf("За день %d награда не настроена", day)
	case DenyNoReturnReward:
		return "Награды за возвращение нет"
	default:
		return "Награду сейчас получить нельзя"
	}
}

var sinkNames = map[string]string{
	"currency":   "пленки",
	"experience": "опыт",
	"items":      "предметы",
	"commands":   "команды",
}

func failuresText(failures []SinkFailure) string {
	if len(failures) == 0 {
		return ""
	}
	seen := make(map[string]bool)
	var names []string
	for _, f := range failures {
		name := sinkNames[f.Sink]
		if name == "" {
			name = f.Sink
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return "\n⚠️ Не удалось выдать: " + strings.Join(names, ", ") + ". Администратор увидит это в логах"
}

func renderClaim(out *ClaimOutcome) string {
	if !out.OK() {
		return "❌ " + denyText(out.Denied, out.Wait, out.Day)
	}

	var sb strings.Builder
	p := out.Payout
	fmt.Fprintf(&sb, "🎁 Награда за день %d: %s", out.Day, describeReward(p.Coins, p.XP, p.Items))
	if p.StreakMultiplier.GreaterThan(one) {
		fmt.Fprintf(&sb, "\n🔥 Серия %d %s, бонус %s",
			out.Streak, common.PluralizeDays(out.Streak), formatMultiplier(p.StreakMultiplier))
	}
	if p.VIPMultiplier.GreaterThan(one) {
		fmt.Fprintf(&sb, "\n💎 VIP-бонус %s", formatMultiplier(p.VIPMultiplier))
	}
	if out.Milestone != nil {
		name := out.MilestoneInfo.Description
		if name == "" {
			name = fmt.Sprintf("%d %s подряд", out.MilestoneInfo.Days, common.PluralizeDays(out.MilestoneInfo.Days))
		}
		fmt.Fprintf(&sb, "\n🏆 Веха «%s»: %s", name,
			describeReward(out.Milestone.Coins, out.Milestone.XP, out.Milestone.Items))
	}
	sb.WriteString(failuresText(out.Failures))
	return sb.String()
}

func renderReturn(out *ReturnOutcome) string {
	if !out.OK() {
		return "❌ " + denyText(out.Denied, 0, 0)
	}
	p := out.Payout
	text := fmt.Sprintf("🏠 Награда за возвращение: %s", describeReward(p.Coins, p.XP, p.Items))
	if out.Tier.Description != "" {
		text = out.Tier.Description + "\n" + text
	}
	if p.VIPMultiplier.GreaterThan(one) {
		text += "\n💎 VIP-бонус " + formatMultiplier(p.VIPMultiplier)
	}
	return text + failuresText(out.Failures)
}

func renderLogin(out *LoginOutcome) string {
	text := fmt.Sprintf("👋 Сессия начата. День календаря: %d, серия: %d", out.CurrentDay, out.Streak)
	if out.Absence > 0 {
		text += fmt.Sprintf("\nПропущено: %d %s", out.Absence, common.PluralizeDays(out.Absence))
	}
	if out.StreakBroken {
		text += "\n💔 Серия прервалась"
	}
	if out.ReturnPending {
		text += "\n🏠 Ждёт награда за возвращение: !возврат"
	}
	return text
}
