package levels

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
)

// barWidth — длина полоски прогресса в символах.
const barWidth = 10

// Handler обрабатывает команду !уровень.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик уровней.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleLevel показывает уровень и опыт.
//
//	⭐ Уровень 2
//	▰▰▰▰▰▰▰▱▱▱ 150 / 200 XP
//	Всего: 250 XP
func (h *Handler) HandleLevel(ctx context.Context, chatID int64, userID int64) {
	p, err := h.service.Progress(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения уровня")
		h.sendMessage(chatID, "❌ Ошибка получения уровня")
		return
	}
	h.sendMessage(chatID, renderProgress(p))
}

func renderProgress(p Progress) string {
	filled := 0
	if p.Need > 0 {
		filled = int(p.Into * barWidth / p.Need)
	}
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", barWidth-filled)
	return fmt.Sprintf("⭐ Уровень %d\n%s %s / %s\nВсего: %s",
		p.Level, bar, common.FormatNumber(p.Into), common.FormatXP(p.Need), common.FormatXP(p.XP))
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
