package inventory

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает команду !инвентарь.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик инвентаря.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleInventory показывает предметы участника.
func (h *Handler) HandleInventory(ctx context.Context, chatID int64, userID int64) {
	items, err := h.service.List(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения инвентаря")
		h.sendMessage(chatID, "❌ Ошибка получения инвентаря")
		return
	}
	h.sendMessage(chatID, renderItems(items))
}

func renderItems(items []Item) string {
	if len(items) == 0 {
		return "🎒 Инвентарь пуст"
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, "🎒 Инвентарь:")
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("• %s × %d", it.ID, it.Count))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
