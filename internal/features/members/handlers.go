// Package members — handlers.go обрабатывает события вступления в чат.
package members

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает события участников.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик событий участников.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleNewChatMembers регистрирует всех, кто вступил в чат. Боты пропускаются.
func (h *Handler) HandleNewChatMembers(ctx context.Context, newMembers []tgbotapi.User) {
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		err := h.service.HandleNewMember(ctx, user.ID, user.UserName, user.FirstName, user.LastName)
		if err != nil {
			log.WithError(err).WithField("user_id", user.ID).Error("Ошибка регистрации нового участника")
		}
	}
}

// HandleMessageFrom регистрирует автора сообщения, если его ещё нет в базе.
func (h *Handler) HandleMessageFrom(ctx context.Context, user *tgbotapi.User) {
	if user == nil || user.IsBot {
		return
	}
	if err := h.service.EnsureMember(ctx, user.ID, user.UserName, user.FirstName, user.LastName); err != nil {
		log.WithError(err).WithField("user_id", user.ID).Error("Ошибка проверки участника")
	}
}
