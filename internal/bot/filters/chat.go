// Package filters решает, какие сообщения бот вообще обрабатывает:
// основной чат и личка участников основного чата.
package filters

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// MemberChecker — участники в БД. Реализация — members.Service.
type MemberChecker interface {
	IsMember(ctx context.Context, userID int64) (bool, error)
	EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error
}

// TelegramAPI — нужные фильтру методы Bot API. Реализация — *tgbotapi.BotAPI.
type TelegramAPI interface {
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatFilter пропускает сообщения из основного чата и личку участников.
type ChatFilter struct {
	floodChatID int64
	members     MemberChecker
	bot         TelegramAPI
}

// NewChatFilter создаёт фильтр.
func NewChatFilter(floodChatID int64, members MemberChecker, bot TelegramAPI) *ChatFilter {
	return &ChatFilter{
		floodChatID: floodChatID,
		members:     members,
		bot:         bot,
	}
}

// CheckAccess возвращает true, если сообщение нужно обработать.
func (f *ChatFilter) CheckAccess(ctx context.Context, message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}
	if message.From == nil {
		log.WithFields(log.Fields{
			"component": "ChatFilter",
			"chat_id":   message.Chat.ID,
			"chat_type": message.Chat.Type,
		}).Warn("nil message.From (service/channel message?)")
		return false
	}
	if message.From.IsBot {
		return false
	}
	if f.floodChatID == 0 {
		log.WithField("component", "ChatFilter").Error("floodChatID is 0 (config bug)")
		return false
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	logger := log.WithFields(log.Fields{
		"component":     "ChatFilter",
		"chat_id":       chatID,
		"chat_type":     message.Chat.Type,
		"user_id":       userID,
		"flood_chat_id": f.floodChatID,
	})

	// 1) Разрешённый чат
	if chatID == f.floodChatID {
		return true
	}

	// 2) Остальные групповые чаты игнорируем
	if !message.Chat.IsPrivate() {
		logger.Info("deny: not flood chat and not private")
		return false
	}

	// 3) Личка: сначала быстро по БД
	isMember, err := f.members.IsMember(ctx, userID)
	if err != nil {
		logger.WithError(err).Error("member check failed (db)")
		return false
	}
	if isMember {
		logger.Debug("allow: private (db member)")
		return true
	}

	// 3.1) БД не знает пользователя: проверяем членство через Telegram API
	cm, err := f.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: f.floodChatID,
			UserID: userID,
		},
	})
	if err != nil {
		logger.WithError(err).Error("member check failed (telegram GetChatMember)")
		return false
	}

	switch cm.Status {
	case "creator", "administrator", "member", "restricted":
		if err := f.members.EnsureMember(ctx, userID,
			message.From.UserName, message.From.FirstName, message.From.LastName,
		); err != nil {
			logger.WithError(err).Warn("failed to backfill member to DB (allowing anyway)")
		}
		logger.WithField("tg_status", cm.Status).Info("allow: private (telegram member, backfilled)")
		return true

	default:
		logger.WithField("tg_status", cm.Status).Info("deny: private (not a chat member)")
		msg := tgbotapi.NewMessage(chatID, "❌ Бот работает только для участников основного чата")
		if _, sendErr := f.bot.Send(msg); sendErr != nil {
			logger.WithError(sendErr).Warn("failed to send deny message")
		}
		return false
	}
}
