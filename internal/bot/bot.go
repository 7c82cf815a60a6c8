// Package bot содержит главный модуль бота: polling, фильтрацию и маршрутизацию команд.
package bot

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/bot/filters"
	"serotonyl.ru/rewards-bot/internal/bot/middleware"
	"serotonyl.ru/rewards-bot/internal/config"
	"serotonyl.ru/rewards-bot/internal/features/admin"
	"serotonyl.ru/rewards-bot/internal/features/economy"
	"serotonyl.ru/rewards-bot/internal/features/inventory"
	"serotonyl.ru/rewards-bot/internal/features/levels"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/rewards"
)

// Handlers — обработчики фич, которые подключает бот.
type Handlers struct {
	Members   *members.Handler
	Rewards   *rewards.Handler
	Economy   *economy.Handler
	Levels    *levels.Handler
	Inventory *inventory.Handler
	Admin     *admin.Handler
}

// route обрабатывает одну команду.
type route func(ctx context.Context, chatID, userID int64, args []string)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter  *filters.ChatFilter
	rateLimiter *middleware.RateLimiter

	handlers       Handlers
	economyService *economy.Service

	parser *CommandParser
	routes map[string]route

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	handlers Handlers,
	economyService *economy.Service,
	chatFilter *filters.ChatFilter,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	b := &Bot{
		api:            api,
		cfg:            cfg,
		chatFilter:     chatFilter,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		handlers:       handlers,
		economyService: economyService,
		parser:         NewCommandParser(),
		inflight:       make(chan struct{}, maxInFlight),
	}
	b.routes = b.buildRoutes()
	return b
}

// buildRoutes связывает команды с обработчиками. Синонимы ведут в один обработчик.
func (b *Bot) buildRoutes() map[string]route {
	h := b.handlers
	calendar := func(ctx context.Context, chatID, userID int64, _ []string) {
		h.Rewards.HandleCalendar(ctx, chatID, userID)
	}
	info := func(ctx context.Context, chatID, userID int64, _ []string) {
		h.Rewards.HandleInfo(ctx, chatID, userID)
	}
	help := func(_ context.Context, chatID, _ int64, _ []string) {
		b.sendMessage(chatID, helpText)
	}

	return map[string]route{
		"награды":   calendar,
		"календарь": calendar,
		"инфо":      info,
		"серия":     info,
		"забрать": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Rewards.HandleClaim(ctx, chatID, userID)
		},
		"возврат": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Rewards.HandleReturn(ctx, chatID, userID)
		},
		"вход": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Rewards.HandleLogin(ctx, chatID, userID)
		},
		"баланс": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Economy.HandleBalance(ctx, chatID, userID)
		},
		"транзакции": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Economy.HandleTransactions(ctx, chatID, userID)
		},
		"уровень": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Levels.HandleLevel(ctx, chatID, userID)
		},
		"инвентарь": func(ctx context.Context, chatID, userID int64, _ []string) {
			h.Inventory.HandleInventory(ctx, chatID, userID)
		},
		"start":  help,
		"help":   help,
		"помощь": help,
	}
}

// Start запускает polling и блокируется до отмены ctx.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Wait ждёт завершения уже начатых обработчиков.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID)

	if update.Message != nil && update.Message.NewChatMembers != nil {
		if update.Message.Chat != nil && update.Message.Chat.ID == b.cfg.FloodChatID {
			b.handleNewMembers(ctx, update.Message.NewChatMembers)
		}
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	// FLOOD_CHAT_ID или личка участника
	if !b.chatFilter.CheckAccess(ctx, message) {
		return
	}

	if !b.rateLimiter.Allow(message.From.ID) {
		log.WithField("user_id", message.From.ID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	b.handlers.Members.HandleMessageFrom(ctx, message.From)

	if message.Chat.IsPrivate() {
		if b.handlers.Admin.HandleAdminMessage(ctx, chatID, userID, message.Text) {
			return
		}
	}

	cmd, args, isCommand := b.parser.ParseCommand(message.Text)
	if isCommand {
		b.routeCommand(ctx, chatID, userID, cmd, args)
		return
	}
	if chatID == b.cfg.FloodChatID {
		// обычное сообщение в чате — это активность игрока
		b.handlers.Rewards.HandleActivity(ctx, userID)
	}
}

// routeCommand маршрутизирует команду к нужному обработчику.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, cmd string, args []string) {
	r, ok := b.routes[cmd]
	if !ok {
		log.WithFields(log.Fields{"cmd": cmd, "user_id": userID}).Debug("Неизвестная команда")
		return
	}
	log.WithFields(log.Fields{"cmd": cmd, "args": args}).Debug("routing command")
	r(ctx, chatID, userID, args)
}

// handleNewMembers регистрирует вступивших и заводит им баланс.
func (b *Bot) handleNewMembers(ctx context.Context, newMembers []tgbotapi.User) {
	b.handlers.Members.HandleNewChatMembers(ctx, newMembers)
	for _, user := range newMembers {
		if user.IsBot {
			continue
		}
		if err := b.economyService.CreateBalance(ctx, user.ID); err != nil {
			log.WithError(err).WithField("user_id", user.ID).Warn("CreateBalance failed")
		}
		log.WithField("user", user.UserName).Info("Новый участник обработан")
	}
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// Post отправляет сообщение в основной чат. Используется командой награды "say".
func (b *Bot) Post(text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(b.cfg.FloodChatID, text))
	return err
}
