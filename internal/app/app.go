// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// провайдеров наград и собирает всё в один объект Bot.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/bot"
	"serotonyl.ru/rewards-bot/internal/bot/filters"
	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/config"
	"serotonyl.ru/rewards-bot/internal/db/postgres"
	"serotonyl.ru/rewards-bot/internal/db/sqlite"
	"serotonyl.ru/rewards-bot/internal/features/admin"
	"serotonyl.ru/rewards-bot/internal/features/economy"
	"serotonyl.ru/rewards-bot/internal/features/inventory"
	"serotonyl.ru/rewards-bot/internal/features/levels"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/payout"
	"serotonyl.ru/rewards-bot/internal/features/progress"
	"serotonyl.ru/rewards-bot/internal/features/rewards"
	"serotonyl.ru/rewards-bot/internal/jobs"
)

// shutdownTimeout — сколько ждём финального сохранения и остановки HTTP.
const shutdownTimeout = 10 * time.Second

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Rewards   *rewards.Service
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI

	cfg     *config.Config
	sqlite  *sql.DB
	redis   *redis.Client
	metrics *http.Server
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен: компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{cfg: cfg}
	loc := common.LoadLocation(cfg.AppTimezone)

	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	a.DB = pool

	if err := postgres.RunMigrations(ctx, pool, postgres.Schema); err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	progressRepo, err := a.progressRepository(pool)
	if err != nil {
		a.Close()
		return nil, err
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	a.BotAPI = botAPI
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Сервисы ===
	memberService := members.NewService(members.NewRepository(pool), cfg.AdminIDs)
	economyService := economy.NewService(economy.NewRepository(pool), loc)
	levelsService := levels.NewService(levels.NewRepository(pool))
	inventoryService := inventory.NewService(inventory.NewRepository(pool))

	// === 4. Выдача наград ===
	commands := payout.NewCommandRunner(memberService)
	commands.Handle("role", payout.RoleExecutor(memberService))
	commands.Handle("give", payout.GiveExecutor(inventoryService))

	dispatcher := payout.NewDispatcher(inventoryService, commands, payout.NewPostgresLedger(pool))
	dispatcher.Currency.Register("economy", payout.NewEconomyCurrency(economyService))
	dispatcher.Levels.Register("levels", payout.NewLevelsXP(levelsService))
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		dispatcher.Currency.Register("redis", payout.NewRedisWallet(a.redis))
		dispatcher.Levels.Register("redis", payout.NewRedisXP(a.redis))
		log.WithField("addr", cfg.RedisAddr).Info("Провайдеры Redis зарегистрированы")
	}

	rewardsService, err := rewards.NewService(
		progress.NewStore(progressRepo),
		dispatcher,
		rewards.NewMemberVIP(memberService),
		rewards.Options{
			ConfigPath:  cfg.RewardsConfigPath,
			Location:    loc,
			IdleTimeout: cfg.SessionIdleTimeout,
		},
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка загрузки наград: %w", err)
	}
	a.Rewards = rewardsService

	adminService := admin.NewService(admin.NewRepository(pool), memberService, rewardsService, cfg.AdminPasswordHash)

	// === 5. Обработчики ===
	handlers := bot.Handlers{
		Members:   members.NewHandler(memberService),
		Rewards:   rewards.NewHandler(rewardsService, botAPI),
		Economy:   economy.NewHandler(economyService, botAPI),
		Levels:    levels.NewHandler(levelsService, botAPI),
		Inventory: inventory.NewHandler(inventoryService, botAPI),
		Admin:     admin.NewHandler(adminService, botAPI),
	}

	// === 6. Фильтры и бот ===
	chatFilter := filters.NewChatFilter(cfg.FloodChatID, memberService, botAPI)
	a.Bot = bot.New(botAPI, cfg, handlers, economyService, chatFilter)
	commands.Handle("say", payout.SayExecutor(a.Bot))

	// === 7. Планировщик задач ===
	a.Scheduler = jobs.NewScheduler(rewardsService, loc)
	rewardsService.OnReload(func(t *rewards.Tables) {
		if err := a.Scheduler.Reschedule(t.AutoSave, t.ResetAt); err != nil {
			log.WithError(err).Error("Расписание задач не обновлено после перезагрузки наград")
		}
	})

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return a, nil
}

// progressRepository выбирает хранилище прогресса по STORAGE_BACKEND.
func (a *App) progressRepository(pool *pgxpool.Pool) (progress.Repository, error) {
	if a.cfg.StorageBackend != config.StorageSQLite {
		return progress.NewPostgresRepository(pool), nil
	}
	db, err := sqlite.Open(a.cfg.SQLitePath, progress.SQLiteMigration)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия SQLite: %w", err)
	}
	a.sqlite = db
	return progress.NewSQLiteRepository(db), nil
}

// Run запускает фоновые задачи и бота. Блокируется до отмены ctx,
// затем дожидается обработчиков и сохраняет прогресс.
func (a *App) Run(ctx context.Context) error {
	t := a.Rewards.Tables()
	if err := a.Scheduler.Start(ctx, t.AutoSave, t.ResetAt); err != nil {
		return err
	}

	var wg sync.WaitGroup
	if a.cfg.RewardsWatch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := config.WatchRewards(ctx, a.cfg.RewardsConfigPath, func() {
				_, _ = a.Rewards.Reload()
			})
			if err != nil {
				log.WithError(err).Error("Слежение за файлом наград не запущено")
			}
		}()
	}

	if a.metrics != nil {
		go func() {
			log.WithField("addr", a.metrics.Addr).Info("Метрики доступны на /metrics")
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("HTTP-сервер метрик упал")
			}
		}()
	}

	a.Bot.Start(ctx)
	a.Bot.Wait()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.Scheduler.Stop(stopCtx)
	if a.metrics != nil {
		if err := a.metrics.Shutdown(stopCtx); err != nil {
			log.WithError(err).Warn("HTTP-сервер метрик остановлен с ошибкой")
		}
	}
	wg.Wait()
	return nil
}

// Close освобождает соединения. Безопасно вызывать на частично собранном App.
func (a *App) Close() {
	if a.Rewards != nil {
		a.Rewards.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия Redis")
		}
	}
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия SQLite")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
