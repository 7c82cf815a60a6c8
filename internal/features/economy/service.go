// Package economy — service.go содержит бизнес-логику экономики:
// проверку сумм, начисления наград и историю транзакций.
package economy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
)

// historyLimit — сколько транзакций показывает !транзакции.
const historyLimit = 10

// Store — хранилище балансов. Реализация — Repository.
type Store interface {
	Ping(ctx context.Context) error
	EnsureBalance(ctx context.Context, userID int64) error
	GetBalance(ctx context.Context, userID int64) (*Balance, error)
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error
	GetTransactions(ctx context.Context, userID int64, limit int) ([]*Transaction, error)
}

// Service управляет экономикой бота (пленки).
type Service struct {
	repo Store
	loc  *time.Location
}

// NewService создаёт новый сервис экономики. loc — пояс для дат в истории.
func NewService(repo Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc}
}

// Ping проверяет, доступно ли хранилище балансов.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// GetBalance возвращает баланс пользователя. Нет записи — значит ноль.
func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	b, err := s.repo.GetBalance(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return b.Balance, nil
}

// Deposit начисляет пленки. Сумма округляется до копеек и должна быть положительной.
func (s *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return common.ErrInvalidAmount
	}
	if err := s.repo.Deposit(ctx, userID, amount, txType, description); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"amount":  amount.StringFixed(2),
		"type":    txType,
	}).Debug("Пленки начислены")
	return nil
}

// TxTypeForReason определяет тип транзакции по причине награды
// ("DailyReward Day 3", "StreakMilestone 7 days", "ReturnReward 7+ days").
func TxTypeForReason(reason string) string {
	switch {
	case strings.HasPrefix(reason, "DailyReward"):
		return TxTypeDailyReward
	case strings.HasPrefix(reason, "StreakMilestone"):
		return TxTypeMilestone
	case strings.HasPrefix(reason, "ReturnReward"):
		return TxTypeReturn
	default:
		return TxTypeReward
	}
}

// GetTransactionHistory возвращает историю транзакций в MarkdownV2.
// Последние 10 транзакций. Если больше 5 — оборачивает остаток в спойлер.
func (s *Service) GetTransactionHistory(ctx context.Context, userID int64) (string, error) {
	transactions, err := s.repo.GetTransactions(ctx, userID, historyLimit)
	if err != nil {
		return "", err
	}

	if len(transactions) == 0 {
		return "📋 У вас пока нет транзакций", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Последние %d транзакций:\n\n", len(transactions)))

	var lines []string
	for i, tx := range transactions {
		line := fmt.Sprintf("%d. %s | %s | %s",
			i+1,
			common.FormatDateTime(tx.CreatedAt, s.loc),
			common.FormatCoinsDelta(tx.Amount),
			describeTx(tx),
		)
		lines = append(lines, tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, line))
	}

	if len(lines) > 5 {
		for _, line := range lines[:5] {
			sb.WriteString(line + "\n")
		}
		sb.WriteString("\n||")
		for _, line := range lines[5:] {
			sb.WriteString(line + "\n")
		}
		sb.WriteString("||")
	} else {
		for _, line := range lines {
			sb.WriteString(line + "\n")
		}
	}

	return sb.String(), nil
}

func describeTx(tx *Transaction) string {
	switch tx.TransactionType {
	case TxTypeDailyReward:
		return "награда дня"
	case TxTypeMilestone:
		return "веха серии"
	case TxTypeReturn:
		return "за возвращение"
	case TxTypeAdminGive:
		return "от администратора"
	}
	if tx.Description != "" {
		return tx.Description
	}
	return "награда"
}

// CreateBalance создаёт начальный баланс для нового участника (0 пленок).
func (s *Service) CreateBalance(ctx context.Context, userID int64) error {
	return s.repo.EnsureBalance(ctx, userID)
}
