package rewards

import (
	"context"

	"github.com/shopspring/decimal"
)

// Sink выдаёт уже посчитанные награды. Реализация — payout.Dispatcher.
type Sink interface {
	DepositCurrency(ctx context.Context, userID int64, amount decimal.Decimal, reason string) error
	GrantExperience(ctx context.Context, userID int64, amount int64, reason string) error
	DeliverItems(ctx context.Context, userID int64, items []string) error
	RunCommands(ctx context.Context, userID int64, commands []string) error
}

// VIPProvider возвращает множитель игрока, не меньше 1.
type VIPProvider interface {
	Multiplier(ctx context.Context, userID int64) decimal.Decimal
}

// tierAware — провайдер, которому нужны VIP-уровни после перезагрузки таблиц.
type tierAware interface {
	SetTiers(tiers []VIPTier)
}

// providerAware — выдача, которая выбирает провайдеров пленок и опыта по таблицам.
type providerAware interface {
	SelectProviders(currency, level string)
}

// SinkFailure — неудачная выдача части награды.
type SinkFailure struct {
	Sink string
	Err  error
}
