// Package economy управляет виртуальной валютой «пленки».
// models.go описывает структуры для балансов и транзакций.
package economy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance представляет баланс пользователя.
// Каждый участник имеет не больше одной записи в таблице balances.
type Balance struct {
	UserID      int64           `db:"user_id"`      // Telegram user ID
	Balance     decimal.Decimal `db:"balance"`      // Текущий баланс, NUMERIC(18,2)
	TotalEarned decimal.Decimal `db:"total_earned"` // Сколько всего начислено
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Transaction представляет одно начисление пленок.
type Transaction struct {
	ID              int64           `db:"id"`
	UserID          int64           `db:"user_id"`
	Amount          decimal.Decimal `db:"amount"`           // Всегда положительная
	TransactionType string          `db:"transaction_type"` // См. TxType*
	Description     string          `db:"description"`      // Причина начисления
	CreatedAt       time.Time       `db:"created_at"`
}

// Типы транзакций
const (
	TxTypeDailyReward = "daily_reward" // Награда дня календаря
	TxTypeMilestone   = "milestone"    // Бонус вехи серии
	TxTypeReturn      = "return"       // Награда за возвращение
	TxTypeReward      = "reward"       // Прочие награды
	TxTypeAdminGive   = "admin_give"   // Выдача админом
)

// Migration — DDL таблиц экономики.
const Migration = `
CREATE TABLE IF NOT EXISTS balances (
    user_id BIGINT PRIMARY KEY,
    balance NUMERIC(18,2) NOT NULL DEFAULT 0,
    total_earned NUMERIC(18,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    amount NUMERIC(18,2) NOT NULL CHECK (amount > 0),
    transaction_type VARCHAR(32) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC);
`
