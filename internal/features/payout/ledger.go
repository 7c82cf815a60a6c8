package payout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Grant — одна выданная часть награды.
type Grant struct {
	ID        uuid.UUID
	UserID    int64
	Sink      string // currency, experience, items, commands
	Provider  string // Активный провайдер для currency и experience
	Reason    string
	Coins     decimal.Decimal
	XP        int64
	Details   string // Предметы или команды через "; "
	CreatedAt time.Time
}

// Ledger записывает выданные награды.
type Ledger interface {
	Record(ctx context.Context, g Grant) error
}

// LedgerMigration — DDL журнала наград.
const LedgerMigration = `
CREATE TABLE IF NOT EXISTS reward_grants (
    id UUID PRIMARY KEY,
    user_id BIGINT NOT NULL,
    sink VARCHAR(16) NOT NULL,
    provider VARCHAR(32) NOT NULL DEFAULT '',
    reason TEXT NOT NULL DEFAULT '',
    coins NUMERIC(18,2) NOT NULL DEFAULT 0,
    xp BIGINT NOT NULL DEFAULT 0,
    details TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_reward_grants_user ON reward_grants(user_id, created_at DESC);
`

// PostgresLedger пишет журнал в таблицу reward_grants.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger создаёт журнал в PostgreSQL.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Record(ctx context.Context, g Grant) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO reward_grants (id, user_id, sink, provider, reason, coins, xp, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, g.ID, g.UserID, g.Sink, g.Provider, g.Reason, g.Coins, g.XP, g.Details, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи в журнал наград: %w", err)
	}
	return nil
}

// LogLedger пишет журнал только в лог (хранилище sqlite без PostgreSQL).
type LogLedger struct{}

func (LogLedger) Record(_ context.Context, g Grant) error {
	log.WithFields(log.Fields{
		"grant_id": g.ID.String(),
		"user_id":  g.UserID,
		"sink":     g.Sink,
		"provider": g.Provider,
		"reason":   g.Reason,
		"coins":    g.Coins.StringFixed(2),
		"xp":       g.XP,
		"details":  g.Details,
	}).Info("Награда записана")
	return nil
}

func newGrant(userID int64, sink, reason string) Grant {
	return Grant{
		ID:        uuid.New(),
		UserID:    userID,
		Sink:      sink,
		Reason:    reason,
		Coins:     decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

func joinDetails(parts []string) string {
	return strings.Join(parts, "; ")
}
