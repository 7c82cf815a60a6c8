package payout

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"serotonyl.ru/rewards-bot/internal/features/economy"
	"serotonyl.ru/rewards-bot/internal/features/levels"
)

// Ключи Redis для кошелька и опыта: hash user_id → значение.
const (
	RedisWalletKey = "rewards:wallet"
	RedisXPKey     = "rewards:xp"
)

// CurrencyProvider начисляет пленки.
type CurrencyProvider interface {
	Provider
	Deposit(ctx context.Context, userID int64, amount decimal.Decimal, reason string) error
}

// LevelProvider начисляет опыт.
type LevelProvider interface {
	Provider
	AddExperience(ctx context.Context, userID int64, xp int64, reason string) error
}

// EconomyCurrency — пленки в таблице balances.
type EconomyCurrency struct {
	svc *economy.Service
}

// NewEconomyCurrency создаёт провайдера поверх сервиса экономики.
func NewEconomyCurrency(svc *economy.Service) *EconomyCurrency {
	return &EconomyCurrency{svc: svc}
}

func (p *EconomyCurrency) Available(ctx context.Context) bool {
	return p.svc.Ping(ctx) == nil
}

func (p *EconomyCurrency) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, reason string) error {
	return p.svc.Deposit(ctx, userID, amount, economy.TxTypeForReason(reason), reason)
}

// LevelsXP — опыт в таблице experience.
type LevelsXP struct {
	svc *levels.Service
}

// NewLevelsXP создаёт провайдера поверх сервиса уровней.
func NewLevelsXP(svc *levels.Service) *LevelsXP {
	return &LevelsXP{svc: svc}
}

func (p *LevelsXP) Available(ctx context.Context) bool {
	return p.svc.Ping(ctx) == nil
}

func (p *LevelsXP) AddExperience(ctx context.Context, userID int64, xp int64, reason string) error {
	_, err := p.svc.AddExperience(ctx, userID, xp, reason)
	return err
}

// RedisWallet хранит пленки в hash rewards:wallet.
type RedisWallet struct {
	client redis.Cmdable
}

// NewRedisWallet создаёт кошелёк в Redis.
func NewRedisWallet(client redis.Cmdable) *RedisWallet {
	return &RedisWallet{client: client}
}

func (w *RedisWallet) Available(ctx context.Context) bool {
	return w.client.Ping(ctx).Err() == nil
}

func (w *RedisWallet) Deposit(ctx context.Context, userID int64, amount decimal.Decimal, _ string) error {
	return w.client.HIncrByFloat(ctx, RedisWalletKey, strconv.FormatInt(userID, 10), amount.InexactFloat64()).Err()
}

// Balance возвращает баланс кошелька, округлённый до копеек.
func (w *RedisWallet) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	v, err := w.client.HGet(ctx, RedisWalletKey, strconv.FormatInt(userID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// RedisXP хранит опыт в hash rewards:xp.
type RedisXP struct {
	client redis.Cmdable
}

// NewRedisXP создаёт хранилище опыта в Redis.
func NewRedisXP(client redis.Cmdable) *RedisXP {
	return &RedisXP{client: client}
}

func (x *RedisXP) Available(ctx context.Context) bool {
	return x.client.Ping(ctx).Err() == nil
}

func (x *RedisXP) AddExperience(ctx context.Context, userID int64, xp int64, _ string) error {
	return x.client.HIncrBy(ctx, RedisXPKey, strconv.FormatInt(userID, 10), xp).Err()
}
