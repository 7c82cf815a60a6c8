package payout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/common"
)

type fakeCurrency struct {
	up       bool
	deposits []decimal.Decimal
	err      error
}

func (f *fakeCurrency) Available(context.Context) bool { return f.up }

func (f *fakeCurrency) Deposit(_ context.Context, _ int64, amount decimal.Decimal, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.deposits = append(f.deposits, amount)
	return nil
}

func TestRegistry_PrefersAvailable(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry[CurrencyProvider]("currency")
	primary := &fakeCurrency{up: true}
	wallet := &fakeCurrency{up: true}
	r.Register("economy", primary)
	r.Register("redis", wallet)

	key, err := r.Activate(ctx, "redis")
	require.NoError(t, err)
	assert.Equal(t, "redis", key)

	p, key, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, "redis", key)
	assert.Same(t, wallet, p)
}

func TestRegistry_FallsBackInRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry[CurrencyProvider]("currency")
	r.Register("a", &fakeCurrency{up: false})
	r.Register("b", &fakeCurrency{up: true})
	r.Register("c", &fakeCurrency{up: true})

	key, err := r.Activate(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "b", key)

	key, err = r.Activate(ctx, "неизвестный")
	require.NoError(t, err)
	assert.Equal(t, "b", key)

	assert.Equal(t, []string{"a", "b", "c"}, r.Keys())
}

func TestRegistry_NoneAvailable(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry[CurrencyProvider]("currency")

	_, _, err := r.Active()
	assert.ErrorIs(t, err, common.ErrNoProvider)

	r.Register("a", &fakeCurrency{up: true})
	_, err = r.Activate(ctx, "a")
	require.NoError(t, err)

	r.Register("a", &fakeCurrency{up: false})
	_, err = r.Activate(ctx, "a")
	assert.ErrorIs(t, err, common.ErrNoProvider)

	_, _, err = r.Active()
	assert.ErrorIs(t, err, common.ErrNoProvider, "после неудачного выбора активного нет")
	assert.Equal(t, []string{"a"}, r.Keys(), "повторная регистрация не дублирует ключ")
}
