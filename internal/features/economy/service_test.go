package economy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/common"
)

type memStore struct {
	balances map[int64]decimal.Decimal
	txs      []*Transaction
}

func newMemStore() *memStore {
	return &memStore{balances: make(map[int64]decimal.Decimal)}
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) EnsureBalance(_ context.Context, userID int64) error {
	if _, ok := m.balances[userID]; !ok {
		m.balances[userID] = decimal.Zero
	}
	return nil
}

func (m *memStore) GetBalance(_ context.Context, userID int64) (*Balance, error) {
	b, ok := m.balances[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return &Balance{UserID: userID, Balance: b}, nil
}

func (m *memStore) Deposit(_ context.Context, userID int64, amount decimal.Decimal, txType, description string) error {
	m.balances[userID] = m.balances[userID].Add(amount)
	m.txs = append([]*Transaction{{
		ID:              int64(len(m.txs) + 1),
		UserID:          userID,
		Amount:          amount,
		TransactionType: txType,
		Description:     description,
		CreatedAt:       time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}}, m.txs...)
	return nil
}

func (m *memStore) GetTransactions(_ context.Context, userID int64, limit int) ([]*Transaction, error) {
	var out []*Transaction
	for _, t := range m.txs {
		if t.UserID == userID && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestDeposit(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, time.UTC)
	ctx := context.Background()

	zero, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, zero.IsZero(), "нет баланса — ноль")

	require.NoError(t, svc.Deposit(ctx, 1, decimal.RequireFromString("102.005"), TxTypeDailyReward, "DailyReward Day 1"))
	require.NoError(t, svc.Deposit(ctx, 1, decimal.NewFromInt(50), TxTypeMilestone, "StreakMilestone 7 days"))

	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "152.01", balance.StringFixed(2))

	assert.ErrorIs(t, svc.Deposit(ctx, 1, decimal.Zero, TxTypeReward, ""), common.ErrInvalidAmount)
	assert.ErrorIs(t, svc.Deposit(ctx, 1, decimal.RequireFromString("0.004"), TxTypeReward, ""), common.ErrInvalidAmount)
}

func TestTxTypeForReason(t *testing.T) {
	assert.Equal(t, TxTypeDailyReward, TxTypeForReason("DailyReward Day 3"))
	assert.Equal(t, TxTypeMilestone, TxTypeForReason("StreakMilestone 7 days"))
	assert.Equal(t, TxTypeReturn, TxTypeForReason("ReturnReward 7+ days"))
	assert.Equal(t, TxTypeReward, TxTypeForReason("что-то ещё"))
}

func TestGetTransactionHistory(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, time.UTC)
	ctx := context.Background()

	empty, err := svc.GetTransactionHistory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "📋 У вас пока нет транзакций", empty)

	for i := 0; i < 7; i++ {
		require.NoError(t, svc.Deposit(ctx, 1, decimal.NewFromInt(100), TxTypeDailyReward, "DailyReward"))
	}

	text, err := svc.GetTransactionHistory(ctx, 1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "📋 Последние 7 транзакций:"))
	assert.Contains(t, text, `1\. 02\.03\.2026 09:30 \| \+100 пленок \| награда дня`)
	assert.Contains(t, text, "\n||6\\.")
	assert.True(t, strings.HasSuffix(text, "||"))
}
