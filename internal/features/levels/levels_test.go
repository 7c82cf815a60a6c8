package levels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/common"
)

type memStore map[int64]int64

func (m memStore) Ping(context.Context) error { return nil }

func (m memStore) Add(_ context.Context, userID, xp int64) (int64, error) {
	m[userID] += xp
	return m[userID], nil
}

func (m memStore) Get(_ context.Context, userID int64) (int64, error) {
	return m[userID], nil
}

func TestProgressFor(t *testing.T) {
	tests := []struct {
		xp    int64
		level int
		into  int64
		need  int64
	}{
		{xp: -5, level: 1, into: 0, need: 100},
		{xp: 0, level: 1, into: 0, need: 100},
		{xp: 99, level: 1, into: 99, need: 100},
		{xp: 100, level: 2, into: 0, need: 200},
		{xp: 250, level: 2, into: 150, need: 200},
		{xp: 300, level: 3, into: 0, need: 300},
		{xp: 1000, level: 5, into: 0, need: 500},
	}
	for _, tt := range tests {
		p := ProgressFor(tt.xp)
		assert.Equal(t, tt.level, p.Level, "xp=%d", tt.xp)
		assert.Equal(t, tt.into, p.Into, "xp=%d", tt.xp)
		assert.Equal(t, tt.need, p.Need, "xp=%d", tt.xp)
	}
}

func TestAddExperience(t *testing.T) {
	svc := NewService(memStore{})
	ctx := context.Background()

	p, err := svc.AddExperience(ctx, 1, 120, "DailyReward Day 1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level)
	assert.Equal(t, int64(120), p.XP)

	_, err = svc.AddExperience(ctx, 1, 0, "")
	assert.ErrorIs(t, err, common.ErrInvalidAmount)

	p, err = svc.Progress(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.Into)
}

func TestRenderProgress(t *testing.T) {
	text := renderProgress(ProgressFor(250))
	assert.Equal(t, "⭐ Уровень 2\n▰▰▰▰▰▰▰▱▱▱ 150 / 200 XP\nВсего: 250 XP", text)
}
