package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/features/progress"
)

func TestFindTier_HighestMinWins(t *testing.T) {
	a := Tier{MinAbsenceDays: 7, MaxAbsenceDays: 13, Description: "A"}
	b := Tier{MinAbsenceDays: 10, MaxAbsenceDays: 20, Description: "B"}

	for _, order := range [][]Tier{{a, b}, {b, a}} {
		r := NewResolver(true, order)

		tier, ok := r.FindTier(12)
		require.True(t, ok)
		assert.Equal(t, "B", tier.Description)

		tier, ok = r.FindTier(8)
		require.True(t, ok)
		assert.Equal(t, "A", tier.Description)

		tier, ok = r.FindTier(20)
		require.True(t, ok)
		assert.Equal(t, "B", tier.Description)

		_, ok = r.FindTier(21)
		assert.False(t, ok)
		_, ok = r.FindTier(6)
		assert.False(t, ok)
	}
}

func TestNewResolver_SkipsBrokenTiers(t *testing.T) {
	r := NewResolver(true, []Tier{
		{MinAbsenceDays: 5, MaxAbsenceDays: 3},
		{MinAbsenceDays: 0, MaxAbsenceDays: 3},
		{MinAbsenceDays: 2, MaxAbsenceDays: 4},
	})
	assert.Len(t, r.Tiers(), 1)
}

func TestProcessAbsence(t *testing.T) {
	r := NewResolver(true, []Tier{{MinAbsenceDays: 2, MaxAbsenceDays: 6}, {MinAbsenceDays: 7, MaxAbsenceDays: 9999}})

	t.Run("no tier", func(t *testing.T) {
		rec := progress.NewRecord(1)
		r.ProcessAbsence(rec, 1)
		assert.False(t, rec.PendingReturnReward)
		assert.Zero(t, rec.AbsenceDays)
	})

	t.Run("zero absence", func(t *testing.T) {
		rec := progress.NewRecord(1)
		r.ProcessAbsence(rec, 0)
		assert.False(t, rec.PendingReturnReward)
	})

	t.Run("overwrites pending", func(t *testing.T) {
		rec := progress.NewRecord(1)
		r.ProcessAbsence(rec, 3)
		require.True(t, rec.PendingReturnReward)
		assert.Equal(t, 3, rec.AbsenceDays)

		r.ProcessAbsence(rec, 40)
		assert.Equal(t, 40, rec.AbsenceDays)

		tier, ok := r.PlayerTier(rec)
		require.True(t, ok)
		assert.Equal(t, 7, tier.MinAbsenceDays)
	})
}

func TestProcessAbsence_Disabled(t *testing.T) {
	r := NewResolver(false, []Tier{{MinAbsenceDays: 1, MaxAbsenceDays: 10}})
	rec := progress.NewRecord(1)

	r.ProcessAbsence(rec, 5)
	assert.False(t, rec.PendingReturnReward)
	_, ok := r.FindTier(5)
	assert.False(t, ok)
}

func TestPlayerTier_UsesStoredAbsence(t *testing.T) {
	r := NewResolver(true, []Tier{{MinAbsenceDays: 2, MaxAbsenceDays: 5}})
	rec := progress.NewRecord(1)

	_, ok := r.PlayerTier(rec)
	assert.False(t, ok, "без флага награды нет")

	rec.AbsenceDays = 3
	_, ok = r.PlayerTier(rec)
	assert.False(t, ok)

	rec.PendingReturnReward = true
	tier, ok := r.PlayerTier(rec)
	require.True(t, ok)
	assert.Equal(t, 2, tier.MinAbsenceDays)
}

func TestMarkClaimed_ClearsBoth(t *testing.T) {
	r := NewResolver(true, nil)
	rec := progress.NewRecord(1)
	rec.PendingReturnReward = true
	rec.AbsenceDays = 12

	r.MarkClaimed(rec)
	assert.False(t, rec.PendingReturnReward)
	assert.Zero(t, rec.AbsenceDays)

	// флаг без дней тоже снимается
	rec.PendingReturnReward = true
	r.MarkClaimed(rec)
	assert.False(t, rec.PendingReturnReward)
}
