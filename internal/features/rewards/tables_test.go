package rewards

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/config"
)

func TestCompile_Defaults(t *testing.T) {
	tables := Compile(config.DefaultRewards())

	assert.Empty(t, tables.Warnings)
	assert.Equal(t, 30, tables.Calendar.TotalDays())
	assert.Equal(t, 30, tables.Calendar.ConfiguredDays())
	assert.Len(t, tables.Streak.Milestones(), 3)
	assert.Len(t, tables.Returns.Tiers(), 3)
	assert.Equal(t, 5*time.Minute, tables.Limits.MinOnline)
	assert.Equal(t, time.Hour, tables.Limits.Cooldown)
	assert.Equal(t, 1, tables.Limits.MaxClaimsPerDay)
	assert.Equal(t, 5*time.Minute, tables.AutoSave)
	require.Len(t, tables.VIPTiers, 2)
	assert.Equal(t, "premium", tables.VIPTiers[0].Permission)
}

func TestCompile_SkipsMalformedEntries(t *testing.T) {
	cfg := config.DefaultRewards()
	cfg.Calendar.TotalDays = 7
	cfg.Calendar.DailyResetTime = "25:99"
	cfg.Calendar.Days = map[string]config.DayEntry{
		"1":   {Coins: 10},
		"abc": {Coins: 20},
		"0":   {Coins: 30},
		"8":   {Coins: 40},
		" 2 ": {Coins: 50},
	}
	cfg.Streak.Milestones = map[string]config.MilestoneEntry{
		"07": {BonusCoins: 1},
		"7":  {BonusCoins: 2},
		"-3": {BonusCoins: 3},
		"x":  {BonusCoins: 4},
	}
	cfg.Streak.BaseMultiplier = 2
	cfg.Streak.MaxMultiplier = 1.5
	cfg.ReturnRewards.Tiers = []config.TierEntry{
		{MinAbsenceDays: 10, MaxAbsenceDays: 5},
		{MinAbsenceDays: 3, MaxAbsenceDays: 9, Coins: 100},
	}
	cfg.VipTiers = []config.VipTier{
		{Permission: "", Multiplier: 2},
		{Permission: "vip", Multiplier: 0.5},
	}

	tables := Compile(cfg)

	assert.Equal(t, 2, tables.Calendar.ConfiguredDays())
	day2, ok := tables.Calendar.Reward(2)
	require.True(t, ok, "пробелы в ключе допустимы")
	assert.True(t, day2.Coins.Equal(decimal.NewFromInt(50)))

	ms := tables.Streak.Milestones()
	require.Len(t, ms, 1)
	assert.True(t, ms[0].BonusCoins.Equal(decimal.NewFromInt(2)), "при повторе побеждает последний ключ")

	assert.True(t, tables.Streak.Settings().MaxMultiplier.Equal(decimal.NewFromInt(2)))
	assert.Len(t, tables.Returns.Tiers(), 1)
	assert.Zero(t, tables.ResetAt)

	require.Len(t, tables.VIPTiers, 1)
	assert.True(t, tables.VIPTiers[0].Multiplier.Equal(one))

	// abc, 0, 8, 07/7, -3, x, max<base, tier, reset time, две VIP-ошибки
	assert.Len(t, tables.Warnings, 11)
	assert.Contains(t, tables.Summary(), "Предупреждений: 11")
}

func TestTables_GameDate(t *testing.T) {
	cfg := config.DefaultRewards()
	cfg.Calendar.DailyResetTime = "04:00"
	tables := Compile(cfg)
	require.Equal(t, 4*time.Hour, tables.ResetAt)

	early := time.Date(2026, 3, 2, 3, 59, 0, 0, time.UTC)
	late := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), tables.GameDate(early, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), tables.GameDate(late, time.UTC))
}

func TestSummary_DisabledSections(t *testing.T) {
	cfg := config.DefaultRewards()
	cfg.Streak.Enabled = false
	cfg.ReturnRewards.Enabled = false

	s := Compile(cfg).Summary()
	assert.Contains(t, s, "Серия: выключена")
	assert.Contains(t, s, "Награды за возвращение: выключены")
	assert.Contains(t, s, "Календарь: 30 дней")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "меньше минуты", formatWait(20*time.Second))
	assert.Equal(t, "3 мин", formatWait(3*time.Minute))
	assert.Equal(t, "2 ч", formatWait(2*time.Hour))
	assert.Equal(t, "1 ч 5 мин", formatWait(65*time.Minute))

	assert.Equal(t, "x1.25", formatMultiplier(decimal.RequireFromString("1.25")))
	assert.Equal(t, "x1.14", formatMultiplier(decimal.RequireFromString("1.1400")))

	assert.Equal(t, "без награды", describeReward(decimal.Zero, 0, nil))
	assert.Equal(t, "150 пленок, 30 XP, сундук:1",
		describeReward(decimal.NewFromInt(150), 30, []string{"сундук:1"}))
}
