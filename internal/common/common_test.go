package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluralizeDays(t *testing.T) {
	cases := map[int]string{
		1:   "день",
		2:   "дня",
		4:   "дня",
		5:   "дней",
		11:  "дней",
		12:  "дней",
		21:  "день",
		22:  "дня",
		112: "дней",
		0:   "дней",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeDays(n), "n=%d", n)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "999", FormatNumber(999))
	assert.Equal(t, "2 350", FormatNumber(2350))
	assert.Equal(t, "1 000 000", FormatNumber(1000000))
	assert.Equal(t, "-1 500", FormatNumber(-1500))
}

func TestFormatCoins(t *testing.T) {
	assert.Equal(t, "1 пленка", FormatCoins(decimal.NewFromInt(1)))
	assert.Equal(t, "3 пленки", FormatCoins(decimal.NewFromInt(3)))
	assert.Equal(t, "150 пленок", FormatCoins(decimal.NewFromInt(150)))
	assert.Equal(t, "1 250 пленок", FormatCoins(decimal.NewFromInt(1250)))
	assert.Equal(t, "2.50 пленки", FormatCoins(decimal.RequireFromString("2.5")))

	assert.Equal(t, "+100 пленок", FormatCoinsDelta(decimal.NewFromInt(100)))
	assert.Equal(t, "-50 пленок", FormatCoinsDelta(decimal.NewFromInt(-50)))
	assert.Equal(t, "1 250 XP", FormatXP(1250))
}

func TestParseResetTime(t *testing.T) {
	d, err := ParseResetTime("04:30")
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour+30*time.Minute, d)

	d, err = ParseResetTime("")
	require.NoError(t, err)
	assert.Zero(t, d)

	_, err = ParseResetTime("25:00")
	assert.Error(t, err)
	_, err = ParseResetTime("полночь")
	assert.Error(t, err)
}

func TestGameDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)

	// 02:00 по Москве при сбросе в 04:00 — ещё предыдущий игровой день
	now := time.Date(2024, 3, 10, 2, 0, 0, 0, msk)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), GameDate(now, msk, 4*time.Hour))

	now = time.Date(2024, 3, 10, 4, 0, 0, 0, msk)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), GameDate(now, msk, 4*time.Hour))

	// 23:30 UTC — уже следующий день по Москве
	now = time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), GameDate(now, msk, 0))
}

func TestDates(t *testing.T) {
	a := time.Date(2024, 2, 28, 18, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, DaysBetween(a, b))
	assert.Equal(t, -2, DaysBetween(b, a))

	assert.False(t, SameDate(nil, a))
	day := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	assert.True(t, SameDate(&day, a))
	assert.False(t, SameDate(&day, b))

	assert.Equal(t, "28.02.2024", FormatDate(a))
	assert.Equal(t, "28.02.2024 21:00", FormatDateTime(a, time.FixedZone("MSK", 3*60*60)))
}

func TestLoadLocationFallback(t *testing.T) {
	loc := LoadLocation("Нет/Такого")
	assert.Equal(t, time.UTC, loc)
}
