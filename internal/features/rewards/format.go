package rewards

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/rewards-bot/internal/common"
)

// describeReward перечисляет части награды: "150 пленок, 30 XP, сундук:1".
func describeReward(coins decimal.Decimal, xp int64, items []string) string {
	var parts []string
	if coins.IsPositive() {
		parts = append(parts, common.FormatCoins(coins))
	}
	if xp > 0 {
		parts = append(parts, common.FormatXP(xp))
	}
	parts = append(parts, items...)
	if len(parts) == 0 {
		return "без награды"
	}
	return strings.Join(parts, ", ")
}

// formatWait форматирует длительность: "1 ч 5 мин", "3 мин", "меньше минуты".
func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "меньше минуты"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%d ч %d мин", h, m)
	case h > 0:
		return fmt.Sprintf("%d ч", h)
	default:
		return fmt.Sprintf("%d мин", m)
	}
}

// formatMultiplier — "x1.25".
func formatMultiplier(m decimal.Decimal) string {
	return "x" + m.Round(2).String()
}
