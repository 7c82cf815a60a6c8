// Package rewards связывает календарь, серию, награды за возвращение и антиабуз
// в единые сценарии входа и получения награды.
// amounts.go — единственное место, где считаются суммы наград.
package rewards

import (
	"fmt"

	"github.com/shopspring/decimal"

	"serotonyl.ru/rewards-bot/internal/features/calendar"
	"serotonyl.ru/rewards-bot/internal/features/returns"
	"serotonyl.ru/rewards-bot/internal/features/streak"
)

// Kind — вид награды.
type Kind string

const (
	KindDay       Kind = "day"
	KindMilestone Kind = "milestone"
	KindReturn    Kind = "return"
)

// Payout — итоговая награда, готовая к выдаче.
type Payout struct {
	Kind     Kind
	Reason   string // Причина для экономики и журнала
	Coins    decimal.Decimal
	XP       int64
	Items    []string
	Commands []string

	StreakMultiplier decimal.Decimal
	BonusMultiplier  decimal.Decimal // Множитель вехи серии
	VIPMultiplier    decimal.Decimal
}

var one = decimal.NewFromInt(1)

// Amounts умножает базовые суммы на все множители.
// Пленки округляются до копеек (половина — вверх), опыт — до целого.
func Amounts(coins decimal.Decimal, xp int64, multipliers ...decimal.Decimal) (decimal.Decimal, int64) {
	total := one
	for _, m := range multipliers {
		total = total.Mul(m)
	}
	outCoins := coins.Mul(total).Round(2)
	outXP := decimal.NewFromInt(xp).Mul(total).Round(0).IntPart()
	return outCoins, outXP
}

// DayPayout считает награду дня календаря: база × серия × VIP.
func DayPayout(day calendar.RewardDay, streakMult, vip decimal.Decimal) Payout {
	coins, xp := Amounts(day.Coins, day.XP, streakMult, vip)
	return Payout{
		Kind:             KindDay,
		Reason:           fmt.Sprintf("DailyReward Day %d", day.Day),
		Coins:            coins,
		XP:               xp,
		Items:            day.Items,
		Commands:         day.Commands,
		StreakMultiplier: streakMult,
		BonusMultiplier:  one,
		VIPMultiplier:    vip,
	}
}

// MilestonePayout считает бонус вехи: бонус × множитель вехи × VIP.
// Множитель серии к вехам не применяется.
func MilestonePayout(m streak.Milestone, vip decimal.Decimal) Payout {
	bonus := m.RewardMultiplier
	if !bonus.IsPositive() {
		bonus = one
	}
	coins, xp := Amounts(m.BonusCoins, m.BonusXP, bonus, vip)
	return Payout{
		Kind:             KindMilestone,
		Reason:           fmt.Sprintf("StreakMilestone %d days", m.Days),
		Coins:            coins,
		XP:               xp,
		Commands:         m.Commands,
		StreakMultiplier: one,
		BonusMultiplier:  bonus,
		VIPMultiplier:    vip,
	}
}

// ReturnPayout считает награду за возвращение: база × VIP.
func ReturnPayout(t returns.Tier, vip decimal.Decimal) Payout {
	coins, xp := Amounts(t.Coins, t.XP, vip)
	return Payout{
		Kind:             KindReturn,
		Reason:           fmt.Sprintf("ReturnReward %d+ days", t.MinAbsenceDays),
		Coins:            coins,
		XP:               xp,
		Items:            t.Items,
		Commands:         t.Commands,
		StreakMultiplier: one,
		BonusMultiplier:  one,
		VIPMultiplier:    vip,
	}
}
