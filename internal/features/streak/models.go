// Package streak считает серию ежедневных наград: рост и сброс серии,
// множитель награды и бонусы за достижение длины серии.
package streak

import "github.com/shopspring/decimal"

// Settings — настройки серии из секции [streak].
type Settings struct {
	Enabled             bool
	PartialResetOnBreak bool // При обрыве делить серию, а не обнулять
	PartialResetDivisor int  // Делитель при частичном сбросе, не меньше 1
	BaseMultiplier      decimal.Decimal
	MultiplierPerDay    decimal.Decimal
	MaxMultiplier       decimal.Decimal
}

// Milestone — бонус за серию длиной ровно Days дней.
type Milestone struct {
	Days             int
	BonusCoins       decimal.Decimal
	BonusXP          int64
	RewardMultiplier decimal.Decimal // Множитель бонуса; 0 и меньше считается как 1
	Commands         []string
	Description      string
}
