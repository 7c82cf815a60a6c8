package rewards

import (
	"time"

	"github.com/shopspring/decimal"

	"serotonyl.ru/rewards-bot/internal/features/calendar"
	"serotonyl.ru/rewards-bot/internal/features/protection"
	"serotonyl.ru/rewards-bot/internal/features/returns"
	"serotonyl.ru/rewards-bot/internal/features/streak"
)

// Clock возвращает текущее время. В тестах подменяется.
type Clock func() time.Time

// DenyReason — почему награда не выдана. Это не ошибка, а обычный исход.
type DenyReason string

const (
	DenyNone           DenyReason = ""
	DenyMinOnline                 = DenyReason(protection.ReasonMinOnline)
	DenyCooldown                  = DenyReason(protection.ReasonCooldown)
	DenyDailyLimit                = DenyReason(protection.ReasonDailyLimit)
	DenyAlreadyClaimed DenyReason = "already_claimed"
	DenyNoReward       DenyReason = "no_reward"
	DenyNoReturnReward DenyReason = "no_return_reward"
)

// LoginOutcome — результат входа игрока в новую сессию или новый игровой день.
type LoginOutcome struct {
	UserID        int64
	Today         time.Time
	NewSession    bool
	FirstLogin    bool
	Absence       int  // Пропущено дней
	StreakBroken  bool // Серия уменьшилась из-за пропуска
	CurrentDay    int
	Streak        int
	ReturnPending bool
	Notices       []string // Уведомления для личных сообщений, не больше раза в день
}

// ClaimOutcome — результат попытки забрать награду дня.
type ClaimOutcome struct {
	Denied DenyReason
	Wait   time.Duration // Сколько ждать при min_online и cooldown

	Day           int
	Streak        int
	Payout        *Payout
	Milestone     *Payout
	MilestoneInfo *streak.Milestone
	Failures      []SinkFailure

	// Login заполнен, если игровой день сменился прямо перед получением
	Login *LoginOutcome
}

// OK сообщает, выдана ли награда.
func (o *ClaimOutcome) OK() bool {
	return o.Denied == DenyNone
}

// ReturnOutcome — результат получения награды за возвращение.
type ReturnOutcome struct {
	Denied   DenyReason
	Tier     *returns.Tier
	Payout   *Payout
	Failures []SinkFailure
	Login    *LoginOutcome
}

// OK сообщает, выдана ли награда.
func (o *ReturnOutcome) OK() bool {
	return o.Denied == DenyNone
}

// CalendarView — состояние игрока для отображения. Ничего не меняет.
type CalendarView struct {
	UserID        int64
	Today         time.Time
	Days          []calendar.DayStatus // Пусто для Info
	CurrentDay    int
	TotalDays     int
	Streak        int
	LongestStreak int
	TotalClaimed  int
	LastLoginDate *time.Time

	StreakEnabled    bool
	StreakMultiplier decimal.Decimal
	VIPMultiplier    decimal.Decimal

	NextMilestone   *streak.Milestone
	DaysToMilestone int
	ReturnTier      *returns.Tier
	TodayReward     *calendar.RewardDay

	CanClaim bool
	Blocked  DenyReason // Антиабуз не даст забрать прямо сейчас
	Wait     time.Duration
}
