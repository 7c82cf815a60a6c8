// Package calendar ведёт календарь ежедневных входов: какой сегодня день
// цикла, какие дни уже получены и можно ли забрать награду.
// models.go описывает награду дня и статусы клеток календаря.
package calendar

import "github.com/shopspring/decimal"

// Settings — настройки календаря из секции [calendar].
type Settings struct {
	TotalDays     int  // Длина цикла в днях
	StrictMode    bool // Любой пропуск сбрасывает календарь
	GraceDays     int  // Сколько пропущенных дней прощается (вне строгого режима)
	ResetOnExpiry bool // Сбрасывать цикл после последнего дня или после долгого пропуска
}

// RewardDay — награда за один день календаря.
type RewardDay struct {
	Day         int
	Coins       decimal.Decimal
	XP          int64
	Items       []string
	Commands    []string
	Description string
}

// Status — состояние клетки календаря.
type Status int

const (
	StatusLocked    Status = iota // День ещё не наступил
	StatusAvailable               // Сегодняшний день, награда не получена
	StatusClaimed                 // Награда получена
	StatusMissed                  // День прошёл, награда не получена
)

// String возвращает имя статуса для логов.
func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusClaimed:
		return "claimed"
	case StatusMissed:
		return "missed"
	default:
		return "locked"
	}
}

// DayStatus — клетка календаря. Reward равен nil, если за день ничего не положено.
type DayStatus struct {
	Day    int
	Status Status
	Reward *RewardDay
}
