// Package progress хранит прогресс игроков в системе ежедневных наград.
// models.go описывает запись прогресса: день календаря, серию,
// полученные дни и ожидающую награду за возвращение.
package progress

import (
	"sort"
	"time"

	"serotonyl.ru/rewards-bot/internal/common"
)

// DaySet — множество дней текущего цикла календаря.
type DaySet map[int]struct{}

// Has проверяет, есть ли день в множестве.
func (s DaySet) Has(day int) bool {
	_, ok := s[day]
	return ok
}

// Add добавляет день.
func (s DaySet) Add(day int) {
	s[day] = struct{}{}
}

// Sorted возвращает дни по возрастанию.
func (s DaySet) Sorted() []int {
	out := make([]int, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// NewDaySet собирает множество из списка дней.
func NewDaySet(days ...int) DaySet {
	s := make(DaySet, len(days))
	for _, d := range days {
		s.Add(d)
	}
	return s
}

// Record — прогресс одного игрока.
// Все операции над одной записью выполняются последовательно (см. rewards.Service).
type Record struct {
	UserID              int64      `db:"user_id"`
	CurrentDay          int        `db:"current_day"`    // Текущий день календаря, с 1
	Streak              int        `db:"streak"`         // Текущая серия наград подряд
	LongestStreak       int        `db:"longest_streak"` // Личный рекорд серии
	LastLoginDate       *time.Time `db:"last_login_date"`
	LastClaimDate       *time.Time `db:"last_claim_date"`
	ClaimedDays         DaySet     `db:"claimed_days"`  // Полученные дни текущего цикла
	TotalClaimed        int        `db:"total_claimed"` // Всего полученных наград за всё время
	PendingReturnReward bool       `db:"pending_return_reward"`
	AbsenceDays         int        `db:"absence_days"` // Дней отсутствия, за которые ждёт награда
	UpdatedAt           time.Time  `db:"updated_at"`

	// Живут только в памяти, в БД не пишутся
	SessionJoinTime     time.Time  // Начало текущей сессии (для антиабуза)
	LastSeen            time.Time  // Последняя активность (для определения новой сессии)
	ClaimsToday         int        // Сколько наград получено за игровой день ClaimsDate
	ClaimsDate          *time.Time
	LastAutoUIShownDate *time.Time // Когда в последний раз показывали уведомления при входе
}

// NewRecord создаёт запись для первого входа: день 1, остальное пусто.
func NewRecord(userID int64) *Record {
	return &Record{
		UserID:      userID,
		CurrentDay:  1,
		ClaimedDays: make(DaySet),
	}
}

// Reset возвращает запись в состояние только что созданной, сохраняя игрока.
func (r *Record) Reset() {
	*r = *NewRecord(r.UserID)
}

// ClaimsOn возвращает количество наград за игровой день today.
func (r *Record) ClaimsOn(today time.Time) int {
	if !common.SameDate(r.ClaimsDate, today) {
		return 0
	}
	return r.ClaimsToday
}
