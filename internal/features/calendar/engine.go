// Package calendar — engine.go содержит машину состояний календаря.
package calendar

import (
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// Engine продвигает календарь игрока при входе и решает, можно ли забрать награду.
// Не хранит состояния игроков: все изменения идут в переданный progress.Record.
type Engine struct {
	settings Settings
	days     map[int]RewardDay
}

// NewEngine создаёт движок календаря. Дни вне [1, TotalDays] отбрасываются.
func NewEngine(settings Settings, days []RewardDay) *Engine {
	if settings.TotalDays < 1 {
		settings.TotalDays = 1
	}
	if settings.GraceDays < 0 {
		settings.GraceDays = 0
	}

	e := &Engine{settings: settings, days: make(map[int]RewardDay, len(days))}
	for _, d := range days {
		if d.Day < 1 || d.Day > settings.TotalDays {
			log.WithFields(log.Fields{
				"day":        d.Day,
				"total_days": settings.TotalDays,
			}).Warn("День награды вне календаря, пропускаем")
			continue
		}
		e.days[d.Day] = d
	}
	return e
}

// Settings возвращает действующие настройки.
func (e *Engine) Settings() Settings {
	return e.settings
}

// TotalDays возвращает длину цикла.
func (e *Engine) TotalDays() int {
	return e.settings.TotalDays
}

// Reward возвращает награду за день, если она настроена.
func (e *Engine) Reward(day int) (RewardDay, bool) {
	d, ok := e.days[day]
	return d, ok
}

// ConfiguredDays возвращает число дней, за которые положена награда.
func (e *Engine) ConfiguredDays() int {
	return len(e.days)
}

// ProcessLogin обновляет календарь при входе в новый игровой день
// и возвращает число пропущенных дней.
//
// Алгоритм:
//  1. Первый вход: день 1, пропусков нет
//  2. Повторный вход в тот же день (или часы ушли назад): ничего не меняем
//  3. Вход на следующий день: продвигаемся на день
//  4. Пропуск: строгий режим сбрасывает цикл, иначе пропуск в пределах
//     GraceDays прощается, а за его пределами цикл сбрасывается при ResetOnExpiry
//  5. LastLoginDate становится today, кроме случая, когда часы ушли назад
func (e *Engine) ProcessLogin(rec *progress.Record, today time.Time) int {
	today = common.DateOnly(today)

	if rec.LastLoginDate == nil {
		rec.CurrentDay = 1
		rec.LastLoginDate = &today
		return 0
	}

	elapsed := common.DaysBetween(*rec.LastLoginDate, today)
	if elapsed <= 0 {
		// Часы ушли назад: LastLoginDate не откатываем, иначе когда часы
		// вернутся, те же дни посчитаются пропуском и серия прервётся.
		return 0
	}

	gap := elapsed - 1
	switch {
	case gap == 0:
		e.advance(rec)
	case e.settings.StrictMode:
		e.reset(rec)
		log.WithFields(log.Fields{"user_id": rec.UserID, "absence": gap}).
			Debug("Строгий режим: календарь сброшен после пропуска")
	case gap <= e.settings.GraceDays:
		e.advance(rec)
		log.WithFields(log.Fields{"user_id": rec.UserID, "absence": gap, "grace": e.settings.GraceDays}).
			Debug("Пропуск в пределах льготных дней")
	case e.settings.ResetOnExpiry:
		e.reset(rec)
		log.WithFields(log.Fields{"user_id": rec.UserID, "absence": gap, "grace": e.settings.GraceDays}).
			Debug("Календарь сброшен: пропуск больше льготных дней")
	default:
		e.advance(rec)
	}

	rec.LastLoginDate = &today
	return gap
}

// BreaksStreak сообщает, должен ли пропуск absence прервать серию.
func (e *Engine) BreaksStreak(absence int) bool {
	if absence <= 0 {
		return false
	}
	return e.settings.StrictMode || absence > e.settings.GraceDays
}

// advance переводит календарь на следующий день.
// После последнего дня цикл начинается заново или остаётся на последнем дне.
func (e *Engine) advance(rec *progress.Record) {
	next := rec.CurrentDay + 1
	if next <= e.settings.TotalDays {
		rec.CurrentDay = next
		return
	}
	if e.settings.ResetOnExpiry {
		e.reset(rec)
		return
	}
	rec.CurrentDay = e.settings.TotalDays
}

func (e *Engine) reset(rec *progress.Record) {
	rec.CurrentDay = 1
	rec.ClaimedDays = make(progress.DaySet)
}

// CanClaim проверяет, можно ли забрать награду текущего дня.
func (e *Engine) CanClaim(rec *progress.Record, today time.Time) bool {
	if rec.ClaimedDays.Has(rec.CurrentDay) {
		return false
	}
	// день мог смениться, а награда сегодня уже выдана
	if common.SameDate(rec.LastClaimDate, today) {
		return false
	}
	return true
}

// MarkClaimed отмечает день как полученный и считает награду за сегодня.
func (e *Engine) MarkClaimed(rec *progress.Record, day int, today time.Time) {
	if rec.ClaimedDays == nil {
		rec.ClaimedDays = make(progress.DaySet)
	}
	if !rec.ClaimedDays.Has(day) {
		rec.ClaimedDays.Add(day)
		rec.TotalClaimed++
	}

	claimDate := common.DateOnly(today)
	rec.LastClaimDate = &claimDate

	if !common.SameDate(rec.ClaimsDate, today) {
		counterDate := claimDate
		rec.ClaimsDate = &counterDate
		rec.ClaimsToday = 0
	}
	rec.ClaimsToday++
}

// DayStatuses возвращает клетки календаря с 1 по TotalDays. Запись не меняется.
func (e *Engine) DayStatuses(rec *progress.Record) []DayStatus {
	out := make([]DayStatus, 0, e.settings.TotalDays)
	for day := 1; day <= e.settings.TotalDays; day++ {
		cell := DayStatus{Day: day}
		switch {
		case rec.ClaimedDays.Has(day):
			cell.Status = StatusClaimed
		case day == rec.CurrentDay:
			cell.Status = StatusAvailable
		case day < rec.CurrentDay:
			cell.Status = StatusMissed
		default:
			cell.Status = StatusLocked
		}
		if r, ok := e.days[day]; ok {
			r := r
			cell.Reward = &r
		}
		out = append(out, cell)
	}
	return out
}
