// Package streak — engine.go содержит правила серии.
package streak

import (
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// Engine — правила серии. Вехи отсортированы по возрастанию длины.
type Engine struct {
	settings   Settings
	milestones []Milestone
}

// NewEngine создаёт движок серии. Если серия выключена, вехи не загружаются.
// При повторе длины побеждает веха, переданная последней.
func NewEngine(settings Settings, milestones []Milestone) *Engine {
	if settings.PartialResetDivisor < 1 {
		settings.PartialResetDivisor = 1
	}

	e := &Engine{settings: settings}
	if !settings.Enabled {
		return e
	}

	byDays := make(map[int]Milestone, len(milestones))
	for _, m := range milestones {
		if m.Days < 1 {
			log.WithField("days", m.Days).Warn("Некорректная длина вехи серии, пропускаем")
			continue
		}
		if _, dup := byDays[m.Days]; dup {
			log.WithField("days", m.Days).Warn("Веха серии задана дважды, берём последнюю")
		}
		byDays[m.Days] = m
	}

	e.milestones = make([]Milestone, 0, len(byDays))
	for _, m := range byDays {
		e.milestones = append(e.milestones, m)
	}
	sort.Slice(e.milestones, func(i, j int) bool {
		return e.milestones[i].Days < e.milestones[j].Days
	})
	return e
}

// Enabled сообщает, включена ли серия.
func (e *Engine) Enabled() bool {
	return e.settings.Enabled
}

// Settings возвращает действующие настройки.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Increment увеличивает серию после полученной награды дня.
func (e *Engine) Increment(rec *progress.Record) {
	if !e.settings.Enabled {
		return
	}
	rec.Streak++
	if rec.Streak > rec.LongestStreak {
		rec.LongestStreak = rec.Streak
	}
}

// HandleBreak обрывает серию после пропуска absence дней.
// Рекорд серии не уменьшается.
func (e *Engine) HandleBreak(rec *progress.Record, absence int) {
	if !e.settings.Enabled || rec.Streak == 0 {
		return
	}

	old := rec.Streak
	if e.settings.PartialResetOnBreak {
		rec.Streak = old / e.settings.PartialResetDivisor
	} else {
		rec.Streak = 0
	}

	log.WithFields(log.Fields{
		"user_id": rec.UserID,
		"absence": absence,
		"old":     old,
		"new":     rec.Streak,
	}).Info("Серия прервана")
}

// Multiplier возвращает множитель награды для серии длиной streak:
// base + streak*perDay, но не больше max.
func (e *Engine) Multiplier(streak int) decimal.Decimal {
	if !e.settings.Enabled || streak <= 0 {
		return decimal.NewFromInt(1)
	}
	m := e.settings.BaseMultiplier.Add(e.settings.MultiplierPerDay.Mul(decimal.NewFromInt(int64(streak))))
	return decimal.Min(m, e.settings.MaxMultiplier)
}

// CheckMilestone возвращает веху, длина которой ровно равна streak.
func (e *Engine) CheckMilestone(streak int) (Milestone, bool) {
	for _, m := range e.milestones {
		if m.Days == streak {
			return m, true
		}
	}
	return Milestone{}, false
}

// NextMilestone возвращает ближайшую веху длиннее streak.
func (e *Engine) NextMilestone(streak int) (Milestone, bool) {
	for _, m := range e.milestones {
		if m.Days > streak {
			return m, true
		}
	}
	return Milestone{}, false
}

// Milestones возвращает копию списка вех.
func (e *Engine) Milestones() []Milestone {
	out := make([]Milestone, len(e.milestones))
	copy(out, e.milestones)
	return out
}
