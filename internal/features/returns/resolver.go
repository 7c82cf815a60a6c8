// Package returns выдаёт награды игрокам, вернувшимся после долгого отсутствия.
// Отсутствие раскладывается по диапазонам (tiers), у игрока может ждать
// не больше одной такой награды.
package returns

import (
	"sort"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// Tier — награда за отсутствие от MinAbsenceDays до MaxAbsenceDays дней включительно.
type Tier struct {
	MinAbsenceDays int
	MaxAbsenceDays int
	Coins          decimal.Decimal
	XP             int64
	Items          []string
	Commands       []string
	Description    string
}

// Matches проверяет, попадает ли отсутствие в диапазон.
func (t Tier) Matches(absence int) bool {
	return absence >= t.MinAbsenceDays && absence <= t.MaxAbsenceDays
}

// Resolver подбирает диапазон для отсутствия и ведёт флаг ожидающей награды.
type Resolver struct {
	enabled bool
	tiers   []Tier
}

// NewResolver создаёт резолвер. Выключенный резолвер не знает ни одного диапазона.
func NewResolver(enabled bool, tiers []Tier) *Resolver {
	r := &Resolver{enabled: enabled}
	if !enabled {
		return r
	}
	for _, t := range tiers {
		if t.MinAbsenceDays < 1 || t.MaxAbsenceDays < t.MinAbsenceDays {
			log.WithFields(log.Fields{
				"min": t.MinAbsenceDays,
				"max": t.MaxAbsenceDays,
			}).Warn("Некорректный диапазон награды за возвращение, пропускаем")
			continue
		}
		r.tiers = append(r.tiers, t)
	}
	sort.SliceStable(r.tiers, func(i, j int) bool {
		return r.tiers[i].MinAbsenceDays < r.tiers[j].MinAbsenceDays
	})
	return r
}

// Enabled сообщает, включены ли награды за возвращение.
func (r *Resolver) Enabled() bool {
	return r.enabled
}

// Tiers возвращает копию диапазонов по возрастанию MinAbsenceDays.
func (r *Resolver) Tiers() []Tier {
	out := make([]Tier, len(r.tiers))
	copy(out, r.tiers)
	return out
}

// FindTier возвращает подходящий диапазон. Если подходят несколько,
// побеждает диапазон с наибольшим MinAbsenceDays.
func (r *Resolver) FindTier(absence int) (Tier, bool) {
	var (
		best  Tier
		found bool
	)
	for _, t := range r.tiers {
		if !t.Matches(absence) {
			continue
		}
		if !found || t.MinAbsenceDays > best.MinAbsenceDays {
			best = t
			found = true
		}
	}
	return best, found
}

// ProcessAbsence ставит игроку ожидающую награду, если для отсутствия есть диапазон.
// Прежняя ожидающая награда перезаписывается.
func (r *Resolver) ProcessAbsence(rec *progress.Record, absence int) {
	if !r.enabled || absence <= 0 {
		return
	}
	tier, ok := r.FindTier(absence)
	if !ok {
		return
	}
	rec.PendingReturnReward = true
	rec.AbsenceDays = absence

	log.WithFields(log.Fields{
		"user_id": rec.UserID,
		"absence": absence,
		"tier":    tier.MinAbsenceDays,
	}).Info("Игрока ждёт награда за возвращение")
}

// PlayerTier возвращает диапазон ожидающей награды по сохранённому AbsenceDays.
func (r *Resolver) PlayerTier(rec *progress.Record) (Tier, bool) {
	if !rec.PendingReturnReward {
		return Tier{}, false
	}
	return r.FindTier(rec.AbsenceDays)
}

// MarkClaimed снимает ожидающую награду. Флаг и число дней сбрасываются вместе.
func (r *Resolver) MarkClaimed(rec *progress.Record) {
	rec.PendingReturnReward = false
	rec.AbsenceDays = 0
}
