// Package protection защищает награды от злоупотреблений:
// минимальное время в сессии, пауза между наградами и лимит наград в день.
package protection

import (
	"sync"
	"time"

	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// Reason — причина отказа. Пустая строка означает, что ограничений нет.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonMinOnline  Reason = "min_online"
	ReasonCooldown   Reason = "cooldown"
	ReasonDailyLimit Reason = "daily_limit"
)

// Limits — пороги проверок. Ноль или отрицательное значение отключает проверку.
type Limits struct {
	MinOnline       time.Duration
	Cooldown        time.Duration
	MaxClaimsPerDay int
}

const cleanupInterval = 10 * time.Minute

// Gate проверяет, можно ли выдать награду прямо сейчас.
// Время последней награды хранится здесь, а не в записи прогресса:
// это ограничение реального времени, в БД оно не нужно.
type Gate struct {
	mu        sync.Mutex
	limits    Limits
	lastClaim map[int64]time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewGate создаёт проверку и запускает фоновую очистку старых записей.
func NewGate(limits Limits) *Gate {
	g := &Gate{
		limits:    limits,
		lastClaim: make(map[int64]time.Time),
		stopCh:    make(chan struct{}),
	}
	go g.cleanup()
	return g
}

// Close останавливает фоновую очистку.
func (g *Gate) Close() {
	g.stopOnce.Do(func() { close(g.stopCh) })
}

// SetLimits меняет пороги после перезагрузки настроек. Паузы игроков сохраняются.
func (g *Gate) SetLimits(limits Limits) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
}

// Limits возвращает действующие пороги.
func (g *Gate) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// Check возвращает первую сработавшую причину отказа в порядке:
// время в сессии, пауза после прошлой награды, дневной лимит.
// today — игровая дата момента now.
func (g *Gate) Check(rec *progress.Record, now, today time.Time) Reason {
	g.mu.Lock()
	limits := g.limits
	last, hasLast := g.lastClaim[rec.UserID]
	g.mu.Unlock()

	if limits.MinOnline > 0 {
		// без начала сессии награду не даём
		if rec.SessionJoinTime.IsZero() || now.Sub(rec.SessionJoinTime) < limits.MinOnline {
			return ReasonMinOnline
		}
	}

	if limits.Cooldown > 0 && hasLast && now.Sub(last) < limits.Cooldown {
		return ReasonCooldown
	}

	if limits.MaxClaimsPerDay > 0 && rec.ClaimsOn(today) >= limits.MaxClaimsPerDay {
		return ReasonDailyLimit
	}

	return ReasonNone
}

// Remaining возвращает, сколько ещё ждать по причине reason. Для дневного лимита — 0.
func (g *Gate) Remaining(rec *progress.Record, reason Reason, now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	var left time.Duration
	switch reason {
	case ReasonMinOnline:
		if rec.SessionJoinTime.IsZero() {
			return g.limits.MinOnline
		}
		left = g.limits.MinOnline - now.Sub(rec.SessionJoinTime)
	case ReasonCooldown:
		left = g.limits.Cooldown - now.Sub(g.lastClaim[rec.UserID])
	}
	if left < 0 {
		return 0
	}
	return left
}

// RecordClaim запоминает время награды для паузы. Дневной счётчик
// ведёт календарь (calendar.Engine.MarkClaimed).
func (g *Gate) RecordClaim(userID int64, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastClaim[userID] = now
}

// Forget удаляет данные игрока (при удалении прогресса).
func (g *Gate) Forget(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.lastClaim, userID)
}

// Prune удаляет записи, пауза которых уже истекла. Возвращает число удалённых.
func (g *Gate) Prune(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for userID, at := range g.lastClaim {
		if now.Sub(at) >= g.limits.Cooldown {
			delete(g.lastClaim, userID)
			n++
		}
	}
	return n
}

func (g *Gate) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case now := <-ticker.C:
			g.Prune(now)
		}
	}
}
