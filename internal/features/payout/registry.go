// Package payout выдаёт посчитанные награды: пленки, опыт, предметы и команды.
// Для пленок и опыта есть несколько провайдеров, активный выбирается
// по настройке из rewards.toml с откатом на первый доступный.
package payout

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
)

// Provider — источник, который может быть недоступен (нет БД, нет Redis).
type Provider interface {
	Available(ctx context.Context) bool
}

// Registry хранит провайдеров одного вида в порядке регистрации.
type Registry[P Provider] struct {
	kind string

	mu        sync.RWMutex
	order     []string
	providers map[string]P
	active    string
}

// NewRegistry создаёт пустой реестр. kind — имя для логов ("currency", "levels").
func NewRegistry[P Provider](kind string) *Registry[P] {
	return &Registry[P]{
		kind:      kind,
		providers: make(map[string]P),
	}
}

// Register добавляет провайдера. Повторная регистрация заменяет прежнего,
// сохраняя его место в порядке.
func (r *Registry[P]) Register(key string, p P) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[key]; !ok {
		r.order = append(r.order, key)
	}
	r.providers[key] = p
}

// Keys возвращает ключи в порядке регистрации.
func (r *Registry[P]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Activate выбирает активного провайдера: preferred, если он зарегистрирован
// и доступен, иначе первый доступный по порядку регистрации.
// Если доступных нет, активного не остаётся и возвращается common.ErrNoProvider.
func (r *Registry[P]) Activate(ctx context.Context, preferred string) (string, error) {
	r.mu.RLock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	providers := make(map[string]P, len(r.providers))
	for k, p := range r.providers {
		providers[k] = p
	}
	r.mu.RUnlock()

	chosen := ""
	if p, ok := providers[preferred]; ok && p.Available(ctx) {
		chosen = preferred
	} else {
		for _, key := range order {
			if key == preferred {
				continue
			}
			if providers[key].Available(ctx) {
				chosen = key
				break
			}
		}
	}

	r.mu.Lock()
	r.active = chosen
	r.mu.Unlock()

	if chosen == "" {
		log.WithFields(log.Fields{"kind": r.kind, "preferred": preferred}).Error("Нет доступного провайдера")
		return "", fmt.Errorf("%s: %w", r.kind, common.ErrNoProvider)
	}
	entry := log.WithFields(log.Fields{"kind": r.kind, "provider": chosen})
	if chosen != preferred {
		entry.WithField("preferred", preferred).Warn("Предпочтительный провайдер недоступен, используем другой")
	} else {
		entry.Info("Провайдер выбран")
	}
	return chosen, nil
}

// Active возвращает активного провайдера и его ключ.
func (r *Registry[P]) Active() (P, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == "" {
		var zero P
		return zero, "", fmt.Errorf("%s: %w", r.kind, common.ErrNoProvider)
	}
	return r.providers[r.active], r.active, nil
}
