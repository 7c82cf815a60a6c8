package rewards

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// PermissionSource возвращает права участника (роль, "admin").
// Реализация — members.Service.
type PermissionSource interface {
	Permissions(ctx context.Context, userID int64) ([]string, error)
}

// MemberVIP определяет VIP-множитель по правам участника.
// Уровни проверяются в порядке из файла, побеждает первое совпадение.
type MemberVIP struct {
	members PermissionSource
	tiers   atomic.Pointer[[]VIPTier]
}

// NewMemberVIP создаёт провайдер VIP-множителей.
func NewMemberVIP(members PermissionSource) *MemberVIP {
	return &MemberVIP{members: members}
}

// SetTiers подменяет уровни после перезагрузки таблиц.
func (v *MemberVIP) SetTiers(tiers []VIPTier) {
	cp := make([]VIPTier, len(tiers))
	copy(cp, tiers)
	v.tiers.Store(&cp)
}

// Tier возвращает VIP-уровень игрока.
func (v *MemberVIP) Tier(ctx context.Context, userID int64) (VIPTier, bool) {
	tiers := v.tiers.Load()
	if tiers == nil || len(*tiers) == 0 {
		return VIPTier{}, false
	}

	perms, err := v.members.Permissions(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось проверить VIP-статус")
		return VIPTier{}, false
	}

	has := make(map[string]bool, len(perms))
	for _, p := range perms {
		has[p] = true
	}
	for _, t := range *tiers {
		if has[t.Permission] {
			return t, true
		}
	}
	return VIPTier{}, false
}

// Multiplier возвращает множитель игрока, не меньше 1.
func (v *MemberVIP) Multiplier(ctx context.Context, userID int64) decimal.Decimal {
	t, ok := v.Tier(ctx, userID)
	if !ok || t.Multiplier.LessThan(one) {
		return one
	}
	return t.Multiplier
}
