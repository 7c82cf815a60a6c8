// Package rewards — tables.go собирает из rewards.toml движки и таблицы наград.
// Ошибки в ключах и значениях не фатальны: запись пропускается с предупреждением.
package rewards

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/config"
	"serotonyl.ru/rewards-bot/internal/features/calendar"
	"serotonyl.ru/rewards-bot/internal/features/protection"
	"serotonyl.ru/rewards-bot/internal/features/returns"
	"serotonyl.ru/rewards-bot/internal/features/streak"
)

// VIPTier — множитель для игроков с правом Permission.
type VIPTier struct {
	Permission  string
	Multiplier  decimal.Decimal
	DisplayName string
}

// Tables — неизменяемый снимок настроек наград.
// Service подменяет его целиком при перезагрузке.
type Tables struct {
	Calendar *calendar.Engine
	Streak   *streak.Engine
	Returns  *returns.Resolver
	Limits   protection.Limits
	VIPTiers []VIPTier

	ResetAt         time.Duration // Начало игрового дня от местной полуночи
	AutoSave        time.Duration
	DebugMode       bool
	LogAllRewards   bool
	EconomyProvider string
	LevelProvider   string

	Warnings []string
}

// Compile строит таблицы из конфигурации.
func Compile(cfg *config.Rewards) *Tables {
	t := &Tables{
		AutoSave:        time.Duration(cfg.General.AutoSaveIntervalMinutes) * time.Minute,
		DebugMode:       cfg.General.DebugMode,
		LogAllRewards:   cfg.AntiAbuse.LogAllRewards,
		EconomyProvider: cfg.General.EconomyProvider,
		LevelProvider:   cfg.General.LevelProvider,
		Limits: protection.Limits{
			MinOnline:       time.Duration(cfg.AntiAbuse.MinOnlineMinutes) * time.Minute,
			Cooldown:        time.Duration(cfg.AntiAbuse.RelogCooldownMinutes) * time.Minute,
			MaxClaimsPerDay: cfg.AntiAbuse.MaxClaimsPerDay,
		},
	}

	resetAt, err := common.ParseResetTime(cfg.Calendar.DailyResetTime)
	if err != nil {
		t.warn("daily_reset_time: %v, используем 00:00", err)
		resetAt = 0
	}
	t.ResetAt = resetAt

	t.Calendar = calendar.NewEngine(calendar.Settings{
		TotalDays:     cfg.Calendar.TotalDays,
		StrictMode:    cfg.Calendar.StrictMode,
		GraceDays:     cfg.Calendar.GraceDays,
		ResetOnExpiry: cfg.Calendar.ResetOnExpiry,
	}, t.rewardDays(cfg.Calendar))

	t.Streak = streak.NewEngine(t.streakSettings(cfg.Streak), t.milestones(cfg.Streak))
	t.Returns = returns.NewResolver(cfg.ReturnRewards.Enabled, t.tiers(cfg.ReturnRewards))

	for _, v := range cfg.VipTiers {
		if strings.TrimSpace(v.Permission) == "" {
			t.warn("vip_tiers: пустой permission, уровень пропущен")
			continue
		}
		mult := decimal.NewFromFloat(v.Multiplier)
		if mult.LessThan(one) {
			t.warn("vip_tiers.%s: множитель %s меньше 1, используем 1", v.Permission, mult)
			mult = one
		}
		t.VIPTiers = append(t.VIPTiers, VIPTier{
			Permission:  v.Permission,
			Multiplier:  mult,
			DisplayName: v.DisplayName,
		})
	}

	return t
}

func (t *Tables) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.Warnings = append(t.Warnings, msg)
	log.Warn(msg)
}

// sortedKeys возвращает ключи в стабильном порядке, чтобы «последний» при
// повторах всегда был одним и тем же.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Tables) rewardDays(c config.CalendarSection) []calendar.RewardDay {
	seen := make(map[int]bool, len(c.Days))
	out := make([]calendar.RewardDay, 0, len(c.Days))
	for _, key := range sortedKeys(c.Days) {
		day, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			t.warn("calendar.days: некорректный ключ дня %q", key)
			continue
		}
		if day < 1 || day > c.TotalDays {
			t.warn("calendar.days: день %d вне календаря (1..%d)", day, c.TotalDays)
			continue
		}
		if seen[day] {
			t.warn("calendar.days: день %d задан дважды, берём %q", day, key)
		}
		seen[day] = true

		e := c.Days[key]
		out = append(out, calendar.RewardDay{
			Day:         day,
			Coins:       decimal.NewFromFloat(e.Coins),
			XP:          e.XP,
			Items:       e.Items,
			Commands:    e.Commands,
			Description: e.Description,
		})
	}
	return out
}

func (t *Tables) streakSettings(s config.StreakSection) streak.Settings {
	base := decimal.NewFromFloat(s.BaseMultiplier)
	maxMult := decimal.NewFromFloat(s.MaxMultiplier)
	if maxMult.LessThan(base) {
		t.warn("streak.max_multiplier %s меньше base_multiplier %s, используем base", maxMult, base)
		maxMult = base
	}
	return streak.Settings{
		Enabled:             s.Enabled,
		PartialResetOnBreak: s.PartialResetOnBreak,
		PartialResetDivisor: s.PartialResetDivisor,
		BaseMultiplier:      base,
		MultiplierPerDay:    decimal.NewFromFloat(s.MultiplierPerDay),
		MaxMultiplier:       maxMult,
	}
}

func (t *Tables) milestones(s config.StreakSection) []streak.Milestone {
	byDays := make(map[int]streak.Milestone, len(s.Milestones))
	for _, key := range sortedKeys(s.Milestones) {
		days, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || days < 1 {
			t.warn("streak.milestones: некорректный ключ вехи %q", key)
			continue
		}
		if _, dup := byDays[days]; dup {
			t.warn("streak.milestones: веха %d задана дважды, берём %q", days, key)
		}
		m := s.Milestones[key]
		byDays[days] = streak.Milestone{
			Days:             days,
			BonusCoins:       decimal.NewFromFloat(m.BonusCoins),
			BonusXP:          m.BonusXP,
			RewardMultiplier: decimal.NewFromFloat(m.RewardMultiplier),
			Commands:         m.Commands,
			Description:      m.Description,
		}
	}

	out := make([]streak.Milestone, 0, len(byDays))
	for _, m := range byDays {
		out = append(out, m)
	}
	return out
}

func (t *Tables) tiers(r config.ReturnRewardsSection) []returns.Tier {
	out := make([]returns.Tier, 0, len(r.Tiers))
	for i, e := range r.Tiers {
		if e.MinAbsenceDays < 1 || e.MaxAbsenceDays < e.MinAbsenceDays {
			t.warn("return_rewards.tiers[%d]: некорректный диапазон %d..%d", i, e.MinAbsenceDays, e.MaxAbsenceDays)
			continue
		}
		out = append(out, returns.Tier{
			MinAbsenceDays: e.MinAbsenceDays,
			MaxAbsenceDays: e.MaxAbsenceDays,
			Coins:          decimal.NewFromFloat(e.Coins),
			XP:             e.XP,
			Items:          e.Items,
			Commands:       e.Commands,
			Description:    e.Description,
		})
	}
	return out
}

// GameDate возвращает игровую дату момента now с учётом начала дня.
func (t *Tables) GameDate(now time.Time, loc *time.Location) time.Time {
	return common.GameDate(now, loc, t.ResetAt)
}

// Summary — краткое описание таблиц для админки и check-rewards.
func (t *Tables) Summary() string {
	var sb strings.Builder
	s := t.Calendar.Settings()
	fmt.Fprintf(&sb, "📅 Календарь: %d %s, наград настроено: %d\n",
		s.TotalDays, common.PluralizeDays(s.TotalDays), t.Calendar.ConfiguredDays())
	fmt.Fprintf(&sb, "   строгий режим: %s, льготных дней: %d, сброс цикла: %s\n",
		yesNo(s.StrictMode), s.GraceDays, yesNo(s.ResetOnExpiry))

	if t.Streak.Enabled() {
		ss := t.Streak.Settings()
		fmt.Fprintf(&sb, "🔥 Серия: x%s + %s/день, максимум x%s, вех: %d\n",
			ss.BaseMultiplier, ss.MultiplierPerDay, ss.MaxMultiplier, len(t.Streak.Milestones()))
	} else {
		sb.WriteString("🔥 Серия: выключена\n")
	}

	if t.Returns.Enabled() {
		fmt.Fprintf(&sb, "🏠 Награды за возвращение: %d\n", len(t.Returns.Tiers()))
	} else {
		sb.WriteString("🏠 Награды за возвращение: выключены\n")
	}

	fmt.Fprintf(&sb, "🛡 Антиабуз: онлайн %s, пауза %s, лимит в день %d\n",
		t.Limits.MinOnline, t.Limits.Cooldown, t.Limits.MaxClaimsPerDay)
	fmt.Fprintf(&sb, "💎 VIP-уровней: %d\n", len(t.VIPTiers))

	if len(t.Warnings) > 0 {
		fmt.Fprintf(&sb, "⚠️ Предупреждений: %d\n", len(t.Warnings))
		for _, w := range t.Warnings {
			sb.WriteString("   - " + w + "\n")
		}
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "да"
	}
	return "нет"
}
