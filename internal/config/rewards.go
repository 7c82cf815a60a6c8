// Package config — rewards.go описывает TOML-файл с таблицами наград:
// календарь, серии, награды за возвращение, антиабуз и VIP-уровни.
// Файл можно менять на лету, бот перечитывает его без перезапуска.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Rewards — содержимое rewards.toml.
type Rewards struct {
	General       GeneralSection       `toml:"general"`
	Calendar      CalendarSection      `toml:"calendar"`
	Streak        StreakSection        `toml:"streak"`
	ReturnRewards ReturnRewardsSection `toml:"return_rewards"`
	AntiAbuse     AntiAbuseSection     `toml:"anti_abuse"`
	VipTiers      []VipTier            `toml:"vip_tiers"`
}

// GeneralSection — общие настройки модуля наград.
type GeneralSection struct {
	DebugMode               bool   `toml:"debug_mode"`
	Language                string `toml:"language"`
	AutoSaveIntervalMinutes int    `toml:"auto_save_interval_minutes"`
	EconomyProvider         string `toml:"economy_provider"`
	LevelProvider           string `toml:"level_provider"`
}

// CalendarSection — календарь входов. Ключ Days — номер дня строкой ("1", "2", ...).
type CalendarSection struct {
	TotalDays      int                 `toml:"total_days"`
	StrictMode     bool                `toml:"strict_mode"`
	GraceDays      int                 `toml:"grace_days"`
	ResetOnExpiry  bool                `toml:"reset_on_expiry"`
	DailyResetTime string              `toml:"daily_reset_time"`
	Days           map[string]DayEntry `toml:"days"`
}

// DayEntry — награда за один день календаря.
type DayEntry struct {
	Coins       float64  `toml:"coins"`
	XP          int64    `toml:"xp"`
	Items       []string `toml:"items"`
	Commands    []string `toml:"commands"`
	Description string   `toml:"description"`
}

// StreakSection — серия ежедневных наград. Ключ Milestones — длина серии строкой.
type StreakSection struct {
	Enabled             bool                      `toml:"enabled"`
	PartialResetOnBreak bool                      `toml:"partial_reset_on_break"`
	PartialResetDivisor int                       `toml:"partial_reset_divisor"`
	BaseMultiplier      float64                   `toml:"base_multiplier"`
	MultiplierPerDay    float64                   `toml:"multiplier_per_day"`
	MaxMultiplier       float64                   `toml:"max_multiplier"`
	Milestones          map[string]MilestoneEntry `toml:"milestones"`
}

// MilestoneEntry — бонус за достижение длины серии.
type MilestoneEntry struct {
	BonusCoins       float64  `toml:"bonus_coins"`
	BonusXP          int64    `toml:"bonus_xp"`
	RewardMultiplier float64  `toml:"reward_multiplier"`
	Commands         []string `toml:"commands"`
	Description      string   `toml:"description"`
}

// ReturnRewardsSection — награды за возвращение после долгого отсутствия.
type ReturnRewardsSection struct {
	Enabled bool        `toml:"enabled"`
	Tiers   []TierEntry `toml:"tiers"`
}

// TierEntry — диапазон дней отсутствия [min, max] и награда за него.
type TierEntry struct {
	MinAbsenceDays int      `toml:"min_absence_days"`
	MaxAbsenceDays int      `toml:"max_absence_days"`
	Coins          float64  `toml:"coins"`
	XP             int64    `toml:"xp"`
	Items          []string `toml:"items"`
	Commands       []string `toml:"commands"`
	Description    string   `toml:"description"`
}

// AntiAbuseSection — ограничения на получение наград.
// Ноль или отрицательное значение отключает соответствующую проверку.
type AntiAbuseSection struct {
	MinOnlineMinutes     int  `toml:"min_online_minutes"`
	RelogCooldownMinutes int  `toml:"relog_cooldown_minutes"`
	MaxClaimsPerDay      int  `toml:"max_claims_per_day"`
	LogAllRewards        bool `toml:"log_all_rewards"`
}

// VipTier — множитель для игроков с правом Permission. Побеждает первое совпадение.
type VipTier struct {
	Permission  string  `toml:"permission"`
	Multiplier  float64 `toml:"multiplier"`
	DisplayName string  `toml:"display_name"`
}

// DefaultRewards возвращает таблицы наград по умолчанию.
func DefaultRewards() *Rewards {
	cfg := &Rewards{
		General: GeneralSection{
			Language:                "ru",
			AutoSaveIntervalMinutes: 5,
			EconomyProvider:         "economy",
			LevelProvider:           "levels",
		},
		Calendar: CalendarSection{
			TotalDays:      30,
			GraceDays:      2,
			ResetOnExpiry:  true,
			DailyResetTime: "00:00",
			Days:           make(map[string]DayEntry, 30),
		},
		Streak: StreakSection{
			Enabled:             true,
			PartialResetOnBreak: true,
			PartialResetDivisor: 2,
			BaseMultiplier:      1.0,
			MultiplierPerDay:    0.02,
			MaxMultiplier:       3.0,
			Milestones: map[string]MilestoneEntry{
				"7":  {BonusCoins: 500, BonusXP: 200, RewardMultiplier: 1.0, Description: "Неделя без пропусков"},
				"14": {BonusCoins: 1200, BonusXP: 500, RewardMultiplier: 1.0, Description: "Две недели подряд"},
				"30": {BonusCoins: 3000, BonusXP: 1500, RewardMultiplier: 1.0, Description: "Месяц с нами",
					Commands: []string{"say {player} держит серию уже 30 дней!"}},
			},
		},
		ReturnRewards: ReturnRewardsSection{
			Enabled: true,
			Tiers: []TierEntry{
				{MinAbsenceDays: 7, MaxAbsenceDays: 13, Coins: 300, XP: 100, Description: "С возвращением!"},
				{MinAbsenceDays: 14, MaxAbsenceDays: 29, Coins: 700, XP: 250, Description: "Давно не виделись!"},
				{MinAbsenceDays: 30, MaxAbsenceDays: 9999, Coins: 1500, XP: 600, Items: []string{"сундук:1"}, Description: "Мы скучали!"},
			},
		},
		AntiAbuse: AntiAbuseSection{
			MinOnlineMinutes:     5,
			RelogCooldownMinutes: 60,
			MaxClaimsPerDay:      1,
			LogAllRewards:        true,
		},
		VipTiers: []VipTier{
			{Permission: "premium", Multiplier: 1.5, DisplayName: "Premium"},
			{Permission: "vip", Multiplier: 1.25, DisplayName: "VIP"},
		},
	}

	for d := 1; d <= cfg.Calendar.TotalDays; d++ {
		entry := DayEntry{
			Coins:       float64(100 + 25*(d-1)),
			XP:          int64(20 + 5*(d-1)),
			Description: fmt.Sprintf("День %d", d),
		}
		if d%7 == 0 {
			entry.Items = []string{"сундук:1"}
		}
		cfg.Calendar.Days[strconv.Itoa(d)] = entry
	}
	return cfg
}

// LoadRewards читает rewards.toml. Если файла нет — создаёт его из значений по умолчанию.
// Значения, которых нет в файле, берутся из DefaultRewards, кроме таблиц дней и серий:
// их файл задаёт целиком.
func LoadRewards(path string) (*Rewards, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultRewards()
		if err := SaveRewards(path, cfg); err != nil {
			return nil, fmt.Errorf("не удалось создать %s: %w", path, err)
		}
		return cfg, nil
	}

	cfg := DefaultRewards()
	cfg.Calendar.Days = nil
	cfg.Streak.Milestones = nil
	cfg.ReturnRewards.Tiers = nil
	cfg.VipTiers = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// SaveRewards записывает таблицы наград в path.
func SaveRewards(path string, cfg *Rewards) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// Normalize приводит значения к допустимым диапазонам.
func (r *Rewards) Normalize() {
	if r.General.AutoSaveIntervalMinutes < 1 {
		r.General.AutoSaveIntervalMinutes = 1
	}
	if r.Calendar.TotalDays < 1 {
		r.Calendar.TotalDays = 1
	}
	if r.Calendar.GraceDays < 0 {
		r.Calendar.GraceDays = 0
	}
	if r.Streak.PartialResetDivisor < 1 {
		r.Streak.PartialResetDivisor = 1
	}
	if r.AntiAbuse.MinOnlineMinutes < 0 {
		r.AntiAbuse.MinOnlineMinutes = 0
	}

	for k, d := range r.Calendar.Days {
		d.Coins = nonNegative(d.Coins)
		if d.XP < 0 {
			d.XP = 0
		}
		r.Calendar.Days[k] = d
	}
	for k, m := range r.Streak.Milestones {
		m.BonusCoins = nonNegative(m.BonusCoins)
		if m.BonusXP < 0 {
			m.BonusXP = 0
		}
		r.Streak.Milestones[k] = m
	}
	for i := range r.ReturnRewards.Tiers {
		t := &r.ReturnRewards.Tiers[i]
		t.Coins = nonNegative(t.Coins)
		if t.XP < 0 {
			t.XP = 0
		}
		if t.MaxAbsenceDays == 0 {
			t.MaxAbsenceDays = 9999
		}
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
