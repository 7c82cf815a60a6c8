package rewards

import (
	"fmt"
	"time"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// milestoneSoonDays — за сколько дней до вехи напоминать о ней.
const milestoneSoonDays = 3

// loginNotices собирает уведомления при входе. Показываются не чаще раза
// за игровой день: дата показа хранится в LastAutoUIShownDate.
func (s *Service) loginNotices(t *Tables, rec *progress.Record, today time.Time, out *LoginOutcome) []string {
	if common.SameDate(rec.LastAutoUIShownDate, today) {
		return nil
	}
	shown := today
	rec.LastAutoUIShownDate = &shown

	var notices []string
	switch {
	case out.FirstLogin:
		notices = append(notices, "👋 Добро пожаловать! Заходи каждый день и забирай награды календаря: !награды")
	case out.Absence > 0:
		text := fmt.Sprintf("👋 С возвращением! Тебя не было %d %s.", out.Absence, common.PluralizeDays(out.Absence))
		if out.StreakBroken {
			text += fmt.Sprintf(" Серия прервалась, осталось %d.", rec.Streak)
		}
		notices = append(notices, text)
	}

	if tier, ok := t.Returns.PlayerTier(rec); ok {
		desc := tier.Description
		if desc == "" {
			desc = fmt.Sprintf("отсутствие %d+ %s", tier.MinAbsenceDays, common.PluralizeDays(tier.MinAbsenceDays))
		}
		notices = append(notices, fmt.Sprintf("🎁 Тебя ждёт награда за возвращение: %s\nЗабрать: !возврат", desc))
	}

	if t.Calendar.CanClaim(rec, today) {
		if day, ok := t.Calendar.Reward(rec.CurrentDay); ok {
			text := fmt.Sprintf("📅 Доступна награда за день %d: %s", day.Day, describeReward(day.Coins, day.XP, day.Items))
			if t.Limits.MinOnline > 0 {
				text += fmt.Sprintf("\nЗабрать можно через %s в чате: !забрать", formatWait(t.Limits.MinOnline))
			} else {
				text += "\nЗабрать: !забрать"
			}
			notices = append(notices, text)
		}
	}

	if m, ok := t.Streak.NextMilestone(rec.Streak); ok {
		if left := m.Days - rec.Streak; left <= milestoneSoonDays {
			name := m.Description
			if name == "" {
				name = fmt.Sprintf("%d %s подряд", m.Days, common.PluralizeDays(m.Days))
			}
			notices = append(notices, fmt.Sprintf("🔥 До вехи «%s» осталось %d %s", name, left, common.PluralizeDays(left)))
		}
	}
	return notices
}
