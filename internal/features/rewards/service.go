// Package rewards — service.go содержит сценарии входа и получения наград.
//
// Операции одного игрока выполняются строго по очереди (lockPlayer),
// разные игроки обрабатываются параллельно.
package rewards

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/config"
	"serotonyl.ru/rewards-bot/internal/features/progress"
	"serotonyl.ru/rewards-bot/internal/features/protection"
)

// DefaultIdleTimeout — после такого простоя следующее сообщение начинает новую сессию.
const DefaultIdleTimeout = 30 * time.Minute

// Options — параметры сервиса наград.
type Options struct {
	ConfigPath  string         // Путь к rewards.toml
	Location    *time.Location // Часовой пояс игрового дня
	IdleTimeout time.Duration
	Clock       Clock
}

type playerLock struct {
	mu   sync.Mutex
	refs int
}

// Service управляет наградами игроков.
type Service struct {
	store *progress.Store
	sink  Sink
	vip   VIPProvider
	gate  *protection.Gate

	configPath  string
	loc         *time.Location
	idleTimeout time.Duration
	clock       Clock
	baseLevel   log.Level

	tables atomic.Pointer[Tables]

	locksMu sync.Mutex
	locks   map[int64]*playerLock

	listenersMu sync.Mutex
	onReload    []func(*Tables)
}

// NewService читает таблицы наград и создаёт сервис.
// vip может быть nil: тогда множитель всегда 1.
func NewService(store *progress.Store, sink Sink, vip VIPProvider, opts Options) (*Service, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}

	s := &Service{
		store:       store,
		sink:        sink,
		vip:         vip,
		configPath:  opts.ConfigPath,
		loc:         opts.Location,
		idleTimeout: opts.IdleTimeout,
		clock:       opts.Clock,
		baseLevel:   log.GetLevel(),
		locks:       make(map[int64]*playerLock),
	}

	t, err := s.load()
	if err != nil {
		return nil, err
	}
	s.gate = protection.NewGate(t.Limits)
	s.apply(t)
	return s, nil
}

// Close останавливает фоновые задачи сервиса.
func (s *Service) Close() {
	s.gate.Close()
}

// Tables возвращает действующие таблицы наград.
func (s *Service) Tables() *Tables {
	return s.tables.Load()
}

// Location возвращает часовой пояс игрового дня.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) load() (*Tables, error) {
	cfg, err := config.LoadRewards(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRewardsConfig, err)
	}
	return Compile(cfg), nil
}

func (s *Service) apply(t *Tables) {
	s.tables.Store(t)
	s.gate.SetLimits(t.Limits)
	if ta, ok := s.vip.(tierAware); ok {
		ta.SetTiers(t.VIPTiers)
	}
	if pa, ok := s.sink.(providerAware); ok {
		pa.SelectProviders(t.EconomyProvider, t.LevelProvider)
	}
	if t.DebugMode {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(s.baseLevel)
	}
}

// Reload перечитывает rewards.toml. При ошибке остаются прежние таблицы.
// Записи игроков не пересоздаются.
func (s *Service) Reload() (*Tables, error) {
	t, err := s.load()
	if err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("Таблицы наград не перезагружены, оставляем прежние")
		return nil, err
	}
	s.apply(t)
	reloadsTotal.WithLabelValues("ok").Inc()

	s.listenersMu.Lock()
	listeners := append(([]func(*Tables))(nil), s.onReload...)
	s.listenersMu.Unlock()
	for _, fn := range listeners {
		fn(t)
	}

	log.WithFields(log.Fields{
		"days":       t.Calendar.ConfiguredDays(),
		"milestones": len(t.Streak.Milestones()),
		"tiers":      len(t.Returns.Tiers()),
		"warnings":   len(t.Warnings),
	}).Info("Таблицы наград перезагружены")
	return t, nil
}

// OnReload подписывает fn на успешные перезагрузки таблиц.
// Так планировщик узнаёт новые auto_save_interval_minutes и daily_reset_time.
func (s *Service) OnReload(fn func(*Tables)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.onReload = append(s.onReload, fn)
}

// lockPlayer захватывает блокировку игрока. Блокировки без владельцев удаляются.
func (s *Service) lockPlayer(userID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &playerLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) seen(rec *progress.Record, now time.Time) {
	rec.LastSeen = now
	s.store.Seen(rec.UserID, now)
}

// beginSession отмечает активность и начинает новую сессию, если её ещё не было,
// игрок молчал дольше idleTimeout или сессия началась в прошлый игровой день.
// Любая команда игрока тоже считается активностью, поэтому вызывается
// из всех операций до проверок антиабуза.
func (s *Service) beginSession(t *Tables, rec *progress.Record, now, today time.Time) bool {
	stale := rec.SessionJoinTime.IsZero() ||
		now.Sub(rec.LastSeen) > s.idleTimeout ||
		t.GameDate(rec.SessionJoinTime, s.loc).Before(today)
	if stale {
		rec.SessionJoinTime = now
	}
	s.seen(rec, now)
	return stale
}

// Touch отмечает активность игрока. Если это начало новой сессии
// (первое сообщение или простой дольше IdleTimeout) или наступил новый
// игровой день, выполняет вход. Иначе возвращает nil.
func (s *Service) Touch(ctx context.Context, userID int64) (*LoginOutcome, error) {
	unlock := s.lockPlayer(userID)
	defer unlock()

	rec, err := s.store.LoadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	t := s.tables.Load()
	today := t.GameDate(now, s.loc)

	newSession := s.beginSession(t, rec, now, today)

	if !newSession && rec.LastLoginDate != nil && !today.After(*rec.LastLoginDate) {
		return nil, nil
	}
	return s.login(ctx, t, rec, now, newSession)
}

// Login начинает новую сессию игрока принудительно (команда !вход).
func (s *Service) Login(ctx context.Context, userID int64) (*LoginOutcome, error) {
	unlock := s.lockPlayer(userID)
	defer unlock()

	rec, err := s.store.LoadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	s.seen(rec, now)
	return s.login(ctx, s.tables.Load(), rec, now, true)
}

func (s *Service) login(ctx context.Context, t *Tables, rec *progress.Record, now time.Time, newSession bool) (*LoginOutcome, error) {
	if newSession {
		rec.SessionJoinTime = now
	}
	out := s.processLogin(t, rec, t.GameDate(now, s.loc))
	out.NewSession = newSession

	if err := s.store.Save(ctx, rec); err != nil {
		return out, fmt.Errorf("прогресс не сохранён после входа: %w", err)
	}
	return out, nil
}

// processLogin выполняет сценарий входа над записью, не сохраняя её:
// календарь считает пропуск, серия рвётся только за пределами льготных дней,
// награда за возвращение назначается при любом пропуске.
func (s *Service) processLogin(t *Tables, rec *progress.Record, today time.Time) *LoginOutcome {
	firstLogin := rec.LastLoginDate == nil
	absence := t.Calendar.ProcessLogin(rec, today)

	broken := false
	if t.Calendar.BreaksStreak(absence) {
		before := rec.Streak
		t.Streak.HandleBreak(rec, absence)
		broken = rec.Streak < before
	}
	if absence > 0 {
		t.Returns.ProcessAbsence(rec, absence)
	}
	loginsTotal.Inc()

	out := &LoginOutcome{
		UserID:        rec.UserID,
		Today:         today,
		FirstLogin:    firstLogin,
		Absence:       absence,
		StreakBroken:  broken,
		CurrentDay:    rec.CurrentDay,
		Streak:        rec.Streak,
		ReturnPending: rec.PendingReturnReward,
	}
	out.Notices = s.loginNotices(t, rec, today, out)

	log.WithFields(log.Fields{
		"user_id": rec.UserID,
		"day":     rec.CurrentDay,
		"streak":  rec.Streak,
		"absence": absence,
	}).Debug("Вход игрока обработан")
	return out
}

// catchUp выполняет вход, если команда пришла в новой сессии или
// игровой день сменился с последнего входа.
func (s *Service) catchUp(t *Tables, rec *progress.Record, today time.Time, newSession bool) *LoginOutcome {
	if !newSession && rec.LastLoginDate != nil && !today.After(*rec.LastLoginDate) {
		return nil
	}
	out := s.processLogin(t, rec, today)
	out.NewSession = newSession
	return out
}

// Claim выдаёт награду текущего дня календаря.
//
// Порядок:
//  1. Антиабуз (время в сессии, пауза, дневной лимит)
//  2. Календарь: день ещё не получен и сегодня наград не было
//  3. Награда дня должна быть настроена
//  4. Серия +1, множители серии и VIP, расчёт сумм, выдача
//  5. День отмечается полученным, запоминается время для паузы
//  6. Если серия достигла вехи, выдаётся бонус вехи
//
// Ошибки выдачи не откатывают прогресс. Ошибка возвращается только если
// прогресс не удалось сохранить.
func (s *Service) Claim(ctx context.Context, userID int64) (*ClaimOutcome, error) {
	unlock := s.lockPlayer(userID)
	defer unlock()

	rec, err := s.store.LoadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	t := s.tables.Load()
	today := t.GameDate(now, s.loc)
	newSession := s.beginSession(t, rec, now, today)

	out := &ClaimOutcome{Login: s.catchUp(t, rec, today, newSession)}
	out.Day = rec.CurrentDay
	out.Streak = rec.Streak

	if reason := s.gate.Check(rec, now, today); reason != protection.ReasonNone {
		out.Denied = DenyReason(reason)
		out.Wait = s.gate.Remaining(rec, reason, now)
		return s.deny(ctx, rec, out)
	}
	if !t.Calendar.CanClaim(rec, today) {
		out.Denied = DenyAlreadyClaimed
		return s.deny(ctx, rec, out)
	}
	day, ok := t.Calendar.Reward(rec.CurrentDay)
	if !ok {
		out.Denied = DenyNoReward
		return s.deny(ctx, rec, out)
	}

	t.Streak.Increment(rec)
	vip := s.vipMultiplier(ctx, userID)
	payout := DayPayout(day, t.Streak.Multiplier(rec.Streak), vip)
	out.Payout = &payout
	out.Failures = s.dispatch(ctx, t, userID, payout)

	t.Calendar.MarkClaimed(rec, rec.CurrentDay, today)
	s.gate.RecordClaim(userID, now)
	out.Streak = rec.Streak

	if m, ok := t.Streak.CheckMilestone(rec.Streak); ok {
		bonus := MilestonePayout(m, vip)
		out.Milestone = &bonus
		out.MilestoneInfo = &m
		out.Failures = append(out.Failures, s.dispatch(ctx, t, userID, bonus)...)
		milestonesTotal.Inc()
	}
	claimsTotal.WithLabelValues("ok").Inc()

	if err := s.store.Save(ctx, rec); err != nil {
		return out, fmt.Errorf("награда выдана, но прогресс не сохранён: %w", err)
	}
	return out, nil
}

func (s *Service) deny(ctx context.Context, rec *progress.Record, out *ClaimOutcome) (*ClaimOutcome, error) {
	claimsTotal.WithLabelValues(string(out.Denied)).Inc()
	log.WithFields(log.Fields{
		"user_id": rec.UserID,
		"day":     rec.CurrentDay,
		"reason":  out.Denied,
	}).Debug("Награда не выдана")

	if out.Login == nil {
		return out, nil
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return out, fmt.Errorf("прогресс не сохранён после входа: %w", err)
	}
	return out, nil
}

// ClaimReturn выдаёт ожидающую награду за возвращение.
// Антиабуз её не ограничивает: она выдаётся не чаще одного раза за пропуск.
func (s *Service) ClaimReturn(ctx context.Context, userID int64) (*ReturnOutcome, error) {
	unlock := s.lockPlayer(userID)
	defer unlock()

	rec, err := s.store.LoadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	t := s.tables.Load()
	today := t.GameDate(now, s.loc)
	newSession := s.beginSession(t, rec, now, today)

	out := &ReturnOutcome{Login: s.catchUp(t, rec, today, newSession)}
	dirty := out.Login != nil

	tier, ok := t.Returns.PlayerTier(rec)
	if !ok {
		out.Denied = DenyNoReturnReward
		if rec.PendingReturnReward {
			// диапазон исчез после перезагрузки таблиц
			log.WithFields(log.Fields{
				"user_id": userID,
				"absence": rec.AbsenceDays,
			}).Warn("Ожидающая награда за возвращение больше не настроена, снимаем")
			t.Returns.MarkClaimed(rec)
			dirty = true
		}
		if dirty {
			if err := s.store.Save(ctx, rec); err != nil {
				return out, fmt.Errorf("прогресс не сохранён: %w", err)
			}
		}
		return out, nil
	}

	payout := ReturnPayout(tier, s.vipMultiplier(ctx, userID))
	out.Tier = &tier
	out.Payout = &payout
	out.Failures = s.dispatch(ctx, t, userID, payout)
	t.Returns.MarkClaimed(rec)
	returnClaimsTotal.Inc()

	if err := s.store.Save(ctx, rec); err != nil {
		return out, fmt.Errorf("награда за возвращение выдана, но прогресс не сохранён: %w", err)
	}
	return out, nil
}

// dispatch передаёт награду в экономику, уровни, инвентарь и команды.
// Ошибки логируются и возвращаются списком, остальные части всё равно выдаются.
func (s *Service) dispatch(ctx context.Context, t *Tables, userID int64, p Payout) []SinkFailure {
	var failures []SinkFailure
	fail := func(sink string, err error) {
		failures = append(failures, SinkFailure{Sink: sink, Err: err})
		sinkFailuresTotal.WithLabelValues(sink).Inc()
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"sink":    sink,
			"reason":  p.Reason,
		}).Error("Часть награды не выдана")
	}

	if p.Coins.IsPositive() {
		if err := s.sink.DepositCurrency(ctx, userID, p.Coins, p.Reason); err != nil {
			fail("currency", err)
		}
	}
	if p.XP > 0 {
		if err := s.sink.GrantExperience(ctx, userID, p.XP, p.Reason); err != nil {
			fail("experience", err)
		}
	}
	if len(p.Items) > 0 {
		if err := s.sink.DeliverItems(ctx, userID, p.Items); err != nil {
			fail("items", err)
		}
	}
	if len(p.Commands) > 0 {
		if err := s.sink.RunCommands(ctx, userID, p.Commands); err != nil {
			fail("commands", err)
		}
	}

	if t.LogAllRewards {
		log.WithFields(log.Fields{
			"user_id": userID,
			"kind":    p.Kind,
			"reason":  p.Reason,
			"coins":   p.Coins.StringFixed(2),
			"xp":      p.XP,
			"vip":     p.VIPMultiplier.String(),
			"streak":  p.StreakMultiplier.String(),
		}).Info("Награда выдана")
	}
	return failures
}

func (s *Service) vipMultiplier(ctx context.Context, userID int64) decimal.Decimal {
	if s.vip == nil {
		return one
	}
	m := s.vip.Multiplier(ctx, userID)
	if m.LessThan(one) {
		return one
	}
	return m
}

// Calendar возвращает календарь игрока с клетками дней.
func (s *Service) Calendar(ctx context.Context, userID int64) (*CalendarView, error) {
	return s.view(ctx, userID, true)
}

// Info возвращает сводку игрока без клеток календаря.
func (s *Service) Info(ctx context.Context, userID int64) (*CalendarView, error) {
	return s.view(ctx, userID, false)
}

func (s *Service) view(ctx context.Context, userID int64, withDays bool) (*CalendarView, error) {
	unlock := s.lockPlayer(userID)
	defer unlock()

	rec, err := s.store.LoadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	t := s.tables.Load()
	today := t.GameDate(now, s.loc)
	s.beginSession(t, rec, now, today)

	v := &CalendarView{
		UserID:           userID,
		Today:            today,
		CurrentDay:       rec.CurrentDay,
		TotalDays:        t.Calendar.TotalDays(),
		Streak:           rec.Streak,
		LongestStreak:    rec.LongestStreak,
		TotalClaimed:     rec.TotalClaimed,
		LastLoginDate:    rec.LastLoginDate,
		StreakEnabled:    t.Streak.Enabled(),
		StreakMultiplier: t.Streak.Multiplier(rec.Streak),
		VIPMultiplier:    s.vipMultiplier(ctx, userID),
		CanClaim:         t.Calendar.CanClaim(rec, today),
	}
	if withDays {
		v.Days = t.Calendar.DayStatuses(rec)
	}
	if m, ok := t.Streak.NextMilestone(rec.Streak); ok {
		v.NextMilestone = &m
		v.DaysToMilestone = m.Days - rec.Streak
	}
	if tier, ok := t.Returns.PlayerTier(rec); ok {
		v.ReturnTier = &tier
	}
	if r, ok := t.Calendar.Reward(rec.CurrentDay); ok {
		v.TodayReward = &r
	}
	if v.CanClaim {
		if reason := s.gate.Check(rec, now, today); reason != protection.ReasonNone {
			v.Blocked = DenyReason(reason)
			v.Wait = s.gate.Remaining(rec, reason, now)
		}
	}
	return v, nil
}

// ResetPlayer обнуляет прогресс игрока, сохраняя его идентификатор.
func (s *Service) ResetPlayer(ctx context.Context, userID int64) (*progress.Record, error) {
	unlock := s.lockPlayer(userID)
	defer unlock()

	rec, err := s.store.Reset(ctx, userID)
	s.gate.Forget(userID)
	if err != nil {
		return rec, err
	}
	log.WithField("user_id", userID).Info("Прогресс наград сброшен")
	return rec, nil
}

// DeletePlayer удаляет прогресс игрока.
func (s *Service) DeletePlayer(ctx context.Context, userID int64) error {
	unlock := s.lockPlayer(userID)
	defer unlock()

	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}
	s.gate.Forget(userID)
	log.WithField("user_id", userID).Info("Прогресс наград удалён")
	return nil
}

// SaveAll сохраняет все изменённые записи. Вызывается автосохранением и при остановке.
func (s *Service) SaveAll(ctx context.Context) (int, error) {
	return s.store.SaveAll(ctx, s.lockPlayer)
}

// EvictIdle выгружает из памяти сохранённые записи игроков, не активных с before.
func (s *Service) EvictIdle(before time.Time) int {
	return s.store.EvictIdle(before)
}
