//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/features/economy"
	"serotonyl.ru/rewards-bot/internal/features/inventory"
	"serotonyl.ru/rewards-bot/internal/features/levels"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/payout"
	"serotonyl.ru/rewards-bot/internal/features/progress"
)

// PostgresSuite поднимает PostgreSQL в контейнере и проверяет репозитории на живой схеме.
type PostgresSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool
}

func (s *PostgresSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.container, err = tcpostgres.Run(s.ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("rewards_test"),
		tcpostgres.WithUsername("botuser"),
		tcpostgres.WithPassword("botpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "контейнер PostgreSQL не запустился")

	dsn, err := s.container.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = pgxpool.New(s.ctx, dsn)
	require.NoError(s.T(), err)
	require.NoError(s.T(), RunMigrations(s.ctx, s.pool, Schema))
}

func (s *PostgresSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *PostgresSuite) TestMigrationsAreIdempotent() {
	s.Require().NoError(RunMigrations(s.ctx, s.pool, Schema))

	var n int
	s.Require().NoError(s.pool.QueryRow(s.ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	s.Equal(len(Schema), n)
}

func (s *PostgresSuite) TestProgressRoundTrip() {
	repo := progress.NewPostgresRepository(s.pool)

	_, err := repo.Get(s.ctx, 100)
	s.ErrorIs(err, common.ErrProgressNotFound)

	login := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	rec := progress.NewRecord(100)
	rec.CurrentDay = 4
	rec.Streak = 3
	rec.LongestStreak = 5
	rec.LastLoginDate = &login
	rec.LastClaimDate = &login
	rec.ClaimedDays = progress.NewDaySet(1, 2, 3)
	rec.TotalClaimed = 9
	rec.PendingReturnReward = true
	rec.AbsenceDays = 8
	s.Require().NoError(repo.Upsert(s.ctx, rec))

	got, err := repo.Get(s.ctx, 100)
	s.Require().NoError(err)
	s.Equal(4, got.CurrentDay)
	s.Equal(3, got.Streak)
	s.Equal(5, got.LongestStreak)
	s.Equal([]int{1, 2, 3}, got.ClaimedDays.Sorted())
	s.Require().NotNil(got.LastLoginDate)
	s.True(got.LastLoginDate.Equal(login))
	s.True(got.PendingReturnReward)
	s.Equal(8, got.AbsenceDays)

	rec.Reset()
	s.Require().NoError(repo.Upsert(s.ctx, rec))
	got, err = repo.Get(s.ctx, 100)
	s.Require().NoError(err)
	s.Equal(1, got.CurrentDay)
	s.Nil(got.LastLoginDate)
	s.Empty(got.ClaimedDays)

	all, err := repo.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)

	s.Require().NoError(repo.Delete(s.ctx, 100))
	_, err = repo.Get(s.ctx, 100)
	s.ErrorIs(err, common.ErrProgressNotFound)
}

func (s *PostgresSuite) TestRewardSinks() {
	econ := economy.NewService(economy.NewRepository(s.pool), time.UTC)
	lvl := levels.NewService(levels.NewRepository(s.pool))
	inv := inventory.NewService(inventory.NewRepository(s.pool))

	d := payout.NewDispatcher(inv, nil, payout.NewPostgresLedger(s.pool))
	d.Currency.Register("economy", payout.NewEconomyCurrency(econ))
	d.Levels.Register("levels", payout.NewLevelsXP(lvl))
	d.SelectProviders("economy", "levels")

	s.Require().NoError(d.DepositCurrency(s.ctx, 200, decimal.RequireFromString("102.5"), "DailyReward Day 1"))
	s.Require().NoError(d.DepositCurrency(s.ctx, 200, decimal.NewFromInt(500), "StreakMilestone 7 days"))
	s.Require().NoError(d.GrantExperience(s.ctx, 200, 250, "DailyReward Day 1"))
	s.Require().NoError(d.DeliverItems(s.ctx, 200, []string{"сундук:2", "ключ"}))

	bal, err := econ.GetBalance(s.ctx, 200)
	s.Require().NoError(err)
	s.Equal("602.50", bal.StringFixed(2))

	txs, err := economy.NewRepository(s.pool).GetTransactions(s.ctx, 200, 10)
	s.Require().NoError(err)
	s.Require().Len(txs, 2)
	s.Equal(economy.TxTypeMilestone, txs[0].TransactionType)

	p, err := lvl.Progress(s.ctx, 200)
	s.Require().NoError(err)
	s.Equal(2, p.Level)

	items, err := inv.List(s.ctx, 200)
	s.Require().NoError(err)
	s.ElementsMatch([]inventory.Item{{ID: "сундук", Count: 2}, {ID: "ключ", Count: 1}}, items)

	var grants int
	s.Require().NoError(s.pool.QueryRow(s.ctx, `SELECT COUNT(*) FROM reward_grants WHERE user_id = $1`, 200).Scan(&grants))
	s.Equal(4, grants)
}

func (s *PostgresSuite) TestMembers() {
	svc := members.NewService(members.NewRepository(s.pool), []int64{1})
	s.Require().NoError(svc.HandleNewMember(s.ctx, 1, "boss", "Босс", ""))
	s.Require().NoError(svc.EnsureMember(s.ctx, 2, "anna", "Анна", ""))
	s.Require().NoError(svc.AssignRole(s.ctx, 2, "VIP"))

	perms, err := svc.Permissions(s.ctx, 1)
	s.Require().NoError(err)
	s.Contains(perms, members.PermissionAdmin)

	perms, err = svc.Permissions(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal([]string{"VIP"}, perms)

	m, err := svc.GetByUsername(s.ctx, "@anna")
	s.Require().NoError(err)
	s.Equal(int64(2), m.UserID)
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("интеграционные тесты пропущены в режиме -short")
	}
	suite.Run(t, new(PostgresSuite))
}
