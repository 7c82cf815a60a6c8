//go:build integration

package payout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RedisSuite проверяет провайдеров Redis на настоящем сервере.
type RedisSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcredis.RedisContainer
	client    *redis.Client
}

func (s *RedisSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.container, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(s.T(), err, "контейнер Redis не запустился")

	host, err := s.container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := s.container.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(s.T(), s.client.Ping(s.ctx).Err())
}

func (s *RedisSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *RedisSuite) SetupTest() {
	require.NoError(s.T(), s.client.FlushAll(s.ctx).Err())
}

func (s *RedisSuite) TestWalletDeposits() {
	w := NewRedisWallet(s.client)
	s.True(w.Available(s.ctx))

	bal, err := w.Balance(s.ctx, 42)
	s.Require().NoError(err)
	s.True(bal.IsZero())

	s.Require().NoError(w.Deposit(s.ctx, 42, decimal.RequireFromString("102.50"), "DailyReward Day 1"))
	s.Require().NoError(w.Deposit(s.ctx, 42, decimal.RequireFromString("0.25"), "DailyReward Day 2"))

	bal, err = w.Balance(s.ctx, 42)
	s.Require().NoError(err)
	s.Equal("102.75", bal.StringFixed(2))
}

func (s *RedisSuite) TestDispatcherFallsBackToRedis() {
	d := NewDispatcher(nil, nil, nil)
	d.Currency.Register("economy", &fakeCurrency{up: false})
	d.Currency.Register("redis", NewRedisWallet(s.client))
	d.Levels.Register("redis", NewRedisXP(s.client))
	d.SelectProviders("economy", "levels")

	s.Require().NoError(d.DepositCurrency(s.ctx, 7, decimal.NewFromInt(300), "StreakMilestone 7 days"))
	s.Require().NoError(d.GrantExperience(s.ctx, 7, 60, "StreakMilestone 7 days"))
	s.Require().NoError(d.GrantExperience(s.ctx, 7, 15, "DailyReward Day 8"))

	xp, err := s.client.HGet(s.ctx, RedisXPKey, "7").Int64()
	s.Require().NoError(err)
	s.Equal(int64(75), xp)

	_, key, err := d.Currency.Active()
	s.Require().NoError(err)
	s.Equal("redis", key)
}

func TestRedisSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("интеграционные тесты пропущены в режиме -short")
	}
	suite.Run(t, new(RedisSuite))
}
