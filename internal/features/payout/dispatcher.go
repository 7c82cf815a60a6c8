package payout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// activateTimeout — сколько ждать проверки провайдеров при выборе.
const activateTimeout = 5 * time.Second

// ItemSink выдаёт предметы по строкам "id:count". Реализация — inventory.Service.
type ItemSink interface {
	Deliver(ctx context.Context, userID int64, entries []string) error
}

// Dispatcher выдаёт награды через активных провайдеров и записывает их в журнал.
// Реализует rewards.Sink.
type Dispatcher struct {
	Currency *Registry[CurrencyProvider]
	Levels   *Registry[LevelProvider]

	items    ItemSink
	commands *CommandRunner
	ledger   Ledger
}

// NewDispatcher создаёт диспетчер. ledger может быть nil.
func NewDispatcher(items ItemSink, commands *CommandRunner, ledger Ledger) *Dispatcher {
	if ledger == nil {
		ledger = LogLedger{}
	}
	return &Dispatcher{
		Currency: NewRegistry[CurrencyProvider]("currency"),
		Levels:   NewRegistry[LevelProvider]("levels"),
		items:    items,
		commands: commands,
		ledger:   ledger,
	}
}

// SelectProviders выбирает провайдеров пленок и опыта. Вызывается при
// старте и после перезагрузки rewards.toml. Ошибки только логируются:
// выдача без провайдера вернёт common.ErrNoProvider.
func (d *Dispatcher) SelectProviders(currency, level string) {
	ctx, cancel := context.WithTimeout(context.Background(), activateTimeout)
	defer cancel()
	_, _ = d.Currency.Activate(ctx, currency)
	_, _ = d.Levels.Activate(ctx, level)
}

// DepositCurrency начисляет пленки. Сумма ≤ 0 — ничего не делает.
func (d *Dispatcher) DepositCurrency(ctx context.Context, userID int64, amount decimal.Decimal, reason string) error {
	if !amount.IsPositive() {
		return nil
	}
	p, key, err := d.Currency.Active()
	if err != nil {
		return err
	}
	if err := p.Deposit(ctx, userID, amount, reason); err != nil {
		return err
	}

	g := newGrant(userID, "currency", reason)
	g.Provider = key
	g.Coins = amount
	d.record(ctx, g)
	return nil
}

// GrantExperience начисляет опыт. xp ≤ 0 — ничего не делает.
func (d *Dispatcher) GrantExperience(ctx context.Context, userID int64, xp int64, reason string) error {
	if xp <= 0 {
		return nil
	}
	p, key, err := d.Levels.Active()
	if err != nil {
		return err
	}
	if err := p.AddExperience(ctx, userID, xp, reason); err != nil {
		return err
	}

	g := newGrant(userID, "experience", reason)
	g.Provider = key
	g.XP = xp
	d.record(ctx, g)
	return nil
}

// DeliverItems выдаёт предметы.
func (d *Dispatcher) DeliverItems(ctx context.Context, userID int64, items []string) error {
	if len(items) == 0 || d.items == nil {
		return nil
	}
	if err := d.items.Deliver(ctx, userID, items); err != nil {
		return err
	}
	g := newGrant(userID, "items", "")
	g.Details = joinDetails(items)
	d.record(ctx, g)
	return nil
}

// RunCommands выполняет команды награды.
func (d *Dispatcher) RunCommands(ctx context.Context, userID int64, commands []string) error {
	if len(commands) == 0 || d.commands == nil {
		return nil
	}
	if err := d.commands.Run(ctx, userID, commands); err != nil {
		return err
	}
	g := newGrant(userID, "commands", "")
	g.Details = joinDetails(commands)
	d.record(ctx, g)
	return nil
}

// record пишет в журнал. Ошибка журнала не отменяет уже выданную награду.
func (d *Dispatcher) record(ctx context.Context, g Grant) {
	if err := d.ledger.Record(ctx, g); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": g.UserID,
			"sink":    g.Sink,
		}).Error("Награда выдана, но не записана в журнал")
	}
}
