package treasury

import (
	"context"
	"sync"

	"flightsurety-service/internal/domain/entity"
	"flightsurety-service/internal/domain/repository"
	"flightsurety-service/pkg/logger"
)

// Treasury holds account balances in memory and moves value between them.
// It stands in for the settlement layer the ledger instructs.
type Treasury struct {
	mu       sync.Mutex
	balances map[entity.Account]entity.Money
	logger   logger.Logger
}

var _ repository.TransferPrimitive = (*Treasury)(nil)

func New(logger logger.Logger) *Treasury {
	return &Treasury{
		balances: make(map[entity.Account]entity.Money),
		logger:   logger,
	}
}

// Deposit credits an account from outside the ledger and returns the new balance.
func (t *Treasury) Deposit(account entity.Account, amount entity.Money) (entity.Money, error) {
	if amount.IsZero() {
		return entity.Money{}, entity.Errorf(entity.ErrInvalidArgument, "deposit", "amount must be positive")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = t.balances[account].Add(amount)
	t.logger.Info("Deposit credited", "account", account.Hex(), "amount", amount.String())
	return t.balances[account], nil
}

// Restore sets the balance of account, replacing whatever it held.
func (t *Treasury) Restore(account entity.Account, balance entity.Money) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[account] = balance
	t.logger.Info("Balance restored", "account", account.Hex(), "balance", balance.String())
}

func (t *Treasury) Balance(account entity.Account) entity.Money {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balances[account]
}

// Transfer moves amount from one account to another, failing without effect
// when the sender cannot cover it.
func (t *Treasury) Transfer(ctx context.Context, from, to entity.Account, amount entity.Money) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balances[from].Cmp(amount) < 0 {
		return entity.Errorf(entity.ErrInsufficientFunds, "transfer", "%s holds %s, needs %s", from.Hex(), t.balances[from], amount)
	}
	t.balances[from] = t.balances[from].Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	t.logger.Debug("Transfer settled", "from", from.Hex(), "to", to.Hex(), "amount", amount.String())
	return nil
}
