package repository

import (
	"context"

	"flightsurety-service/internal/domain/entity"
)

// TransferPrimitive moves value between accounts
type TransferPrimitive interface {
	Transfer(ctx context.Context, from, to entity.Account, amount entity.Money) error
}

// BalanceRestorer is implemented by transfer primitives that keep balances in
// process memory. The ledger sets the escrow balance it rebuilt from the
// journal on startup.
type BalanceRestorer interface {
	Restore(account entity.Account, balance entity.Money)
}
