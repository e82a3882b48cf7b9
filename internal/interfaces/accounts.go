package interfaces

import (
	"context"

	"github.com/shopspring/decimal"
)

// Accounts moves value between spendable balances held outside the escrow.
type Accounts interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
}
