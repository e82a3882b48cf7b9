package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MintAccount is the source of harness funding. It is the only account
// allowed to carry a negative balance.
const MintAccount = "mint"

// Transaction represents an intent to move value between two accounts
type Transaction struct {
	ID             string
	IdempotencyKey string
	FromAccount    string
	ToAccount      string
	Amount         decimal.Decimal
	CreatedAt      time.Time
}
