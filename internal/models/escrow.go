package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EscrowRecord is the persisted, immutable header of an escrow. Holdings are
// not stored; they are rebuilt from the custody account's transactions.
type EscrowRecord struct {
	Custody                    string
	Admin                      string
	Goal                       decimal.Decimal
	Deadline                   time.Time
	BlockRefundWhenGoalReached bool
	CreatedAt                  time.Time
}
