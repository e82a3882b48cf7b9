package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry represents a single ledger record for an account
type LedgerEntry struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"` // positive for credits, negative for debits
	CreatedAt     time.Time       `json:"created_at"`
}
