package interfaces

import (
	"context"

	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

type LedgerStore interface {
	TransactionExists(ctx context.Context, idempotencyKey string) (bool, error)
	SaveTransactionWithEntries(ctx context.Context, tx models.Transaction, debit, credit models.LedgerEntry) error
	GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)
	GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)
}
