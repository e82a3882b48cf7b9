package interfaces

import (
	"context"

	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

type EscrowStore interface {
	LoadEscrow(ctx context.Context, custody string) (models.EscrowRecord, bool, error)
	SaveEscrow(ctx context.Context, record models.EscrowRecord) error
}

// TransactionHistory lists every posted transaction touching an account,
// oldest first.
type TransactionHistory interface {
	TransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error)
}
