package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/logging"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

var (
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameAccount       = errors.New("from and to accounts must differ")
	ErrMissingAccount    = errors.New("account id is required")
)

// Ledger is the double-entry accounts ledger holding every spendable balance.
// Postings go through the store; per-account mutexes serialize balance checks.
type Ledger struct {
	store interfaces.LedgerStore
	log   logrus.FieldLogger
	now   func() time.Time

	muMap map[string]*sync.Mutex // one mutex per account
	mapMu sync.Mutex             // protects muMap
}

// NewLedger creates a Ledger backed by store.
func NewLedger(store interfaces.LedgerStore, log logrus.FieldLogger) *Ledger {
	return &Ledger{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
		muMap: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) getAccountLock(accountID string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[accountID]; !exists {
		l.muMap[accountID] = &sync.Mutex{}
	}
	return l.muMap[accountID]
}

// PostTransaction turns a Transaction into a debit and a credit entry and
// persists them together. Replaying an idempotency key is a no-op.
func (l *Ledger) PostTransaction(ctx context.Context, tx models.Transaction) error {
	if tx.FromAccount == "" || tx.ToAccount == "" {
		return ErrMissingAccount
	}
	if tx.FromAccount == tx.ToAccount {
		return ErrSameAccount
	}
	if tx.Amount.Cmp(decimal.Zero) <= 0 {
		return ErrInvalidAmount
	}
	if tx.IdempotencyKey == "" {
		tx.IdempotencyKey = tx.ID
	}

	debitMutex := l.getAccountLock(tx.FromAccount)
	creditMutex := l.getAccountLock(tx.ToAccount)

	// Lock in order to avoid deadlocks
	if tx.FromAccount < tx.ToAccount {
		debitMutex.Lock()
		creditMutex.Lock()
	} else {
		creditMutex.Lock()
		debitMutex.Lock()
	}
	defer debitMutex.Unlock()
	defer creditMutex.Unlock()

	exists, err := l.store.TransactionExists(ctx, tx.IdempotencyKey)
	if err != nil {
		return err
	}
	if exists {
		l.log.WithField("idempotency_key", tx.IdempotencyKey).Debug("transaction replayed")
		return nil
	}

	if tx.FromAccount != models.MintAccount {
		balance, err := l.balance(ctx, tx.FromAccount)
		if err != nil {
			return err
		}
		if balance.LessThan(tx.Amount) {
			return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientFunds, tx.FromAccount, balance, tx.Amount)
		}
	}

	debit := models.LedgerEntry{
		ID:            tx.ID + "-debit",
		TransactionID: tx.ID,
		AccountID:     tx.FromAccount,
		Amount:        tx.Amount.Neg(),
		CreatedAt:     tx.CreatedAt,
	}
	credit := models.LedgerEntry{
		ID:            tx.ID + "-credit",
		TransactionID: tx.ID,
		AccountID:     tx.ToAccount,
		Amount:        tx.Amount,
		CreatedAt:     tx.CreatedAt,
	}

	if err := l.store.SaveTransactionWithEntries(ctx, tx, debit, credit); err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}

	l.log.WithFields(logging.Fields{
		"transaction_id": tx.ID,
		"from":           tx.FromAccount,
		"to":             tx.ToAccount,
		"amount":         tx.Amount.String(),
	}).Debug("transaction posted")
	return nil
}

// Transfer posts a fresh transaction moving amount from one account to another.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	id := uuid.New().String()
	return l.PostTransaction(ctx, models.Transaction{
		ID:             id,
		IdempotencyKey: id,
		FromAccount:    from,
		ToAccount:      to,
		Amount:         amount,
		CreatedAt:      l.now(),
	})
}

// Fund credits account from the mint.
func (l *Ledger) Fund(ctx context.Context, account string, amount decimal.Decimal) error {
	return l.Transfer(ctx, models.MintAccount, account, amount)
}

func (l *Ledger) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	return l.balance(ctx, accountID)
}

func (l *Ledger) balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	ledgerEntries, err := l.store.GetEntriesByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, ledgerEntry := range ledgerEntries {
		balance = balance.Add(ledgerEntry.Amount)
	}
	return balance, nil
}

func (l *Ledger) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	ledgerEntries, err := l.store.GetLedgerEntries(ctx)
	if err != nil {
		return []models.LedgerEntry{}, err
	}
	return ledgerEntries, nil
}

// TransactionsByAccount returns the postings touching accountID, oldest first.
func (l *Ledger) TransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	return l.store.GetTransactionsByAccount(ctx, accountID)
}

var (
	_ interfaces.Accounts           = (*Ledger)(nil)
	_ interfaces.TransactionHistory = (*Ledger)(nil)
)
