package memory

import (
	"context"
	"fmt"
	"sync"

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// It keeps entries in insertion order and is safe for concurrent use.
type MemoryLedgerStore struct {
	mu           sync.Mutex
	entries      []models.LedgerEntry
	transactions map[string]models.Transaction // keyed by idempotency key
	txLog        []models.Transaction          // insertion order
	escrows      map[string]models.EscrowRecord
}

// NewMemoryLedgerStore creates and returns a new MemoryLedgerStore instance
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		entries:      make([]models.LedgerEntry, 0),
		transactions: make(map[string]models.Transaction),
		escrows:      make(map[string]models.EscrowRecord),
	}
}

func (m *MemoryLedgerStore) TransactionExists(ctx context.Context, idempotencyKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, exists := m.transactions[idempotencyKey]
	return exists, nil
}

// SaveTransactionWithEntries records the transaction and both of its entries
// under a single lock so readers never see half a posting.
func (m *MemoryLedgerStore) SaveTransactionWithEntries(ctx context.Context, tx models.Transaction, debit, credit models.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[tx.IdempotencyKey] = tx
	m.txLog = append(m.txLog, tx)
	m.entries = append(m.entries, debit, credit)
	return nil
}

// GetLedgerEntries returns a copy of all ledger entries stored in memory.
func (m *MemoryLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

func (m *MemoryLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MemoryLedgerStore) GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Transaction
	for _, tx := range m.txLog {
		if tx.FromAccount == accountID || tx.ToAccount == accountID {
			result = append(result, tx)
		}
	}
	return result, nil
}

func (m *MemoryLedgerStore) LoadEscrow(ctx context.Context, custody string) (models.EscrowRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.escrows[custody]
	return rec, ok, nil
}

// SaveEscrow stores a new escrow header. Headers are immutable, so saving a
// custody account twice is an error.
func (m *MemoryLedgerStore) SaveEscrow(ctx context.Context, record models.EscrowRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.escrows[record.Custody]; exists {
		return fmt.Errorf("escrow %s already exists", record.Custody)
	}
	m.escrows[record.Custody] = record
	return nil
}

// Compile-time checks: ensure MemoryLedgerStore implements the store interfaces
var (
	_ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
	_ interfaces.EscrowStore = (*MemoryLedgerStore)(nil)
)
