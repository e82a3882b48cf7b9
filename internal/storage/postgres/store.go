package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // registers the "postgres" driver

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id              TEXT PRIMARY KEY,
	idempotency_key TEXT NOT NULL UNIQUE,
	from_account    TEXT NOT NULL,
	to_account      TEXT NOT NULL,
	amount          NUMERIC NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS ledger_entries (
	id             TEXT PRIMARY KEY,
	transaction_id TEXT NOT NULL REFERENCES transactions(id),
	account_id     TEXT NOT NULL,
	amount         NUMERIC NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ledger_entries_account_idx ON ledger_entries(account_id);
CREATE TABLE IF NOT EXISTS escrows (
	custody                        TEXT PRIMARY KEY,
	admin                          TEXT NOT NULL,
	goal                           NUMERIC NOT NULL,
	deadline                       TIMESTAMPTZ NOT NULL,
	block_refund_when_goal_reached BOOLEAN NOT NULL,
	created_at                     TIMESTAMPTZ NOT NULL
);
`

type PostgresLedgerStore struct {
	db *sql.DB
}

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{
		db: db,
	}
}

// Migrate creates the tables the store needs if they are missing.
func (p *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *PostgresLedgerStore) TransactionExists(ctx context.Context, idempotencyKey string) (bool, error) {
	const query = `SELECT 1 FROM transactions WHERE idempotency_key = $1 LIMIT 1`

	var exists int
	err := p.db.QueryRowContext(ctx, query, idempotencyKey).Scan(&exists)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (p *PostgresLedgerStore) saveTransaction(ctx context.Context, tx models.Transaction, dbTx *sql.Tx) error {
	const query = `INSERT INTO transactions(id, idempotency_key, from_account, to_account, amount, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := dbTx.ExecContext(ctx, query, tx.ID, tx.IdempotencyKey, tx.FromAccount, tx.ToAccount, tx.Amount, tx.CreatedAt)
	return err
}

func (p *PostgresLedgerStore) saveEntry(ctx context.Context, entry models.LedgerEntry, dbTx *sql.Tx) error {
	const query = `INSERT INTO ledger_entries (id, transaction_id, account_id, amount, created_at)
	VALUES ($1,$2,$3,$4,$5)`

	_, err := dbTx.ExecContext(ctx, query, entry.ID, entry.TransactionID, entry.AccountID, entry.Amount, entry.CreatedAt)
	return err
}

func (p *PostgresLedgerStore) SaveTransactionWithEntries(ctx context.Context, tx models.Transaction, debit models.LedgerEntry, credit models.LedgerEntry) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = p.saveTransaction(ctx, tx, dbTx); err != nil {
		return err
	}
	if err = p.saveEntry(ctx, debit, dbTx); err != nil {
		return err
	}
	if err = p.saveEntry(ctx, credit, dbTx); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (p *PostgresLedgerStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transaction_id, account_id, amount, created_at FROM ledger_entries ORDER BY created_at, id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func (p *PostgresLedgerStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	const query = `SELECT id, transaction_id, account_id, amount, created_at FROM ledger_entries
	WHERE account_id = $1 ORDER BY created_at, id`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		if err := rows.Scan(&entry.ID, &entry.TransactionID, &entry.AccountID, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *PostgresLedgerStore) GetTransactionsByAccount(ctx context.Context, accountID string) ([]models.Transaction, error) {
	const query = `SELECT id, idempotency_key, from_account, to_account, amount, created_at FROM transactions
	WHERE from_account = $1 OR to_account = $1 ORDER BY created_at, id`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.IdempotencyKey, &tx.FromAccount, &tx.ToAccount, &tx.Amount, &tx.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}

func (p *PostgresLedgerStore) LoadEscrow(ctx context.Context, custody string) (models.EscrowRecord, bool, error) {
	const query = `SELECT custody, admin, goal, deadline, block_refund_when_goal_reached, created_at
	FROM escrows WHERE custody = $1`

	var rec models.EscrowRecord
	err := p.db.QueryRowContext(ctx, query, custody).Scan(
		&rec.Custody, &rec.Admin, &rec.Goal, &rec.Deadline, &rec.BlockRefundWhenGoalReached, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.EscrowRecord{}, false, nil
	}
	if err != nil {
		return models.EscrowRecord{}, false, err
	}
	return rec, true, nil
}

func (p *PostgresLedgerStore) SaveEscrow(ctx context.Context, rec models.EscrowRecord) error {
	const query = `INSERT INTO escrows (custody, admin, goal, deadline, block_refund_when_goal_reached, created_at)
	VALUES ($1,$2,$3,$4,$5,$6)`

	_, err := p.db.ExecContext(ctx, query, rec.Custody, rec.Admin, rec.Goal, rec.Deadline, rec.BlockRefundWhenGoalReached, rec.CreatedAt)
	return err
}

var (
	_ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
	_ interfaces.EscrowStore = (*PostgresLedgerStore)(nil)
)
