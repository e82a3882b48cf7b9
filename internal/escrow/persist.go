package escrow

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
)

// Open returns the escrow stored for cfg's custody account, or creates and
// stores a new one. A stored escrow keeps its original admin, goal, deadline
// and policy; holdings are replayed from the custody account's transactions.
func Open(ctx context.Context, cfg Config, deps Deps, store interfaces.EscrowStore, history interfaces.TransactionHistory) (*Escrow, error) {
	if store == nil || history == nil {
		return nil, errMissingDeps
	}
	e, err := newEscrow(cfg, deps)
	if err != nil {
		return nil, err
	}

	rec, found, err := store.LoadEscrow(ctx, e.custody)
	if err != nil {
		return nil, fmt.Errorf("load escrow %s: %w", e.custody, err)
	}
	txs, err := history.TransactionsByAccount(ctx, e.custody)
	if err != nil {
		return nil, fmt.Errorf("load custody history %s: %w", e.custody, err)
	}

	if !found {
		if len(txs) > 0 {
			return nil, fmt.Errorf("%w: custody %s has postings but no stored escrow", ErrUnrecoverableState, e.custody)
		}
		err := store.SaveEscrow(ctx, models.EscrowRecord{
			Custody:                    e.custody,
			Admin:                      e.admin,
			Goal:                       e.goal,
			Deadline:                   e.deadline,
			BlockRefundWhenGoalReached: e.policy.BlockRefundWhenGoalReached,
			CreatedAt:                  e.clock.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("save escrow %s: %w", e.custody, err)
		}
		e.logCreated("escrow created")
		return e, nil
	}

	if !rec.Goal.Equal(cfg.Goal) || rec.Admin != cfg.Admin {
		e.log.WithField("stored_goal", rec.Goal.String()).Warn("configured escrow differs from stored escrow, using stored values")
	}
	e.admin = rec.Admin
	e.goal = rec.Goal
	e.deadline = rec.Deadline
	e.policy = Policy{BlockRefundWhenGoalReached: rec.BlockRefundWhenGoalReached}
	if err := e.replay(txs); err != nil {
		return nil, err
	}
	e.logCreated("escrow restored")
	return e, nil
}

// replay rebuilds holdings from custody postings: transfers into custody are
// contributions, transfers out are refunds.
func (e *Escrow) replay(txs []models.Transaction) error {
	holdings := make(map[string]decimal.Decimal)
	ever := make(map[string]bool)
	for _, tx := range txs {
		switch e.custody {
		case tx.ToAccount:
			if tx.FromAccount == models.MintAccount {
				return fmt.Errorf("%w: custody funded from %s in %s", ErrUnrecoverableState, models.MintAccount, tx.ID)
			}
			holdings[tx.FromAccount] = holdings[tx.FromAccount].Add(tx.Amount)
			ever[tx.FromAccount] = true
		case tx.FromAccount:
			holdings[tx.ToAccount] = holdings[tx.ToAccount].Sub(tx.Amount)
		}
	}

	raised := decimal.Zero
	for id, held := range holdings {
		switch {
		case held.IsNegative():
			return fmt.Errorf("%w: %s was paid %s more than it contributed", ErrUnrecoverableState, id, held.Neg())
		case held.IsZero():
			delete(holdings, id)
		default:
			raised = raised.Add(held)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.contributors = holdings
	e.raisedAmount = raised
	e.noOfContributors = len(ever)
	return nil
}
