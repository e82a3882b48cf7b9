// Package escrow implements the crowdfunding escrow: a goal, a deadline and
// per-contributor holdings taken into custody before the deadline and
// reclaimable after it.
package escrow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/logging"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models/events"
)

// State is the phase of an escrow, derived from the clock.
type State int

const (
	Open State = iota
	Closed
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Policy holds optional rules layered on top of the base escrow.
type Policy struct {
	// BlockRefundWhenGoalReached rejects refunds once RaisedAmount >= Goal.
	BlockRefundWhenGoalReached bool
}

type Config struct {
	Admin    string
	Goal     decimal.Decimal
	Duration time.Duration
	Policy   Policy
	// Custody is the accounts-ledger account holding contributed value.
	// Defaults to "escrow:<admin>".
	Custody string
}

type Deps struct {
	Clock     interfaces.Clock
	Accounts  interfaces.Accounts
	Publisher interfaces.EventPublisher // optional
	Logger    logrus.FieldLogger        // optional
}

// Escrow is a single crowdfunding ledger. All methods are safe for
// concurrent use; mutations are serialized by one mutex.
type Escrow struct {
	admin    string
	goal     decimal.Decimal
	deadline time.Time
	policy   Policy
	custody  string

	clock     interfaces.Clock
	accounts  interfaces.Accounts
	publisher interfaces.EventPublisher
	log       logrus.FieldLogger

	mu               sync.Mutex
	raisedAmount     decimal.Decimal
	contributors     map[string]decimal.Decimal
	noOfContributors int
}

// New constructs an in-memory escrow whose deadline is cfg.Duration after the
// clock's current time. Use Open for an escrow that survives restarts.
func New(cfg Config, deps Deps) (*Escrow, error) {
	e, err := newEscrow(cfg, deps)
	if err != nil {
		return nil, err
	}
	e.logCreated("escrow created")
	return e, nil
}

func newEscrow(cfg Config, deps Deps) (*Escrow, error) {
	if cfg.Admin == "" {
		return nil, ErrInvalidIdentity
	}
	if cfg.Goal.IsNegative() || !cfg.Goal.IsInteger() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidGoal, cfg.Goal)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, cfg.Duration)
	}
	if deps.Clock == nil || deps.Accounts == nil {
		return nil, errMissingDeps
	}
	if cfg.Custody == "" {
		cfg.Custody = "escrow:" + cfg.Admin
	}
	if cfg.Admin == models.MintAccount || cfg.Custody == models.MintAccount {
		return nil, fmt.Errorf("%w: %s is reserved", ErrInvalidIdentity, models.MintAccount)
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}

	e := &Escrow{
		admin:        cfg.Admin,
		goal:         cfg.Goal,
		deadline:     deps.Clock.Now().Add(cfg.Duration),
		policy:       cfg.Policy,
		custody:      cfg.Custody,
		clock:        deps.Clock,
		accounts:     deps.Accounts,
		publisher:    deps.Publisher,
		log:          deps.Logger.WithField("escrow", cfg.Custody),
		raisedAmount: decimal.Zero,
		contributors: make(map[string]decimal.Decimal),
	}
	return e, nil
}

func (e *Escrow) logCreated(msg string) {
	e.log.WithFields(logging.Fields{
		"admin":              e.admin,
		"goal":               e.goal.String(),
		"deadline":           e.deadline,
		"raised":             e.raisedAmount.String(),
		"no_of_contributors": e.noOfContributors,
	}).Info(msg)
}

// Contribute moves amount from caller's account into custody and credits the
// caller's holding. It fails with ErrDeadlinePassed once now >= deadline.
func (e *Escrow) Contribute(ctx context.Context, caller string, amount decimal.Decimal) error {
	if err := e.checkCaller(caller); err != nil {
		return err
	}
	if !amount.IsPositive() || !amount.IsInteger() {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	e.mu.Lock()
	now := e.clock.Now()
	if !now.Before(e.deadline) {
		e.mu.Unlock()
		return ErrDeadlinePassed
	}
	if err := e.accounts.Transfer(ctx, caller, e.custody, amount); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("contribute: %w", err)
	}

	held := e.contributors[caller]
	if held.IsZero() {
		e.noOfContributors++
	}
	e.contributors[caller] = held.Add(amount)
	e.raisedAmount = e.raisedAmount.Add(amount)
	raised := e.raisedAmount
	e.mu.Unlock()

	e.log.WithFields(logging.Fields{
		"contributor": caller,
		"amount":      amount.String(),
		"raised":      raised.String(),
	}).Info("contribution accepted")

	e.publish(ctx, events.TopicContributionReceived, events.ContributionReceived{
		EventID:      uuid.New().String(),
		Contributor:  caller,
		Amount:       amount,
		RaisedAmount: raised,
		OccurredAt:   now,
	})
	return nil
}

// Refund returns caller's entire holding once the deadline has passed and
// reports the amount returned.
func (e *Escrow) Refund(ctx context.Context, caller string) (decimal.Decimal, error) {
	if err := e.checkCaller(caller); err != nil {
		return decimal.Zero, err
	}

	e.mu.Lock()
	now := e.clock.Now()
	if now.Before(e.deadline) {
		e.mu.Unlock()
		return decimal.Zero, ErrNotYetRefundable
	}
	if e.policy.BlockRefundWhenGoalReached && e.raisedAmount.GreaterThanOrEqual(e.goal) {
		e.mu.Unlock()
		return decimal.Zero, ErrGoalReached
	}
	held := e.contributors[caller]
	if !held.IsPositive() {
		e.mu.Unlock()
		return decimal.Zero, ErrNothingToRefund
	}
	if err := e.accounts.Transfer(ctx, e.custody, caller, held); err != nil {
		e.mu.Unlock()
		return decimal.Zero, fmt.Errorf("refund: %w", err)
	}

	delete(e.contributors, caller)
	e.raisedAmount = e.raisedAmount.Sub(held)
	raised := e.raisedAmount
	e.mu.Unlock()

	e.log.WithFields(logging.Fields{
		"contributor": caller,
		"amount":      held.String(),
		"raised":      raised.String(),
	}).Info("refund issued")

	e.publish(ctx, events.TopicRefundIssued, events.RefundIssued{
		EventID:      uuid.New().String(),
		Contributor:  caller,
		Amount:       held,
		RaisedAmount: raised,
		OccurredAt:   now,
	})
	return held, nil
}

// checkCaller rejects identities that are not ordinary accounts: the mint may
// overdraw and custody is the escrow itself.
func (e *Escrow) checkCaller(caller string) error {
	switch caller {
	case "":
		return ErrInvalidIdentity
	case models.MintAccount, e.custody:
		return fmt.Errorf("%w: %s", ErrInvalidIdentity, caller)
	}
	return nil
}

// publish is best effort: the operation has already committed.
func (e *Escrow) publish(ctx context.Context, topic string, event any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, topic, event); err != nil {
		e.log.WithError(err).WithField("topic", topic).Warn("publish event failed")
	}
}
