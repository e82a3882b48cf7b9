package escrow

import "errors"

var (
	ErrDeadlinePassed   = errors.New("deadline passed")
	ErrNotYetRefundable = errors.New("not yet refundable")
	ErrNothingToRefund  = errors.New("nothing to refund")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrGoalReached      = errors.New("goal reached, refunds disabled")

	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidGoal     = errors.New("goal must be a non-negative whole amount")
	ErrInvalidIdentity = errors.New("identity is required")
)

var errMissingDeps = errors.New("escrow: clock and accounts are required")

// ErrUnrecoverableState means stored history cannot be replayed into a
// consistent escrow.
var ErrUnrecoverableState = errors.New("escrow state cannot be rebuilt")
