package escrow

import (
	"time"

	"github.com/shopspring/decimal"
)

func (e *Escrow) Admin() string         { return e.admin }
func (e *Escrow) Goal() decimal.Decimal { return e.goal }
func (e *Escrow) Deadline() time.Time   { return e.deadline }
func (e *Escrow) Custody() string       { return e.custody }

func (e *Escrow) RaisedAmount() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raisedAmount
}

// Contributors returns the amount id currently holds; zero if it never
// contributed or has been refunded.
func (e *Escrow) Contributors(id string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	if held, ok := e.contributors[id]; ok {
		return held
	}
	return decimal.Zero
}

// NoOfContributors counts identities that ever made a first contribution.
// Refunds do not decrease it.
func (e *Escrow) NoOfContributors() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.noOfContributors
}

func (e *Escrow) State() State {
	if e.clock.Now().Before(e.deadline) {
		return Open
	}
	return Closed
}

func (e *Escrow) GoalReached() bool {
	return e.RaisedAmount().GreaterThanOrEqual(e.goal)
}

// Snapshot is a consistent copy of the escrow's state.
type Snapshot struct {
	Admin            string                     `json:"admin"`
	Goal             decimal.Decimal            `json:"goal"`
	Deadline         time.Time                  `json:"deadline"`
	RaisedAmount     decimal.Decimal            `json:"raised_amount"`
	NoOfContributors int                        `json:"no_of_contributors"`
	State            string                     `json:"state"`
	GoalReached      bool                       `json:"goal_reached"`
	Contributors     map[string]decimal.Decimal `json:"contributors,omitempty"`
}

func (e *Escrow) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	holdings := make(map[string]decimal.Decimal, len(e.contributors))
	for id, held := range e.contributors {
		holdings[id] = held
	}
	state := Closed
	if e.clock.Now().Before(e.deadline) {
		state = Open
	}
	return Snapshot{
		Admin:            e.admin,
		Goal:             e.goal,
		Deadline:         e.deadline,
		RaisedAmount:     e.raisedAmount,
		NoOfContributors: e.noOfContributors,
		State:            state.String(),
		GoalReached:      e.raisedAmount.GreaterThanOrEqual(e.goal),
		Contributors:     holdings,
	}
}
