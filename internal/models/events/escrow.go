package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicContributionReceived = "escrow.contribution_received"
	TopicRefundIssued         = "escrow.refund_issued"
)

// ContributionReceived is published after a contribution is taken into custody.
type ContributionReceived struct {
	EventID      string          `json:"event_id"`
	Contributor  string          `json:"contributor"`
	Amount       decimal.Decimal `json:"amount"`
	RaisedAmount decimal.Decimal `json:"raised_amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// RefundIssued is published after a contributor's holding is returned.
type RefundIssued struct {
	EventID      string          `json:"event_id"`
	Contributor  string          `json:"contributor"`
	Amount       decimal.Decimal `json:"amount"`
	RaisedAmount decimal.Decimal `json:"raised_amount"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Key returns the partition key used by brokers.
func (e ContributionReceived) Key() string { return e.Contributor }

// Key returns the partition key used by brokers.
func (e RefundIssued) Key() string { return e.Contributor }
