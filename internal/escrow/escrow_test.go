package escrow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/crowdfunding-escrow/internal/clock"
	evmemory "github.com/sheikh-saqib/crowdfunding-escrow/internal/events/memory"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/ledger"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/logging"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/models/events"
	"github.com/sheikh-saqib/crowdfunding-escrow/internal/storage/memory"
)

const (
	alice = "alice"
	bob   = "bob"
	carol = "carol"
)

var epoch = time.Unix(1_700_000_000, 0).UTC()

type fixture struct {
	clock     *clock.Manual
	accounts  *ledger.Ledger
	publisher *evmemory.Publisher
	escrow    *Escrow
}

func amt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, got.Equal(amt(want)), "want %d, got %s", want, got)
}

// newFixture deploys an escrow from alice and funds alice, bob and carol.
func newFixture(t *testing.T, goal int64, duration time.Duration, policy Policy) *fixture {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewManual(epoch)
	accounts := ledger.NewLedger(memory.NewMemoryLedgerStore(), logging.Discard())
	for _, who := range []string{alice, bob, carol} {
		require.NoError(t, accounts.Fund(ctx, who, amt(1000)))
	}
	pub := evmemory.NewPublisher()

	e, err := New(Config{Admin: alice, Goal: amt(goal), Duration: duration, Policy: policy}, Deps{
		Clock:     clk,
		Accounts:  accounts,
		Publisher: pub,
		Logger:    logging.Discard(),
	})
	require.NoError(t, err)
	return &fixture{clock: clk, accounts: accounts, publisher: pub, escrow: e}
}

func (f *fixture) balance(t *testing.T, who string) decimal.Decimal {
	t.Helper()
	b, err := f.accounts.GetBalance(context.Background(), who)
	require.NoError(t, err)
	return b
}

func (f *fixture) pastDeadline(t *testing.T) {
	t.Helper()
	require.NoError(t, f.clock.Set(f.escrow.Deadline()))
}

func TestNewRecordsAdminGoalAndDeadline(t *testing.T) {
	f := newFixture(t, 100, 10*time.Second, Policy{})
	e := f.escrow

	assert.Equal(t, alice, e.Admin())
	assertAmount(t, 100, e.Goal())
	assertAmount(t, 0, e.RaisedAmount())
	assert.Equal(t, 0, e.NoOfContributors())
	assert.Equal(t, epoch.Add(10*time.Second), e.Deadline())
	assert.Equal(t, Open, e.State())
	assert.Equal(t, "escrow:alice", e.Custody())
}

func TestNewValidation(t *testing.T) {
	deps := Deps{Clock: clock.NewManual(epoch), Accounts: ledger.NewLedger(memory.NewMemoryLedgerStore(), logging.Discard())}
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"empty admin", Config{Goal: amt(1), Duration: time.Second}, ErrInvalidIdentity},
		{"negative goal", Config{Admin: alice, Goal: amt(-1), Duration: time.Second}, ErrInvalidGoal},
		{"fractional goal", Config{Admin: alice, Goal: decimal.RequireFromString("1.5"), Duration: time.Second}, ErrInvalidGoal},
		{"zero duration", Config{Admin: alice, Goal: amt(1)}, ErrInvalidDuration},
		{"negative duration", Config{Admin: alice, Goal: amt(1), Duration: -time.Second}, ErrInvalidDuration},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg, deps)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := New(Config{Admin: alice, Goal: amt(0), Duration: time.Second}, Deps{})
	require.Error(t, err)
}

func TestContribute(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{})
	e := f.escrow

	old := e.RaisedAmount()
	require.NoError(t, e.Contribute(ctx, bob, amt(100)))

	assertAmount(t, 100, e.Contributors(bob))
	assert.Equal(t, 1, e.NoOfContributors())
	assert.True(t, e.RaisedAmount().Equal(old.Add(amt(100))))
	assertAmount(t, 900, f.balance(t, bob))
	assertAmount(t, 100, f.balance(t, e.Custody()))
	assert.True(t, e.GoalReached())

	published := f.publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicContributionReceived, published[0].Topic)
	ev := published[0].Event.(events.ContributionReceived)
	assert.Equal(t, bob, ev.Contributor)
	assertAmount(t, 100, ev.RaisedAmount)
}

func TestRepeatContributionCountsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{})
	e := f.escrow

	require.NoError(t, e.Contribute(ctx, bob, amt(10)))
	require.NoError(t, e.Contribute(ctx, bob, amt(15)))
	require.NoError(t, e.Contribute(ctx, carol, amt(5)))

	assertAmount(t, 25, e.Contributors(bob))
	assert.Equal(t, 2, e.NoOfContributors())
	assertAmount(t, 30, e.RaisedAmount())
}

func TestContributeFailsAfterDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{})
	e := f.escrow
	require.NoError(t, e.Contribute(ctx, bob, amt(100)))

	f.pastDeadline(t)
	assert.Equal(t, Closed, e.State())

	require.ErrorIs(t, e.Contribute(ctx, bob, amt(1)), ErrDeadlinePassed)
	require.ErrorIs(t, e.Contribute(ctx, carol, amt(1)), ErrDeadlinePassed)

	assertAmount(t, 100, e.Contributors(bob))
	assertAmount(t, 0, e.Contributors(carol))
	assert.Equal(t, 1, e.NoOfContributors())
	assertAmount(t, 100, e.RaisedAmount())
	assertAmount(t, 900, f.balance(t, bob))
	assertAmount(t, 1000, f.balance(t, carol))
}

func TestContributeJustBeforeDeadline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{})
	require.NoError(t, f.clock.Set(f.escrow.Deadline().Add(-time.Nanosecond)))
	require.NoError(t, f.escrow.Contribute(ctx, carol, amt(1)))
}

func TestContributeRejectsInvalidAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{})

	for _, a := range []decimal.Decimal{amt(0), amt(-5), decimal.RequireFromString("0.5")} {
		require.ErrorIs(t, f.escrow.Contribute(ctx, bob, a), ErrInvalidAmount)
	}
	require.ErrorIs(t, f.escrow.Contribute(ctx, "", amt(1)), ErrInvalidIdentity)
	assert.Equal(t, 0, f.escrow.NoOfContributors())
}

func TestContributeWithoutFundsLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{})

	err := f.escrow.Contribute(ctx, bob, amt(5000))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assertAmount(t, 0, f.escrow.Contributors(bob))
	assertAmount(t, 0, f.escrow.RaisedAmount())
	assert.Equal(t, 0, f.escrow.NoOfContributors())
	assert.Empty(t, f.publisher.Events())
}

func TestRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 100*time.Second, Policy{})
	e := f.escrow

	require.NoError(t, e.Contribute(ctx, bob, amt(1)))

	_, err := e.Refund(ctx, bob)
	require.ErrorIs(t, err, ErrNotYetRefundable)
	assertAmount(t, 1, e.Contributors(bob))

	f.pastDeadline(t)
	before := f.balance(t, bob)
	refunded, err := e.Refund(ctx, bob)
	require.NoError(t, err)

	assertAmount(t, 1, refunded)
	assertAmount(t, 0, e.Contributors(bob))
	assertAmount(t, 0, e.RaisedAmount())
	assert.Equal(t, 1, e.NoOfContributors())
	assert.True(t, f.balance(t, bob).Equal(before.Add(amt(1))))
	assertAmount(t, 0, f.balance(t, e.Custody()))

	_, err = e.Refund(ctx, bob)
	require.ErrorIs(t, err, ErrNothingToRefund)

	published := f.publisher.Events()
	require.Len(t, published, 2)
	assert.Equal(t, events.TopicRefundIssued, published[1].Topic)
}

func TestRefundNonContributor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, time.Second, Policy{})
	f.pastDeadline(t)

	_, err := f.escrow.Refund(ctx, carol)
	require.ErrorIs(t, err, ErrNothingToRefund)
}

func TestRefundPolicyBlocksWhenGoalReached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, time.Second, Policy{BlockRefundWhenGoalReached: true})
	require.NoError(t, f.escrow.Contribute(ctx, bob, amt(10)))
	f.pastDeadline(t)

	_, err := f.escrow.Refund(ctx, bob)
	require.ErrorIs(t, err, ErrGoalReached)
	assertAmount(t, 10, f.escrow.Contributors(bob))
}

func TestRefundPolicyAllowsWhenGoalMissed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, time.Second, Policy{BlockRefundWhenGoalReached: true})
	require.NoError(t, f.escrow.Contribute(ctx, bob, amt(9)))
	f.pastDeadline(t)

	refunded, err := f.escrow.Refund(ctx, bob)
	require.NoError(t, err)
	assertAmount(t, 9, refunded)
}

func TestRefundWithoutPolicyIgnoresGoal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, time.Second, Policy{})
	require.NoError(t, f.escrow.Contribute(ctx, bob, amt(50)))
	f.pastDeadline(t)

	_, err := f.escrow.Refund(ctx, bob)
	require.NoError(t, err)
}

type failingAccounts struct{ err error }

func (f failingAccounts) Transfer(context.Context, string, string, decimal.Decimal) error {
	return f.err
}

func TestAccountsFailureIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	clk := clock.NewManual(epoch)
	e, err := New(Config{Admin: alice, Goal: amt(10), Duration: time.Second}, Deps{Clock: clk, Accounts: failingAccounts{boom}})
	require.NoError(t, err)

	require.ErrorIs(t, e.Contribute(ctx, bob, amt(1)), boom)
	assertAmount(t, 0, e.RaisedAmount())
	assert.Equal(t, 0, e.NoOfContributors())
}

func TestPublishFailureDoesNotUndoContribution(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, time.Second, Policy{})
	f.publisher.FailWith(errors.New("broker down"))

	require.NoError(t, f.escrow.Contribute(ctx, bob, amt(3)))
	assertAmount(t, 3, f.escrow.Contributors(bob))
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, time.Second, Policy{})
	require.NoError(t, f.escrow.Contribute(ctx, bob, amt(4)))

	snap := f.escrow.Snapshot()
	assert.Equal(t, "open", snap.State)
	assert.Equal(t, 1, snap.NoOfContributors)
	assertAmount(t, 4, snap.Contributors[bob])

	snap.Contributors[bob] = amt(1000)
	assertAmount(t, 4, f.escrow.Contributors(bob))

	f.pastDeadline(t)
	assert.Equal(t, "closed", f.escrow.Snapshot().State)
}

func TestConcurrentContributionsKeepTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1000, time.Hour, Policy{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for _, who := range []string{alice, bob, carol} {
			wg.Add(1)
			go func(who string) {
				defer wg.Done()
				assert.NoError(t, f.escrow.Contribute(ctx, who, amt(2)))
			}(who)
		}
	}
	wg.Wait()

	assertAmount(t, 300, f.escrow.RaisedAmount())
	assert.Equal(t, 3, f.escrow.NoOfContributors())
	assertAmount(t, 300, f.balance(t, f.escrow.Custody()))
}

func TestReservedIdentitiesCannotContributeOrRefund(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 10*time.Second, Policy{BlockRefundWhenGoalReached: true})
	e := f.escrow

	for _, who := range []string{models.MintAccount, e.Custody()} {
		err := e.Contribute(ctx, who, amt(1_000_000))
		require.ErrorIs(t, err, ErrInvalidIdentity, who)
	}
	assertAmount(t, 0, e.RaisedAmount())
	assert.Equal(t, 0, e.NoOfContributors())
	assertAmount(t, -3000, f.balance(t, models.MintAccount))

	// A real contributor below the goal can still get their money back.
	require.NoError(t, e.Contribute(ctx, bob, amt(10)))
	f.pastDeadline(t)
	for _, who := range []string{models.MintAccount, e.Custody()} {
		_, err := e.Refund(ctx, who)
		require.ErrorIs(t, err, ErrInvalidIdentity, who)
	}
	refunded, err := e.Refund(ctx, bob)
	require.NoError(t, err)
	assertAmount(t, 10, refunded)
}

func TestNewRejectsReservedAdmin(t *testing.T) {
	deps := Deps{Clock: clock.NewManual(epoch), Accounts: failingAccounts{}}
	_, err := New(Config{Admin: models.MintAccount, Goal: amt(1), Duration: time.Second}, deps)
	require.ErrorIs(t, err, ErrInvalidIdentity)
	_, err = New(Config{Admin: alice, Custody: models.MintAccount, Goal: amt(1), Duration: time.Second}, deps)
	require.ErrorIs(t, err, ErrInvalidIdentity)
}
