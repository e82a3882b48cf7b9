// Package clock provides the time sources the escrow reads deadlines against.
package clock

import (
	"errors"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
)

// ErrBackwards is returned when a manual clock would move into the past.
var ErrBackwards = errors.New("clock cannot move backwards")

// System reads wall-clock time.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Manual is a logical clock advanced explicitly by a harness.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) (time.Time, error) {
	if d < 0 {
		return time.Time{}, ErrBackwards
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now, nil
}

// Set jumps to t, which must not be earlier than the current time.
func (m *Manual) Set(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Before(m.now) {
		return ErrBackwards
	}
	m.now = t
	return nil
}

var (
	_ interfaces.Clock = System{}
	_ interfaces.Clock = (*Manual)(nil)
)
