package memory

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/crowdfunding-escrow/internal/interfaces"
)

// Published is one recorded event.
type Published struct {
	Topic string
	Event any
}

// Publisher keeps events in memory. Used when no broker is configured.
type Publisher struct {
	mu     sync.Mutex
	events []Published
	err    error
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, Published{Topic: topic, Event: event})
	return nil
}

// FailWith makes subsequent Publish calls return err. Pass nil to recover.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Events returns a copy of everything published so far.
func (p *Publisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, len(p.events))
	copy(out, p.events)
	return out
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
