// Package events provides a small in-process pub/sub bus that decouples
// the decision pipeline from its observers (notifier, audit writer).
package events

import (
	"sync"

	"callscreen/internal/blocker"
)

// Bus fans emitted decisions out to subscribers. Slow subscribers drop
// events instead of stalling the classifier.
type Bus struct {
	mu   sync.RWMutex
	subs []chan *blocker.Decision
}

func NewBus() *Bus { return &Bus{} }

func (b *Bus) Subscribe() <-chan *blocker.Decision {
	ch := make(chan *blocker.Decision, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, ch)
	return ch
}

func (b *Bus) Publish(d *blocker.Decision) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- d:
		default:
		}
	}
}
