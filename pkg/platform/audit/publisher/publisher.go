// Package publisher provides audit event sinks. The Kafka publisher is the
// production sink; the in-memory publisher backs unit tests and local runs
// without a broker.
package publisher

import (
	"context"
	"sync"

	"civitas/pkg/platform/audit"
)

// Publisher emits audit events for security-relevant operations.
type Publisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Memory is an in-memory audit sink. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Emit(_ context.Context, event audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of all emitted events.
func (m *Memory) Events() []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Event{}, m.events...)
}
