package copilot

import (
	"context"
	"sync"
)

// EventBus is a multi-consumer broadcast over PipelineEvent with a
// bounded, per-subscriber ring. Ordering is FIFO per subscriber; under
// backpressure the oldest unread event for that subscriber is dropped so
// a slow consumer never blocks a fast one.
//
// It also fans every published event out to the two out-of-core
// collaborators (persistence, analytics), best-effort and off the
// critical path: a slow or absent sink never delays or drops a
// subscriber's event.
type EventBus struct {
	mu     sync.Mutex
	size   int
	subs   map[int]chan PipelineEvent
	nextID int
	closed bool

	persistence PersistenceSink
	analytics   AnalyticsSink
}

// NewEventBus creates a bus whose subscriber channels are each bounded
// to size events. Persistence and analytics sinks default to no-ops.
func NewEventBus(size int) *EventBus {
	if size <= 0 {
		size = 100
	}
	return &EventBus{
		size:        size,
		subs:        make(map[int]chan PipelineEvent),
		persistence: NoopSink{},
		analytics:   NoopSink{},
	}
}

// SetPersistenceSink wires the out-of-core persistence collaborator.
// Passing nil restores the no-op default.
func (b *EventBus) SetPersistenceSink(sink PersistenceSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sink == nil {
		sink = NoopSink{}
	}
	b.persistence = sink
}

// SetAnalyticsSink wires the out-of-core analytics collaborator.
// Passing nil restores the no-op default.
func (b *EventBus) SetAnalyticsSink(sink AnalyticsSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sink == nil {
		sink = NoopSink{}
	}
	b.analytics = sink
}

// Subscribe registers a new consumer and returns its read channel plus
// an unsubscribe function.
func (b *EventBus) Subscribe() (<-chan PipelineEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan PipelineEvent, b.size)
	b.subs[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, unsub
}

// Publish fans an event out to every subscriber, dropping the oldest
// queued event for any subscriber whose channel is full, then ships the
// same event to the persistence and analytics sinks on their own
// goroutine so a slow or unreachable collaborator never adds latency to
// the pipeline.
func (b *EventBus) Publish(ev PipelineEvent) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	persistence := b.persistence
	analytics := b.analytics

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Drop the oldest queued event for this slow subscriber, then
			// retry once so the newest event is never silently lost.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- ev:
			default:
			}
		}
	}
	b.mu.Unlock()

	go persistence.Send(context.Background(), ev)
	go analytics.Send(context.Background(), ev)
}

// Close shuts the bus down and closes every subscriber channel.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
