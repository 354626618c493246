package countdown

import "sync"

// Subscription is an observer of countdown events.
//
// Every session opens with one EventStarted carrying the full duration as
// Remaining, followed by one EventProgress per tick with decreasing Remaining,
// and ends with exactly one EventFired or EventAborted. A zero-length session
// emits no EventProgress at all.
//
// Progress events are latest-wins: an unread progress value is replaced by a
// newer one instead of blocking the tick loop. Terminal events are never
// dropped while the subscription is open, and the engine does not accept a new
// session until every open subscription has received the terminal event.
type Subscription struct {
	engine *Engine
	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Subscribe registers a new observer.
func (engine *Engine) Subscribe() *Subscription {
	sub := &Subscription{
		engine: engine,
		events: make(chan Event, 1),
		done:   make(chan struct{}),
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.current.Load() == closedSession {
		close(sub.events)
		return sub
	}
	engine.subscribers[sub] = struct{}{}
	return sub
}

// Events returns the event stream. It is closed when the engine is closed.
func (sub *Subscription) Events() <-chan Event {
	return sub.events
}

// Close unregisters the observer. Pending terminal deliveries to it are released.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.engine.mu.Lock()
		delete(sub.engine.subscribers, sub)
		sub.engine.mu.Unlock()
		close(sub.done)
	})
}

func (sub *Subscription) offer(event Event) {
	select {
	case <-sub.done:
		return
	default:
	}

	select {
	case sub.events <- event:
		return
	default:
	}

	// Replace the stale value. The tick loop is the only sender, so the
	// second send cannot race with another producer.
	select {
	case <-sub.events:
	default:
	}
	select {
	case sub.events <- event:
	default:
	}
}

func (sub *Subscription) deliver(event Event) {
	select {
	case sub.events <- event:
	case <-sub.done:
	}
}

func (sub *Subscription) closeEvents() {
	close(sub.events)
}
