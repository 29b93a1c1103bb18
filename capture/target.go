package capture

import (
	"sync"

	"github.com/google/uuid"
)

const logMsgSubscriberPanicked = "event subscriber panicked, continuing delivery"

// Target is the observer registry behind Store.OnEvent. It notifies
// subscribed callbacks synchronously as events are appended: for a given
// event, callbacks run in the order they were registered; across events,
// delivery follows strict append order.
//
// A panicking callback is recovered and logged; it never blocks or
// corrupts delivery to the remaining subscribers or the appending
// goroutine.
type Target struct {
	mu     sync.RWMutex
	subs   []*Subscription
	logger Logger
}

func newTarget(logger Logger) *Target {
	return &Target{logger: logger}
}

// Subscription is the handle returned when a callback is registered on a
// Target. Cancel removes the callback; it is idempotent.
type Subscription struct {
	id       uuid.UUID
	callback func(Event)
	target   *Target
}

// ID returns the unique identifier of this subscription.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Cancel removes the subscription from its target. Calling Cancel more
// than once is harmless.
func (s *Subscription) Cancel() {
	s.target.off(s.id)
}

func (t *Target) on(callback func(Event)) *Subscription {
	sub := &Subscription{
		id:       uuid.New(),
		callback: callback,
		target:   t,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.subs = append(t.subs, sub)

	return sub
}

func (t *Target) off(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, sub := range t.subs {
		if sub.id == id {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			return
		}
	}
}

// emit delivers one event to every current subscriber. The subscriber list
// is copied first so a callback may register or cancel subscriptions
// without deadlocking; such changes take effect from the next event.
func (t *Target) emit(e Event) {
	t.mu.RLock()
	subs := make([]*Subscription, len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, sub := range subs {
		t.deliver(sub, e)
	}
}

func (t *Target) deliver(sub *Subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error(logMsgSubscriberPanicked,
				"subscription_id", sub.id.String(),
				"panic", r,
			)
		}
	}()

	sub.callback(e)
}
