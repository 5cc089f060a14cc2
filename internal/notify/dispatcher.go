// Package notify turns decided notification intents into timed deliveries:
// the Scheduler validates an intent and computes its trigger time, the
// Dispatcher arms the actual one-shot delivery, and the history store records
// what was scheduled.
package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tanaw/internal/types"
)

// Dispatcher arms timed one-shot deliveries. Implementations must be safe
// for concurrent use.
type Dispatcher interface {
	// Dispatch arms a delivery that fires at triggerAt (immediately when
	// triggerAt is not in the future) and returns its delivery ID.
	Dispatch(ctx context.Context, delivery types.PendingDelivery) (string, error)

	// Cancel disarms a pending delivery. Unknown IDs are not an error;
	// the delivery may already have fired.
	Cancel(ctx context.Context, id string) error

	// CancelAll disarms every pending delivery and returns how many were
	// still armed.
	CancelAll(ctx context.Context) (int, error)

	// ListPending returns the deliveries that have not fired yet, ordered
	// by trigger time.
	ListPending(ctx context.Context) ([]types.PendingDelivery, error)
}

// DeliverFunc is invoked when an armed delivery fires.
type DeliverFunc func(delivery types.PendingDelivery)

// LocalDispatcher arms deliveries with in-process timers. It backs the API
// server directly; a device-side dispatcher implementing the same interface
// would arm platform notifications instead.
type LocalDispatcher struct {
	clock   types.Clock
	deliver DeliverFunc

	mu     sync.Mutex
	armed  map[string]*armedDelivery
	closed bool
}

type armedDelivery struct {
	delivery types.PendingDelivery
	timer    *time.Timer
}

var _ Dispatcher = (*LocalDispatcher)(nil)

// NewLocalDispatcher creates a dispatcher that invokes deliver when a timer
// fires. A nil deliver func makes fired deliveries no-ops, which is enough
// for history-only deployments.
func NewLocalDispatcher(clock types.Clock, deliver DeliverFunc) *LocalDispatcher {
	if clock == nil {
		clock = types.RealClock{}
	}
	return &LocalDispatcher{
		clock:   clock,
		deliver: deliver,
		armed:   make(map[string]*armedDelivery),
	}
}

func (d *LocalDispatcher) Dispatch(_ context.Context, delivery types.PendingDelivery) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", types.NewAppError(types.ErrCodeDispatchFailed, "dispatcher is shut down", nil)
	}

	if delivery.ID == "" {
		delivery.ID = uuid.New().String()
	}

	delay := delivery.TriggerAt.Sub(d.clock.Now())
	if delay < 0 {
		delay = 0
	}

	id := delivery.ID
	entry := &armedDelivery{delivery: delivery}
	entry.timer = time.AfterFunc(delay, func() {
		d.fire(id)
	})
	d.armed[id] = entry

	return id, nil
}

// fire removes the delivery from the armed set and hands it to the deliver
// func. A delivery cancelled after its timer fired but before fire acquired
// the lock is silently dropped.
func (d *LocalDispatcher) fire(id string) {
	d.mu.Lock()
	entry, ok := d.armed[id]
	if ok {
		delete(d.armed, id)
	}
	d.mu.Unlock()

	if ok && d.deliver != nil {
		d.deliver(entry.delivery)
	}
}

func (d *LocalDispatcher) Cancel(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.armed[id]; ok {
		entry.timer.Stop()
		delete(d.armed, id)
	}
	return nil
}

func (d *LocalDispatcher) CancelAll(_ context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := len(d.armed)
	for id, entry := range d.armed {
		entry.timer.Stop()
		delete(d.armed, id)
	}
	return n, nil
}

func (d *LocalDispatcher) ListPending(_ context.Context) ([]types.PendingDelivery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]types.PendingDelivery, 0, len(d.armed))
	for _, entry := range d.armed {
		out = append(out, entry.delivery)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TriggerAt.Equal(out[j].TriggerAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].TriggerAt.Before(out[j].TriggerAt)
	})
	return out, nil
}

// Close disarms all pending deliveries and rejects further dispatches.
func (d *LocalDispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for id, entry := range d.armed {
		entry.timer.Stop()
		delete(d.armed, id)
	}
}
