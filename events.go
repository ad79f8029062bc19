package fbclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gofirebird/fbclient/bind"
	"github.com/gofirebird/fbclient/internal/metrics"
)

// EventCollector accumulates occurrence counts for a set of named
// database events. Deliveries arrive on an engine-owned thread; all
// shared state sits behind a mutex. The first delivery after
// registration only establishes the count baseline and is not reported.
type EventCollector struct {
	mu   sync.Mutex
	id   string
	conn *Connection

	names    []string
	counts   map[string]uint32 // accumulated deltas not yet flushed
	baseline map[string]uint32
	primed   bool
	closed   bool

	sub          bind.EventSubscription
	needsRequeue bool
	signal       chan struct{}
}

// NewEventCollector registers interest in the named events. Deliveries
// accumulate until read with Wait or Flush.
func (c *Connection) NewEventCollector(ctx context.Context, names ...string) (*EventCollector, error) {
	c.mu.Lock()
	if err := c.ensureOpen(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if len(names) == 0 {
		return nil, programmingErrf("event collector needs at least one event name")
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			return nil, programmingErrf("duplicate event name %q", n)
		}
		seen[n] = struct{}{}
	}

	ev := &EventCollector{
		id:     uuid.NewString()[:8],
		conn:   c,
		names:  append([]string(nil), names...),
		counts: make(map[string]uint32, len(names)),
		signal: make(chan struct{}, 1),
	}

	epb, err := RenderEPB(nil, ev.names)
	if err != nil {
		return nil, err
	}
	sub, err := c.att.QueueEvents(ctx, epb, ev.deliver)
	if err != nil {
		return nil, wrapStatus("queue events", err)
	}
	ev.mu.Lock()
	ev.sub = sub
	requeue := ev.needsRequeue
	ev.needsRequeue = false
	ev.mu.Unlock()
	if requeue {
		// The registration delivery arrived before the subscription
		// handle was stored; re-arm it now.
		if err := sub.Requeue(ctx); err != nil {
			c.log.Warn("event requeue failed", "events", ev.id, "error", err.Error())
		}
	}

	c.mu.Lock()
	c.events[ev] = struct{}{}
	c.mu.Unlock()
	c.log.Debug("event collector registered", "events", ev.id, "names", names)
	return ev, nil
}

// deliver runs on the engine's callback thread. It must not block.
func (ev *EventCollector) deliver(result []byte) {
	counts, err := ParseEPB(result)
	if err != nil {
		ev.conn.log.Warn("undecodable event delivery", "events", ev.id, "error", err.Error())
		return
	}

	ev.mu.Lock()
	if ev.closed {
		ev.mu.Unlock()
		return
	}
	if !ev.primed {
		// First delivery reports the counts as they stood at
		// registration, not actual occurrences.
		ev.baseline = counts
		ev.primed = true
	} else {
		fired := false
		for _, name := range ev.names {
			if delta := counts[name] - ev.baseline[name]; delta > 0 {
				ev.counts[name] += delta
				fired = true
			}
		}
		ev.baseline = counts
		if fired {
			metrics.RecordEventDelivery()
			select {
			case ev.signal <- struct{}{}:
			default:
			}
		}
	}
	sub := ev.sub
	if sub == nil {
		// Delivery beat the subscription handle; NewEventCollector
		// re-arms once it has stored it.
		ev.needsRequeue = true
		ev.mu.Unlock()
		return
	}
	ev.mu.Unlock()

	// The engine delivers once per registration; re-arm for the next.
	if err := sub.Requeue(context.Background()); err != nil {
		ev.conn.log.Warn("event requeue failed", "events", ev.id, "error", err.Error())
	}
}

// Flush returns the counts accumulated since the last read and resets
// them. Events that did not fire are absent from the result.
func (ev *EventCollector) Flush() map[string]uint32 {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	out := ev.counts
	ev.counts = make(map[string]uint32, len(ev.names))
	select {
	case <-ev.signal:
	default:
	}
	return out
}

// Wait blocks until at least one event fires or ctx is done, then
// returns the accumulated counts.
func (ev *EventCollector) Wait(ctx context.Context) (map[string]uint32, error) {
	ev.mu.Lock()
	if ev.closed {
		ev.mu.Unlock()
		return nil, interfaceErrf("event collector is closed")
	}
	if len(ev.counts) > 0 {
		ev.mu.Unlock()
		return ev.Flush(), nil
	}
	ev.mu.Unlock()

	select {
	case <-ev.signal:
		return ev.Flush(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// Close cancels the subscription. After Close returns no further
// deliveries are observed for this collector. Closing twice is a no-op.
func (ev *EventCollector) Close(ctx context.Context) error {
	ev.mu.Lock()
	if ev.closed {
		ev.mu.Unlock()
		return nil
	}
	ev.closed = true
	sub := ev.sub
	ev.mu.Unlock()

	ev.conn.removeEvents(ev)
	err := sub.Cancel(ctx)
	ev.conn.log.Debug("event collector closed", "events", ev.id)
	return wrapStatus("cancel events", err)
}
