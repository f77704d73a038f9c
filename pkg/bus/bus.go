// Package bus is an in-process publish/subscribe registry for change
// notifications between otherwise unrelated components.
package bus

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Topic names a stream of events.
type Topic string

const (
	// MilestonesChanged fires after a project's milestones were committed.
	MilestonesChanged Topic = "milestones-changed"
	// TasksChanged fires when a project's tasks were edited and derived
	// milestones may be stale.
	TasksChanged Topic = "tasks-changed"
)

// Event is delivered to every subscriber of its topic.
type Event struct {
	Topic     Topic
	ProjectID string
	Payload   any
}

// Handler consumes an event. Errors are logged by the bus and never reach the
// publisher.
type Handler func(ctx context.Context, ev Event) error

type subscription struct {
	id uint64
	h  Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Topic][]subscription
	log    *log.Logger
}

// New returns an empty bus logging through logger.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Bus{subs: make(map[Topic][]subscription), log: logger}
}

var (
	defaultOnce sync.Once
	defaultBus  *Bus
)

// Default is the process-wide bus. It lives as long as the process.
func Default() *Bus {
	defaultOnce.Do(func() {
		defaultBus = New(nil)
	})
	return defaultBus
}

// Subscribe registers h for topic. The returned func removes it and may be
// called any number of times.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, h: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(topic, id) })
	}
}

func (b *Bus) remove(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[topic]
	for i, s := range subs {
		if s.id != id {
			continue
		}
		next := make([]subscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(b.subs, topic)
		} else {
			b.subs[topic] = next
		}
		return
	}
}

// Publish calls every current subscriber of ev.Topic on the caller's
// goroutine. Subscriptions added or removed by a handler take effect from the
// next Publish.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.Lock()
	subs := b.subs[ev.Topic]
	b.mu.Unlock()

	for _, s := range subs {
		if err := b.deliver(ctx, s.h, ev); err != nil {
			b.log.WithError(err).WithFields(log.Fields{
				"topic":   ev.Topic,
				"project": ev.ProjectID,
			}).Warn("bus.handler.failed")
		}
	}
}

func (b *Bus) deliver(ctx context.Context, h Handler, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, ev)
}

// Len reports how many handlers are subscribed to topic.
func (b *Bus) Len(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}
