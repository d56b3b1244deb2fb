// Package bus announces persisted config content to interested parties.
package bus

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/moyoez/devconf/tool"
	"github.com/moyoez/devconf/types"
)

var ErrUnknownTopic = errors.New("unknown topic")

// Handler receives one event. A returned error is logged and does not affect other handlers.
type Handler func(event types.ContentUpdateEvent) error

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus     *Bus
	id      uint64
	topic   types.Category // empty for every topic
	handler Handler
	active  atomic.Bool
}

// Unsubscribe stops delivery to the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || !s.active.Swap(false) {
		return
	}
	s.bus.remove(s.id)
}

// Topic returns the subscribed category, empty for SubscribeAll.
func (s *Subscription) Topic() types.Category {
	return s.topic
}

func (s *Subscription) matches(topic types.Category) bool {
	return s.topic == "" || s.topic == topic
}

// Bus fans out ContentUpdateEvents to subscribers synchronously, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []*Subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler for one category.
func (b *Bus) Subscribe(topic types.Category, handler Handler) (*Subscription, error) {
	if !topic.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
	return b.add(topic, handler), nil
}

// SubscribeAll registers handler for every category.
func (b *Bus) SubscribeAll(handler Handler) *Subscription {
	return b.add("", handler)
}

func (b *Bus) add(topic types.Category, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	s := &Subscription{bus: b, id: b.nextID, topic: topic, handler: handler}
	s.active.Store(true)
	b.subs = append(b.subs, s)
	return s
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers content to every current subscriber of topic before returning.
func (b *Bus) Publish(topic types.Category, content string) error {
	return b.PublishEvent(types.ContentUpdateEvent{Category: topic, Content: content})
}

// PublishEvent is Publish for a prepared event. It returns the first unknown-topic error only;
// handler failures are isolated and logged.
func (b *Bus) PublishEvent(event types.ContentUpdateEvent) error {
	if !event.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTopic, event.Category)
	}

	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matches(event.Category) {
			subs = append(subs, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		deliver(s, event)
	}
	return nil
}

func deliver(s *Subscription, event types.ContentUpdateEvent) {
	defer func() {
		if r := recover(); r != nil {
			tool.DefaultLogger.Errorf("bus: subscriber %d panicked on %s: %v\n%s", s.id, event.Category, r, debug.Stack())
		}
	}()
	if err := s.handler(event); err != nil {
		tool.DefaultLogger.Warnf("bus: subscriber %d failed on %s: %v", s.id, event.Category, err)
	}
}

// Subscribers returns how many subscriptions would receive topic.
func (b *Bus) Subscribers(topic types.Category) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, s := range b.subs {
		if s.matches(topic) {
			n++
		}
	}
	return n
}
