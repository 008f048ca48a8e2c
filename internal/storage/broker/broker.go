// Package broker fans store change notifications out to in-process watchers.
package broker

import (
	"context"
	"errors"
	"sync"

	"github.com/julianstephens/rehab/internal/logger"
	"github.com/julianstephens/rehab/internal/storage"
)

// ErrClosed is returned by Subscribe after Close
var ErrClosed = errors.New("broker closed")

const bufferSize = 32

type subscriber struct {
	ref  storage.Ref
	ch   chan storage.Change
	done chan struct{}
	once sync.Once
}

// Broker delivers each published change to every matching subscriber on
// that subscriber's own goroutine. A subscriber that falls behind by more
// than its buffer misses notifications; since a change carries no body,
// the next one it receives still prompts a fresh read.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

// New creates an empty broker
func New() *Broker {
	return &Broker{subs: make(map[uint64]*subscriber)}
}

// Publish delivers c without blocking
func (b *Broker) Publish(c storage.Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		if !s.ref.Matches(c.Ref) {
			continue
		}
		select {
		case s.ch <- c:
		default:
			logger.Debug("Watcher behind, dropping change", "collection", c.Ref.Collection, "id", c.Ref.ID)
		}
	}
}

// Subscribe registers fn for changes matching ref. The returned func
// unsubscribes and is safe to call more than once.
func (b *Broker) Subscribe(ctx context.Context, ref storage.Ref, fn func(storage.Change)) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	id := b.nextID
	b.nextID++
	s := &subscriber{
		ref:  ref,
		ch:   make(chan storage.Change, bufferSize),
		done: make(chan struct{}),
	}
	b.subs[id] = s
	b.mu.Unlock()

	unsubscribe := func() {
		s.once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(s.done)
		})
	}

	go func() {
		for {
			select {
			case c := <-s.ch:
				fn(c)
			case <-s.done:
				return
			case <-ctx.Done():
				unsubscribe()
				return
			}
		}
	}()

	return unsubscribe, nil
}

// Len returns the number of active subscribers
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops every subscriber and rejects new ones
func (b *Broker) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[uint64]*subscriber)
	b.closed = true
	b.mu.Unlock()

	for _, s := range subs {
		s.once.Do(func() { close(s.done) })
	}
}
