package application

import (
	"context"
	"sync"

	"github.com/hotelops/backoffice/internal/domain"
)

// Live is a sanitized local projection of a document or a collection.
// Every published value has been through the store's change feed, except
// an optimistic overlay which stays applied only until the next snapshot.
// Subscription errors are sticky: the last good value stays readable and
// the error is cleared by the next snapshot.
type Live[T any] struct {
	mu          sync.RWMutex
	value       T
	ok          bool
	overlay     func(T) T
	err         error
	changed     chan struct{}
	done        chan struct{}
	closed      bool
	unsubscribe domain.Unsubscribe
}

func newLive[T any]() *Live[T] {
	return &Live[T]{
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// SubscribeDocument projects one document through sanitize. onRaw, when
// set, sees every raw snapshot before it is published.
func SubscribeDocument[T any](
	ctx context.Context,
	store domain.DocumentStore,
	path string,
	sanitize func(domain.DocumentSnapshot) T,
	onRaw func(domain.DocumentSnapshot),
) (*Live[T], error) {
	live := newLive[T]()

	unsubscribe, err := store.SubscribeSnapshot(ctx, path, func(snap domain.DocumentSnapshot) {
		if onRaw != nil {
			onRaw(snap)
		}
		live.publish(sanitize(snap))
	}, live.fail)
	if err != nil {
		return nil, err
	}

	live.attach(unsubscribe)
	return live, nil
}

// SubscribeQuery projects the direct children of a collection through sanitize
func SubscribeQuery[T any](
	ctx context.Context,
	store domain.DocumentStore,
	collection string,
	sanitize func(domain.QuerySnapshot) T,
) (*Live[T], error) {
	live := newLive[T]()

	unsubscribe, err := store.SubscribeQuery(ctx, collection, func(snap domain.QuerySnapshot) {
		live.publish(sanitize(snap))
	}, live.fail)
	if err != nil {
		return nil, err
	}

	live.attach(unsubscribe)
	return live, nil
}

// Snapshot returns the current value with any overlay applied. ok is false
// until the first snapshot has arrived.
func (l *Live[T]) Snapshot() (value T, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.ok {
		return value, false
	}
	if l.overlay != nil {
		return l.overlay(l.value), true
	}
	return l.value, true
}

// Err returns the sticky subscription error, if any
func (l *Live[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Changed returns a channel closed on the next change of value or error.
// Take the channel before reading Snapshot to never miss an update.
func (l *Live[T]) Changed() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.changed
}

// Done is closed when the projection is closed
func (l *Live[T]) Done() <-chan struct{} {
	return l.done
}

// Overlay applies fn on top of the confirmed value until the next snapshot
func (l *Live[T]) Overlay(fn func(T) T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.overlay = fn
	l.signalLocked()
}

// ClearOverlay drops a pending overlay, e.g. after the write behind it failed
func (l *Live[T]) ClearOverlay() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.overlay == nil {
		return
	}
	l.overlay = nil
	l.signalLocked()
}

// Close tears down the subscription. Safe to call more than once.
func (l *Live[T]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	unsubscribe := l.unsubscribe
	close(l.done)
	l.signalLocked()
	l.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (l *Live[T]) attach(unsubscribe domain.Unsubscribe) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		unsubscribe()
		return
	}
	l.unsubscribe = unsubscribe
	l.mu.Unlock()
}

func (l *Live[T]) publish(value T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.value = value
	l.ok = true
	l.overlay = nil
	l.err = nil
	l.signalLocked()
}

func (l *Live[T]) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.err = err
	l.signalLocked()
}

func (l *Live[T]) signalLocked() {
	close(l.changed)
	if l.closed {
		// keep Changed returning a closed channel
		return
	}
	l.changed = make(chan struct{})
}
