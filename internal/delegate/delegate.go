// Package delegate provides a small generic multicast callback
// primitive. It generalizes the teacher's repeated "SetXCallback"
// single-subscriber pattern (bbook.Engine's priceCallback, lpmanager's
// connection-state callbacks) into a register/unregister/fire-all type
// that supports more than one subscriber per event.
package delegate

import "sync"

// Handle identifies a registered subscriber so it can be unregistered later.
type Handle uint64

// Delegate is a thread-safe multicast callback list. The zero value is
// not usable; use New.
type Delegate[T any] struct {
	mu   sync.Mutex
	next Handle
	subs map[Handle]func(T)
}

// New creates an empty Delegate.
func New[T any]() *Delegate[T] {
	return &Delegate[T]{subs: make(map[Handle]func(T))}
}

// Add registers fn and returns a handle that can be passed to Remove.
func (d *Delegate[T]) Add(fn func(T)) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	h := d.next
	d.subs[h] = fn
	return h
}

// Remove unregisters the subscriber identified by h. Removing an
// unknown or already-removed handle is a no-op.
func (d *Delegate[T]) Remove(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, h)
}

// Fire invokes every currently registered subscriber with value. The
// lock is not held while subscribers run, so a subscriber may safely
// call Add/Remove on the same Delegate, including removing itself.
func (d *Delegate[T]) Fire(value T) {
	d.mu.Lock()
	fns := make([]func(T), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Len reports the current number of registered subscribers.
func (d *Delegate[T]) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.subs)
}
