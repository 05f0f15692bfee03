package oms

import (
	"context"
	"sync"
	"sync/atomic"
)

// InMemoryIDAllocator is a non-durable IDAllocator for tests and the
// demo binary. It does not survive process restart.
type InMemoryIDAllocator struct {
	counter atomic.Uint64
}

// NewInMemoryIDAllocator returns an allocator that starts issuing ids
// at start+1.
func NewInMemoryIDAllocator(start uint64) *InMemoryIDAllocator {
	a := &InMemoryIDAllocator{}
	a.counter.Store(start)
	return a
}

func (a *InMemoryIDAllocator) NextOrderID(ctx context.Context) (uint64, error) {
	return a.counter.Add(1), nil
}

// InMemoryArchiver is a non-durable Archiver for tests and the demo
// binary; it keeps terminal records in a slice for later inspection.
type InMemoryArchiver struct {
	mu      sync.Mutex
	records []Record
}

// NewInMemoryArchiver returns an empty in-memory archiver.
func NewInMemoryArchiver() *InMemoryArchiver {
	return &InMemoryArchiver{}
}

func (a *InMemoryArchiver) Archive(ctx context.Context, rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

// Records returns a copy of all archived records, in archive order.
func (a *InMemoryArchiver) Records() []Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}
