// Package oms implements the process-wide order registry: OrderManager
// from spec.md §4.2. It maps order-id to Order, routes placement to a
// Provider, accepts executions and cancels back, and persists/archives
// terminal orders.
package oms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/epic1st/optioncore/backend/internal/core"
	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/order"
	"github.com/epic1st/optioncore/backend/logging"
	"github.com/epic1st/optioncore/backend/monitoring"
)

// Provider is the minimal surface OrderManager needs from a venue
// connector to route an order. The full Provider interface (spec.md
// §6) lives in package provider; any type satisfying it also satisfies
// this narrower interface, so oms never needs to import provider.
type Provider interface {
	PlaceOrder(ctx context.Context, o *order.Order) error
	CancelOrder(ctx context.Context, orderID uint64) error
}

// IDAllocator supplies the persisted, process-wide order-id counter
// (spec.md §5 "Shared resources"). NextOrderID must have acquire-next
// semantics and be durable across restart.
type IDAllocator interface {
	NextOrderID(ctx context.Context) (uint64, error)
}

// Record is the immutable terminal-order record archived once an
// order reaches a terminal status (spec.md §6 "Persisted state").
type Record struct {
	// ArchiveID is a distinct primary key for the archived row, stamped
	// at archive time rather than reused from OrderID, so the archive
	// table's key doesn't depend on the order-id allocator's scheme.
	ArchiveID    string
	OrderID      uint64
	InstrumentID string
	Side         order.Side
	Type         order.Type
	OrderedQty   int64
	FilledQty    int64
	AveragePrice float64
	Commission   float64
	Status       order.Status
	CreatedAt    time.Time
	SubmittedAt  time.Time
	FilledAt     time.Time
	CancelledAt  time.Time
	Executions   []order.Execution
}

// Archiver persists terminal-order records outside the core.
type Archiver interface {
	Archive(ctx context.Context, rec Record) error
}

// Manager is the OrderManager: a single process-wide registry guarded
// by a plain sync.Mutex (write-heavy on the hot path, matching the
// teacher's oms.Service convention; spec.md §5 "serialises on one
// mutex protecting the active map, delegates fire without the lock").
type Manager struct {
	ids      IDAllocator
	archiver Archiver

	mu     sync.Mutex
	active map[uint64]*order.Order
	// providerOf tracks which Provider owns routing for an active
	// order, so CancelOrder/ReportExecution don't need it passed again.
	providerOf map[uint64]Provider

	OnNoOrderFound *delegate.Delegate[uint64]
}

// NewManager constructs an OrderManager.
func NewManager(ids IDAllocator, archiver Archiver) *Manager {
	return &Manager{
		ids:            ids,
		archiver:       archiver,
		active:         make(map[uint64]*order.Order),
		providerOf:     make(map[uint64]Provider),
		OnNoOrderFound: delegate.New[uint64](),
	}
}

// NextOrderID allocates the next persisted order id, for callers that
// construct the order.Order themselves before calling PlaceOrder.
func (m *Manager) NextOrderID(ctx context.Context) (uint64, error) {
	return m.ids.NextOrderID(ctx)
}

// PlaceOrder asserts o.Status()==Created, marks it Submitted, inserts
// it into the active map, then forwards to provider.PlaceOrder. A
// synchronous provider rejection removes the order from the map and
// marks it Rejected.
func (m *Manager) PlaceOrder(ctx context.Context, p Provider, o *order.Order) error {
	if o.Status() != order.Created {
		return fmt.Errorf("%w: order %d is not in Created status", core.ErrValidation, o.ID())
	}

	o.MarkSubmitted(time.Now())

	m.mu.Lock()
	m.active[o.ID()] = o
	m.providerOf[o.ID()] = p
	m.mu.Unlock()

	if err := p.PlaceOrder(ctx, o); err != nil {
		m.mu.Lock()
		delete(m.active, o.ID())
		delete(m.providerOf, o.ID())
		m.mu.Unlock()

		_ = o.OnError(order.ErrKindRejected)
		monitoring.RecordOrderError(o.Type().String(), "provider_rejection")
		monitoring.RecordOrderStatus(o.Type().String(), o.Status().String())
		wrapped := fmt.Errorf("%w: %v", core.ErrProviderRejection, err)
		logging.TrackError(ctx, wrapped, "high", map[string]interface{}{"order_id": o.ID(), "order_type": o.Type().String()})
		return wrapped
	}
	return nil
}

// CancelOrder forwards a cancel to the order's provider. If the order
// is not in the active map, it fires OnNoOrderFound and returns
// ErrUnknownOrder — the only local failure case per spec.md §4.2.
func (m *Manager) CancelOrder(ctx context.Context, orderID uint64) error {
	m.mu.Lock()
	o, ok := m.active[orderID]
	p := m.providerOf[orderID]
	m.mu.Unlock()

	if !ok {
		m.OnNoOrderFound.Fire(orderID)
		err := fmt.Errorf("%w: order %d", core.ErrUnknownOrder, orderID)
		logging.TrackError(ctx, err, "medium", map[string]interface{}{"order_id": orderID})
		return err
	}
	_ = o
	return p.CancelOrder(ctx, orderID)
}

// ReportExecution dispatches to Order.ReportExecution. If the order
// becomes Filled, it is removed from the active map and archived.
func (m *Manager) ReportExecution(ctx context.Context, orderID uint64, e order.Execution) error {
	m.mu.Lock()
	o, ok := m.active[orderID]
	m.mu.Unlock()
	if !ok {
		m.OnNoOrderFound.Fire(orderID)
		err := fmt.Errorf("%w: order %d", core.ErrUnknownOrder, orderID)
		logging.TrackError(ctx, err, "medium", map[string]interface{}{"order_id": orderID})
		return err
	}

	status, err := o.ReportExecution(e)
	if err != nil {
		logging.TrackError(ctx, err, "critical", map[string]interface{}{"order_id": orderID, "exec_id": e.ExecID})
		return err
	}
	if status == order.Filled {
		m.retireAndArchive(ctx, o)
	}
	return nil
}

// ReportCancel removes the order from the active map, cancels it, and
// archives the terminal record.
func (m *Manager) ReportCancel(ctx context.Context, orderID uint64, ts time.Time) error {
	m.mu.Lock()
	o, ok := m.active[orderID]
	m.mu.Unlock()
	if !ok {
		m.OnNoOrderFound.Fire(orderID)
		return fmt.Errorf("%w: order %d", core.ErrUnknownOrder, orderID)
	}

	if err := o.Cancel(ts); err != nil {
		return err
	}
	m.retireAndArchive(ctx, o)
	return nil
}

func (m *Manager) retireAndArchive(ctx context.Context, o *order.Order) {
	m.mu.Lock()
	delete(m.active, o.ID())
	delete(m.providerOf, o.ID())
	m.mu.Unlock()

	if m.archiver == nil {
		return
	}

	instID := ""
	if inst := o.Instrument(); inst != nil {
		instID = inst.ID()
	}

	monitoring.RecordOrderStatus(o.Type().String(), o.Status().String())
	if o.Status() == order.Filled && !o.SubmittedAt().IsZero() {
		latencyMs := float64(o.FilledAt().Sub(o.SubmittedAt())) / float64(time.Millisecond)
		monitoring.RecordOrderExecution(o.Type().String(), instID, latencyMs)
	}

	rec := Record{
		ArchiveID:    uuid.New().String(),
		OrderID:      o.ID(),
		InstrumentID: instID,
		Side:         o.Side(),
		Type:         o.Type(),
		OrderedQty:   o.OrderedQty(),
		FilledQty:    o.FilledQty(),
		AveragePrice: o.AverageFillPrice(),
		Commission:   o.Commission(),
		Status:       o.Status(),
		CreatedAt:    o.CreatedAt(),
		SubmittedAt:  o.SubmittedAt(),
		FilledAt:     o.FilledAt(),
		CancelledAt:  o.CancelledAt(),
		Executions:   o.Executions(),
	}
	_ = m.archiver.Archive(ctx, rec)
}

// Lookup returns the active order for orderID, if any.
func (m *Manager) Lookup(orderID uint64) (*order.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.active[orderID]
	return o, ok
}

// ActiveCount returns the number of orders currently active.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
