package oms

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/epic1st/optioncore/backend/internal/core"
	"github.com/epic1st/optioncore/backend/internal/instrument"
	"github.com/epic1st/optioncore/backend/internal/order"
)

type fakeProvider struct {
	rejectPlace  error
	placed       []uint64
	cancelled    []uint64
}

func (p *fakeProvider) PlaceOrder(ctx context.Context, o *order.Order) error {
	if p.rejectPlace != nil {
		return p.rejectPlace
	}
	p.placed = append(p.placed, o.ID())
	return nil
}

func (p *fakeProvider) CancelOrder(ctx context.Context, orderID uint64) error {
	p.cancelled = append(p.cancelled, orderID)
	return nil
}

func newTestOrder(t *testing.T, m *Manager) *order.Order {
	t.Helper()
	id, err := m.NextOrderID(context.Background())
	if err != nil {
		t.Fatalf("NextOrderID: %v", err)
	}
	inst := instrument.NewEquity("AAPL", "AAPL", 0.01)
	o, err := order.New(id, inst, order.Limit, order.Buy, 100, 10, 0, time.Now())
	if err != nil {
		t.Fatalf("order.New: %v", err)
	}
	return o
}

func TestPlaceOrderSuccess(t *testing.T) {
	m := NewManager(NewInMemoryIDAllocator(0), NewInMemoryArchiver())
	p := &fakeProvider{}
	o := newTestOrder(t, m)

	if err := m.PlaceOrder(context.Background(), p, o); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if o.Status() != order.Submitted {
		t.Fatalf("status = %v, want Submitted", o.Status())
	}
	if _, ok := m.Lookup(o.ID()); !ok {
		t.Fatalf("order not found in active map")
	}
	if len(p.placed) != 1 {
		t.Fatalf("provider.PlaceOrder not called")
	}
}

func TestPlaceOrderRejection(t *testing.T) {
	m := NewManager(NewInMemoryIDAllocator(0), NewInMemoryArchiver())
	p := &fakeProvider{rejectPlace: errors.New("venue down")}
	o := newTestOrder(t, m)

	if err := m.PlaceOrder(context.Background(), p, o); !errors.Is(err, core.ErrProviderRejection) {
		t.Fatalf("expected ErrProviderRejection, got %v", err)
	}
	if o.Status() != order.Rejected {
		t.Fatalf("status = %v, want Rejected", o.Status())
	}
	if _, ok := m.Lookup(o.ID()); ok {
		t.Fatalf("rejected order should not remain active")
	}
}

func TestCancelUnknownOrderFiresNoOrderFound(t *testing.T) {
	m := NewManager(NewInMemoryIDAllocator(0), NewInMemoryArchiver())

	var fired uint64
	m.OnNoOrderFound.Add(func(id uint64) { fired = id })

	err := m.CancelOrder(context.Background(), 999)
	if !errors.Is(err, core.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder, got %v", err)
	}
	if fired != 999 {
		t.Fatalf("OnNoOrderFound fired with %d, want 999", fired)
	}
}

func TestReportExecutionFilledArchivesAndRetires(t *testing.T) {
	archiver := NewInMemoryArchiver()
	m := NewManager(NewInMemoryIDAllocator(0), archiver)
	p := &fakeProvider{}
	o := newTestOrder(t, m)

	if err := m.PlaceOrder(context.Background(), p, o); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	err := m.ReportExecution(context.Background(), o.ID(), order.Execution{
		ExecID: "1", Price: 10, Size: 100, Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("ReportExecution: %v", err)
	}
	if _, ok := m.Lookup(o.ID()); ok {
		t.Fatalf("filled order should be retired from active map")
	}
	if recs := archiver.Records(); len(recs) != 1 || recs[0].OrderID != o.ID() {
		t.Fatalf("expected one archived record for order %d, got %v", o.ID(), recs)
	}
}

func TestReportCancelRetiresAndArchives(t *testing.T) {
	archiver := NewInMemoryArchiver()
	m := NewManager(NewInMemoryIDAllocator(0), archiver)
	p := &fakeProvider{}
	o := newTestOrder(t, m)

	if err := m.PlaceOrder(context.Background(), p, o); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if err := m.ReportCancel(context.Background(), o.ID(), time.Now()); err != nil {
		t.Fatalf("ReportCancel: %v", err)
	}
	if o.Status() != order.Cancelled {
		t.Fatalf("status = %v, want Cancelled", o.Status())
	}
	if _, ok := m.Lookup(o.ID()); ok {
		t.Fatalf("cancelled order should be retired from active map")
	}
	if len(archiver.Records()) != 1 {
		t.Fatalf("expected one archived record")
	}
}
