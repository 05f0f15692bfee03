package order

import (
	"errors"
	"testing"
	"time"

	"github.com/epic1st/optioncore/backend/internal/core"
	"github.com/epic1st/optioncore/backend/internal/instrument"
)

func testInstrument() instrument.Instrument {
	return instrument.NewEquity("AAPL", "AAPL", 0.01)
}

func TestNewValidation(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	cases := []struct {
		name      string
		orderType Type
		qty       int64
		price1    float64
		price2    float64
		wantErr   bool
	}{
		{"market ok", Market, 100, 0, 0, false},
		{"zero qty rejected", Market, 0, 0, 0, true},
		{"limit requires price1", Limit, 100, 0, 0, true},
		{"limit ok", Limit, 100, 10.5, 0, false},
		{"stop requires price2", Stop, 100, 0, 0, true},
		{"stop ok", Stop, 100, 0, 9.5, false},
		{"stop-limit requires both", StopLimit, 100, 10, 0, true},
		{"stop-limit ok", StopLimit, 100, 10, 9.5, false},
		{"trail requires price2", Trail, 100, 0, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(1, inst, tc.orderType, Buy, tc.qty, tc.price1, tc.price2, now)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

// Scenario 1: market buy, immediate fill.
func TestScenarioMarketBuyImmediateFill(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	o, err := New(1, inst, Market, Buy, 150, 0, 0, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.MarkSubmitted(now)

	status, err := o.ReportExecution(Execution{ExecID: "1", Price: 100.05, Size: 150, Timestamp: now})
	if err != nil {
		t.Fatalf("ReportExecution: %v", err)
	}
	if status != Filled {
		t.Fatalf("status = %v, want Filled", status)
	}
	if avg := o.AverageFillPrice(); avg != 100.05 {
		t.Fatalf("average = %v, want 100.05", avg)
	}
	if o.RemainingQty() != 0 {
		t.Fatalf("remaining = %d, want 0", o.RemainingQty())
	}
}

// Scenario 2: limit partial, then complete.
func TestScenarioLimitPartialThenComplete(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	o, err := New(1, inst, Limit, Buy, 500, 100.05, 0, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.MarkSubmitted(now)

	status, err := o.ReportExecution(Execution{ExecID: "1", Price: 100.05, Size: 200, Timestamp: now})
	if err != nil {
		t.Fatalf("ReportExecution 1: %v", err)
	}
	if status != PartiallyFilled {
		t.Fatalf("status = %v, want PartiallyFilled", status)
	}
	if o.RemainingQty() != 300 {
		t.Fatalf("remaining = %d, want 300", o.RemainingQty())
	}

	status, err = o.ReportExecution(Execution{ExecID: "2", Price: 100.05, Size: 300, Timestamp: now})
	if err != nil {
		t.Fatalf("ReportExecution 2: %v", err)
	}
	if status != Filled {
		t.Fatalf("status = %v, want Filled", status)
	}
	if avg := o.AverageFillPrice(); avg != 100.05 {
		t.Fatalf("average = %v, want 100.05", avg)
	}
}

// Scenario 6: overfill rejection.
func TestScenarioOverfillRejection(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	o, err := New(1, inst, Limit, Buy, 50, 10, 0, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.MarkSubmitted(now)

	_, err = o.ReportExecution(Execution{ExecID: "1", Price: 10, Size: 60, Timestamp: now})
	if !errors.Is(err, core.ErrOverfill) {
		t.Fatalf("expected ErrOverfill, got %v", err)
	}
	if o.Status() != Rejected {
		t.Fatalf("status = %v, want Rejected", o.Status())
	}
	if o.FilledQty() != 0 {
		t.Fatalf("filled = %d, want 0 (no fill callbacks, no accounting change)", o.FilledQty())
	}
}

func TestFilledPlusRemainingInvariant(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	o, err := New(1, inst, Limit, Buy, 1000, 10, 0, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.MarkSubmitted(now)

	sizes := []int64{100, 250, 50, 600}
	for i, size := range sizes {
		if _, err := o.ReportExecution(Execution{ExecID: string(rune('a' + i)), Price: 10, Size: size, Timestamp: now}); err != nil {
			t.Fatalf("ReportExecution %d: %v", i, err)
		}
		if o.FilledQty()+o.RemainingQty() != o.OrderedQty() {
			t.Fatalf("filled+remaining != ordered after fill %d", i)
		}
	}
	if o.Status() != Filled {
		t.Fatalf("status = %v, want Filled", o.Status())
	}
}

func TestDelegateFiringOrder(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	o, err := New(1, inst, Limit, Buy, 100, 10, 0, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.MarkSubmitted(now)

	var events []string
	o.OnExecution.Add(func(Execution) { events = append(events, "execution") })
	o.OnPartialFill.Add(func(Execution) { events = append(events, "partial") })
	o.OnOrderFilled.Add(func(Execution) { events = append(events, "filled") })

	if _, err := o.ReportExecution(Execution{ExecID: "1", Price: 10, Size: 40, Timestamp: now}); err != nil {
		t.Fatalf("ReportExecution 1: %v", err)
	}
	if _, err := o.ReportExecution(Execution{ExecID: "2", Price: 10, Size: 60, Timestamp: now}); err != nil {
		t.Fatalf("ReportExecution 2: %v", err)
	}

	want := []string{"execution", "partial", "execution", "filled"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events = %v, want %v", events, want)
		}
	}
}

func TestCancelTerminal(t *testing.T) {
	inst := testInstrument()
	now := time.Now()

	o, err := New(1, inst, Limit, Buy, 100, 10, 0, now)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	o.MarkSubmitted(now)

	if _, err := o.ReportExecution(Execution{ExecID: "1", Price: 10, Size: 100, Timestamp: now}); err != nil {
		t.Fatalf("ReportExecution: %v", err)
	}
	if err := o.Cancel(now); !errors.Is(err, core.ErrUnknownOrder) {
		t.Fatalf("expected ErrUnknownOrder cancelling a filled order, got %v", err)
	}
}
