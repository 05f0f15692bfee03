package matching

import (
	"testing"
	"time"

	"github.com/epic1st/optioncore/backend/internal/instrument"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
	"github.com/epic1st/optioncore/backend/internal/order"
)

func newOrder(t *testing.T, id uint64, typ order.Type, side order.Side, qty int64, p1, p2 float64, ts time.Time) *order.Order {
	t.Helper()
	inst := instrument.NewEquity("AAPL", "AAPL", 0.01)
	o, err := order.New(id, inst, typ, side, qty, p1, p2, ts)
	if err != nil {
		t.Fatalf("order.New: %v", err)
	}
	o.MarkSubmitted(ts)
	return o
}

// Scenario 1: market buy, immediate fill.
func TestEngineMarketBuyImmediateFill(t *testing.T) {
	e := NewEngine("AAPL", 0.01)
	now := time.Now()

	o := newOrder(t, 1, order.Market, order.Buy, 150, 0, 0, now)
	e.Submit(o, now)

	e.OnQuote(marketdata.Quote{BidPrice: 100.00, BidSize: 100, AskPrice: 100.05, AskSize: 200}, now)

	if o.Status() != order.Filled {
		t.Fatalf("status = %v, want Filled", o.Status())
	}
	if avg := o.AverageFillPrice(); avg != 100.05 {
		t.Fatalf("average = %v, want 100.05", avg)
	}
}

// Scenario 2: limit partial, then complete.
func TestEngineLimitPartialThenComplete(t *testing.T) {
	e := NewEngine("AAPL", 0.01)
	now := time.Now()

	o := newOrder(t, 1, order.Limit, order.Buy, 500, 100.05, 0, now)
	e.Submit(o, now)

	e.OnQuote(marketdata.Quote{BidPrice: 100.00, BidSize: 100, AskPrice: 100.05, AskSize: 200}, now)
	if o.Status() != order.PartiallyFilled {
		t.Fatalf("status after tick 1 = %v, want PartiallyFilled", o.Status())
	}
	if o.RemainingQty() != 300 {
		t.Fatalf("remaining after tick 1 = %d, want 300", o.RemainingQty())
	}

	e.OnQuote(marketdata.Quote{BidPrice: 100.00, BidSize: 100, AskPrice: 100.05, AskSize: 400}, now)
	if o.Status() != order.Filled {
		t.Fatalf("status after tick 2 = %v, want Filled", o.Status())
	}
	if avg := o.AverageFillPrice(); avg != 100.05 {
		t.Fatalf("average = %v, want 100.05", avg)
	}
}

// Scenario 3: sell stop activation.
func TestEngineSellStopActivation(t *testing.T) {
	e := NewEngine("AAPL", 0.01)
	now := time.Now()

	// Prime the book with an initial quote so the engine has an NBBO.
	e.OnQuote(marketdata.Quote{BidPrice: 50.00, BidSize: 500, AskPrice: 50.05, AskSize: 500}, now)

	o := newOrder(t, 1, order.Stop, order.Sell, 100, 0, 49.90, now)
	e.Submit(o, now)
	e.OnQuote(marketdata.Quote{BidPrice: 50.00, BidSize: 500, AskPrice: 50.05, AskSize: 500}, now)
	if o.Status() != order.Submitted {
		t.Fatalf("status = %v, want Submitted (not yet triggered)", o.Status())
	}

	e.OnQuote(marketdata.Quote{BidPrice: 49.85, BidSize: 500, AskPrice: 49.90, AskSize: 500}, now)
	if o.Status() != order.Filled {
		t.Fatalf("status = %v, want Filled after stop activation", o.Status())
	}
	if avg := o.AverageFillPrice(); avg != 49.85 {
		t.Fatalf("average = %v, want 49.85", avg)
	}
}

// Scenario 4: delayed cancel races a fill — the fill wins, so the
// cancel finds a terminal order and reports no-order-found.
func TestEngineDelayedCancelRacesFill(t *testing.T) {
	e := NewEngine("AAPL", 0.01)
	e.SetQueueDelay(200 * time.Millisecond)
	t0 := time.Now()

	o := newOrder(t, 1, order.Limit, order.Buy, 100, 100.00, 0, t0)
	e.Submit(o, t0)

	var noOrderFound []uint64
	e.OnNoOrderFound.Add(func(id uint64) { noOrderFound = append(noOrderFound, id) })
	var cancelled []uint64
	e.OnCancelled.Add(func(id uint64) { cancelled = append(cancelled, id) })

	// t=100ms: cancel submitted, effective at t=300ms.
	e.Cancel(1, t0.Add(100*time.Millisecond))

	// t=250ms: quote crosses, order activates (delay elapsed at 200ms)
	// and fills in full before the cancel's delay elapses.
	e.OnQuote(marketdata.Quote{BidPrice: 99.95, BidSize: 100, AskPrice: 100.00, AskSize: 200}, t0.Add(250*time.Millisecond))

	if o.Status() != order.Filled {
		t.Fatalf("status = %v, want Filled", o.Status())
	}

	// t=300ms: cancel becomes due; order is already terminal.
	e.OnQuote(marketdata.Quote{BidPrice: 99.95, BidSize: 100, AskPrice: 100.00, AskSize: 200}, t0.Add(350*time.Millisecond))

	if len(cancelled) != 0 {
		t.Fatalf("expected no OnCancelled firing, got %v", cancelled)
	}
	if len(noOrderFound) != 1 || noOrderFound[0] != 1 {
		t.Fatalf("expected OnNoOrderFound(1), got %v", noOrderFound)
	}
}

// Property: a limit buy at price P never fills above P.
func TestEngineLimitBuyNeverFillsAboveLimit(t *testing.T) {
	e := NewEngine("AAPL", 0.01)
	now := time.Now()

	o := newOrder(t, 1, order.Limit, order.Buy, 100, 100.00, 0, now)
	e.Submit(o, now)

	// Ask above the limit: should not fill.
	e.OnQuote(marketdata.Quote{BidPrice: 99.50, BidSize: 100, AskPrice: 100.10, AskSize: 100}, now)
	if o.Status() != order.Submitted {
		t.Fatalf("status = %v, want Submitted (ask above limit)", o.Status())
	}

	// Ask at the limit: should fill at 100.00, never above.
	e.OnQuote(marketdata.Quote{BidPrice: 99.50, BidSize: 100, AskPrice: 100.00, AskSize: 100}, now)
	if o.Status() != order.Filled {
		t.Fatalf("status = %v, want Filled", o.Status())
	}
	for _, ex := range o.Executions() {
		if ex.Price > 100.00 {
			t.Fatalf("execution price %v exceeds limit 100.00", ex.Price)
		}
	}
}

// Property: FIFO within a price level.
func TestEngineFIFOWithinPriceLevel(t *testing.T) {
	e := NewEngine("AAPL", 0.01)
	now := time.Now()

	first := newOrder(t, 1, order.Limit, order.Buy, 100, 100.00, 0, now)
	second := newOrder(t, 2, order.Limit, order.Buy, 100, 100.00, 0, now)
	e.Submit(first, now)
	e.Submit(second, now)

	e.OnQuote(marketdata.Quote{BidPrice: 99.50, BidSize: 100, AskPrice: 100.00, AskSize: 100}, now)
	if first.Status() != order.Filled {
		t.Fatalf("first order status = %v, want Filled (arrived first)", first.Status())
	}
	if second.Status() == order.Filled {
		t.Fatalf("second order should not be filled yet (ask size exhausted by first)")
	}

	e.OnQuote(marketdata.Quote{BidPrice: 99.50, BidSize: 100, AskPrice: 100.00, AskSize: 100}, now)
	if second.Status() != order.Filled {
		t.Fatalf("second order status = %v, want Filled", second.Status())
	}
}
