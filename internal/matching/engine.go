// Package matching implements SimulatedMatchingEngine: a per-instrument
// venue simulator that matches submitted orders against observed Quote
// and Trade events, for backtesting and paper trading (spec.md §4.3).
package matching

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/epic1st/optioncore/backend/internal/core"
	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
	"github.com/epic1st/optioncore/backend/internal/order"
	"github.com/epic1st/optioncore/backend/monitoring"
)

// nextExecID is the process-wide monotonic execution counter shared by
// every Engine instance, grounded on original_source's
// SimulateOrderExecution.h static int m_nExecId: spec.md §4.3 calls it
// an "engine-wide counter" but the original source shares one counter
// across every per-symbol engine, not one per engine.
var nextExecID atomic.Uint64

// FillEvent is delivered to OnFill for every Execution the engine produces.
type FillEvent struct {
	OrderID   uint64
	Execution order.Execution
}

// CommissionEvent is delivered to OnCommission once per order, on its final fill.
type CommissionEvent struct {
	OrderID uint64
	Amount  float64
}

type delayedSubmit struct {
	submittedAt time.Time
	o           *order.Order
}

type delayedCancel struct {
	submittedAt time.Time
	orderID     uint64
}

// Engine is SimulatedMatchingEngine: one per instrument/symbol. It is
// single-threaded per spec.md §5 — callers must externally serialize
// Submit/Cancel/OnQuote/OnTrade, typically via one dispatch goroutine
// per symbol.
type Engine struct {
	symbol   string
	tickSize float64

	queueDelay     time.Duration
	commissionRate float64

	bids      *book // buy limits, highest price first
	asks      *book // sell limits, lowest price first
	buyStops  *book // activates when ask/last-trade >= price
	sellStops *book // activates when bid/last-trade <= price

	marketBuys  []*order.Order
	marketSells []*order.Order

	delayQueue  []delayedSubmit
	cancelQueue []delayedCancel

	// ordersByID tracks every order this engine knows about that is not
	// yet terminal, regardless of which structure currently holds it
	// (a book, a stop book, a market queue, or still the delay queue).
	ordersByID map[uint64]*order.Order

	lastQuote marketdata.Quote
	haveQuote bool
	lastTrade marketdata.Trade
	haveTrade bool

	OnFill         *delegate.Delegate[FillEvent]
	OnCancelled    *delegate.Delegate[uint64]
	OnCommission   *delegate.Delegate[CommissionEvent]
	OnNoOrderFound *delegate.Delegate[uint64]
}

// NewEngine constructs a matching engine for one instrument.
func NewEngine(symbol string, tickSize float64) *Engine {
	if tickSize <= 0 {
		tickSize = core.DefaultTickSize
	}
	return &Engine{
		symbol:   symbol,
		tickSize: tickSize,

		bids:      newBook(true),
		asks:      newBook(false),
		buyStops:  newBook(false),
		sellStops: newBook(true),

		ordersByID: make(map[uint64]*order.Order),

		OnFill:         delegate.New[FillEvent](),
		OnCancelled:    delegate.New[uint64](),
		OnCommission:   delegate.New[CommissionEvent](),
		OnNoOrderFound: delegate.New[uint64](),
	}
}

// SetQueueDelay sets the submission/cancel activation delay.
func (e *Engine) SetQueueDelay(d time.Duration) { e.queueDelay = d }

// SetCommission sets the per-share commission rate.
func (e *Engine) SetCommission(rate float64) { e.commissionRate = rate }

// Submit enqueues an order for delayed activation. now is the
// submission time used for the queue-delay calculation, not the
// order's CreatedAt.
func (e *Engine) Submit(o *order.Order, now time.Time) {
	e.ordersByID[o.ID()] = o
	e.delayQueue = append(e.delayQueue, delayedSubmit{submittedAt: now, o: o})
	monitoring.SetMatchingQueueDepth(e.symbol, "delay", len(e.delayQueue))
}

// Cancel enqueues a delayed cancel request for orderID.
func (e *Engine) Cancel(orderID uint64, now time.Time) {
	e.cancelQueue = append(e.cancelQueue, delayedCancel{submittedAt: now, orderID: orderID})
	monitoring.SetMatchingQueueDepth(e.symbol, "cancel", len(e.cancelQueue))
}

// OnQuote processes one NBBO observation through the full pipeline:
// delayed cancels -> delayed submits -> stop activation -> market sweep
// -> limit matching against the new quote.
func (e *Engine) OnQuote(q marketdata.Quote, now time.Time) {
	e.processCancelQueue(now)
	e.processDelayQueue(now)
	e.activateStopsOnThreshold(e.ticks(q.AskPrice), e.ticks(q.BidPrice), now)
	e.lastQuote = q
	e.haveQuote = true
	e.sweepMarket(now)
	e.matchBidsAgainstAsk(q.AskPrice, q.AskSize, now)
	e.matchAsksAgainstBid(q.BidPrice, q.BidSize, now)
}

// OnTrade processes one trade print. Per spec.md §4.3 it additionally
// drives limit-vs-trade matching, fixed (per spec.md §9's open
// question) to run after the quote-driven steps within the same event.
func (e *Engine) OnTrade(tr marketdata.Trade, now time.Time) {
	e.processCancelQueue(now)
	e.processDelayQueue(now)
	tradeTicks := e.ticks(tr.Price)
	e.activateStopsOnThreshold(tradeTicks, tradeTicks, now)
	e.lastTrade = tr
	e.haveTrade = true
	if e.haveQuote {
		e.sweepMarket(now)
	}
	e.matchLimitsAgainstTrade(tr, now)
}

func (e *Engine) ticks(price float64) core.Ticks { return core.ToTicks(price, e.tickSize) }

// --- pipeline step 1: delayed cancels ---

func (e *Engine) processCancelQueue(now time.Time) {
	remaining := e.cancelQueue[:0]
	for _, c := range e.cancelQueue {
		if now.Before(c.submittedAt.Add(e.queueDelay)) {
			remaining = append(remaining, c)
			continue
		}
		if o, found := e.removeFromAnyStructure(c.orderID); found {
			if err := o.Cancel(now); err == nil {
				delete(e.ordersByID, c.orderID)
				e.OnCancelled.Fire(c.orderID)
			} else {
				e.OnNoOrderFound.Fire(c.orderID)
			}
		} else {
			e.OnNoOrderFound.Fire(c.orderID)
		}
	}
	e.cancelQueue = remaining
	monitoring.SetMatchingQueueDepth(e.symbol, "cancel", len(e.cancelQueue))
}

// --- pipeline step 2: delayed submission ---

func (e *Engine) processDelayQueue(now time.Time) {
	remaining := e.delayQueue[:0]
	for _, d := range e.delayQueue {
		if now.Before(d.submittedAt.Add(e.queueDelay)) {
			remaining = append(remaining, d)
			continue
		}
		e.dispatch(d.o)
	}
	e.delayQueue = remaining
	monitoring.SetMatchingQueueDepth(e.symbol, "delay", len(e.delayQueue))
}

func (e *Engine) dispatch(o *order.Order) {
	switch o.Type() {
	case order.Market, order.MarketOnClose:
		e.enqueueMarket(o)
	case order.Limit:
		if o.Side() == order.Buy {
			e.bids.add(o.PriceTicks1(), o)
		} else {
			e.asks.add(o.PriceTicks1(), o)
		}
	case order.Stop, order.StopLimit, order.Trail:
		// Trail orders are treated as a static stop at their
		// submission-time trigger price (order.Price2); true
		// continuous re-basing as the market moves favorably is not
		// implemented — see DESIGN.md.
		if o.Side() == order.Buy {
			e.buyStops.add(o.PriceTicks2(), o)
		} else {
			e.sellStops.add(o.PriceTicks2(), o)
		}
	}
}

func (e *Engine) enqueueMarket(o *order.Order) {
	if o.Side() == order.Buy {
		e.marketBuys = append(e.marketBuys, o)
	} else {
		e.marketSells = append(e.marketSells, o)
	}
}

// --- pipeline step 3: stop activation ---

// activateStopsOnThreshold promotes buy-stops whose price <= askLike
// and sell-stops whose price >= bidLike. For a Quote event askLike/
// bidLike are the new ask/bid; for a Trade event both are the trade
// price, per spec.md §4.3 ("...or <= last-trade if trade event").
func (e *Engine) activateStopsOnThreshold(askLike, bidLike core.Ticks, now time.Time) {
	var promoted []*order.Order

	e.buyStops.levelsFrom(
		func(price core.Ticks) bool { return price <= askLike },
		func(lv *level) bool {
			promoted = append(promoted, lv.orders...)
			lv.orders = nil
			return false
		},
	)
	e.sellStops.levelsFrom(
		func(price core.Ticks) bool { return price >= bidLike },
		func(lv *level) bool {
			promoted = append(promoted, lv.orders...)
			lv.orders = nil
			return false
		},
	)

	for _, o := range promoted {
		if o.Type() == order.StopLimit {
			e.bidsOrAsksAdd(o)
		} else {
			e.enqueueMarket(o)
		}
	}
}

func (e *Engine) bidsOrAsksAdd(o *order.Order) {
	if o.Side() == order.Buy {
		e.bids.add(o.PriceTicks1(), o)
	} else {
		e.asks.add(o.PriceTicks1(), o)
	}
}

// --- pipeline step 4: market sweep ---

func (e *Engine) sweepMarket(now time.Time) {
	if e.haveQuote {
		e.sweepMarketSide(&e.marketBuys, e.lastQuote.AskPrice, e.lastQuote.AskSize, now)
		e.sweepMarketSide(&e.marketSells, e.lastQuote.BidPrice, e.lastQuote.BidSize, now)
	}
}

// sweepMarketSide fills *queue in FIFO order against a fixed-price,
// fixed-size top of book, in ask-size (or bid-size) increments. An
// order not fully satisfied by the available size stays at the head
// of the queue for the next tick, per spec.md §4.3.
func (e *Engine) sweepMarketSide(queue *[]*order.Order, price float64, availSize int64, now time.Time) {
	if availSize <= 0 || price <= 0 {
		return
	}
	for len(*queue) > 0 && availSize > 0 {
		o := (*queue)[0]
		fillQty := min64(o.RemainingQty(), availSize)
		e.fill(o, price, fillQty, now)
		availSize -= fillQty
		if o.RemainingQty() == 0 {
			*queue = (*queue)[1:]
		} else {
			break
		}
	}
}

// --- pipeline step 5: limit matching against quote ---

func (e *Engine) matchBidsAgainstAsk(askPrice float64, askSize int64, now time.Time) {
	if askSize <= 0 || askPrice <= 0 {
		return
	}
	askTicks := e.ticks(askPrice)
	remaining := askSize
	e.bids.levelsFrom(
		func(price core.Ticks) bool { return remaining > 0 && price >= askTicks },
		func(lv *level) bool {
			for len(lv.orders) > 0 && remaining > 0 {
				o := lv.orders[0]
				fillQty := min64(o.RemainingQty(), remaining)
				e.fill(o, askPrice, fillQty, now)
				remaining -= fillQty
				if o.RemainingQty() == 0 {
					lv.orders = lv.orders[1:]
				} else {
					return true
				}
			}
			return remaining <= 0
		},
	)
}

func (e *Engine) matchAsksAgainstBid(bidPrice float64, bidSize int64, now time.Time) {
	if bidSize <= 0 || bidPrice <= 0 {
		return
	}
	bidTicks := e.ticks(bidPrice)
	remaining := bidSize
	e.asks.levelsFrom(
		func(price core.Ticks) bool { return remaining > 0 && price <= bidTicks },
		func(lv *level) bool {
			for len(lv.orders) > 0 && remaining > 0 {
				o := lv.orders[0]
				fillQty := min64(o.RemainingQty(), remaining)
				e.fill(o, bidPrice, fillQty, now)
				remaining -= fillQty
				if o.RemainingQty() == 0 {
					lv.orders = lv.orders[1:]
				} else {
					return true
				}
			}
			return remaining <= 0
		},
	)
}

// --- pipeline step 6: limit matching against trade (OnTrade only) ---

func (e *Engine) matchLimitsAgainstTrade(tr marketdata.Trade, now time.Time) {
	tradeTicks := e.ticks(tr.Price)
	remaining := tr.Size

	e.bids.levelsFrom(
		func(price core.Ticks) bool { return remaining > 0 && price >= tradeTicks },
		func(lv *level) bool {
			for len(lv.orders) > 0 && remaining > 0 {
				o := lv.orders[0]
				fillPrice := minFloat(o.Price1(), tr.Price) // more favourable for the buyer
				fillQty := min64(o.RemainingQty(), remaining)
				e.fill(o, fillPrice, fillQty, now)
				remaining -= fillQty
				if o.RemainingQty() == 0 {
					lv.orders = lv.orders[1:]
				} else {
					return true
				}
			}
			return remaining <= 0
		},
	)

	e.asks.levelsFrom(
		func(price core.Ticks) bool { return remaining > 0 && price <= tradeTicks },
		func(lv *level) bool {
			for len(lv.orders) > 0 && remaining > 0 {
				o := lv.orders[0]
				fillPrice := maxFloat(o.Price1(), tr.Price) // more favourable for the seller
				fillQty := min64(o.RemainingQty(), remaining)
				e.fill(o, fillPrice, fillQty, now)
				remaining -= fillQty
				if o.RemainingQty() == 0 {
					lv.orders = lv.orders[1:]
				} else {
					return true
				}
			}
			return remaining <= 0
		},
	)
}

// --- shared fill/commission path ---

func (e *Engine) fill(o *order.Order, price float64, qty int64, now time.Time) {
	if qty <= 0 {
		return
	}
	execID := fmt.Sprintf("%d", nextExecID.Add(1))
	exec := order.Execution{ExecID: execID, Price: price, Size: qty, Timestamp: now, Side: o.Side()}

	status, err := o.ReportExecution(exec)
	if err != nil {
		return
	}
	e.OnFill.Fire(FillEvent{OrderID: o.ID(), Execution: exec})

	if status == order.Filled {
		amount := e.commissionRate * float64(o.FilledQty())
		if amount > 0 {
			o.AddCommission(amount)
			e.OnCommission.Fire(CommissionEvent{OrderID: o.ID(), Amount: amount})
			monitoring.RecordCommission(e.symbol, amount)
		}
		delete(e.ordersByID, o.ID())
	}
}

// removeFromAnyStructure removes orderID from whichever structure
// currently holds it (a book, a stop book, a market queue, or the
// delay queue) and returns it. Used by delayed-cancel processing.
func (e *Engine) removeFromAnyStructure(orderID uint64) (*order.Order, bool) {
	if o, ok := e.bids.remove(orderID); ok {
		return o, true
	}
	if o, ok := e.asks.remove(orderID); ok {
		return o, true
	}
	if o, ok := e.buyStops.remove(orderID); ok {
		return o, true
	}
	if o, ok := e.sellStops.remove(orderID); ok {
		return o, true
	}
	if o, ok := removeFromSlice(&e.marketBuys, orderID); ok {
		return o, true
	}
	if o, ok := removeFromSlice(&e.marketSells, orderID); ok {
		return o, true
	}
	for i, d := range e.delayQueue {
		if d.o.ID() == orderID {
			e.delayQueue = append(e.delayQueue[:i], e.delayQueue[i+1:]...)
			return d.o, true
		}
	}
	return nil, false
}

func removeFromSlice(s *[]*order.Order, orderID uint64) (*order.Order, bool) {
	for i, o := range *s {
		if o.ID() == orderID {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return o, true
		}
	}
	return nil, false
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
