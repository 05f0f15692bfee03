// Package order implements the Order and Execution types: the
// value-plus-state object that tracks quantity, fills, average price,
// timestamps and status, and the immutable record of a single fill.
package order

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/epic1st/optioncore/backend/internal/core"
	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/instrument"
)

// Side is the direction of an order or execution.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Type is the order type.
type Type int

const (
	Market Type = iota
	Limit
	Stop
	StopLimit
	Trail
	MarketOnClose
)

func (t Type) String() string {
	switch t {
	case Market:
		return "market"
	case Limit:
		return "limit"
	case Stop:
		return "stop"
	case StopLimit:
		return "stop_limit"
	case Trail:
		return "trail"
	case MarketOnClose:
		return "market_on_close"
	default:
		return "unknown"
	}
}

// Status is the order's lifecycle status.
type Status int

const (
	Created Status = iota
	Submitted
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Created:
		return "created"
	case Submitted:
		return "submitted"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

func (s Status) terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// ErrorKind classifies an asynchronous provider-reported error handed
// to Order.OnError.
type ErrorKind int

const (
	ErrKindRejected ErrorKind = iota
	ErrKindTooLateToCancel
	ErrKindInsufficientFunds
	ErrKindOther
)

// Execution is an immutable record of a single fill.
type Execution struct {
	ExecID    string
	Price     float64
	Size      int64
	Timestamp time.Time
	Side      Side
}

// Order is the value-plus-state object spec.md §3/§4.1 describes.
// Construction fields are immutable; status and fill accounting are
// guarded by an internal mutex so concurrent ReportExecution/Cancel/
// OnError calls cannot race.
type Order struct {
	// Immutable on creation.
	id          uint64
	instrument  instrument.Instrument
	orderType   Type
	side        Side
	orderedQty  int64
	price1      core.Ticks // limit price (Limit, StopLimit)
	price2      core.Ticks // stop / trigger price (Stop, StopLimit, Trail)
	signalPrice float64
	createdAt   time.Time
	outsideRTH  bool

	mu           sync.Mutex
	status       Status
	submittedAt  time.Time
	filledAt     time.Time
	cancelledAt  time.Time
	filledQty    int64
	remainingQty int64
	sumPriceQty  float64
	commission   float64
	providerName string
	executions   []Execution
	nextExecSeq  uint64

	// Observers. Add/Remove are safe concurrently with firing (see
	// delegate.Delegate), but a handler added after an execution was
	// reported never sees it: register before submission.
	OnExecution   *delegate.Delegate[Execution]
	OnPartialFill *delegate.Delegate[Execution]
	OnOrderFilled *delegate.Delegate[Execution]
}

// Option configures optional construction fields.
type Option func(*Order)

// WithOutsideRTH marks the order as eligible to match during extended hours.
func WithOutsideRTH() Option {
	return func(o *Order) { o.outsideRTH = true }
}

// WithSignalPrice records the price the originating strategy observed
// when it decided to trade (original_source/LibTrading/Order.h); used
// only for post-trade slippage analysis, never for matching.
func WithSignalPrice(price float64) Option {
	return func(o *Order) { o.signalPrice = price }
}

// WithProviderName records which provider owns routing for this order.
func WithProviderName(name string) Option {
	return func(o *Order) { o.providerName = name }
}

// New constructs an order with the given persisted id, validating the
// type/quantity/price combination per spec.md §4.1. price1 is the
// limit price (Limit, StopLimit); price2 is the stop price (Stop,
// StopLimit) or the trigger price (Trail), an absolute price level in
// both cases. Pass 0 for prices a type doesn't use.
func New(id uint64, inst instrument.Instrument, orderType Type, side Side, qty int64, price1, price2 float64, ts time.Time, opts ...Option) (*Order, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: order quantity must be positive, got %d", core.ErrValidation, qty)
	}

	tickSize := core.DefaultTickSize
	if inst != nil {
		tickSize = inst.TickSize()
	}

	switch orderType {
	case Market, MarketOnClose:
		// No price required.
	case Limit:
		if price1 <= 0 {
			return nil, fmt.Errorf("%w: limit order requires a positive limit price", core.ErrValidation)
		}
	case Stop:
		if price2 <= 0 {
			return nil, fmt.Errorf("%w: stop order requires a positive stop price", core.ErrValidation)
		}
	case StopLimit:
		if price1 <= 0 || price2 <= 0 {
			return nil, fmt.Errorf("%w: stop-limit order requires both a positive limit price and a positive stop price", core.ErrValidation)
		}
	case Trail:
		if price2 <= 0 {
			return nil, fmt.Errorf("%w: trail order requires a positive trigger price", core.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown order type %d", core.ErrValidation, orderType)
	}

	o := &Order{
		id:           id,
		instrument:   inst,
		orderType:    orderType,
		side:         side,
		orderedQty:   qty,
		price1:       core.ToTicks(price1, tickSize),
		price2:       core.ToTicks(price2, tickSize),
		createdAt:    ts,
		status:       Created,
		remainingQty: qty,

		OnExecution:   delegate.New[Execution](),
		OnPartialFill: delegate.New[Execution](),
		OnOrderFilled: delegate.New[Execution](),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *Order) ID() uint64                       { return o.id }
func (o *Order) Instrument() instrument.Instrument { return o.instrument }
func (o *Order) Type() Type                        { return o.orderType }
func (o *Order) Side() Side                        { return o.side }
func (o *Order) OrderedQty() int64                 { return o.orderedQty }
func (o *Order) OutsideRTH() bool                  { return o.outsideRTH }
func (o *Order) CreatedAt() time.Time              { return o.createdAt }
func (o *Order) SignalPrice() float64              { return o.signalPrice }

func (o *Order) tickSize() float64 {
	if o.instrument != nil {
		return o.instrument.TickSize()
	}
	return core.DefaultTickSize
}

// Price1 returns the limit price as a display float64 (0 if unused).
func (o *Order) Price1() float64 { return o.price1.Float64(o.tickSize()) }

// Price2 returns the stop / trigger price as a display float64 (0 if unused).
func (o *Order) Price2() float64 { return o.price2.Float64(o.tickSize()) }

// PriceTicks1 returns the limit price in Ticks, for book keys.
func (o *Order) PriceTicks1() core.Ticks { return o.price1 }

// PriceTicks2 returns the stop price in Ticks, for book keys.
func (o *Order) PriceTicks2() core.Ticks { return o.price2 }

// ProviderName returns the provider currently responsible for routing
// this order (set at construction or via SetProviderName).
func (o *Order) ProviderName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.providerName
}

// SetProviderName records which provider owns routing for this order.
func (o *Order) SetProviderName(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.providerName = name
}

// Status returns the order's current lifecycle status.
func (o *Order) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// FilledQty returns the cumulative filled quantity.
func (o *Order) FilledQty() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filledQty
}

// RemainingQty returns the remaining unfilled quantity.
func (o *Order) RemainingQty() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remainingQty
}

// AverageFillPrice returns (Σ price·qty)/filled, or 0 if nothing has filled.
func (o *Order) AverageFillPrice() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.filledQty == 0 {
		return 0
	}
	return o.sumPriceQty / float64(o.filledQty)
}

// Commission returns the cumulative commission charged.
func (o *Order) Commission() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.commission
}

// AddCommission accrues commission. The matching engine calls it once
// per order, on the final fill.
func (o *Order) AddCommission(amount float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.commission += amount
}

// Executions returns a copy of the order's execution history.
func (o *Order) Executions() []Execution {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Execution, len(o.executions))
	copy(out, o.executions)
	return out
}

// NextExecID allocates an exec-id unique within this order, for
// providers that do not supply their own. The simulated matching
// engine instead stamps Executions from its own engine-wide counter,
// which is a fortiori unique within any one order.
func (o *Order) NextExecID() string {
	seq := atomic.AddUint64(&o.nextExecSeq, 1)
	return fmt.Sprintf("%d-%d", o.id, seq)
}

// MarkSubmitted transitions Created -> Submitted and records the
// submit timestamp. No-op if already Submitted or later.
func (o *Order) MarkSubmitted(ts time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != Created {
		return
	}
	o.status = Submitted
	o.submittedAt = ts
}

// SubmittedAt returns the submit timestamp (zero value if not yet submitted).
func (o *Order) SubmittedAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submittedAt
}

// FilledAt returns the final-fill timestamp (zero value if not yet filled).
func (o *Order) FilledAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filledAt
}

// CancelledAt returns the cancellation timestamp (zero value if not cancelled).
func (o *Order) CancelledAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelledAt
}

// ReportExecution applies a fill. It rejects executions that would
// overfill the order (spec.md §7: OverfillAttempt is a fatal invariant
// violation, asserted in debug builds and rejected in production) or
// that arrive against a terminal order. On success it returns the new
// status and fires OnPartialFill or OnOrderFilled, always preceded by
// OnExecution, with no lock held during delegate dispatch.
func (o *Order) ReportExecution(e Execution) (Status, error) {
	if e.Size <= 0 {
		return 0, fmt.Errorf("%w: execution size must be positive, got %d", core.ErrValidation, e.Size)
	}
	if e.Price <= 0 {
		return 0, fmt.Errorf("%w: execution price must be positive, got %v", core.ErrValidation, e.Price)
	}

	o.mu.Lock()
	if o.status.terminal() {
		o.mu.Unlock()
		return o.status, fmt.Errorf("%w: order %d is already %s", core.ErrProviderRejection, o.id, o.status)
	}
	if e.Size > o.remainingQty {
		core.AssertInvariant(false, "execution size exceeds remaining quantity")
		o.status = Rejected
		newStatus := o.status
		o.mu.Unlock()
		return newStatus, fmt.Errorf("%w: order %d execution size %d exceeds remaining %d", core.ErrOverfill, o.id, e.Size, o.remainingQty)
	}

	o.filledQty += e.Size
	o.remainingQty -= e.Size
	o.sumPriceQty += e.Price * float64(e.Size)
	o.executions = append(o.executions, e)

	filled := o.remainingQty == 0
	if filled {
		o.status = Filled
		o.filledAt = e.Timestamp
	} else {
		o.status = PartiallyFilled
	}
	newStatus := o.status
	o.mu.Unlock()

	o.OnExecution.Fire(e)
	if filled {
		o.OnOrderFilled.Fire(e)
	} else {
		o.OnPartialFill.Fire(e)
	}
	return newStatus, nil
}

// Cancel transitions Submitted|PartiallyFilled -> Cancelled. It fires
// no fill delegates. Cancelling a terminal order changes nothing and
// returns an ErrUnknownOrder error; the matching engine reports that
// case as no-order-found.
func (o *Order) Cancel(ts time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.terminal() {
		return fmt.Errorf("%w: order %d is already %s", core.ErrUnknownOrder, o.id, o.status)
	}
	o.status = Cancelled
	o.cancelledAt = ts
	return nil
}

// OnError reports an asynchronous provider-side error, transitioning a
// non-terminal order to Rejected. The error is reported, not retried.
func (o *Order) OnError(kind ErrorKind) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.terminal() {
		return fmt.Errorf("%w: order %d is already %s", core.ErrUnknownOrder, o.id, o.status)
	}
	o.status = Rejected
	return fmt.Errorf("%w: order %d rejected (kind=%d)", core.ErrProviderRejection, o.id, kind)
}
