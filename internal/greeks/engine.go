// Package greeks implements OptionGreeksEngine: a reference-counted
// registry of (option, underlying) pairs that, on a periodic cadence,
// computes each option's theoretical value and Greeks from the latest
// underlying quote (spec.md §4.4).
package greeks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/instrument"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
	"github.com/epic1st/optioncore/backend/monitoring"
)

// GreekSink receives computed Greek records. The engine never
// interprets them; routing to a channel, a log, or a metrics gauge is
// entirely up to the sink, per spec.md §1 (no pricing model in the core).
type GreekSink interface {
	OnGreek(g marketdata.Greek)
}

// PricingFunc is the external pricing plug-in: given an option, its
// underlying's latest quote, and a sink, it computes and emits a Greek
// record. Supplying a real implementation is out of scope for this core.
type PricingFunc func(ctx context.Context, option instrument.Instrument, quote marketdata.Quote, sink GreekSink)

// WatchBuilder lazily constructs (or looks up) the Watch for an
// underlying instrument the first time an entry needs it.
type WatchBuilder func(ctx context.Context, underlying instrument.Instrument) (Watch, error)

// OptionHandle is an opaque, engine-builder-defined token memoised in
// the known-options map; the engine does not interpret it.
type OptionHandle any

// OptionBuilder lazily constructs (or looks up) a handle for an option
// instrument the first time an entry is created for it.
type OptionBuilder func(ctx context.Context, option instrument.Instrument) (OptionHandle, error)

// Entry is one (option, underlying) pair under scan.
type Entry struct {
	Option     instrument.Instrument
	Underlying instrument.Instrument

	refCount int

	watch       Watch
	quoteHandle delegate.Handle

	lastUnderlyingQuote atomic.Pointer[marketdata.Quote]
}

type opKind int

const (
	opAdd opKind = iota
	opRemove
)

type pendingOp struct {
	kind       opKind
	option     instrument.Instrument
	underlying instrument.Instrument
}

// Engine is OptionGreeksEngine.
type Engine struct {
	watchBuilder  WatchBuilder
	optionBuilder OptionBuilder
	pricing       PricingFunc
	sink          GreekSink
	ctx           context.Context

	scanPeriodNanos atomic.Int64

	pendingMu sync.Mutex
	pending   []pendingOp

	// Structural state, mutated only on the scan goroutine.
	knownWatches  map[string]Watch
	knownOptions  map[string]OptionHandle
	entries       map[string]*Entry

	timer  *time.Timer
	stopCh chan struct{}
}

// Config configures an Engine at construction.
type Config struct {
	WatchBuilder  WatchBuilder
	OptionBuilder OptionBuilder
	Pricing       PricingFunc
	Sink          GreekSink
	ScanPeriod    time.Duration // default 250ms per spec.md §3
}

// NewEngine constructs a Greeks engine. Call Start to begin scanning.
func NewEngine(cfg Config) *Engine {
	period := cfg.ScanPeriod
	if period <= 0 {
		period = 250 * time.Millisecond
	}
	e := &Engine{
		watchBuilder:  cfg.WatchBuilder,
		optionBuilder: cfg.OptionBuilder,
		pricing:       cfg.Pricing,
		sink:          cfg.Sink,
		knownWatches:  make(map[string]Watch),
		knownOptions:  make(map[string]OptionHandle),
		entries:       make(map[string]*Entry),
		stopCh:        make(chan struct{}),
	}
	e.scanPeriodNanos.Store(int64(period))
	return e
}

// SetScanPeriod adjusts the scan cadence, taking effect on the next
// reschedule — an in-flight scan is never interrupted. This is a
// supplement from original_source/lib/TFOptions/Engine.h's
// steady_timer wrapper, not explicit in spec.md's "configurable" note.
func (e *Engine) SetScanPeriod(d time.Duration) {
	if d <= 0 {
		return
	}
	e.scanPeriodNanos.Store(int64(d))
}

func (e *Engine) scanPeriod() time.Duration {
	return time.Duration(e.scanPeriodNanos.Load())
}

// Add enqueues an Add operation. If the entry already exists, its
// ref-count is incremented rather than a duplicate being created.
func (e *Engine) Add(option, underlying instrument.Instrument) {
	e.pendingMu.Lock()
	e.pending = append(e.pending, pendingOp{kind: opAdd, option: option, underlying: underlying})
	e.pendingMu.Unlock()
}

// Remove enqueues a Remove operation, decrementing ref-count; the
// entry is erased when it reaches 0.
func (e *Engine) Remove(option, underlying instrument.Instrument) {
	e.pendingMu.Lock()
	e.pending = append(e.pending, pendingOp{kind: opRemove, option: option, underlying: underlying})
	e.pendingMu.Unlock()
}

// Start begins the scan timer. ctx bounds the lifetime of pricing calls.
func (e *Engine) Start(ctx context.Context) {
	e.ctx = ctx
	e.timer = time.AfterFunc(e.scanPeriod(), e.scanAndReschedule)
}

// Stop cancels the scan timer. An in-flight scan completes.
func (e *Engine) Stop() {
	if e.timer != nil {
		e.timer.Stop()
	}
	close(e.stopCh)
}

func (e *Engine) scanAndReschedule() {
	select {
	case <-e.stopCh:
		return
	default:
	}

	start := time.Now()
	e.scan()
	monitoring.RecordGreeksScan(float64(time.Since(start)) / float64(time.Millisecond))
	monitoring.SetGreeksEntries(len(e.entries))

	e.timer = time.AfterFunc(e.scanPeriod(), e.scanAndReschedule)
}

// scan runs one cycle: swap the pending deque, apply operations in
// FIFO order, then invoke the pricing plug-in for every remaining
// entry. Structural mutation of the entries map happens only here.
func (e *Engine) scan() {
	e.pendingMu.Lock()
	local := e.pending
	e.pending = nil
	e.pendingMu.Unlock()

	for _, op := range local {
		switch op.kind {
		case opAdd:
			e.applyAdd(op.option, op.underlying)
		case opRemove:
			e.applyRemove(op.option)
		}
	}

	for _, entry := range e.entries {
		q := entry.lastUnderlyingQuote.Load()
		if q == nil || e.pricing == nil {
			continue
		}
		e.pricing(e.ctx, entry.Option, *q, e.sink)
	}
}

func (e *Engine) applyAdd(option, underlying instrument.Instrument) {
	id := option.ID()
	if entry, ok := e.entries[id]; ok {
		entry.refCount++
		return
	}

	watch, err := e.findOrBuildWatch(underlying)
	if err != nil {
		return
	}
	if _, err := e.findOrBuildOption(option); err != nil {
		return
	}

	entry := &Entry{Option: option, Underlying: underlying, refCount: 1, watch: watch}
	entry.quoteHandle = watch.AddQuoteHandler(func(q marketdata.Quote) {
		qCopy := q
		entry.lastUnderlyingQuote.Store(&qCopy)
	})
	e.entries[id] = entry
}

func (e *Engine) applyRemove(option instrument.Instrument) {
	id := option.ID()
	entry, ok := e.entries[id]
	if !ok {
		return
	}
	entry.refCount--
	if entry.refCount <= 0 {
		entry.watch.RemoveQuoteHandler(entry.quoteHandle)
		delete(e.entries, id)
	}
}

// findOrBuildWatch memoises the Watch for an underlying instrument.
func (e *Engine) findOrBuildWatch(underlying instrument.Instrument) (Watch, error) {
	id := underlying.ID()
	if w, ok := e.knownWatches[id]; ok {
		return w, nil
	}
	w, err := e.watchBuilder(e.ctx, underlying)
	if err != nil {
		return nil, err
	}
	e.knownWatches[id] = w
	return w, nil
}

// findOrBuildOption memoises the option handle for an option instrument.
func (e *Engine) findOrBuildOption(option instrument.Instrument) (OptionHandle, error) {
	id := option.ID()
	if h, ok := e.knownOptions[id]; ok {
		return h, nil
	}
	h, err := e.optionBuilder(e.ctx, option)
	if err != nil {
		return nil, err
	}
	e.knownOptions[id] = h
	return h, nil
}

// EntryCount returns the current number of tracked entries. Exposed
// for tests; production code should prefer the trading_greeks_entries metric.
func (e *Engine) EntryCount() int {
	return len(e.entries)
}

// RefCount returns the current ref-count for an option-id, or 0 if no
// entry exists. Exposed for tests.
func (e *Engine) RefCount(optionID string) int {
	if entry, ok := e.entries[optionID]; ok {
		return entry.refCount
	}
	return 0
}

// Scan runs one scan cycle synchronously, bypassing the timer. Used by
// tests to drive the engine deterministically.
func (e *Engine) Scan() {
	e.scan()
}
