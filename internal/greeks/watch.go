package greeks

import (
	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
)

// Watch is the underlying-quote subscription handle an Entry attaches
// to. The engine never polls for quotes; it registers one callback per
// entry against the underlying's Watch, so a quote callback updates
// exactly the entries that care without ever touching the entries map
// (which only the scan thread may mutate, per spec.md §4.4).
type Watch interface {
	AddQuoteHandler(fn func(marketdata.Quote)) delegate.Handle
	RemoveQuoteHandler(h delegate.Handle)
}

// SimpleWatch is a minimal Watch backed by a multicast Delegate.
// External feeders (a Provider adapter, a replay driver, the demo
// binary) call Publish as quotes for this underlying arrive.
type SimpleWatch struct {
	quotes *delegate.Delegate[marketdata.Quote]
}

// NewSimpleWatch creates a Watch for one underlying instrument.
func NewSimpleWatch() *SimpleWatch {
	return &SimpleWatch{quotes: delegate.New[marketdata.Quote]()}
}

func (w *SimpleWatch) AddQuoteHandler(fn func(marketdata.Quote)) delegate.Handle {
	return w.quotes.Add(fn)
}

func (w *SimpleWatch) RemoveQuoteHandler(h delegate.Handle) {
	w.quotes.Remove(h)
}

// Publish fans a quote out to every registered entry.
func (w *SimpleWatch) Publish(q marketdata.Quote) {
	w.quotes.Fire(q)
}
