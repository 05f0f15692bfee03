package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
	"github.com/epic1st/optioncore/backend/internal/matching"
	"github.com/epic1st/optioncore/backend/internal/order"
)

// Simulated adapts a matching.Engine to the Provider interface, so
// OrderManager can route to either a real connector or the simulator
// interchangeably, per spec.md §2's data-flow description.
type Simulated struct {
	engine    *matching.Engine
	connected bool

	quotes *delegate.Delegate[marketdata.Quote]
	trades *delegate.Delegate[marketdata.Trade]
	depths *delegate.Delegate[marketdata.Depth]
	greeks *delegate.Delegate[marketdata.Greek]

	onConnecting    *delegate.Delegate[struct{}]
	onConnected     *delegate.Delegate[struct{}]
	onDisconnecting *delegate.Delegate[struct{}]
	onDisconnected  *delegate.Delegate[struct{}]
	onError         *delegate.Delegate[ErrorCode]
}

// NewSimulated wraps an existing matching.Engine as a Provider.
func NewSimulated(engine *matching.Engine) *Simulated {
	return &Simulated{
		engine: engine,

		quotes: delegate.New[marketdata.Quote](),
		trades: delegate.New[marketdata.Trade](),
		depths: delegate.New[marketdata.Depth](),
		greeks: delegate.New[marketdata.Greek](),

		onConnecting:    delegate.New[struct{}](),
		onConnected:     delegate.New[struct{}](),
		onDisconnecting: delegate.New[struct{}](),
		onDisconnected:  delegate.New[struct{}](),
		onError:         delegate.New[ErrorCode](),
	}
}

func (s *Simulated) Connect(ctx context.Context) error {
	s.onConnecting.Fire(struct{}{})
	s.connected = true
	s.onConnected.Fire(struct{}{})
	return nil
}

func (s *Simulated) Disconnect(ctx context.Context) error {
	s.onDisconnecting.Fire(struct{}{})
	s.connected = false
	s.onDisconnected.Fire(struct{}{})
	return nil
}

func (s *Simulated) IsConnected() bool { return s.connected }

func (s *Simulated) PlaceOrder(ctx context.Context, o *order.Order) error {
	if !s.connected {
		return fmt.Errorf("provider: not connected")
	}
	s.engine.Submit(o, time.Now())
	return nil
}

func (s *Simulated) CancelOrder(ctx context.Context, orderID uint64) error {
	if !s.connected {
		return fmt.Errorf("provider: not connected")
	}
	s.engine.Cancel(orderID, time.Now())
	return nil
}

// FeedQuote drives the wrapped engine with a new NBBO observation and
// republishes it to any registered quote handlers (e.g. a Greeks
// engine Watch for the same underlying).
func (s *Simulated) FeedQuote(q marketdata.Quote) {
	s.engine.OnQuote(q, time.Now())
	s.quotes.Fire(q)
}

// FeedTrade drives the wrapped engine with a new trade print and
// republishes it to any registered trade handlers.
func (s *Simulated) FeedTrade(tr marketdata.Trade) {
	s.engine.OnTrade(tr, time.Now())
	s.trades.Fire(tr)
}

func (s *Simulated) AddQuoteHandler(fn func(marketdata.Quote)) delegate.Handle { return s.quotes.Add(fn) }
func (s *Simulated) RemoveQuoteHandler(h delegate.Handle)                      { s.quotes.Remove(h) }

func (s *Simulated) AddTradeHandler(fn func(marketdata.Trade)) delegate.Handle { return s.trades.Add(fn) }
func (s *Simulated) RemoveTradeHandler(h delegate.Handle)                      { s.trades.Remove(h) }

// AddDepthHandler is implemented for interface completeness; the
// simulated engine never publishes depth (spec.md §4.3 works off a
// single NBBO), so registered handlers never fire.
func (s *Simulated) AddDepthHandler(fn func(marketdata.Depth)) delegate.Handle { return s.depths.Add(fn) }
func (s *Simulated) RemoveDepthHandler(h delegate.Handle)                     { s.depths.Remove(h) }

// AddGreekHandler is implemented for interface completeness; Greeks
// are computed by the separate greeks.Engine, not by a Provider.
func (s *Simulated) AddGreekHandler(fn func(marketdata.Greek)) delegate.Handle { return s.greeks.Add(fn) }
func (s *Simulated) RemoveGreekHandler(h delegate.Handle)                     { s.greeks.Remove(h) }

func (s *Simulated) Capabilities() Capabilities {
	return Capabilities{ProvidesQuotes: true, ProvidesTrades: true, ProvidesBroker: true}
}

func (s *Simulated) OnConnecting() *delegate.Delegate[struct{}]    { return s.onConnecting }
func (s *Simulated) OnConnected() *delegate.Delegate[struct{}]     { return s.onConnected }
func (s *Simulated) OnDisconnecting() *delegate.Delegate[struct{}] { return s.onDisconnecting }
func (s *Simulated) OnDisconnected() *delegate.Delegate[struct{}]  { return s.onDisconnected }
func (s *Simulated) OnError() *delegate.Delegate[ErrorCode]        { return s.onError }
