// Package provider defines the venue/broker connectivity interface
// OrderManager routes through (spec.md §6), generalized from the
// teacher's lpmanager.LPAdapter (Connect/Disconnect/IsConnected/
// Subscribe/GetQuotesChan/GetStatus) — a single liquidity-provider
// price-feed adapter — into the broader interface a real connector,
// or the bundled simulator, implements.
package provider

import (
	"context"

	"github.com/epic1st/optioncore/backend/internal/delegate"
	"github.com/epic1st/optioncore/backend/internal/marketdata"
	"github.com/epic1st/optioncore/backend/internal/order"
)

// Capabilities advertises what a Provider can supply, per spec.md §6.
type Capabilities struct {
	ProvidesQuotes bool
	ProvidesTrades bool
	ProvidesDepth  bool
	ProvidesGreeks bool
	ProvidesBroker bool
}

// ErrorCode classifies a provider-level connectivity error, passed to OnError.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeConnectFailed
	ErrCodeAuthFailed
	ErrCodeDisconnectedUnexpectedly
)

// Provider is the connectivity interface OrderManager (and market-data/
// Greeks wiring) consumes; implementations live outside this core —
// vendor connectors, or provider.Simulated wrapping a matching.Engine.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	PlaceOrder(ctx context.Context, o *order.Order) error
	CancelOrder(ctx context.Context, orderID uint64) error

	AddQuoteHandler(fn func(marketdata.Quote)) delegate.Handle
	RemoveQuoteHandler(h delegate.Handle)

	AddTradeHandler(fn func(marketdata.Trade)) delegate.Handle
	RemoveTradeHandler(h delegate.Handle)

	AddDepthHandler(fn func(marketdata.Depth)) delegate.Handle
	RemoveDepthHandler(h delegate.Handle)

	AddGreekHandler(fn func(marketdata.Greek)) delegate.Handle
	RemoveGreekHandler(h delegate.Handle)

	Capabilities() Capabilities

	// Connection lifecycle delegates.
	OnConnecting() *delegate.Delegate[struct{}]
	OnConnected() *delegate.Delegate[struct{}]
	OnDisconnecting() *delegate.Delegate[struct{}]
	OnDisconnected() *delegate.Delegate[struct{}]
	OnError() *delegate.Delegate[ErrorCode]
}
