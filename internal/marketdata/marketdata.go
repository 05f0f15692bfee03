// Package marketdata defines the record formats that flow between
// providers, the matching engine, and the Greeks engine. The field
// sets are contractual per spec.md §6.
package marketdata

import "time"

// Quote is a single NBBO observation for an instrument.
type Quote struct {
	InstrumentID string
	Timestamp    time.Time
	BidPrice     float64
	BidSize      int64
	AskPrice     float64
	AskSize      int64
}

// Trade is a single executed trade observation for an instrument.
type Trade struct {
	InstrumentID string
	Timestamp    time.Time
	Price        float64
	Size         int64
}

// Greek is a single options-analytics observation, produced by a
// pricing plug-in and routed to a GreekSink outside the core.
type Greek struct {
	InstrumentID     string
	Timestamp        time.Time
	TheoreticalValue float64
	Delta            float64
	Gamma            float64
	Theta            float64
	Vega             float64
	Rho              float64
	ImpliedVol       float64
}

// Depth is an order-book depth observation; carried as a Provider
// capability per spec.md §6 even though the matching engine itself
// only consumes Quote and Trade.
type Depth struct {
	InstrumentID string
	Timestamp    time.Time
	Bids         []PriceLevel
	Asks         []PriceLevel
}

// PriceLevel is one level of a Depth snapshot.
type PriceLevel struct {
	Price float64
	Size  int64
}

// RateFunc supplies the interest-rate term structure as a function,
// per spec.md §1 ("consumed as a function `rate(date) -> double`").
// Supplying real curves is out of scope for this core.
type RateFunc func(date time.Time) float64
