// Package instrument defines the opaque instrument-reference type the
// rest of the core treats as an external collaborator: real symbol,
// option-chain, and expiry metadata is supplied from outside (spec.md
// §1 Non-goal: instrument metadata supply is out of scope).
package instrument

import (
	"time"
)

// OptionType distinguishes calls from puts for option instruments.
type OptionType int

const (
	// NotOption marks an instrument that is not an option (an equity,
	// future, or other underlying).
	NotOption OptionType = iota
	Call
	Put
)

// Instrument is an opaque reference with accessors, exactly as spec.md
// §1 describes it. Non-option instruments return ok=false from
// OptionType/Strike/Expiry.
type Instrument interface {
	ID() string
	Symbol() string
	OptionType() (OptionType, bool)
	Strike() (float64, bool)
	Expiry() (time.Time, bool)
	Multiplier() float64
	// TickSize returns the minimum price increment as a display price
	// (e.g. 0.01); callers convert to core.Ticks with core.ToTicks.
	TickSize() float64
}

// Static is a fixed, in-memory Instrument for tests and the demo
// binary. Real deployments supply metadata from a reference-data
// service outside this core.
type Static struct {
	IDValue         string
	SymbolValue     string
	IsOption        bool
	OptionTypeValue OptionType
	StrikeValue     float64
	ExpiryValue     time.Time
	MultiplierValue float64
	TickSizeValue   float64
}

// NewEquity builds a Static instrument representing a plain underlying.
func NewEquity(id, symbol string, tickSize float64) *Static {
	return &Static{
		IDValue:         id,
		SymbolValue:     symbol,
		MultiplierValue: 1,
		TickSizeValue:   tickSize,
	}
}

// NewOption builds a Static instrument representing an option contract.
func NewOption(id, symbol string, optType OptionType, strike float64, expiry time.Time, multiplier, tickSize float64) *Static {
	return &Static{
		IDValue:         id,
		SymbolValue:     symbol,
		IsOption:        true,
		OptionTypeValue: optType,
		StrikeValue:     strike,
		ExpiryValue:     expiry,
		MultiplierValue: multiplier,
		TickSizeValue:   tickSize,
	}
}

func (s *Static) ID() string     { return s.IDValue }
func (s *Static) Symbol() string { return s.SymbolValue }

func (s *Static) OptionType() (OptionType, bool) {
	if !s.IsOption {
		return NotOption, false
	}
	return s.OptionTypeValue, true
}

func (s *Static) Strike() (float64, bool) {
	if !s.IsOption {
		return 0, false
	}
	return s.StrikeValue, true
}

func (s *Static) Expiry() (time.Time, bool) {
	if !s.IsOption {
		return time.Time{}, false
	}
	return s.ExpiryValue, true
}

func (s *Static) Multiplier() float64 { return s.MultiplierValue }

func (s *Static) TickSize() float64 { return s.TickSizeValue }
