// Package core holds the sentinel errors and cross-cutting invariant
// checks shared by every domain package (order, oms, matching, greeks).
package core

import "errors"

var (
	// ErrValidation reports a constructional or argument validation failure.
	ErrValidation = errors.New("validation")

	// ErrDuplicateSymbol reports an attempt to register a symbol, watch,
	// or engine that already exists.
	ErrDuplicateSymbol = errors.New("duplicate symbol")

	// ErrUnknownOrder reports an operation referencing an order id the
	// receiver has no record of. Per spec, the matching engine never
	// returns this directly — it is only ever reported asynchronously
	// through OnNoOrderFound.
	ErrUnknownOrder = errors.New("unknown order")

	// ErrProviderRejection reports a venue/provider-side rejection of an
	// order or cancel request.
	ErrProviderRejection = errors.New("provider rejection")

	// ErrOverfill reports an execution that would fill more quantity
	// than an order has remaining.
	ErrOverfill = errors.New("overfill")
)
