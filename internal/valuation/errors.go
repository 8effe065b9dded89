// Package valuation implements the two valuation models: an exit-multiple
// market-cap projection across named growth scenarios, and a discounted
// cash flow (FCFE) fair value with a CAPM discount rate.
//
// Every function here is a pure computation over its arguments. Nothing is
// cached, fetched or mutated, so all of it is safe for concurrent use.
package valuation

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned when a required numeric input is missing,
// non-finite or out of domain (zero shares outstanding, zero baseline market
// cap when a CAGR is requested, duplicate scenario names, ...).
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidAssumptions is returned when the DCF assumptions describe a
// non-convergent model: the discount rate is not above the terminal growth rate.
var ErrInvalidAssumptions = errors.New("invalid assumptions")

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// requireFinite checks that every named value is a real number.
func requireFinite(fields ...namedValue) error {
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalidInput("%s must be a finite number", f.name)
		}
	}
	return nil
}

type namedValue struct {
	name  string
	value float64
}

func field(name string, v float64) namedValue {
	return namedValue{name: name, value: v}
}
