// Package amount provides checked arithmetic over unsigned 64-bit balance
// magnitudes. Silent wraparound on a balance would let a caller mint or erase
// funds, so every balance mutation in the engine routes through Add and Sub.
package amount

import (
	"errors"
	"math"
)

var (
	// ErrOverflow is returned when the true sum exceeds the representable range.
	ErrOverflow = errors.New("amount: arithmetic overflow")
	// ErrUnderflow is returned when the subtrahend exceeds the minuend.
	ErrUnderflow = errors.New("amount: arithmetic underflow")
)

// Add returns a+b, failing with ErrOverflow instead of wrapping.
func Add(a, b uint64) (uint64, error) {
	if b > math.MaxUint64-a {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b, failing with ErrUnderflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}
