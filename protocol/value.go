package protocol

import (
	"fmt"
	"strconv"
)

// Value is a participant's numeric datum under wraparound arithmetic.
// Addition and subtraction wrap modulo 2^32, which Go's fixed-width
// unsigned arithmetic provides natively.
type Value uint32

// Add returns v + m mod 2^32.
func (v Value) Add(m Value) Value {
	return v + m
}

// Sub returns v - m mod 2^32.
func (v Value) Sub(m Value) Value {
	return v - m
}

// String formats the value as decimal text, the representation used on
// the wire by the reveal endpoint.
func (v Value) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

// ParseValue parses decimal text into a Value.
func ParseValue(s string) (Value, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse value %q: %w", s, err)
	}
	return Value(n), nil
}

// SumValues returns the wraparound sum of vals. An empty slice sums to
// the additive identity.
func SumValues(vals []Value) Value {
	var sum Value
	for _, v := range vals {
		sum += v
	}
	return sum
}
