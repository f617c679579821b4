package costbasis

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Number is a loosely typed numeric field as found in records fetched from
// external stores. It accepts JSON numbers, numeric strings, booleans and
// null. Anything that cannot be read as a number is zero: decoding a Number
// never fails.
type Number struct {
	value decimal.Decimal
}

// N creates a Number.
func N[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Number {
	return Number{value: newDecimal(value)}
}

// Decimal returns the coerced value.
func (n Number) Decimal() decimal.Decimal { return n.value }

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.value = parseLooseNumber(data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n.value.String()), nil
}

func parseLooseNumber(data []byte) decimal.Decimal {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		return decimal.Zero
	case bytes.Equal(data, []byte("true")):
		return decimal.NewFromInt(1)
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return decimal.Zero
		}
		return parseNumericString(s)
	default:
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

// parseNumericString reads "12.5", " 1 234,50 " or "1e3". Garbage is zero.
func parseNumericString(s string) decimal.Decimal {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// nonNegative clamps negative values to zero.
func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
