package costbasis

import (
	"encoding/json"
	"fmt"
)

type Percent float64

func (p Percent) Equal(q Percent) bool {
	// it has to be compared with some precision
	const precision = 0.0001
	diff := p - q
	if diff < 0 {
		diff = -diff
	}
	return diff < precision
}

func (p Percent) String() string {
	return fmt.Sprintf("%.2f%%", p)
}

func (p Percent) SignedString() string {
	res := fmt.Sprintf("%+.2f%%", p)
	if res == "+0.00%" || res == "-0.00%" {
		return "-"
	}
	return res
}

// OptionalPercent is a percentage that may not be applicable, like a return
// on a zero investment.
type OptionalPercent struct {
	Percent
	Valid bool
}

// NotApplicable is the OptionalPercent without a value.
var NotApplicable = OptionalPercent{}

// Applicable returns a valid OptionalPercent.
func Applicable(p Percent) OptionalPercent { return OptionalPercent{Percent: p, Valid: true} }

func (o OptionalPercent) String() string {
	if !o.Valid {
		return "n/a"
	}
	return o.Percent.String()
}

func (o OptionalPercent) SignedString() string {
	if !o.Valid {
		return "n/a"
	}
	return o.Percent.SignedString()
}

// MarshalJSON writes null when not applicable.
func (o OptionalPercent) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(float64(o.Percent))
}
