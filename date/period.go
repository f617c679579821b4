package date

import (
	"fmt"
	"strings"
)

// Period is the calendar step between two samples of a series: each sample
// sits on the last day of its period.
type Period int

const (
	Daily Period = iota
	Weekly
	Monthly
	Quarterly
	Yearly
)

// periodNames holds, per Period, its canonical name first and then the
// spellings ParsePeriod also accepts.
var periodNames = [...][]string{
	Daily:     {"daily", "day", "d", "1d"},
	Weekly:    {"weekly", "week", "w", "1w"},
	Monthly:   {"monthly", "month", "m", "1m"},
	Quarterly: {"quarterly", "quarter", "q", "3m"},
	Yearly:    {"yearly", "year", "y", "1y"},
}

func (p Period) valid() bool { return p >= Daily && p <= Yearly }

func (p Period) String() string {
	if !p.valid() {
		return fmt.Sprintf("period(%d)", int(p))
	}
	return periodNames[p][0]
}

// ParsePeriod reads a period like "weekly", "month" or "3m". Case and
// surrounding blanks are ignored and the empty string means Daily.
func ParsePeriod(s string) (Period, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return Daily, nil
	}
	for p, names := range periodNames {
		for _, name := range names {
			if key == name {
				return Period(p), nil
			}
		}
	}
	return Daily, fmt.Errorf("unknown period %q", s)
}

// MarshalText writes the canonical name.
func (p Period) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("unknown period %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText accepts anything ParsePeriod does.
func (p *Period) UnmarshalText(text []byte) error {
	v, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
