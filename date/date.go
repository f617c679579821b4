// Package date provides a day granular Date and the series built on it.
package date

import (
	"encoding/json"
	"fmt"
	"time"
)

// readDateFormats are tried in order by Parse. The first one allows single
// digit months and days like "2025-7-1".
var readDateFormats = []string{"2006-1-2", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// DateFormat is the format used to represent dates as strings in ISO-8601 format.
const DateFormat = "2006-01-02"

const Day = 24 * time.Hour

// Date represents a date with day-level granularity.
type Date struct {
	y int
	m time.Month
	d int
}

// time returns a canonical time.Time for that day, at midnight UTC.
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// New returns a normalized Date for the given year, month, and day.
func New(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// FromTime returns the day of t, in t's location.
func FromTime(t time.Time) Date { return New(t.Date()) }

// Today returns the current date.
func Today() Date { return FromTime(time.Now()) }

func (d Date) Year() int                   { return d.y }
func (d Date) Month() time.Month           { return d.m }
func (d Date) Day() int                    { return d.d }
func (d Date) Weekday() time.Weekday       { return d.time().Weekday() }
func (d Date) IsZero() bool                { return d == Date{} }
func (d Date) Before(x Date) bool          { return d.time().Before(x.time()) }
func (d Date) After(x Date) bool           { return d.time().After(x.time()) }
func (d Date) Add(days int) Date           { return New(d.y, d.m, d.d+days) }
func (d Date) Time() time.Time             { return d.time() }
func (d Date) Format(layout string) string { return d.time().Format(layout) }
func (d Date) String() string              { return d.time().Format(DateFormat) }

// Sub returns the number of days between x and d.
func (d Date) Sub(x Date) int { return int(d.time().Sub(x.time()) / Day) }

// Parse parses a Date from a string. It is lenient and accepts a timestamp,
// keeping only its day.
func Parse(str string) (Date, error) {
	for _, layout := range readDateFormats {
		if on, err := time.Parse(layout, str); err == nil {
			return FromTime(on), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q want format %q", str, DateFormat)
}

// MustParse is like Parse but panics on error.
func MustParse(str string) Date {
	d, err := Parse(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	if str == "" {
		*d = Date{}
		return nil
	}
	on, err := Parse(str)
	if err != nil {
		return err
	}
	*d = on
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)

// StartOf returns the first day of the period containing d. Weeks start on
// Monday.
func (d Date) StartOf(p Period) Date {
	switch p {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		return d.Add(-offset)
	case Monthly:
		return New(d.y, d.m, 1)
	case Quarterly:
		return New(d.y, d.m-(d.m-1)%3, 1)
	case Yearly:
		return New(d.y, time.January, 1)
	default:
		return d
	}
}

// EndOf returns the last day of the period containing d.
func (d Date) EndOf(p Period) Date {
	switch p {
	case Weekly:
		return d.StartOf(Weekly).Add(6)
	case Monthly:
		return New(d.y, d.m+1, 0)
	case Quarterly:
		return New(d.y, d.StartOf(Quarterly).m+3, 0)
	case Yearly:
		return New(d.y, time.December, 31)
	default:
		return d
	}
}
