package caixa

import (
	"encoding/json"
	"fmt"
	"time"
)

// MonthFormat is the wire representation of a reference month.
const MonthFormat = "2006-01"

// Month represents a calendar month with no day granularity. The zero value
// is "no month" and sorts before every real month.
type Month struct {
	y int
	m time.Month
}

// NewMonth returns a normalized Month for the given year and month.
func NewMonth(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{y: t.Year(), m: t.Month()}
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month { return Month{y: t.Year(), m: t.Month()} }

// CurrentMonth returns the month containing now.
func CurrentMonth() Month { return MonthOf(time.Now()) }

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthFormat, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q want format %q: %w", s, MonthFormat, err)
	}
	return Month{y: t.Year(), m: t.Month()}, nil
}

// MustParseMonth is like ParseMonth but panics on error.
func MustParseMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err.Error())
	}
	return m
}

// IsZero reports whether m is the zero "no month" value.
func (m Month) IsZero() bool { return m.y == 0 && m.m == 0 }

func (m Month) time() time.Time {
	return time.Date(m.y, m.m, 1, 0, 0, 0, 0, time.UTC)
}

// Year returns the calendar year.
func (m Month) Year() int { return m.y }

// Month returns the calendar month.
func (m Month) Month() time.Month { return m.m }

// Next returns the following calendar month.
func (m Month) Next() Month {
	t := m.time().AddDate(0, 1, 0)
	return Month{y: t.Year(), m: t.Month()}
}

// Prev returns the preceding calendar month.
func (m Month) Prev() Month {
	t := m.time().AddDate(0, -1, 0)
	return Month{y: t.Year(), m: t.Month()}
}

// Before reports whether m is strictly earlier than x.
func (m Month) Before(x Month) bool {
	if m.y != x.y {
		return m.y < x.y
	}
	return m.m < x.m
}

// After reports whether m is strictly later than x.
func (m Month) After(x Month) bool { return x.Before(m) }

// Equal reports whether m and x are the same calendar month.
func (m Month) Equal(x Month) bool { return m.y == x.y && m.m == x.m }

// String formats the month as "YYYY-MM"; the zero value formats empty.
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.time().Format(MonthFormat)
}

// MarshalJSON encodes the month as a "YYYY-MM" string.
func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a "YYYY-MM" string; empty means the zero value.
func (m *Month) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

var _ json.Marshaler = (*Month)(nil)
var _ json.Unmarshaler = (*Month)(nil)
