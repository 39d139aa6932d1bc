package series

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReferenceYear is the non-leap year every DateKey is projected onto for ordering.
// Keys carry no year of their own, so 2/29 does not exist.
const ReferenceYear = 2001

// ErrMalformedDate is returned for date keys that are not a valid "M/D" in the reference year
var ErrMalformedDate = errors.New("malformed date key")

// DateKey is a calendar day without a year
type DateKey struct {
	Month time.Month
	Day   int
}

// NewDateKey validates month and day against the reference year
func NewDateKey(month time.Month, day int) (DateKey, error) {
	if month < time.January || month > time.December {
		return DateKey{}, fmt.Errorf("%w: month %d out of range", ErrMalformedDate, month)
	}
	t := time.Date(ReferenceYear, month, day, 0, 0, 0, 0, time.UTC)
	if day < 1 || t.Month() != month || t.Day() != day {
		return DateKey{}, fmt.Errorf("%w: day %d invalid for %s", ErrMalformedDate, day, month)
	}
	return DateKey{Month: month, Day: day}, nil
}

// MustDateKey is NewDateKey for literals known to be valid
func MustDateKey(month time.Month, day int) DateKey {
	k, err := NewDateKey(month, day)
	if err != nil {
		panic(err)
	}
	return k
}

// ParseDateKey parses "M/D". Leading zeros are accepted ("01/05" == "1/5").
func ParseDateKey(s string) (DateKey, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return DateKey{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
	}

	month, err := datePart(parts[0])
	if err != nil {
		return DateKey{}, fmt.Errorf("%w: %q: month: %v", ErrMalformedDate, s, err)
	}
	day, err := datePart(parts[1])
	if err != nil {
		return DateKey{}, fmt.Errorf("%w: %q: day: %v", ErrMalformedDate, s, err)
	}

	k, err := NewDateKey(time.Month(month), day)
	if err != nil {
		return DateKey{}, fmt.Errorf("%q: %w", s, err)
	}
	return k, nil
}

// datePart accepts unsigned decimal digits only
func datePart(s string) (int, error) {
	if s == "" || s[0] < '0' || s[0] > '9' {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return strconv.Atoi(s)
}

// String renders the key as "M/D" without leading zeros
func (k DateKey) String() string {
	return strconv.Itoa(int(k.Month)) + "/" + strconv.Itoa(k.Day)
}

// Time projects the key onto the reference year
func (k DateKey) Time() time.Time {
	return time.Date(ReferenceYear, k.Month, k.Day, 0, 0, 0, 0, time.UTC)
}

// Compare orders keys by month, then day
func (k DateKey) Compare(o DateKey) int {
	switch {
	case k.Month < o.Month:
		return -1
	case k.Month > o.Month:
		return 1
	case k.Day < o.Day:
		return -1
	case k.Day > o.Day:
		return 1
	}
	return 0
}

// Before reports whether k sorts strictly before o
func (k DateKey) Before(o DateKey) bool {
	return k.Compare(o) < 0
}

// IsZero reports whether the key was never set
func (k DateKey) IsZero() bool {
	return k.Month == 0 && k.Day == 0
}

// MarshalText implements encoding.TextMarshaler
func (k DateKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *DateKey) UnmarshalText(b []byte) error {
	parsed, err := ParseDateKey(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Strings renders keys in order
func Strings(keys []DateKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
