package series

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
)

// ErrDuplicateDate is reported when two raw keys of one series normalize to the same day
var ErrDuplicateDate = errors.New("duplicate date key")

// NamedSeries is a sparse date -> value mapping for one year or aggregate category.
// A missing key means no observation that day, not zero.
type NamedSeries struct {
	Name   string
	Points map[DateKey]float64
}

// New creates an empty series
func New(name string) NamedSeries {
	return NamedSeries{Name: name, Points: make(map[DateKey]float64)}
}

// Len returns the number of observations
func (s NamedSeries) Len() int {
	return len(s.Points)
}

// Value returns the observation for k, if any
func (s NamedSeries) Value(k DateKey) (float64, bool) {
	v, ok := s.Points[k]
	return v, ok
}

// Set records an observation
func (s NamedSeries) Set(k DateKey, v float64) {
	s.Points[k] = v
}

// Keys returns the observed dates in calendar order
func (s NamedSeries) Keys() []DateKey {
	keys := make([]DateKey, 0, len(s.Points))
	for k := range s.Points {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, DateKey.Compare)
	return keys
}

// Raw is the upstream wire shape: series name -> "M/D" -> value
type Raw map[string]map[string]float64

// RawJSON is Raw before values are checked; upstream sends null for days
// without an observation
type RawJSON map[string]map[string]json.RawMessage

// Numeric keeps the numeric values of r and reports how many entries were
// null or not numbers. A null never becomes a zero observation.
func (r RawJSON) Numeric() (Raw, int) {
	raw := make(Raw, len(r))
	dropped := 0
	for name, points := range r {
		values := make(map[string]float64, len(points))
		for key, msg := range points {
			var v float64
			if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) || json.Unmarshal(msg, &v) != nil {
				dropped++
				continue
			}
			values[key] = v
		}
		raw[name] = values
	}
	return raw, dropped
}

// ParseFailure describes one raw entry dropped during decoding
type ParseFailure struct {
	Series string
	Key    string
	Err    error
}

func (f ParseFailure) Error() string {
	return fmt.Sprintf("series %q key %q: %v", f.Series, f.Key, f.Err)
}

func (f ParseFailure) Unwrap() error {
	return f.Err
}

// FromRaw decodes the upstream shape. Entries whose key does not parse are dropped
// from their series and logged; they never fail the whole decode.
// Output is sorted by series name.
func FromRaw(raw Raw, logger *slog.Logger) ([]NamedSeries, []ParseFailure) {
	if logger == nil {
		logger = slog.Default()
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]NamedSeries, 0, len(names))
	var failures []ParseFailure

	for _, name := range names {
		points := raw[name]
		s := New(name)

		rawKeys := make([]string, 0, len(points))
		for key := range points {
			rawKeys = append(rawKeys, key)
		}
		sort.Strings(rawKeys)

		for _, key := range rawKeys {
			k, err := ParseDateKey(key)
			if err == nil {
				if _, dup := s.Points[k]; dup {
					err = fmt.Errorf("%w: %s", ErrDuplicateDate, k)
				}
			}
			if err != nil {
				failures = append(failures, ParseFailure{Series: name, Key: key, Err: err})
				logger.Warn("dropping series entry",
					slog.String("series", name),
					slog.String("key", key),
					slog.String("error", err.Error()))
				continue
			}
			s.Points[k] = points[key]
		}
		out = append(out, s)
	}

	return out, failures
}

// ToRaw renders series back into the upstream shape
func ToRaw(series []NamedSeries) Raw {
	raw := make(Raw, len(series))
	for _, s := range series {
		m := make(map[string]float64, len(s.Points))
		for k, v := range s.Points {
			m[k.String()] = v
		}
		raw[s.Name] = m
	}
	return raw
}

// Find returns the first series named name
func Find(series []NamedSeries, name string) (NamedSeries, bool) {
	for _, s := range series {
		if s.Name == name {
			return s, true
		}
	}
	return NamedSeries{}, false
}

// Exclusion selects aggregate series that must not contribute to an envelope.
// The zero value excludes nothing.
type Exclusion struct {
	names    map[string]struct{}
	contains []string
}

// ExcludeNames excludes series by exact name
func ExcludeNames(names ...string) Exclusion {
	return Exclusion{}.WithNames(names...)
}

// ExcludeContaining excludes series whose name contains any of subs, case-insensitively
func ExcludeContaining(subs ...string) Exclusion {
	return Exclusion{}.WithContaining(subs...)
}

// AggregateExclusion matches synthetic averages such as "5YEARAVG"
func AggregateExclusion() Exclusion {
	return ExcludeContaining("AVG")
}

// WithNames returns a copy that also excludes the given names
func (e Exclusion) WithNames(names ...string) Exclusion {
	out := Exclusion{names: make(map[string]struct{}, len(e.names)+len(names)), contains: slices.Clone(e.contains)}
	for n := range e.names {
		out.names[n] = struct{}{}
	}
	for _, n := range names {
		out.names[n] = struct{}{}
	}
	return out
}

// WithContaining returns a copy that also excludes names containing any of subs
func (e Exclusion) WithContaining(subs ...string) Exclusion {
	out := Exclusion{names: e.names, contains: slices.Clone(e.contains)}
	for _, s := range subs {
		if s != "" {
			out.contains = append(out.contains, strings.ToUpper(s))
		}
	}
	return out
}

// Excludes reports whether the named series is an aggregate
func (e Exclusion) Excludes(name string) bool {
	if _, ok := e.names[name]; ok {
		return true
	}
	upper := strings.ToUpper(name)
	for _, sub := range e.contains {
		if strings.Contains(upper, sub) {
			return true
		}
	}
	return false
}
