package series

import (
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Band is the min/max envelope at one axis position. Both are nil when no
// ordinary series has an observation there.
type Band struct {
	Min *float64 `json:"min" msgpack:"min"`
	Max *float64 `json:"max" msgpack:"max"`
}

// Present reports whether the band has at least one contributor
func (b Band) Present() bool {
	return b.Min != nil && b.Max != nil
}

// AlignedSeries is one series laid out on a frame's axis
type AlignedSeries struct {
	Name      string     `json:"name" msgpack:"name"`
	Aggregate bool       `json:"aggregate" msgpack:"aggregate"`
	Values    []*float64 `json:"values" msgpack:"values"`
}

// Frame is the chart/table-ready result of aligning a set of series
type Frame struct {
	Axis     []DateKey       `json:"axis"`
	Series   []AlignedSeries `json:"series"`
	Envelope []Band          `json:"envelope"`
}

// BuildAxis returns the sorted union of all dates across series
func BuildAxis(series []NamedSeries) []DateKey {
	seen := make(map[DateKey]struct{})
	for _, s := range series {
		for k := range s.Points {
			seen[k] = struct{}{}
		}
	}

	axis := make([]DateKey, 0, len(seen))
	for k := range seen {
		axis = append(axis, k)
	}
	slices.SortFunc(axis, DateKey.Compare)
	return axis
}

// AlignSeries looks up s at every axis position; nil marks a gap
func AlignSeries(s NamedSeries, axis []DateKey) []*float64 {
	out := make([]*float64, len(axis))
	for i, k := range axis {
		if v, ok := s.Points[k]; ok {
			out[i] = &v
		}
	}
	return out
}

// ComputeEnvelope computes the pointwise min/max across the series that
// exclude does not match.
func ComputeEnvelope(series []NamedSeries, axis []DateKey, exclude Exclusion) []Band {
	contributors := make([]NamedSeries, 0, len(series))
	for _, s := range series {
		if !exclude.Excludes(s.Name) {
			contributors = append(contributors, s)
		}
	}

	bands := make([]Band, len(axis))
	values := make([]float64, 0, len(contributors))
	for i, k := range axis {
		values = values[:0]
		for _, s := range contributors {
			if v, ok := s.Points[k]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		lo, hi := floats.Min(values), floats.Max(values)
		bands[i] = Band{Min: &lo, Max: &hi}
	}
	return bands
}

// Align builds the axis, the aligned values and the envelope in one pass.
// Input order does not matter: series are laid out by name and series that
// share a name are merged first.
func Align(series []NamedSeries, exclude Exclusion) Frame {
	merged := mergeByName(series)
	axis := BuildAxis(merged)

	frame := Frame{
		Axis:     axis,
		Series:   make([]AlignedSeries, len(merged)),
		Envelope: ComputeEnvelope(merged, axis, exclude),
	}
	for i, s := range merged {
		frame.Series[i] = AlignedSeries{
			Name:      s.Name,
			Aggregate: exclude.Excludes(s.Name),
			Values:    AlignSeries(s, axis),
		}
	}
	return frame
}

// mergeByName sorts series by name and unions series sharing a name. On a
// conflicting date the larger value wins so the result is order independent.
func mergeByName(series []NamedSeries) []NamedSeries {
	byName := make(map[string]NamedSeries, len(series))
	for _, s := range series {
		existing, ok := byName[s.Name]
		if !ok {
			existing = New(s.Name)
			byName[s.Name] = existing
		}
		for k, v := range s.Points {
			if cur, dup := existing.Points[k]; dup && cur >= v {
				continue
			}
			existing.Points[k] = v
		}
	}

	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]NamedSeries, len(names))
	for i, n := range names {
		out[i] = byName[n]
	}
	return out
}

// Lookup returns the aligned series with the given name
func (f Frame) Lookup(name string) (AlignedSeries, bool) {
	for _, s := range f.Series {
		if s.Name == name {
			return s, true
		}
	}
	return AlignedSeries{}, false
}

// Empty reports whether the frame has no axis positions
func (f Frame) Empty() bool {
	return len(f.Axis) == 0
}

// Window restricts the frame to keys, in the order given. Keys not on the
// axis are skipped.
func (f Frame) Window(keys []DateKey) Frame {
	index := make(map[DateKey]int, len(f.Axis))
	for i, k := range f.Axis {
		index[k] = i
	}

	positions := make([]int, 0, len(keys))
	for _, k := range keys {
		if i, ok := index[k]; ok {
			positions = append(positions, i)
		}
	}

	out := Frame{
		Axis:     make([]DateKey, len(positions)),
		Series:   make([]AlignedSeries, len(f.Series)),
		Envelope: make([]Band, len(positions)),
	}
	for j, i := range positions {
		out.Axis[j] = f.Axis[i]
		if i < len(f.Envelope) {
			out.Envelope[j] = f.Envelope[i]
		}
	}
	for si, s := range f.Series {
		values := make([]*float64, len(positions))
		for j, i := range positions {
			values[j] = s.Values[i]
		}
		out.Series[si] = AlignedSeries{Name: s.Name, Aggregate: s.Aggregate, Values: values}
	}
	return out
}

// Recent windows the frame to its most recent count positions using the
// anchor policy of WindowRecent, keeping calendar order.
func (f Frame) Recent(anchor string, count int) Frame {
	var has func(i int) bool
	if s, ok := f.Lookup(anchor); ok {
		has = func(i int) bool { return s.Values[i] != nil }
	}
	keys := windowRecent(f.Axis, has, count)
	slices.Reverse(keys)
	return f.Window(keys)
}
