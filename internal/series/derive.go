package series

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// AverageName is the conventional label for an n-year average series
func AverageName(years int) string {
	return fmt.Sprintf("%dYEARAVG", years)
}

// Average returns a synthetic series holding, for every date observed in any
// member, the mean of the members observed on that date.
func Average(name string, members []NamedSeries) NamedSeries {
	buckets := make(map[DateKey][]float64)
	for _, s := range members {
		for k, v := range s.Points {
			buckets[k] = append(buckets[k], v)
		}
	}

	out := New(name)
	for k, values := range buckets {
		out.Points[k] = stat.Mean(values, nil)
	}
	return out
}

// PriorYears picks the series named by the n calendar years before current,
// e.g. current=2024, n=5 selects "2019".."2023" when present. The result is
// sorted by year.
func PriorYears(series []NamedSeries, current, n int) []NamedSeries {
	type yearSeries struct {
		year int
		s    NamedSeries
	}

	var picked []yearSeries
	for _, s := range series {
		year, err := strconv.Atoi(s.Name)
		if err != nil {
			continue
		}
		if year >= current-n && year < current {
			picked = append(picked, yearSeries{year: year, s: s})
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].year < picked[j].year })

	out := make([]NamedSeries, len(picked))
	for i, p := range picked {
		out[i] = p.s
	}
	return out
}

// LatestYear returns the largest year-named series label, if any
func LatestYear(series []NamedSeries) (int, bool) {
	latest, found := 0, false
	for _, s := range series {
		year, err := strconv.Atoi(s.Name)
		if err != nil {
			continue
		}
		if !found || year > latest {
			latest, found = year, true
		}
	}
	return latest, found
}

// Adjust returns a copy of s with offset added to every observation
func Adjust(s NamedSeries, offset float64) NamedSeries {
	out := New(s.Name)
	for k, v := range s.Points {
		out.Points[k] = v + offset
	}
	return out
}
