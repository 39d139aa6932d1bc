package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dailyAxis returns n consecutive days starting January 1
func dailyAxis(n int) []DateKey {
	axis := make([]DateKey, n)
	start := time.Date(ReferenceYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range axis {
		d := start.AddDate(0, 0, i)
		axis[i] = MustDateKey(d.Month(), d.Day())
	}
	return axis
}

func TestWindowRecent_SparseAnchorIsNotPadded(t *testing.T) {
	axis := dailyAxis(50)
	anchor := New("2024")
	for _, i := range []int{3, 10, 22, 40, 41} {
		anchor.Set(axis[i], float64(i))
	}
	other := New("2023")
	for _, k := range axis {
		other.Set(k, 1)
	}

	got := WindowRecent(axis, []NamedSeries{other, anchor}, "2024", 30)

	require.Len(t, got, 5)
	assert.Equal(t, []DateKey{axis[41], axis[40], axis[22], axis[10], axis[3]}, got)
}

func TestWindowRecent_TruncatesToCount(t *testing.T) {
	axis := dailyAxis(10)
	anchor := New("2024")
	for _, k := range axis {
		anchor.Set(k, 1)
	}

	got := WindowRecent(axis, []NamedSeries{anchor}, "2024", 3)
	assert.Equal(t, []DateKey{axis[9], axis[8], axis[7]}, got)
}

func TestWindowRecent_FallsBackWithoutAnchor(t *testing.T) {
	axis := dailyAxis(6)
	other := New("2023")
	other.Set(axis[0], 1)

	tests := []struct {
		name   string
		series []NamedSeries
		anchor string
	}{
		{name: "anchor absent", series: []NamedSeries{other}, anchor: "2024"},
		{name: "anchor empty", series: []NamedSeries{other, New("2024")}, anchor: "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WindowRecent(axis, tt.series, tt.anchor, 4)
			assert.Equal(t, []DateKey{axis[5], axis[4], axis[3], axis[2]}, got)
		})
	}
}

func TestWindowRecent_Degenerate(t *testing.T) {
	axis := dailyAxis(5)

	assert.Empty(t, WindowRecent(axis, nil, "2024", 0))
	assert.Empty(t, WindowRecent(axis, nil, "2024", -3))
	assert.Empty(t, WindowRecent(nil, nil, "2024", 10))
	assert.NotNil(t, WindowRecent(nil, nil, "2024", 10))

	// count larger than the axis returns the whole axis, reversed
	got := WindowRecent(axis, nil, "2024", 100)
	require.Len(t, got, 5)
	assert.Equal(t, axis[4], got[0])
	assert.Equal(t, axis[0], got[4])
}

func TestWindowRecent_StrictlyDescending(t *testing.T) {
	axis := dailyAxis(120)
	anchor := New("2024")
	for i := 0; i < len(axis); i += 7 {
		anchor.Set(axis[i], 1)
	}

	got := WindowRecent(axis, []NamedSeries{anchor}, "2024", 12)
	require.Len(t, got, 12)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i].Before(got[i-1]), "position %d not older than %d", i, i-1)
	}
}
