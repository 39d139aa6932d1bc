package exporter

import (
	"strconv"
)

// formatFloat formats a value with the shortest exact representation
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatValue renders an optional value; absent values become empty cells
func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
