// Package series aligns sparse, year-keyed date series for charting.
//
// Upstream data arrives as series name -> "M/D" -> value, one series per year
// (plus synthetic aggregates such as "5YEARAVG"). Every chart and table in the
// dashboard needs the same reshaping:
//
//	frame := series.Align(parsed, series.AggregateExclusion())
//	frame.Axis      // sorted union of all dates
//	frame.Series    // each series laid out on the axis, nil for gaps
//	frame.Envelope  // per-date min/max across non-aggregate series
//
// Dates carry no year and are ordered within ReferenceYear, so a season that
// crosses December 31 sorts January first. Callers that need true chronology
// across a year boundary must split the series themselves.
//
// All functions are pure and safe for concurrent use.
package series
