// Package dataprocessing reads spreadsheets back into date series.
//
// The ingest endpoint turns uploaded PDF reports into workbooks, and
// seriesctl accepts workbooks exported by the dashboard. Both use the same
// layout: a header row starting with "Date" followed by one column per
// series, then one row per calendar day.
//
//	raw, err := dataprocessing.ParseSeriesSheet(data, "", logger)
//	parsed, failures := series.FromRaw(raw, logger)
//
// Columns named Low or High are envelope output from an export and are
// ignored on the way back in.
package dataprocessing
