// Package upstream is the HTTP client for the remote market-data API.
//
// Series endpoints answer GET requests with
//
//	{"2023": {"1/5": 71.2, "1/6": 70.9}, "2024": {"1/5": 74.0}}
//
// FetchSeries returns that body as a series.Raw. Ingest uploads a PDF to
// POST {base}/ingest/{kind} and hands back whatever document the API derives
// from it. Failures come back as *FetchError or *IngestError; neither is retried.
package upstream
