package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnexpectedStatus marks a non-2xx answer from the market-data API
var ErrUnexpectedStatus = errors.New("unexpected status")

// FetchError is returned for every failed call to the market-data API:
// transport errors, non-2xx statuses and undecodable bodies alike.
type FetchError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ProblemType maps the failure to a 502 problem
func (e *FetchError) ProblemType() (int, string, string) {
	return http.StatusBadGateway, "/errors/upstream/fetch-failed", "Upstream Fetch Failed"
}

// IngestError is returned when a document upload is rejected or fails
type IngestError struct {
	Kind       string
	StatusCode int
	Err        error
}

func (e *IngestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ingesting %s: status %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ingesting %s: %v", e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// ProblemType maps the failure to a 502 problem
func (e *IngestError) ProblemType() (int, string, string) {
	return http.StatusBadGateway, "/errors/upstream/ingest-failed", "Document Ingest Failed"
}
