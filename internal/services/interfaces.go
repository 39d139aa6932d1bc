package services

import (
	"context"
	"io"
	"net/url"

	"petrodash/internal/series"
	"petrodash/internal/upstream"
	"petrodash/internal/websocket"
)

// SeriesSource is the market-data API
type SeriesSource interface {
	FetchSeries(ctx context.Context, endpoint string, filters url.Values) (series.Raw, error)
}

// DocumentIngester converts uploaded documents into spreadsheets
type DocumentIngester interface {
	Ingest(ctx context.Context, kind, filename string, document io.Reader) (*upstream.IngestResult, error)
}

// EventPublisher pushes events to connected browsers
type EventPublisher interface {
	Publish(ctx context.Context, msg websocket.Message) error
}
