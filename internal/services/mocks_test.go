package services

import (
	"context"
	"io"
	"net/url"

	"github.com/stretchr/testify/mock"

	"petrodash/internal/series"
	"petrodash/internal/upstream"
	"petrodash/internal/websocket"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) FetchSeries(ctx context.Context, endpoint string, filters url.Values) (series.Raw, error) {
	args := m.Called(ctx, endpoint, filters)
	raw, _ := args.Get(0).(series.Raw)
	return raw, args.Error(1)
}

type mockIngester struct {
	mock.Mock
}

func (m *mockIngester) Ingest(ctx context.Context, kind, filename string, document io.Reader) (*upstream.IngestResult, error) {
	data, _ := io.ReadAll(document)
	args := m.Called(ctx, kind, filename, data)
	res, _ := args.Get(0).(*upstream.IngestResult)
	return res, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, msg websocket.Message) error {
	return m.Called(ctx, msg).Error(0)
}
