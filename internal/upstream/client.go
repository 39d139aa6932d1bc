package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"petrodash/internal/infrastructure"
	"petrodash/internal/series"
)

// maxErrorBody bounds how much of a failed response is kept for the error message
const maxErrorBody = 512

// Config configures the market-data client
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RPS       float64
	Burst     int
	UserAgent string
	MaxUpload int64
}

// Client talks to the remote market-data API
type Client struct {
	base       *url.URL
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics
}

// NewClient creates a client. Outbound requests are traced and rate limited.
func NewClient(cfg Config, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:   base,
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, cfg.Burst),
		logger:  logger.With(slog.String("component", "upstream")),
		metrics: metrics,
	}, nil
}

func (c *Client) endpointURL(parts ...string) string {
	u := *c.base
	u.Path = path.Join(append([]string{u.Path}, parts...)...)
	return u.String()
}

// FetchSeries GETs endpoint with the given filters and decodes the
// {series: {"M/D": value}} body. Null and non-numeric values are dropped.
func (c *Client) FetchSeries(ctx context.Context, endpoint string, filters url.Values) (series.Raw, error) {
	start := time.Now()
	raw, err := c.fetchSeries(ctx, endpoint, filters)
	c.metrics.RecordFetch(ctx, endpoint, time.Since(start), err)

	if err != nil {
		c.logger.WarnContext(ctx, "fetch failed",
			slog.String("endpoint", endpoint),
			slog.String("filters", filters.Encode()),
			slog.String("error", err.Error()))
		return nil, err
	}

	c.logger.DebugContext(ctx, "fetched series",
		slog.String("endpoint", endpoint),
		slog.Int("series", len(raw)),
		slog.Duration("duration", time.Since(start)))
	return raw, nil
}

func (c *Client) fetchSeries(ctx context.Context, endpoint string, filters url.Values) (series.Raw, error) {
	fail := func(status int, err error) error {
		return &FetchError{Endpoint: endpoint, StatusCode: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(0, err)
	}

	target := c.endpointURL(endpoint)
	if len(filters) > 0 {
		target += "?" + filters.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if traceID := infrastructure.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, statusError(resp))
	}

	var body series.RawJSON
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return c.toRaw(ctx, endpoint, body), nil
}

// toRaw keeps numeric values only
func (c *Client) toRaw(ctx context.Context, endpoint string, body series.RawJSON) series.Raw {
	raw, dropped := body.Numeric()
	if dropped > 0 {
		c.logger.WarnContext(ctx, "dropped non-numeric values",
			slog.String("endpoint", endpoint),
			slog.Int("count", dropped))
	}
	return raw
}

func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return fmt.Errorf("%w: %s: %s", ErrUnexpectedStatus, resp.Status, msg)
}

// IngestResult is the derived document returned for an uploaded PDF
type IngestResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Ingest uploads a PDF to the ingest endpoint for kind and returns the
// derived spreadsheet unchanged.
func (c *Client) Ingest(ctx context.Context, kind, filename string, document io.Reader) (*IngestResult, error) {
	fail := func(status int, err error) error {
		return &IngestError{Kind: kind, StatusCode: status, Err: err}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fail(0, err)
	}

	limit := c.config.MaxUpload
	if limit <= 0 {
		limit = 20 << 20
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fail(0, err)
	}
	n, err := io.Copy(part, io.LimitReader(document, limit+1))
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to read document: %w", err))
	}
	if n > limit {
		return nil, fail(0, fmt.Errorf("document exceeds %d bytes", limit))
	}
	if err := mw.Close(); err != nil {
		return nil, fail(0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL("ingest", kind), &buf)
	if err != nil {
		return nil, fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", c.config.UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail(resp.StatusCode, statusError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	result := &IngestResult{
		Filename:    responseFilename(resp, filename),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}

	c.logger.InfoContext(ctx, "document ingested",
		slog.String("kind", kind),
		slog.String("filename", filename),
		slog.Int64("uploaded_bytes", n),
		slog.Int("result_bytes", len(data)),
		slog.Duration("duration", time.Since(start)))
	return result, nil
}

// responseFilename prefers the name in Content-Disposition, falling back to
// the upload's base name with an .xlsx extension.
func responseFilename(resp *http.Response, uploaded string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	base := strings.TrimSuffix(path.Base(uploaded), path.Ext(uploaded))
	return base + ".xlsx"
}

// EncodeFilters converts a filter selection to query values, skipping empty entries
func EncodeFilters(filters map[string]string) url.Values {
	values := make(url.Values, len(filters))
	for k, v := range filters {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values
}

// IsFetchError reports whether err is, or wraps, a FetchError
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
