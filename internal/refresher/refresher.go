// Package refresher re-fetches pinned views on a cron schedule and pushes the
// results to every connected client.
package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"petrodash/internal/config"
	"petrodash/internal/infrastructure"
	"petrodash/internal/services"
	"petrodash/internal/websocket"
)

// ChartSource builds a view's default chart
type ChartSource interface {
	Chart(ctx context.Context, q services.ChartQuery) (*services.Chart, error)
}

// Refresher runs scheduled view refreshes
type Refresher struct {
	schedule  cron.Schedule
	spec      string
	views     []string
	source    ChartSource
	publisher services.EventPublisher
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New validates the schedule and creates a refresher
func New(cfg config.RefreshConfig, source ChartSource, publisher services.EventPublisher, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) (*Refresher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	schedule, err := cron.ParseStandard(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.Schedule, err)
	}
	return &Refresher{
		schedule:  schedule,
		spec:      cfg.Schedule,
		views:     cfg.Views,
		source:    source,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "refresher")),
		metrics:   metrics,
	}, nil
}

// Start schedules refreshes until Stop is called or ctx ends
func (r *Refresher) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return
	}

	ctx, r.cancel = context.WithCancel(ctx)
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	r.cron.Schedule(r.schedule, cron.FuncJob(func() { r.RunOnce(ctx) }))
	r.cron.Start()

	r.logger.Info("refresher started",
		slog.String("schedule", r.spec),
		slog.Any("views", r.views),
		slog.Time("next_run", r.schedule.Next(time.Now())))
}

// Stop cancels any running refresh and waits for it to return
func (r *Refresher) Stop() {
	r.mu.Lock()
	c, cancel := r.cron, r.cancel
	r.cron, r.cancel = nil, nil
	r.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	r.logger.Info("refresher stopped")
}

// RunOnce refreshes every pinned view in order. Failures are published and
// do not stop the remaining views.
func (r *Refresher) RunOnce(ctx context.Context) {
	for _, view := range r.views {
		if ctx.Err() != nil {
			return
		}
		r.refresh(ctx, view)
	}
}

func (r *Refresher) refresh(ctx context.Context, view string) {
	start := time.Now()
	chart, err := r.source.Chart(ctx, services.ChartQuery{View: view})
	r.metrics.RecordRefresh(ctx, view, err)

	msg := websocket.Message{View: view, Timestamp: time.Now().UTC()}
	if err != nil {
		r.logger.WarnContext(ctx, "scheduled refresh failed",
			slog.String("view", view),
			slog.String("error", err.Error()))
		msg.Type = websocket.TypeViewFailed
		msg.Data = map[string]string{"error": err.Error()}
	} else {
		r.logger.DebugContext(ctx, "view refreshed",
			slog.String("view", view),
			slog.Int("positions", len(chart.Labels)),
			slog.Duration("duration", time.Since(start)))
		msg.Type = websocket.TypeViewRefreshed
		msg.Data = chart
	}

	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, msg); err != nil {
		r.logger.WarnContext(ctx, "failed to publish refresh",
			slog.String("view", view),
			slog.String("error", err.Error()))
	}
}
