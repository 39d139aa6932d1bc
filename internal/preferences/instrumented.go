package preferences

import (
	"context"
	"log/slog"

	"petrodash/internal/infrastructure"
)

// Instrumented wraps a Store with logging and operation metrics
type Instrumented struct {
	next    Store
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// NewInstrumented decorates next
func NewInstrumented(next Store, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Instrumented {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instrumented{
		next:    next,
		logger:  logger.With(slog.String("component", "preferences")),
		metrics: metrics,
	}
}

func (s *Instrumented) Get(ctx context.Context, userID string) (Preferences, error) {
	prefs, err := s.next.Get(ctx, userID)
	s.metrics.RecordPreferenceOp(ctx, "get", err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load preferences",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
	}
	return prefs, err
}

func (s *Instrumented) Set(ctx context.Context, userID string, prefs Preferences) error {
	err := s.next.Set(ctx, userID, prefs)
	s.metrics.RecordPreferenceOp(ctx, "set", err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to save preferences",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return err
	}
	s.logger.InfoContext(ctx, "preferences saved",
		slog.String("user_id", userID),
		slog.Int("holidays", len(prefs.Holidays)))
	return nil
}
