package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/infrastructure"
	"petrodash/internal/preferences"
	"petrodash/internal/validation"
	"petrodash/internal/websocket"
)

// PreferenceService edits user preferences and announces changes
type PreferenceService struct {
	store     preferences.Store
	publisher EventPublisher
	validate  *validation.Validator
	logger    *slog.Logger

	// serializes read-modify-write cycles so concurrent edits by one user
	// do not overwrite each other
	mu sync.Mutex
}

// NewPreferenceService creates a preference service; publisher may be nil
func NewPreferenceService(store preferences.Store, publisher EventPublisher, logger *slog.Logger) *PreferenceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferenceService{
		store:     store,
		publisher: publisher,
		validate:  validation.New(),
		logger:    logger.With(slog.String("service", "preferences")),
	}
}

// Get returns the user's preferences
func (s *PreferenceService) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	if userID == "" {
		return preferences.Preferences{}, apierrors.ErrMissingUser
	}
	prefs, err := s.store.Get(ctx, userID)
	if err != nil {
		return preferences.Preferences{}, err
	}
	return prefs.Clone(), nil
}

// Replace overwrites the user's preferences
func (s *PreferenceService) Replace(ctx context.Context, userID string, prefs preferences.Preferences) (preferences.Preferences, error) {
	return s.update(ctx, userID, func(p *preferences.Preferences) error {
		next := prefs.Clone()
		holidays := next.Holidays
		next.Holidays = []preferences.Holiday{}
		for _, h := range holidays {
			next.AddHoliday(h)
		}
		*p = next
		return nil
	})
}

// AddHoliday adds or renames a holiday
func (s *PreferenceService) AddHoliday(ctx context.Context, userID string, h preferences.Holiday) (preferences.Preferences, error) {
	if err := s.validate.Struct(h); err != nil {
		return preferences.Preferences{}, err
	}
	return s.update(ctx, userID, func(p *preferences.Preferences) error {
		p.AddHoliday(h)
		return nil
	})
}

// RemoveHoliday deletes the holiday on date
func (s *PreferenceService) RemoveHoliday(ctx context.Context, userID, date string) (preferences.Preferences, error) {
	if err := s.validate.Var("date", date, "required,datetime="+preferences.HolidayLayout); err != nil {
		return preferences.Preferences{}, err
	}
	return s.update(ctx, userID, func(p *preferences.Preferences) error {
		if !p.RemoveHoliday(date) {
			return apierrors.NotFoundError("holiday on " + date)
		}
		return nil
	})
}

// SetTariff sets the constant added to tariff-adjusted views
func (s *PreferenceService) SetTariff(ctx context.Context, userID string, value float64) (preferences.Preferences, error) {
	return s.update(ctx, userID, func(p *preferences.Preferences) error {
		p.TariffConstant = value
		return nil
	})
}

func (s *PreferenceService) update(ctx context.Context, userID string, mutate func(*preferences.Preferences) error) (preferences.Preferences, error) {
	if userID == "" {
		return preferences.Preferences{}, apierrors.ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.Get(ctx, userID)
	if err != nil {
		return preferences.Preferences{}, err
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return preferences.Preferences{}, err
	}
	if err := s.validate.Struct(next); err != nil {
		return preferences.Preferences{}, err
	}
	if err := s.store.Set(ctx, userID, next); err != nil {
		return preferences.Preferences{}, err
	}

	s.announce(ctx, userID, next)
	return next, nil
}

func (s *PreferenceService) announce(ctx context.Context, userID string, prefs preferences.Preferences) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, websocket.Message{
		Type:      websocket.TypePreferencesUpdated,
		UserID:    userID,
		Data:      prefs,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish preference update",
			slog.String("error", err.Error()))
	}
}
