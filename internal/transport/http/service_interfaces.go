package http

import (
	"context"

	"petrodash/internal/fetch"
	"petrodash/internal/preferences"
	"petrodash/internal/services"
)

// DashboardService is what the view handlers need from the service layer
type DashboardService interface {
	Views() []services.ViewSpec
	Chart(ctx context.Context, q services.ChartQuery) (*services.Chart, error)
	Table(ctx context.Context, q services.TableQuery) (*services.Table, error)
	Export(ctx context.Context, userID, view string, filters map[string]string, format string) (*services.Export, error)
	Overview(ctx context.Context, userID string, views []string) ([]services.OverviewEntry, error)
	State(userID, view string) (fetch.State, error)
}

// PreferenceService edits a user's preferences
type PreferenceService interface {
	Get(ctx context.Context, userID string) (preferences.Preferences, error)
	Replace(ctx context.Context, userID string, prefs preferences.Preferences) (preferences.Preferences, error)
	AddHoliday(ctx context.Context, userID string, h preferences.Holiday) (preferences.Preferences, error)
	RemoveHoliday(ctx context.Context, userID, date string) (preferences.Preferences, error)
	SetTariff(ctx context.Context, userID string, value float64) (preferences.Preferences, error)
}

// IngestService converts uploaded documents
type IngestService interface {
	Ingest(ctx context.Context, kind, filename string, document []byte) (*services.IngestSummary, error)
}
