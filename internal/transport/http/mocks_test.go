package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/fetch"
	"petrodash/internal/infrastructure"
	"petrodash/internal/preferences"
	"petrodash/internal/services"
)

type mockDashboard struct{ mock.Mock }

func (m *mockDashboard) Views() []services.ViewSpec {
	return m.Called().Get(0).([]services.ViewSpec)
}

func (m *mockDashboard) Chart(ctx context.Context, q services.ChartQuery) (*services.Chart, error) {
	args := m.Called(ctx, q)
	chart, _ := args.Get(0).(*services.Chart)
	return chart, args.Error(1)
}

func (m *mockDashboard) Table(ctx context.Context, q services.TableQuery) (*services.Table, error) {
	args := m.Called(ctx, q)
	table, _ := args.Get(0).(*services.Table)
	return table, args.Error(1)
}

func (m *mockDashboard) Export(ctx context.Context, userID, view string, filters map[string]string, format string) (*services.Export, error) {
	args := m.Called(ctx, userID, view, filters, format)
	export, _ := args.Get(0).(*services.Export)
	return export, args.Error(1)
}

func (m *mockDashboard) Overview(ctx context.Context, userID string, views []string) ([]services.OverviewEntry, error) {
	args := m.Called(ctx, userID, views)
	entries, _ := args.Get(0).([]services.OverviewEntry)
	return entries, args.Error(1)
}

func (m *mockDashboard) State(userID, view string) (fetch.State, error) {
	args := m.Called(userID, view)
	return args.Get(0).(fetch.State), args.Error(1)
}

type mockPreferences struct{ mock.Mock }

func (m *mockPreferences) Get(ctx context.Context, userID string) (preferences.Preferences, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(preferences.Preferences), args.Error(1)
}

func (m *mockPreferences) Replace(ctx context.Context, userID string, prefs preferences.Preferences) (preferences.Preferences, error) {
	args := m.Called(ctx, userID, prefs)
	return args.Get(0).(preferences.Preferences), args.Error(1)
}

func (m *mockPreferences) AddHoliday(ctx context.Context, userID string, h preferences.Holiday) (preferences.Preferences, error) {
	args := m.Called(ctx, userID, h)
	return args.Get(0).(preferences.Preferences), args.Error(1)
}

func (m *mockPreferences) RemoveHoliday(ctx context.Context, userID, date string) (preferences.Preferences, error) {
	args := m.Called(ctx, userID, date)
	return args.Get(0).(preferences.Preferences), args.Error(1)
}

func (m *mockPreferences) SetTariff(ctx context.Context, userID string, value float64) (preferences.Preferences, error) {
	args := m.Called(ctx, userID, value)
	return args.Get(0).(preferences.Preferences), args.Error(1)
}

type mockIngest struct{ mock.Mock }

func (m *mockIngest) Ingest(ctx context.Context, kind, filename string, document []byte) (*services.IngestSummary, error) {
	args := m.Called(ctx, kind, filename, document)
	summary, _ := args.Get(0).(*services.IngestSummary)
	return summary, args.Error(1)
}

// asUser stands in for the identity middleware
func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(infrastructure.WithUserID(r.Context(), userID)))
		})
	}
}

func newTestRouter(mount func(r chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(asUser("alice"))
	mount(r)
	return r
}

func testErrorHandler(logger *slog.Logger) *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(logger, false)
}

var anyCtx = mock.Anything
