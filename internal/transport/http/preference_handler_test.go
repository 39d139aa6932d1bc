package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/preferences"
	"petrodash/internal/shared/testutil"
)

func newPreferenceRouter(t *testing.T, svc *mockPreferences) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewPreferenceHandler(svc, logger, testErrorHandler(logger))
	return newTestRouter(func(r chi.Router) {
		r.Mount("/api/preferences", h.Routes())
	})
}

func TestPreferenceHandler_Get(t *testing.T) {
	svc := new(mockPreferences)
	svc.On("Get", anyCtx, "alice").Return(preferences.Preferences{
		Holidays:       []preferences.Holiday{{Date: "2024-12-25", Name: "Christmas"}},
		TariffConstant: 0.5,
	}, nil)

	rec := httptest.NewRecorder()
	newPreferenceRouter(t, svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"holidays":[{"date":"2024-12-25","name":"Christmas"}],"tariff_constant":0.5}`, rec.Body.String())
}

func TestPreferenceHandler_Replace(t *testing.T) {
	svc := new(mockPreferences)
	svc.On("Replace", anyCtx, "alice", preferences.Preferences{
		Holidays:       []preferences.Holiday{},
		TariffConstant: 2,
	}).Return(preferences.Preferences{Holidays: []preferences.Holiday{}, TariffConstant: 2}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(`{"tariff_constant":2}`))
	req.Header.Set("Content-Type", "application/json")
	newPreferenceRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestPreferenceHandler_Holidays(t *testing.T) {
	svc := new(mockPreferences)
	svc.On("AddHoliday", anyCtx, "alice", preferences.Holiday{Date: "2024-07-04", Name: "Independence Day"}).
		Return(preferences.Preferences{Holidays: []preferences.Holiday{{Date: "2024-07-04", Name: "Independence Day"}}}, nil)
	svc.On("RemoveHoliday", anyCtx, "alice", "2024-07-04").
		Return(preferences.Preferences{Holidays: []preferences.Holiday{}}, nil)
	svc.On("RemoveHoliday", anyCtx, "alice", "2024-07-05").
		Return(preferences.Preferences{}, apierrors.NotFoundError("holiday on 2024-07-05"))
	router := newPreferenceRouter(t, svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/preferences/holidays",
		strings.NewReader(`{"date":"2024-07-04","name":"Independence Day"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var prefs preferences.Preferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	require.Len(t, prefs.Holidays, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/preferences/holidays/2024-07-04", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/preferences/holidays/2024-07-05", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	svc.AssertExpectations(t)
}

func TestPreferenceHandler_BadBodies(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "holiday without date", method: http.MethodPost, path: "/api/preferences/holidays", body: `{"name":"x"}`},
		{name: "holiday not json", method: http.MethodPost, path: "/api/preferences/holidays", body: `date=2024-01-01`},
		{name: "tariff missing", method: http.MethodPut, path: "/api/preferences/tariff", body: `{}`},
		{name: "tariff not a number", method: http.MethodPut, path: "/api/preferences/tariff", body: `{"value":"high"}`},
		{name: "replace empty body", method: http.MethodPut, path: "/api/preferences", body: ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockPreferences)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			newPreferenceRouter(t, svc).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, apierrors.TypeValidation, decodeProblem(t, rec)["type"])
			svc.AssertNotCalled(t, "AddHoliday", mock.Anything, mock.Anything, mock.Anything)
			svc.AssertNotCalled(t, "SetTariff", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestPreferenceHandler_SetTariff(t *testing.T) {
	svc := new(mockPreferences)
	svc.On("SetTariff", anyCtx, "alice", 0.0).Return(preferences.Preferences{Holidays: []preferences.Holiday{}}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/preferences/tariff", strings.NewReader(`{"value":0}`))
	req.Header.Set("Content-Type", "application/json")
	newPreferenceRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestPreferenceHandler_MissingUser(t *testing.T) {
	svc := new(mockPreferences)
	svc.On("Get", anyCtx, "").Return(preferences.Preferences{}, apierrors.ErrMissingUser)

	logger, _ := testutil.NewTestLogger(t)
	h := NewPreferenceHandler(svc, logger, testErrorHandler(logger))
	r := chi.NewRouter()
	r.Mount("/api/preferences", h.Routes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
