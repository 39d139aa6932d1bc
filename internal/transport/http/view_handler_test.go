package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"petrodash/internal/config"
	apierrors "petrodash/internal/errors"
	"petrodash/internal/fetch"
	"petrodash/internal/responseformat"
	"petrodash/internal/series"
	"petrodash/internal/services"
	"petrodash/internal/shared/testutil"
)

func newViewRouter(t *testing.T, svc *mockDashboard) (http.Handler, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, logs := testutil.NewTestLogger(t)
	h := NewViewHandler(svc, logger, testErrorHandler(logger))
	return newTestRouter(func(r chi.Router) {
		r.Mount("/api/views", h.Routes())
		r.Get("/api/overview", h.Overview)
	}), logs
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem), rec.Body.String())
	return problem
}

func TestViewHandler_ListViews(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("Views").Return([]services.ViewSpec{{Name: "futures-spreads"}, {Name: "crack"}})
	router, _ := newViewRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Views []services.ViewSpec `json:"views"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "futures-spreads", body.Views[0].Name)
}

func TestViewHandler_GetChart(t *testing.T) {
	svc := new(mockDashboard)
	want := services.ChartQuery{
		UserID:  "alice",
		View:    "futures-spreads",
		Filters: map[string]string{"product": "ULSD", "spread": "M1-M2"},
		Window:  30,
		Anchor:  "2023",
	}
	svc.On("Chart", anyCtx, want).Return(&services.Chart{
		View:   "futures-spreads",
		Labels: []series.DateKey{series.MustDateKey(1, 5)},
		Window: 30,
	}, nil)
	router, _ := newViewRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/views/futures-spreads/chart?window=30&anchor=2023&product=ULSD&spread=M1-M2", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `["1/5"]`, string(mustField(t, rec.Body.Bytes(), "labels")))
	svc.AssertExpectations(t)
}

func TestViewHandler_GetChart_MsgPack(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("Chart", anyCtx, mock.Anything).Return(&services.Chart{View: "crack", Title: "Crack"}, nil)
	router, _ := newViewRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/views/crack/chart", nil)
	req.Header.Set("Accept", responseformat.ContentTypeMsgPack)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, responseformat.ContentTypeMsgPack, rec.Header().Get("Content-Type"))
	var body struct {
		View  string `msgpack:"view"`
		Title string `msgpack:"title"`
	}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "crack", body.View)
}

func TestViewHandler_GetChart_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "window not a number", query: "window=abc", status: http.StatusBadRequest},
		{name: "window too large", query: "window=100000", status: http.StatusBadRequest},
		{name: "window below full axis", query: "window=-2", status: http.StatusBadRequest},
		{name: "unknown format", query: "format=xml", status: http.StatusNotAcceptable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDashboard)
			svc.On("Chart", anyCtx, mock.Anything).Return(&services.Chart{}, nil).Maybe()
			router, _ := newViewRouter(t, svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/crack/chart?"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestViewHandler_GetChart_ServiceErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		errType string
	}{
		{name: "unknown view", err: services.ErrViewNotFound("nope"), status: http.StatusNotFound, errType: apierrors.TypeViewNotFound},
		{name: "bad filter", err: apierrors.ErrValidation("region", "region is not a filter of crack"), status: http.StatusBadRequest, errType: apierrors.TypeValidation},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, errType: apierrors.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockDashboard)
			svc.On("Chart", anyCtx, mock.Anything).Return(nil, tt.err)
			router, _ := newViewRouter(t, svc)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/nope/chart", nil))

			assert.Equal(t, tt.status, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.errType, problem["type"])
			assert.Equal(t, "/api/views/nope/chart", problem["instance"])
		})
	}
}

func TestViewHandler_GetTable(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("Table", anyCtx, services.TableQuery{
		UserID:   "alice",
		View:     "inventories",
		Filters:  map[string]string{"region": "PADD1"},
		Page:     2,
		PageSize: series.DefaultPageSize,
	}).Return(&services.Table{View: "inventories", Page: 2, TotalPages: 3}, nil)
	router, _ := newViewRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/inventories/table?page=2&region=PADD1", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var table services.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, 2, table.Page)
	svc.AssertExpectations(t)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/inventories/table?page_size=100000", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), fmt.Sprintf("page_size must be between 1 and %d", config.MaxPageSize))
}

func TestViewHandler_Export(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("Export", anyCtx, "alice", "futures-spreads", map[string]string{"product": "ULSD"}, "csv").
		Return(&services.Export{
			Filename:    "futures-spreads_ULSD.csv",
			ContentType: "text/csv; charset=utf-8",
			Data:        []byte("date,2024\n1/5,1\n"),
		}, nil)
	svc.On("Export", anyCtx, "alice", "futures-spreads", map[string]string{}, "pdf").
		Return(nil, apierrors.UnsupportedFormat("pdf"))
	router, logs := newViewRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/futures-spreads/export.csv?product=ULSD", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=futures-spreads_ULSD.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "date,2024\n1/5,1\n", rec.Body.String())
	assert.True(t, logs.ContainsMessage("view exported"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/futures-spreads/export.pdf", nil))
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestViewHandler_GetState(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("State", "alice", "crack").Return(fetch.State{View: "crack", Seq: 4, Error: "upstream down"}, nil)
	svc.On("State", "alice", "other").Return(fetch.State{}, apierrors.NotFoundError("state of other"))
	router, _ := newViewRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/crack/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var state fetch.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, uint64(4), state.Seq)
	assert.Equal(t, "upstream down", state.Error)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/views/other/state", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewHandler_Overview(t *testing.T) {
	svc := new(mockDashboard)
	svc.On("Overview", anyCtx, "alice", []string{"crack", "inventories"}).Return([]services.OverviewEntry{
		{View: "crack", Chart: &services.Chart{View: "crack"}},
		{View: "inventories", Error: "upstream down"},
	}, nil)
	router, _ := newViewRouter(t, svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/overview?views=crack,%20inventories,", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Views []services.OverviewEntry `json:"views"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, "upstream down", body.Views[1].Error)
	svc.AssertExpectations(t)
}

func TestFiltersFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?window=5&page=1&page_size=2&format=json&anchor=2024&views=a&product=ULSD&product=RBOB&region=", nil)
	assert.Equal(t, map[string]string{"product": "ULSD", "region": ""}, filtersFromQuery(req))
}

func mustField(t *testing.T, body []byte, field string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	raw, ok := fields[field]
	require.True(t, ok, "missing field %s", field)
	return raw
}
