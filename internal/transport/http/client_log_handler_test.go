package http

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petrodash/internal/shared/testutil"
)

func TestClientLogHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		status    int
		wantLevel slog.Level
		wantMsg   string
	}{
		{
			name:      "info with data",
			body:      `{"level":"info","message":"chart rendered","view":"crack","data":{"ms":12}}`,
			status:    http.StatusOK,
			wantLevel: slog.LevelInfo,
			wantMsg:   "chart rendered",
		},
		{
			name:      "error level",
			body:      `{"level":"error","message":"websocket dropped","source":"live.js"}`,
			status:    http.StatusOK,
			wantLevel: slog.LevelError,
			wantMsg:   "websocket dropped",
		},
		{
			name:      "warning alias",
			body:      `{"level":"WARNING","message":"slow load"}`,
			status:    http.StatusOK,
			wantLevel: slog.LevelWarn,
			wantMsg:   "slow load",
		},
		{
			name:      "unknown level falls back to info",
			body:      `{"level":"trace","message":"tick"}`,
			status:    http.StatusOK,
			wantLevel: slog.LevelInfo,
			wantMsg:   "tick",
		},
		{name: "empty body", body: ``, status: http.StatusBadRequest},
		{name: "invalid json", body: `{"level":`, status: http.StatusBadRequest},
		{name: "blank message", body: `{"level":"info","message":"  "}`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			h := NewClientLogHandler(logger, testErrorHandler(logger))

			req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			asUser("alice")(http.HandlerFunc(h.Handle)).ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			assert.JSONEq(t, `{"success":true}`, rec.Body.String())
			testutil.AssertLogContains(t, logs, tt.wantLevel, tt.wantMsg)
			testutil.AssertLogAttr(t, logs, "user_id", "alice")
		})
	}
}

func TestClientLogHandler_TruncatesMessage(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	h := NewClientLogHandler(logger, testErrorHandler(logger))

	long := strings.Repeat("a", maxClientMessage+50)
	req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(`{"message":"`+long+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	records := logs.GetRecords()
	require.NotEmpty(t, records)
	assert.Len(t, records[len(records)-1].Message, maxClientMessage)
}
