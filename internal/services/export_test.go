package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apierrors "petrodash/internal/errors"
)

func TestDashboard_ExportCSV(t *testing.T) {
	src := &mockSource{}
	src.On("FetchSeries", mock.Anything, "futures/spreads", mock.Anything).Return(spreadsRaw(), nil)

	svc := newDashboard(t, src, nil)
	export, err := svc.Export(context.Background(), "u1", ViewFuturesSpreads, map[string]string{"product": "ULSD"}, ExportCSV)
	require.NoError(t, err)

	assert.Equal(t, "futures-spreads_ULSD_M1-M2.csv", export.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", export.ContentType)

	body := bytes.TrimPrefix(export.Data, []byte("\xEF\xBB\xBF"))
	records, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Date", records[0][0])
	assert.Contains(t, records[0], "2024")
}

func TestDashboard_ExportXLSX(t *testing.T) {
	src := &mockSource{}
	src.On("FetchSeries", mock.Anything, "futures/spreads", mock.Anything).Return(spreadsRaw(), nil)

	svc := newDashboard(t, src, nil)
	export, err := svc.Export(context.Background(), "u1", ViewFuturesSpreads, nil, ExportXLSX)
	require.NoError(t, err)
	assert.Equal(t, exportContentTypes[ExportXLSX], export.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())
}

func TestDashboard_ExportRejects(t *testing.T) {
	svc := newDashboard(t, &mockSource{}, nil)

	_, err := svc.Export(context.Background(), "u1", ViewFuturesSpreads, nil, "pdf")
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotAcceptable, apiErr.StatusCode)

	_, err = svc.Export(context.Background(), "u1", "nope", nil, ExportCSV)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "crack_Gulf-Coast_321.xlsx",
		exportFilename("crack", map[string]string{"spread": "321", "region": "Gulf Coast"}, "xlsx"))
	assert.Equal(t, "transit.csv", exportFilename("transit", nil, "csv"))
}
