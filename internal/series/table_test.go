package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_Rows(t *testing.T) {
	frame := Align(mustFromRaw(t, Raw{
		"2023":     {"1/5": 1, "1/10": 2},
		"2024":     {"1/5": 1.5},
		"5YEARAVG": {"1/10": 8},
	}), AggregateExclusion())

	rows := frame.Rows()
	require.Len(t, rows, 2)

	assert.Equal(t, "1/10", rows[0].Date.String())
	assert.Nil(t, rows[0].Values["2024"])
	assert.Equal(t, 8.0, *rows[0].Values["5YEARAVG"])
	assert.Equal(t, 2.0, *rows[0].Low)
	assert.Equal(t, 2.0, *rows[0].High)

	assert.Equal(t, "1/5", rows[1].Date.String())
	assert.Equal(t, 1.0, *rows[1].Low)
	assert.Equal(t, 1.5, *rows[1].High)
}

func TestPaginate(t *testing.T) {
	rows := make([]Row, 7)
	for i := range rows {
		rows[i] = Row{Date: MustDateKey(1, i+1)}
	}

	tests := []struct {
		name       string
		page, size int
		wantLen    int
		wantPage   int
		wantSize   int
		wantFirst  int
		wantTotalP int
	}{
		{name: "first page", page: 1, size: 3, wantLen: 3, wantPage: 1, wantSize: 3, wantFirst: 1, wantTotalP: 3},
		{name: "last partial page", page: 3, size: 3, wantLen: 1, wantPage: 3, wantSize: 3, wantFirst: 7, wantTotalP: 3},
		{name: "past the end", page: 4, size: 3, wantLen: 0, wantPage: 4, wantSize: 3, wantTotalP: 3},
		{name: "page below one", page: 0, size: 3, wantLen: 3, wantPage: 1, wantSize: 3, wantFirst: 1, wantTotalP: 3},
		{name: "default size", page: 1, size: 0, wantLen: 7, wantPage: 1, wantSize: DefaultPageSize, wantFirst: 1, wantTotalP: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(rows, tt.page, tt.size)
			assert.Len(t, p.Rows, tt.wantLen)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, 7, p.TotalRows)
			assert.Equal(t, tt.wantTotalP, p.TotalPages)
			assert.NotNil(t, p.Rows)
			if tt.wantLen > 0 {
				assert.Equal(t, tt.wantFirst, p.Rows[0].Date.Day)
			}
		})
	}

	empty := Paginate(nil, 1, 10)
	assert.Equal(t, 0, empty.TotalPages)
	assert.Empty(t, empty.Rows)
}
