package series

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DateKey
		wantErr bool
	}{
		{name: "plain", input: "1/5", want: DateKey{Month: time.January, Day: 5}},
		{name: "leading zeros", input: "01/05", want: DateKey{Month: time.January, Day: 5}},
		{name: "surrounding space", input: " 12/31 ", want: DateKey{Month: time.December, Day: 31}},
		{name: "end of february", input: "2/28", want: DateKey{Month: time.February, Day: 28}},
		{name: "leap day does not exist in reference year", input: "2/29", wantErr: true},
		{name: "month out of range", input: "13/1", wantErr: true},
		{name: "day zero", input: "3/0", wantErr: true},
		{name: "april 31", input: "4/31", wantErr: true},
		{name: "with year", input: "1/5/2023", wantErr: true},
		{name: "iso date", input: "2023-01-05", wantErr: true},
		{name: "letters", input: "Jan/5", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "signed month", input: "+1/5", wantErr: true},
		{name: "signed day", input: "1/+5", wantErr: true},
		{name: "negative day", input: "1/-5", wantErr: true},
		{name: "empty day", input: "1/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDateKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedDate))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateKey_Compare(t *testing.T) {
	jan5 := MustDateKey(time.January, 5)
	jan10 := MustDateKey(time.January, 10)
	feb1 := MustDateKey(time.February, 1)
	dec31 := MustDateKey(time.December, 31)

	assert.True(t, jan5.Before(jan10))
	assert.True(t, jan10.Before(feb1))
	assert.True(t, feb1.Before(dec31))
	assert.False(t, dec31.Before(jan5))
	assert.Equal(t, 0, jan5.Compare(MustDateKey(time.January, 5)))

	// "1/10" sorts after "1/5" even though it sorts before it lexically
	assert.Equal(t, -1, jan5.Compare(jan10))
}

func TestDateKey_Text(t *testing.T) {
	k := MustDateKey(time.March, 7)
	assert.Equal(t, "3/7", k.String())
	assert.Equal(t, time.Date(ReferenceYear, time.March, 7, 0, 0, 0, 0, time.UTC), k.Time())

	b, err := json.Marshal(map[string]DateKey{"d": k})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"3/7"}`, string(b))

	var back struct{ D DateKey }
	require.NoError(t, json.Unmarshal([]byte(`{"D":"03/07"}`), &back))
	assert.Equal(t, k, back.D)

	assert.Error(t, json.Unmarshal([]byte(`{"D":"2/30"}`), &back))
}

func TestMustDateKey_Panics(t *testing.T) {
	assert.Panics(t, func() { MustDateKey(time.February, 29) })
}
