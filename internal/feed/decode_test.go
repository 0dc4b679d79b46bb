package feed

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func istanbul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)
	return loc
}

func TestParseStart(t *testing.T) {
	loc := istanbul(t)
	tests := []struct {
		name    string
		day     string
		hour    string
		want    time.Time
		wantErr error
	}{
		{
			name: "utc midnight instant",
			day:  "2026-01-08T21:00:00.000Z",
			hour: "09:30:00",
			want: time.Date(2026, 1, 9, 9, 30, 0, 0, loc),
		},
		{
			name: "no fractional seconds",
			day:  "2026-01-08T21:00:00Z",
			hour: "14:00",
			want: time.Date(2026, 1, 9, 14, 0, 0, 0, loc),
		},
		{
			name: "zoneless timestamp is utc",
			day:  "2026-01-08T21:00:00",
			hour: "10:00",
			want: time.Date(2026, 1, 9, 10, 0, 0, 0, loc),
		},
		{
			name: "plain date",
			day:  "2026-03-31",
			hour: "18:00:00",
			want: time.Date(2026, 3, 31, 18, 0, 0, 0, loc),
		},
		{name: "empty day", day: "", hour: "10:00", wantErr: ErrBadDay},
		{name: "garbage day", day: "next tuesday", hour: "10:00", wantErr: ErrBadDay},
		{name: "invalid date", day: "2026-02-30", hour: "10:00", wantErr: ErrBadDay},
		{name: "hour without minutes", day: "2026-03-31", hour: "10", wantErr: ErrBadHour},
		{name: "hour out of range", day: "2026-03-31", hour: "25:00", wantErr: ErrBadHour},
		{name: "minute out of range", day: "2026-03-31", hour: "10:75", wantErr: ErrBadHour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStart(tt.day, tt.hour, loc)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestDecodeScheduleObject(t *testing.T) {
	loc := istanbul(t)
	body := []byte(`{"schedule":[
		{"day":"2026-10-18T21:00:00.000Z","hour":"14:00:00","confirmed":1,"title":"Sprint review","fullName":"A. Yılmaz","rendezvous_id":"r-1"},
		{"day":"2026-10-19T21:00:00.000Z","hour":"10:00:00","confirmed":"0"},
		{"day":"2026-10-19T21:00:00.000Z","hour":"11:00:00","confirmed":true}
	]}`)

	records, entryErrs, err := DecodeSchedule(body, loc)
	require.NoError(t, err)
	assert.Empty(t, entryErrs)
	require.Len(t, records, 3)

	assert.True(t, records[0].Confirmed)
	assert.Equal(t, "Sprint review", records[0].Title)
	assert.Equal(t, "A. Yılmaz", records[0].Organizer)
	assert.Equal(t, "r-1", records[0].RendezvousID)
	assert.Equal(t, "json", records[0].SourceID)
	assert.True(t, time.Date(2026, 10, 19, 14, 0, 0, 0, loc).Equal(records[0].Start))

	assert.False(t, records[1].Confirmed)
	assert.True(t, records[2].Confirmed)
}

func TestDecodeScheduleArrayEnvelope(t *testing.T) {
	body := []byte(`[{"schedule":[{"day":"2026-10-20","hour":"09:00","confirmed":1}]}]`)
	records, entryErrs, err := DecodeSchedule(body, istanbul(t))
	require.NoError(t, err)
	assert.Empty(t, entryErrs)
	require.Len(t, records, 1)
	assert.Equal(t, 9, records[0].Start.Hour())
}

func TestDecodeScheduleSkipsBadEntries(t *testing.T) {
	body := []byte(`{"schedule":[
		{"day":"2026-10-20","hour":"09:00"},
		{"day":"garbage","hour":"09:00","confirmed":1},
		{"day":"2026-10-20","hour":"9am","confirmed":1},
		{"day":"2026-10-20","hour":"10:00","confirmed":"maybe"},
		"not an object",
		{"day":"2026-10-20","hour":"11:00","confirmed":1}
	]}`)

	records, entryErrs, err := DecodeSchedule(body, istanbul(t))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 11, records[0].Start.Hour())

	require.Len(t, entryErrs, 5)
	assert.ErrorIs(t, entryErrs[0], ErrMissingConfirmation)
	assert.ErrorIs(t, entryErrs[1], ErrBadDay)
	assert.ErrorIs(t, entryErrs[2], ErrBadHour)

	var ee *EntryError
	require.ErrorAs(t, entryErrs[4], &ee)
	assert.Equal(t, 4, ee.Index)
}

func TestDecodeScheduleEnvelopeErrors(t *testing.T) {
	for _, body := range []string{"", "   ", "{", "[1,2]", `{"schedule":"x"}`} {
		_, _, err := DecodeSchedule([]byte(body), time.UTC)
		assert.Error(t, err, "body %q", body)
	}

	records, entryErrs, err := DecodeSchedule([]byte(`[]`), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, entryErrs)
}
