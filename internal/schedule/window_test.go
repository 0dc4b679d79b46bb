package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestGenerateWindow(t *testing.T) {
	istanbul := mustLoad(t, "Europe/Istanbul")
	newYork := mustLoad(t, "America/New_York")
	berlin := mustLoad(t, "Europe/Berlin")

	tests := []struct {
		name  string
		now   time.Time
		size  int
		first civil.Date
	}{
		{
			name:  "plain week",
			now:   time.Date(2026, 10, 19, 14, 5, 0, 0, istanbul),
			size:  5,
			first: civil.Date{Year: 2026, Month: time.October, Day: 19},
		},
		{
			name:  "month rollover",
			now:   time.Date(2026, 1, 29, 8, 0, 0, 0, istanbul),
			size:  5,
			first: civil.Date{Year: 2026, Month: time.January, Day: 29},
		},
		{
			name:  "year rollover",
			now:   time.Date(2026, 12, 30, 23, 59, 59, 0, istanbul),
			size:  5,
			first: civil.Date{Year: 2026, Month: time.December, Day: 30},
		},
		{
			name:  "leap day",
			now:   time.Date(2028, 2, 27, 0, 0, 0, 0, istanbul),
			size:  4,
			first: civil.Date{Year: 2028, Month: time.February, Day: 27},
		},
		{
			name:  "night before spring forward",
			now:   time.Date(2026, 3, 7, 23, 30, 0, 0, newYork),
			size:  5,
			first: civil.Date{Year: 2026, Month: time.March, Day: 7},
		},
		{
			name:  "just after fall back",
			now:   time.Date(2026, 10, 25, 2, 30, 0, 0, berlin),
			size:  5,
			first: civil.Date{Year: 2026, Month: time.October, Day: 25},
		},
		{
			name:  "single day",
			now:   time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
			size:  1,
			first: civil.Date{Year: 2026, Month: time.June, Day: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			days, err := GenerateWindow(tt.now, tt.size, EnglishDayNames)
			require.NoError(t, err)
			require.Len(t, days, tt.size)
			assert.Equal(t, tt.first, days[0].Date)

			for i, d := range days {
				assert.Equal(t, i, d.Column)
				assert.Equal(t, tt.first.AddDays(i), d.Date)
				assert.Equal(t, EnglishDayNames.Label(d.Weekday()), d.Label)
				if i > 0 {
					assert.Equal(t, 1, d.Date.DaysSince(days[i-1].Date), "gap between %s and %s", days[i-1].Date, d.Date)
				}
			}
		})
	}
}

func TestGenerateWindowYearRolloverDates(t *testing.T) {
	now := time.Date(2026, 12, 30, 10, 0, 0, 0, time.UTC)
	days, err := GenerateWindow(now, 5, TurkishDayNames)
	require.NoError(t, err)

	got := make([]string, len(days))
	labels := make([]string, len(days))
	for i, d := range days {
		got[i] = d.Date.String()
		labels[i] = d.Label
	}
	assert.Equal(t, []string{"2026-12-30", "2026-12-31", "2027-01-01", "2027-01-02", "2027-01-03"}, got)
	assert.Equal(t, []string{"Çarşamba", "Perşembe", "Cuma", "Cumartesi", "Pazar"}, labels)
}

func TestGenerateWindowSpringForwardNoRepeat(t *testing.T) {
	// On 2026-03-08 New York clocks skip 02:00-03:00, so that day is 23h long.
	newYork := mustLoad(t, "America/New_York")
	now := time.Date(2026, 3, 7, 23, 30, 0, 0, newYork)

	days, err := GenerateWindow(now, 5, EnglishDayNames)
	require.NoError(t, err)

	seen := map[civil.Date]bool{}
	for _, d := range days {
		assert.False(t, seen[d.Date], "date %s repeated", d.Date)
		seen[d.Date] = true
	}
	assert.Equal(t, civil.Date{Year: 2026, Month: time.March, Day: 11}, days[4].Date)
	assert.Equal(t, []string{"Sat", "Sun", "Mon", "Tue", "Wed"}, []string{
		days[0].Label, days[1].Label, days[2].Label, days[3].Label, days[4].Label,
	})
}

func TestGenerateWindowInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, -5} {
		days, err := GenerateWindow(time.Now(), size, EnglishDayNames)
		assert.ErrorIs(t, err, ErrInvalidWindowSize)
		assert.Nil(t, days)
	}
}

func TestCalendarDayDisplayDate(t *testing.T) {
	d := CalendarDay{Date: civil.Date{Year: 2026, Month: time.March, Day: 5}}
	assert.Equal(t, "05.03", d.DisplayDate())
	assert.Equal(t, time.Thursday, d.Weekday())
}

func TestDayNamesFor(t *testing.T) {
	assert.Equal(t, EnglishDayNames, DayNamesFor("en"))
	assert.Equal(t, TurkishShortDayNames, DayNamesFor("tr-short"))
	assert.Equal(t, TurkishDayNames, DayNamesFor("tr"))
	assert.Equal(t, TurkishDayNames, DayNamesFor("klingon"))
	assert.Equal(t, "Pazarte-", TurkishShortDayNames.Label(time.Monday))
}
