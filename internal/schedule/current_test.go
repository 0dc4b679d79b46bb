package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCurrentSlot(t *testing.T) {
	g := newTestGrid(t)
	loc := g.Location()

	tests := []struct {
		name string
		now  time.Time
		want Slot
		ok   bool
	}{
		{name: "today 14:00", now: at(loc, anchorDay, 14, 0), want: Slot{Row: 5, Col: 0}, ok: true},
		{name: "today 14:59", now: at(loc, anchorDay, 14, 59), want: Slot{Row: 5, Col: 0}, ok: true},
		{name: "today 03:00", now: at(loc, anchorDay, 3, 0)},
		{name: "first hour", now: at(loc, anchorDay, 9, 0), want: Slot{Row: 0, Col: 0}, ok: true},
		{name: "last hour", now: at(loc, anchorDay, 18, 30), want: Slot{Row: 9, Col: 0}, ok: true},
		{name: "after hours", now: at(loc, anchorDay, 19, 0)},
		{name: "last window day", now: at(loc, anchorDay.AddDays(4), 12, 0), want: Slot{Row: 3, Col: 4}, ok: true},
		{name: "past the window", now: at(loc, anchorDay.AddDays(5), 12, 0)},
		{name: "other zone", now: time.Date(2026, 10, 20, 7, 0, 0, 0, time.UTC), want: Slot{Row: 1, Col: 1}, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := g.Snapshot()
			got, ok := CurrentSlot(g, tt.now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
			assert.Equal(t, before, g.Snapshot(), "CurrentSlot must not mutate the grid")
		})
	}
}

func TestCurrentSlotAgreesWithLookups(t *testing.T) {
	g := newTestGrid(t)
	loc := g.Location()

	for off := -1; off <= 6; off++ {
		for h := 0; h < 24; h++ {
			now := at(loc, anchorDay.AddDays(off), h, 30)
			got, ok := CurrentSlot(g, now)

			col, colOK := g.ColumnForDate(anchorDay.AddDays(off))
			row, rowOK := g.RowForHour(h)
			assert.Equal(t, colOK && rowOK, ok, "day %d hour %d", off, h)
			if ok {
				assert.Equal(t, Slot{Row: row, Col: col}, got)
				assert.True(t, IsCurrent(g, now, row, col))
			}
		}
	}
}
