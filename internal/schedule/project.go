package schedule

import (
	"kioskgrid/internal/model"
)

// DefaultBusyLabel is written into occupied cells unless overridden.
const DefaultBusyLabel = "BUSY"

// ProjectStats summarizes one projection pass.
type ProjectStats struct {
	Total       int
	Projected   int // confirmed records that landed on a cell
	Unconfirmed int
	Malformed   int
	OutOfWindow int // outside the day window or the hour range
	Collisions  int // records landing on an already occupied cell
}

// Skipped is the number of records that did not land on a cell.
func (s ProjectStats) Skipped() int {
	return s.Unconfirmed + s.Malformed + s.OutOfWindow
}

type projectOptions struct {
	label string
}

// ProjectOption customizes Project.
type ProjectOption func(*projectOptions)

// WithBusyLabel sets the label of occupied cells.
func WithBusyLabel(label string) ProjectOption {
	return func(o *projectOptions) {
		if label != "" {
			o.label = label
		}
	}
}

// Project clears g and marks the slot of every confirmed, in-window booking
// as occupied. It is idempotent: the result depends only on bookings and the
// grid's window, never on what a previous pass left behind.
//
// Bad records are skipped one by one; nothing aborts the pass.
func Project(g *Grid, bookings []model.BookingRecord, opts ...ProjectOption) ProjectStats {
	o := projectOptions{label: DefaultBusyLabel}
	for _, opt := range opts {
		opt(&o)
	}

	g.ClearAll()

	stats := ProjectStats{Total: len(bookings)}
	for _, b := range bookings {
		if !b.Valid() {
			stats.Malformed++
			continue
		}
		if !b.Confirmed {
			stats.Unconfirmed++
			continue
		}
		slot, ok := g.Locate(b.Start)
		if !ok {
			stats.OutOfWindow++
			continue
		}

		prev, err := g.Cell(slot.Row, slot.Col)
		if err != nil {
			stats.OutOfWindow++
			continue
		}
		if prev.Occupied {
			stats.Collisions++
		}
		if err := g.SetCell(slot.Row, slot.Col, true, o.label); err != nil {
			stats.OutOfWindow++
			continue
		}
		stats.Projected++
	}
	return stats
}
