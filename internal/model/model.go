package model

import "time"

// BookingRecord is a single reservation of the room as delivered by a feed.
// Records are immutable once received; the projector only reads them.
type BookingRecord struct {
	// Start is the absolute instant the booking begins. A zero Start marks a
	// record whose timestamp could not be parsed; the projector skips it.
	Start time.Time

	// Confirmed reports whether the booking was approved. Only confirmed
	// records occupy a grid cell.
	Confirmed bool

	// Optional descriptive fields carried through for detail views.
	Title        string
	Organizer    string
	RendezvousID string
	SourceID     string
}

// Valid reports whether the record carries a usable start time.
func (b BookingRecord) Valid() bool {
	return !b.Start.IsZero()
}
