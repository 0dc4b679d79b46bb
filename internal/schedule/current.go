package schedule

import "time"

// CurrentSlot returns the cell for the hour now falls in, or false outside
// the window or business hours. It never mutates g.
func CurrentSlot(g *Grid, now time.Time) (Slot, bool) {
	return g.Locate(now)
}

// IsCurrent reports whether (row, col) is the current slot at now.
func IsCurrent(g *Grid, now time.Time, row, col int) bool {
	s, ok := CurrentSlot(g, now)
	return ok && s.Row == row && s.Col == col
}
