package schedule

import (
	"fmt"
	"time"

	"github.com/golang-sql/civil"
)

// Cell is the semantic state of one slot. Styling is the renderer's business.
type Cell struct {
	Occupied bool   `json:"occupied"`
	Label    string `json:"label,omitempty"`
}

// Slot addresses a cell.
type Slot struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// GridConfig fixes the grid's shape for its whole lifetime.
type GridConfig struct {
	HourStart  int
	HourEnd    int
	WindowSize int
	DayNames   DayNames
	// Location is the civil zone bookings and "now" are interpreted in.
	// Nil means time.Local.
	Location *time.Location
}

// Grid is the hour x day occupancy model backing one kiosk screen.
//
// Grid is not safe for concurrent use; the owner serializes mutation and
// reads (see kiosk.Screen).
type Grid struct {
	hourStart int
	hourEnd   int
	names     DayNames
	loc       *time.Location

	anchor civil.Date
	days   []CalendarDay
	cells  [][]Cell
}

// NewGrid builds a grid whose window is anchored at the civil date of now.
func NewGrid(cfg GridConfig, now time.Time) (*Grid, error) {
	if cfg.HourStart < 0 || cfg.HourEnd > 23 || cfg.HourStart > cfg.HourEnd {
		return nil, fmt.Errorf("schedule: hours %d..%d: %w", cfg.HourStart, cfg.HourEnd, ErrInvalidHourRange)
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("schedule: new grid with %d days: %w", cfg.WindowSize, ErrInvalidWindowSize)
	}
	if cfg.DayNames == (DayNames{}) {
		cfg.DayNames = TurkishDayNames
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	g := &Grid{
		hourStart: cfg.HourStart,
		hourEnd:   cfg.HourEnd,
		names:     cfg.DayNames,
		loc:       cfg.Location,
	}

	rows := cfg.HourEnd - cfg.HourStart + 1
	g.cells = make([][]Cell, rows)
	for r := range g.cells {
		g.cells[r] = make([]Cell, cfg.WindowSize)
	}

	if err := g.setWindow(now, cfg.WindowSize); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Grid) setWindow(now time.Time, size int) error {
	days, err := GenerateWindow(now.In(g.loc), size, g.names)
	if err != nil {
		return err
	}
	g.days = days
	g.anchor = days[0].Date
	return nil
}

// Rows returns the number of hour rows.
func (g *Grid) Rows() int { return len(g.cells) }

// Cols returns the number of day columns.
func (g *Grid) Cols() int { return len(g.days) }

func (g *Grid) HourStart() int { return g.hourStart }
func (g *Grid) HourEnd() int   { return g.hourEnd }

// Location is the zone bookings are mapped in.
func (g *Grid) Location() *time.Location { return g.loc }

// Anchor is the civil date of column 0.
func (g *Grid) Anchor() civil.Date { return g.anchor }

// Days returns a copy of the day axis.
func (g *Grid) Days() []CalendarDay {
	out := make([]CalendarDay, len(g.days))
	copy(out, g.days)
	return out
}

// ClearAll marks every cell unoccupied with no label.
func (g *Grid) ClearAll() {
	for r := range g.cells {
		for c := range g.cells[r] {
			g.cells[r][c] = Cell{}
		}
	}
}

// SetCell overwrites one cell.
func (g *Grid) SetCell(row, col int, occupied bool, label string) error {
	if !g.inBounds(row, col) {
		return fmt.Errorf("schedule: set cell (%d,%d) in %dx%d grid: %w", row, col, g.Rows(), g.Cols(), ErrOutOfRange)
	}
	g.cells[row][col] = Cell{Occupied: occupied, Label: label}
	return nil
}

// Cell returns the state of one cell.
func (g *Grid) Cell(row, col int) (Cell, error) {
	if !g.inBounds(row, col) {
		return Cell{}, fmt.Errorf("schedule: get cell (%d,%d) in %dx%d grid: %w", row, col, g.Rows(), g.Cols(), ErrOutOfRange)
	}
	return g.cells[row][col], nil
}

func (g *Grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.Rows() && col >= 0 && col < g.Cols()
}

// ColumnForDate returns the column showing date, or false if the date is
// outside the window.
func (g *Grid) ColumnForDate(date civil.Date) (int, bool) {
	col := date.DaysSince(g.anchor)
	if col < 0 || col >= len(g.days) {
		return 0, false
	}
	return col, true
}

// RowForHour returns hour - hourStart, or false outside [hourStart, hourEnd].
func (g *Grid) RowForHour(hour int) (int, bool) {
	if hour < g.hourStart || hour > g.hourEnd {
		return 0, false
	}
	return hour - g.hourStart, true
}

// Locate maps an instant to its slot. It is the single place where the
// projector and the current-slot resolver turn time into grid coordinates.
func (g *Grid) Locate(t time.Time) (Slot, bool) {
	local := t.In(g.loc)
	col, ok := g.ColumnForDate(civil.DateOf(local))
	if !ok {
		return Slot{}, false
	}
	row, ok := g.RowForHour(local.Hour())
	if !ok {
		return Slot{}, false
	}
	return Slot{Row: row, Col: col}, true
}

// NeedsRoll reports whether now falls on a different civil date than the
// window anchor. The full date is compared so month and year rollovers are
// detected even when the day-of-month repeats.
func (g *Grid) NeedsRoll(now time.Time) bool {
	return civil.DateOf(now.In(g.loc)) != g.anchor
}

// RollWindow re-anchors the window at now when the civil date changed and
// clears every cell, since the old occupancy belongs to other columns.
// It reports whether anything changed.
func (g *Grid) RollWindow(now time.Time) (bool, error) {
	if !g.NeedsRoll(now) {
		return false, nil
	}
	if err := g.setWindow(now, len(g.days)); err != nil {
		return false, err
	}
	g.ClearAll()
	return true, nil
}

// GridSnapshot is a detached copy of the grid for readers.
type GridSnapshot struct {
	HourStart int           `json:"hour_start"`
	HourEnd   int           `json:"hour_end"`
	Anchor    civil.Date    `json:"anchor"`
	Days      []CalendarDay `json:"days"`
	Cells     [][]Cell      `json:"cells"`
}

// Hour returns the clock hour a snapshot row represents.
func (s GridSnapshot) Hour(row int) int { return s.HourStart + row }

// Occupied counts occupied cells.
func (s GridSnapshot) Occupied() int {
	n := 0
	for _, row := range s.Cells {
		for _, c := range row {
			if c.Occupied {
				n++
			}
		}
	}
	return n
}

// Snapshot deep-copies the current state.
func (g *Grid) Snapshot() GridSnapshot {
	cells := make([][]Cell, len(g.cells))
	for r := range g.cells {
		cells[r] = make([]Cell, len(g.cells[r]))
		copy(cells[r], g.cells[r])
	}
	return GridSnapshot{
		HourStart: g.hourStart,
		HourEnd:   g.hourEnd,
		Anchor:    g.anchor,
		Days:      g.Days(),
		Cells:     cells,
	}
}
