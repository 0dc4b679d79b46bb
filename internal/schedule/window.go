// Package schedule derives the kiosk's hour x day occupancy grid from
// booking records. It knows nothing about pixels, HTTP or feeds: callers
// hand it decoded records and read back cell states.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-sql/civil"
)

var (
	ErrInvalidWindowSize = errors.New("window size must be positive")
	ErrInvalidHourRange  = errors.New("invalid hour range")
	ErrOutOfRange        = errors.New("cell out of range")
)

// DayNames maps time.Weekday (Sunday = 0) to the header label.
type DayNames [7]string

var (
	EnglishDayNames = DayNames{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

	TurkishDayNames = DayNames{
		"Pazar", "Pazartesi", "Salı", "Çarşamba", "Perşembe", "Cuma", "Cumartesi",
	}

	// TurkishShortDayNames are the hyphenated forms that fit the 800x480 panel's
	// day columns.
	TurkishShortDayNames = DayNames{
		"Pazar", "Pazarte-", "Salı", "Çarşam-", "Perşem-", "Cuma", "Cumart-",
	}
)

// DayNamesFor returns the label table for a config key ("en", "tr",
// "tr-short"). Unknown keys get the Turkish table.
func DayNamesFor(key string) DayNames {
	switch key {
	case "en":
		return EnglishDayNames
	case "tr-short":
		return TurkishShortDayNames
	default:
		return TurkishDayNames
	}
}

// Label returns the name for a weekday.
func (n DayNames) Label(d time.Weekday) string {
	return n[int(d)%7]
}

// CalendarDay is one column of the window.
type CalendarDay struct {
	Date   civil.Date `json:"date"`
	Label  string     `json:"label"`
	Column int        `json:"column"`
}

// Weekday derives the weekday from the civil date alone.
func (d CalendarDay) Weekday() time.Weekday {
	// Noon UTC sits safely inside the date whatever the zone rules are.
	return time.Date(d.Date.Year, d.Date.Month, d.Date.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// DisplayDate formats the date as DD.MM for the header row.
func (d CalendarDay) DisplayDate() string {
	return fmt.Sprintf("%02d.%02d", d.Date.Day, int(d.Date.Month))
}

// GenerateWindow returns size consecutive civil days starting at the civil
// date of now, in now's location. Days are stepped with civil arithmetic so a
// DST change can neither repeat nor skip a date.
func GenerateWindow(now time.Time, size int, names DayNames) ([]CalendarDay, error) {
	if size <= 0 {
		return nil, fmt.Errorf("schedule: generate window of %d days: %w", size, ErrInvalidWindowSize)
	}

	anchor := civil.DateOf(now)
	days := make([]CalendarDay, size)
	for i := range days {
		d := CalendarDay{Date: anchor.AddDays(i), Column: i}
		d.Label = names.Label(d.Weekday())
		days[i] = d
	}
	return days, nil
}
