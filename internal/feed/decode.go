package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"kioskgrid/internal/model"
)

// Entry is one element of the booking backend's "schedule" array.
type Entry struct {
	Day          string `json:"day"`
	Hour         string `json:"hour"`
	Confirmed    *Flag  `json:"confirmed"`
	Title        string `json:"title,omitempty"`
	FullName     string `json:"fullName,omitempty"`
	RendezvousID string `json:"rendezvous_id,omitempty"`
}

// Response is the envelope returned by the schedule endpoint.
type Response struct {
	Schedule []json.RawMessage `json:"schedule"`
}

// Flag decodes the backend's confirmation indicator, which arrives as 0/1,
// true/false or their string forms depending on the endpoint version.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "1", "true":
		*f = true
	case "0", "false":
		*f = false
	default:
		return fmt.Errorf("feed: invalid confirmation flag %s", string(b))
	}
	return nil
}

// EntryError records why a single entry was rejected.
type EntryError struct {
	Index int
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("feed: entry %d: %v", e.Index, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

var (
	ErrMissingConfirmation = errors.New("missing confirmation field")
	ErrBadDay              = errors.New("unparseable day")
	ErrBadHour             = errors.New("unparseable hour")
)

// DecodeSchedule decodes a schedule payload into booking records. The body
// may be an object {"schedule": [...]} or an array whose first element is
// such an object.
//
// Entries are decoded independently: a broken entry is reported in the
// returned slice of *EntryError and the rest are still returned. Only an
// unreadable envelope yields a non-nil error.
func DecodeSchedule(body []byte, loc *time.Location) ([]model.BookingRecord, []error, error) {
	if loc == nil {
		loc = time.Local
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil, errors.New("feed: empty schedule body")
	}

	var resp Response
	if body[0] == '[' {
		var arr []Response
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, nil, fmt.Errorf("feed: decode schedule array: %w", err)
		}
		if len(arr) > 0 {
			resp = arr[0]
		}
	} else if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("feed: decode schedule: %w", err)
	}

	records := make([]model.BookingRecord, 0, len(resp.Schedule))
	var errs []error
	for i, raw := range resp.Schedule {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			errs = append(errs, &EntryError{Index: i, Err: err})
			continue
		}
		rec, err := e.Record(loc)
		if err != nil {
			errs = append(errs, &EntryError{Index: i, Err: err})
			continue
		}
		records = append(records, rec)
	}
	return records, errs, nil
}

// Record converts the entry to a booking record in loc.
func (e Entry) Record(loc *time.Location) (model.BookingRecord, error) {
	if e.Confirmed == nil {
		return model.BookingRecord{}, ErrMissingConfirmation
	}
	start, err := ParseStart(e.Day, e.Hour, loc)
	if err != nil {
		return model.BookingRecord{}, err
	}
	return model.BookingRecord{
		Start:        start,
		Confirmed:    bool(*e.Confirmed),
		Title:        e.Title,
		Organizer:    e.FullName,
		RendezvousID: e.RendezvousID,
		SourceID:     "json",
	}, nil
}

// ParseStart combines the backend's day and hour strings into an instant.
//
// day is either a plain date (2026-01-09) or an RFC3339 UTC instant that
// stands for local midnight (2026-01-08T21:00:00.000Z in UTC+3); the civil
// date is taken after converting to loc. hour is HH:MM or HH:MM:SS local time.
func ParseStart(day, hour string, loc *time.Location) (time.Time, error) {
	y, m, d, err := parseDay(strings.TrimSpace(day), loc)
	if err != nil {
		return time.Time{}, err
	}
	h, mins, err := parseHour(strings.TrimSpace(hour))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, h, mins, 0, 0, loc), nil
}

func parseDay(s string, loc *time.Location) (int, time.Month, int, error) {
	if s == "" {
		return 0, 0, 0, fmt.Errorf("%w: empty", ErrBadDay)
	}
	if len(s) == len("2006-01-02") {
		t, err := time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadDay, s)
		}
		y, m, d := t.Date()
		return y, m, d, nil
	}

	// RFC3339Nano accepts both with and without fractional seconds.
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Timestamps without a zone are UTC, as the backend emits them.
		t, err = time.ParseInLocation("2006-01-02T15:04:05", strings.TrimSuffix(s, "Z"), time.UTC)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadDay, s)
		}
	}
	y, m, d := t.In(loc).Date()
	return y, m, d, nil
}

func parseHour(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadHour, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadHour, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadHour, s)
	}
	return h, m, nil
}
