package feed

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "kioskgrid/internal/log"
	"kioskgrid/internal/model"
)

const (
	// maxHoursPerEvent caps how many hourly bookings one VEVENT occurrence
	// can produce.
	maxHoursPerEvent = 24
	// maxOccurrencesPerEvent caps RRULE expansion.
	maxOccurrencesPerEvent = 500
)

// ICSSource reads bookings from an iCalendar export of the room's calendar.
type ICSSource struct {
	Fetcher  *Fetcher
	URL      string
	Location *time.Location
}

func (s *ICSSource) Bookings(ctx context.Context, from, to time.Time) ([]model.BookingRecord, error) {
	res, err := s.Fetcher.Fetch(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	return ParseICS(res.Body, from, to, s.Location)
}

// icsEvent is the subset of a VEVENT the kiosk cares about.
type icsEvent struct {
	UID       string
	Summary   string
	Organizer string
	Status    string
	Start     time.Time
	End       time.Time
	AllDay    bool
	RawRRule  string
	ExDates   []time.Time
}

// ParseICS converts the VEVENTs of body into hourly booking records within
// [from, to). Every hour an event touches becomes one record starting on the
// hour, so a 10:00-12:00 meeting occupies the 10 and 11 rows.
//
// Events with STATUS:CANCELLED are dropped, STATUS:TENTATIVE events are
// emitted unconfirmed, everything else counts as confirmed. All-day events
// carry no hour and are skipped. A broken VEVENT is logged and skipped.
func ParseICS(body []byte, from, to time.Time, loc *time.Location) ([]model.BookingRecord, error) {
	if len(body) == 0 {
		return nil, errors.New("feed: empty ICS body")
	}
	if loc == nil {
		loc = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]model.BookingRecord, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			continue
		}
		if ev.AllDay || strings.EqualFold(ev.Status, "CANCELLED") {
			continue
		}

		for _, start := range occurrences(ev, from, to) {
			end := start.Add(ev.End.Sub(ev.Start))
			out = append(out, hourlyRecords(ev, start.In(loc), end.In(loc))...)
		}
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (icsEvent, error) {
	var out icsEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		out.Organizer = organizerName(p)
	}
	if p := ve.GetProperty("STATUS"); p != nil {
		out.Status = strings.TrimSpace(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	end, err := ve.GetEndAt()
	if err != nil || !end.After(start) {
		// No DTEND (or a broken one): treat as a one-hour booking.
		end = start.Add(time.Hour)
	}
	out.Start = start
	out.End = end

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if vs, ok := dt.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(dt.Value, "T") {
			out.AllDay = true
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	return out, nil
}

// occurrences returns the start instants of ev that overlap [from, to).
func occurrences(ev icsEvent, from, to time.Time) []time.Time {
	dur := ev.End.Sub(ev.Start)
	if ev.RawRRule == "" {
		if ev.Start.Before(to) && ev.Start.Add(dur).After(from) {
			return []time.Time{ev.Start}
		}
		return nil
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Warn("ics rrule skipped", "uid", ev.UID, "rrule", ev.RawRRule, "err", err)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Widen by the duration so a meeting already running at from is kept.
	times := set.Between(from.Add(-dur).In(ev.Start.Location()), to.In(ev.Start.Location()), true)
	if len(times) > maxOccurrencesPerEvent {
		appLog.Warn("ics occurrences truncated", "uid", ev.UID, "cap", maxOccurrencesPerEvent)
		times = times[:maxOccurrencesPerEvent]
	}
	return times
}

// hourlyRecords splits [start, end) into records starting on each touched hour.
func hourlyRecords(ev icsEvent, start, end time.Time) []model.BookingRecord {
	confirmed := !strings.EqualFold(ev.Status, "TENTATIVE")

	h := time.Date(start.Year(), start.Month(), start.Day(), start.Hour(), 0, 0, 0, start.Location())
	var out []model.BookingRecord
	for i := 0; h.Before(end) && i < maxHoursPerEvent; i++ {
		out = append(out, model.BookingRecord{
			Start:        h,
			Confirmed:    confirmed,
			Title:        ev.Summary,
			Organizer:    ev.Organizer,
			RendezvousID: ev.UID,
			SourceID:     "ics",
		})
		h = h.Add(time.Hour)
	}
	return out
}

func organizerName(p *ical.IANAProperty) string {
	if cns, ok := p.ICalParameters["CN"]; ok && len(cns) > 0 {
		return cns[0]
	}
	return strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:")
}

// parseICSTime parses an EXDATE value: UTC, floating local or date-only.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}
