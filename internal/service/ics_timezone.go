package service

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

// ── VTIMEZONE ──
//
// Every TZID referenced by DTSTART/DTEND/EXDATE needs a matching
// VTIMEZONE. The observances are read from the Go zone database for the
// reference year: one STANDARD (and one DAYLIGHT when the zone shifts),
// each repeating yearly on the same weekday rank of its month.

type zoneTransition struct {
	at         time.Time // instant of the shift, UTC
	fromOffset int
	toOffset   int
	name       string
}

// addTimezone appends the VTIMEZONE for loc to cal.
func addTimezone(cal *ics.Calendar, loc *time.Location, year int) {
	tz := cal.AddTimezone(loc.String())
	transitions := zoneTransitions(loc, year)
	if len(transitions) == 0 {
		name, offset := time.Date(year, time.January, 1, 0, 0, 0, 0, loc).Zone()
		std := &ics.Standard{}
		std.SetProperty(ics.ComponentPropertyDtStart, "19700101T000000")
		std.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), formatUTCOffset(offset))
		std.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), formatUTCOffset(offset))
		std.SetProperty(ics.ComponentProperty(ics.PropertyTzname), name)
		tz.Components = append(tz.Components, std)
		return
	}
	for _, tr := range transitions {
		var obs ics.Component
		local := tr.at.Add(time.Duration(tr.fromOffset) * time.Second)
		base := &ics.ComponentBase{}
		base.SetProperty(ics.ComponentPropertyDtStart, local.Format(icsLocalLayout))
		base.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetfrom), formatUTCOffset(tr.fromOffset))
		base.SetProperty(ics.ComponentProperty(ics.PropertyTzoffsetto), formatUTCOffset(tr.toOffset))
		base.SetProperty(ics.ComponentProperty(ics.PropertyTzname), tr.name)
		base.SetProperty(ics.ComponentPropertyRrule, yearlyRule(local))
		if tr.toOffset > tr.fromOffset {
			obs = &ics.Daylight{ComponentBase: *base}
		} else {
			obs = &ics.Standard{ComponentBase: *base}
		}
		tz.Components = append(tz.Components, obs)
	}
}

// zoneTransitions lists the offset changes of loc during year, to the second.
func zoneTransitions(loc *time.Location, year int) []zoneTransition {
	var out []zoneTransition
	day := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := day.AddDate(1, 0, 0)
	_, prev := day.In(loc).Zone()
	for day.Before(end) {
		next := day.Add(24 * time.Hour)
		if _, off := next.In(loc).Zone(); off != prev {
			lo, hi := day, next
			for hi.Sub(lo) > time.Second {
				mid := lo.Add(hi.Sub(lo) / 2)
				if _, o := mid.In(loc).Zone(); o == prev {
					lo = mid
				} else {
					hi = mid
				}
			}
			name, _ := hi.In(loc).Zone()
			out = append(out, zoneTransition{at: hi, fromOffset: prev, toOffset: off, name: name})
			prev = off
		}
		day = next
	}
	return out
}

// yearlyRule repeats a shift on the same weekday rank of its month, -1
// standing for the last occurrence.
func yearlyRule(local time.Time) string {
	rank := (local.Day()-1)/7 + 1
	if local.AddDate(0, 0, 7).Month() != local.Month() {
		rank = -1
	}
	return fmt.Sprintf("FREQ=YEARLY;BYMONTH=%d;BYDAY=%d%s", int(local.Month()), rank, icsWeekday[local.Weekday()])
}

var icsWeekday = map[time.Weekday]string{
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
	time.Sunday:    "SU",
}

// formatUTCOffset renders seconds east of UTC as ±hhmm.
func formatUTCOffset(seconds int) string {
	sign := '+'
	if seconds < 0 {
		sign = '-'
		seconds = -seconds
	}
	return fmt.Sprintf("%c%02d%02d", sign, seconds/3600, (seconds%3600)/60)
}
