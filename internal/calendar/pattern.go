package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// maxPatternOccurrences bounds a single weekly pattern expansion (~2 years
// of every weekday).
const maxPatternOccurrences = 600

var ErrEmptyPattern = errors.New("le motif hebdomadaire doit contenir au moins un jour ouvré")

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
}

// WeeklyPattern is a recurring paint, e.g. REMOTE every Wednesday.
type WeeklyPattern struct {
	Status   DayStatus
	HalfDay  HalfDay
	Weekdays []time.Weekday
	From     Date
	Until    Date
	// Interval is the week step (1 = every week, 2 = every other week).
	Interval int
}

// Dates expands the pattern. Weekend weekdays are ignored; public holidays
// are skipped (they stay HOLIDAY unless painted one by one).
func (p WeeklyPattern) Dates(holidays func(int) HolidaySet) ([]Date, error) {
	byday := make([]rrule.Weekday, 0, len(p.Weekdays))
	for _, wd := range p.Weekdays {
		if rw, ok := rruleWeekdays[wd]; ok {
			byday = append(byday, rw)
		}
	}
	if len(byday) == 0 {
		return nil, ErrEmptyPattern
	}
	from, until := p.From, p.Until
	if until.Before(from) {
		from, until = until, from
	}
	interval := p.Interval
	if interval < 1 {
		interval = 1
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Interval:  interval,
		Dtstart:   from.Time(),
		Until:     until.Time(),
		Byweekday: byday,
		Count:     maxPatternOccurrences,
	})
	if err != nil {
		return nil, fmt.Errorf("motif hebdomadaire invalide: %w", err)
	}

	var out []Date
	for _, t := range rule.All() {
		d := DateOf(t)
		if holidays(d.Year).Contains(d) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// ApplyWeeklyPattern paints every occurrence of p and returns the number
// of days that changed.
func (s *Store) ApplyWeeklyPattern(p WeeklyPattern) (int, error) {
	days, err := p.Dates(s.Holidays)
	if err != nil {
		return 0, err
	}
	return s.paintDays(days, p.Status, p.HalfDay)
}
