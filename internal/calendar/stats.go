package calendar

import "time"

// ── Statistics ──────────────────────────────────────────────
//
// Each counted half-day weighs 0.5. Weekends never count; a holiday half
// counts only when it carries an explicit override.
// ─────────────────────────────────────────────────────────────

// Stats is the yearly rollup of one store.
type Stats struct {
	Year int `json:"year"`
	// WorkedDays is the denominator: counted days, half-days weighing 0.5.
	WorkedDays  float64               `json:"workedDays"`
	Counts      map[DayStatus]float64 `json:"counts"`
	Percentages map[DayStatus]float64 `json:"percentages"`
}

// YearStats counts the effective statuses of year.
func YearStats(s *Store, year int) Stats {
	counts := make(map[DayStatus]float64, len(UserStatuses))
	for _, st := range UserStatuses {
		counts[st] = 0
	}

	total := 0.0
	start := NewDate(year, time.January, 1)
	end := NewDate(year, time.December, 31)
	for d := start; !d.After(end); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		holiday := s.IsHoliday(d)
		entry, ok := s.entries[d.Key()]
		for _, half := range []HalfDay{HalfDayAM, HalfDayPM} {
			if holiday {
				if !ok {
					continue
				}
				if _, explicit := entry.statusFor(half); !explicit {
					continue
				}
			}
			counts[s.GetDayStatus(d, half)] += 0.5
			total += 0.5
		}
	}

	denom := total
	if denom < 1 {
		denom = 1
	}
	pct := make(map[DayStatus]float64, len(counts))
	for st, c := range counts {
		pct[st] = c / denom * 100
	}
	return Stats{Year: year, WorkedDays: total, Counts: counts, Percentages: pct}
}

// DayView is one cell of the painted month grid.
type DayView struct {
	Date        string    `json:"date"`
	Weekday     int       `json:"weekday"`
	Status      DayStatus `json:"status"`
	AM          DayStatus `json:"am"`
	PM          DayStatus `json:"pm"`
	Split       bool      `json:"split"`
	Weekend     bool      `json:"weekend"`
	Holiday     bool      `json:"holiday"`
	HolidayName string    `json:"holidayName,omitempty"`
}

// MonthView returns the effective statuses of every day of month.
func MonthView(s *Store, year int, month time.Month) []DayView {
	n := DaysInMonth(year, month)
	out := make([]DayView, 0, n)
	for day := 1; day <= n; day++ {
		d := NewDate(year, month, day)
		out = append(out, DayView{
			Date:        d.Key(),
			Weekday:     int(d.Weekday()),
			Status:      s.GetDayStatus(d, HalfDayFull),
			AM:          s.GetDayStatus(d, HalfDayAM),
			PM:          s.GetDayStatus(d, HalfDayPM),
			Split:       s.HasSplitDay(d),
			Weekend:     d.IsWeekend(),
			Holiday:     s.IsHoliday(d),
			HolidayName: s.Holidays(year).Name(d),
		})
	}
	return out
}
