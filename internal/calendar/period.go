package calendar

import "sort"

// DefaultGapTolerance bridges a Friday → Monday gap (two untagged weekend
// days) without tagging weekends.
const DefaultGapTolerance = 3

// Observation is one (date, half, status) fact fed to the aggregator.
type Observation struct {
	Date    Date
	HalfDay HalfDay
	Status  DayStatus
}

// Period is a maximal run of same-status observations. HalfDay is FULL for
// whole-day periods.
type Period struct {
	Start   Date
	End     Date
	Status  DayStatus
	HalfDay HalfDay
}

// Days is the inclusive calendar span of the period.
func (p Period) Days() int { return GetDaysBetween(p.Start, p.End) }

// IsHalfDay reports an AM or PM scoped period.
func (p Period) IsHalfDay() bool { return p.HalfDay == HalfDayAM || p.HalfDay == HalfDayPM }

// StatusFilter selects the qualifying statuses; an empty filter accepts all.
type StatusFilter map[DayStatus]bool

// FilterOf builds a StatusFilter.
func FilterOf(statuses ...DayStatus) StatusFilter {
	f := make(StatusFilter, len(statuses))
	for _, s := range statuses {
		f[s] = true
	}
	return f
}

func (f StatusFilter) accepts(s DayStatus) bool {
	if len(f) == 0 {
		return true
	}
	return f[s]
}

var halfDayOrder = map[HalfDay]int{HalfDayFull: 0, HalfDayAM: 1, HalfDayPM: 2}

// Aggregate merges observations into maximal periods.
//
// Each half-day side (FULL, AM, PM) is an independent stream. Within a
// stream an observation extends the open period iff it has the same status
// and lies at most gapTolerance days after the period end; otherwise the
// open period is emitted and a new one starts. A non-qualifying
// observation only closes its stream. A date observed in whole-day shape
// closes the AM/PM streams and vice versa, so whole-day and half-day
// periods never overlap.
func Aggregate(obs []Observation, filter StatusFilter, gapTolerance int) []Period {
	if len(obs) == 0 {
		return []Period{}
	}
	if gapTolerance < 1 {
		gapTolerance = 1
	}

	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Date.Compare(sorted[j].Date); c != 0 {
			return c < 0
		}
		return halfDayOrder[normHalf(sorted[i].HalfDay)] < halfDayOrder[normHalf(sorted[j].HalfDay)]
	})

	open := map[HalfDay]*Period{}
	result := []Period{}

	closeStream := func(h HalfDay) {
		if p := open[h]; p != nil {
			result = append(result, *p)
			delete(open, h)
		}
	}

	for _, o := range sorted {
		h := normHalf(o.HalfDay)
		if h == HalfDayFull {
			closeStream(HalfDayAM)
			closeStream(HalfDayPM)
		} else {
			closeStream(HalfDayFull)
		}

		if !filter.accepts(o.Status) {
			closeStream(h)
			continue
		}

		cur := open[h]
		if cur != nil && cur.Status == o.Status && cur.End.DaysUntil(o.Date) <= gapTolerance {
			if o.Date.After(cur.End) {
				cur.End = o.Date
			}
			continue
		}
		closeStream(h)
		open[h] = &Period{Start: o.Date, End: o.Date, Status: o.Status, HalfDay: h}
	}
	for _, h := range []HalfDay{HalfDayFull, HalfDayAM, HalfDayPM} {
		closeStream(h)
	}

	sortPeriods(result)
	return result
}

func normHalf(h HalfDay) HalfDay {
	if h == HalfDayAM || h == HalfDayPM {
		return h
	}
	return HalfDayFull
}

func sortPeriods(ps []Period) {
	sort.SliceStable(ps, func(i, j int) bool {
		if c := ps[i].Start.Compare(ps[j].Start); c != 0 {
			return c < 0
		}
		if ps[i].HalfDay != ps[j].HalfDay {
			return halfDayOrder[ps[i].HalfDay] < halfDayOrder[ps[j].HalfDay]
		}
		return ps[i].Status < ps[j].Status
	})
}

// Observations lists the effective statuses of [from, to]. Weekends and
// un-overridden holidays are left out (the gap tolerance bridges them);
// half-day shaped entries yield an AM and a PM observation, every other
// day a FULL one.
func (s *Store) Observations(from, to Date) []Observation {
	if to.Before(from) {
		from, to = to, from
	}
	var obs []Observation
	for d := from; !d.After(to); d = d.AddDays(1) {
		if d.IsWeekend() {
			continue
		}
		if s.IsBareHoliday(d) {
			continue
		}
		entry, ok := s.entries[d.Key()]
		if ok && entry.Kind() == KindHalfDay {
			obs = append(obs,
				Observation{Date: d, HalfDay: HalfDayAM, Status: s.GetDayStatus(d, HalfDayAM)},
				Observation{Date: d, HalfDay: HalfDayPM, Status: s.GetDayStatus(d, HalfDayPM)},
			)
			continue
		}
		obs = append(obs, Observation{Date: d, HalfDay: HalfDayFull, Status: s.GetDayStatus(d, HalfDayFull)})
	}
	return obs
}

// Periods aggregates the store over [from, to].
func (s *Store) Periods(from, to Date, filter StatusFilter, gapTolerance int) []Period {
	return Aggregate(s.Observations(from, to), filter, gapTolerance)
}

// AllPeriods aggregates the store between its first and last explicit
// entries.
func (s *Store) AllPeriods(filter StatusFilter, gapTolerance int) []Period {
	first, last, ok := s.Bounds()
	if !ok {
		return []Period{}
	}
	return s.Periods(first, last, filter, gapTolerance)
}

// GroupByStatus splits periods per status, keeping order.
func GroupByStatus(periods []Period) map[DayStatus][]Period {
	out := make(map[DayStatus][]Period)
	for _, p := range periods {
		out[p.Status] = append(out[p.Status], p)
	}
	return out
}
