package calendar

import "testing"

func paint(t *testing.T, s *Store, status DayStatus, half HalfDay, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if err := s.SetDayStatus(day(k), status, half); err != nil {
			t.Fatalf("paint %s: %v", k, err)
		}
	}
}

func assertPeriod(t *testing.T, p Period, start, end string, status DayStatus, half HalfDay) {
	t.Helper()
	if p.Start.Key() != start || p.End.Key() != end || p.Status != status || p.HalfDay != half {
		t.Errorf("expected [%s..%s %s %s], got [%s..%s %s %s]",
			start, end, status, half, p.Start, p.End, p.Status, p.HalfDay)
	}
}

// ── merge rule ──

func TestAggregate_ConsecutiveWeekMergesIntoOnePeriod(t *testing.T) {
	s := NewStore(nil)
	paint(t, s, StatusLeave, HalfDayFull, "2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09")

	periods := s.AllPeriods(FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d: %+v", len(periods), periods)
	}
	assertPeriod(t, periods[0], "2026-01-05", "2026-01-09", StatusLeave, HalfDayFull)
}

func TestAggregate_WeekendGapIsBridged(t *testing.T) {
	s := NewStore(nil)
	paint(t, s, StatusLeave, HalfDayFull, "2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09", "2026-01-12")

	periods := s.AllPeriods(FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d: %+v", len(periods), periods)
	}
	assertPeriod(t, periods[0], "2026-01-05", "2026-01-12", StatusLeave, HalfDayFull)
}

func TestAggregate_WorkedDaysSplitPeriods(t *testing.T) {
	s := NewStore(nil)
	paint(t, s, StatusLeave, HalfDayFull,
		"2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09", "2026-01-12", "2026-01-16")

	periods := s.AllPeriods(FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d: %+v", len(periods), periods)
	}
	assertPeriod(t, periods[0], "2026-01-05", "2026-01-12", StatusLeave, HalfDayFull)
	assertPeriod(t, periods[1], "2026-01-16", "2026-01-16", StatusLeave, HalfDayFull)
}

func TestAggregate_GapAboveToleranceSplits(t *testing.T) {
	obs := []Observation{
		{Date: day("2026-01-12"), HalfDay: HalfDayFull, Status: StatusLeave},
		{Date: day("2026-01-16"), HalfDay: HalfDayFull, Status: StatusLeave},
	}
	periods := Aggregate(obs, FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 2 {
		t.Fatalf("4-day gap must split, got %+v", periods)
	}

	obs[1].Date = day("2026-01-15")
	periods = Aggregate(obs, FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 1 {
		t.Fatalf("3-day gap must merge, got %+v", periods)
	}
}

func TestAggregate_UnsortedInput(t *testing.T) {
	obs := []Observation{
		{Date: day("2026-01-07"), Status: StatusSchool},
		{Date: day("2026-01-05"), Status: StatusSchool},
		{Date: day("2026-01-06"), Status: StatusSchool},
	}
	periods := Aggregate(obs, nil, DefaultGapTolerance)
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %+v", periods)
	}
	assertPeriod(t, periods[0], "2026-01-05", "2026-01-07", StatusSchool, HalfDayFull)
}

func TestAggregate_StatusChangeSplits(t *testing.T) {
	obs := []Observation{
		{Date: day("2026-01-05"), Status: StatusSchool},
		{Date: day("2026-01-06"), Status: StatusTrainer},
		{Date: day("2026-01-07"), Status: StatusSchool},
	}
	periods := Aggregate(obs, FilterOf(StatusSchool, StatusTrainer), DefaultGapTolerance)
	if len(periods) != 3 {
		t.Fatalf("expected 3 periods, got %+v", periods)
	}
	assertPeriod(t, periods[1], "2026-01-06", "2026-01-06", StatusTrainer, HalfDayFull)
}

// ── edge cases ──

func TestAggregate_EmptyInput(t *testing.T) {
	periods := Aggregate(nil, FilterOf(StatusLeave), DefaultGapTolerance)
	if periods == nil || len(periods) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", periods)
	}
}

func TestAggregate_SingleDate(t *testing.T) {
	periods := Aggregate([]Observation{{Date: day("2026-03-03"), Status: StatusLeave}}, nil, DefaultGapTolerance)
	if len(periods) != 1 || periods[0].Start != periods[0].End {
		t.Fatalf("expected start == end, got %+v", periods)
	}
	if periods[0].Days() != 1 {
		t.Errorf("expected 1 day, got %d", periods[0].Days())
	}
}

func TestAggregate_NoQualifyingDays(t *testing.T) {
	s := NewStore(nil)
	paint(t, s, StatusLeave, HalfDayFull, "2026-01-05", "2026-01-06")
	periods := s.AllPeriods(FilterOf(StatusSchool), DefaultGapTolerance)
	if len(periods) != 0 {
		t.Errorf("expected no SCHOOL period, got %+v", periods)
	}
}

func TestAggregate_HolidayInsideLeaveIsBridged(t *testing.T) {
	s := NewStore(nil)
	// 2026-05-14 is Ascension (thursday)
	paint(t, s, StatusLeave, HalfDayFull, "2026-05-11", "2026-05-12", "2026-05-13", "2026-05-15")
	periods := s.AllPeriods(FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %+v", periods)
	}
	assertPeriod(t, periods[0], "2026-05-11", "2026-05-15", StatusLeave, HalfDayFull)
}

// ── half-day streams ──

func TestAggregate_AfternoonLeaveIsSeparateStream(t *testing.T) {
	s := NewStore(nil)
	week := []string{"2026-01-05", "2026-01-06", "2026-01-07", "2026-01-08", "2026-01-09"}
	paint(t, s, StatusLeave, HalfDayPM, week...)

	all := s.AllPeriods(nil, DefaultGapTolerance)
	if len(all) != 2 {
		t.Fatalf("expected AM WORK + PM LEAVE, got %+v", all)
	}
	assertPeriod(t, all[0], "2026-01-05", "2026-01-09", StatusWork, HalfDayAM)
	assertPeriod(t, all[1], "2026-01-05", "2026-01-09", StatusLeave, HalfDayPM)

	leave := s.AllPeriods(FilterOf(StatusLeave), DefaultGapTolerance)
	if len(leave) != 1 || !leave[0].IsHalfDay() {
		t.Fatalf("expected a single PM period, got %+v", leave)
	}
}

func TestAggregate_ShapeChangeClosesOtherStreams(t *testing.T) {
	s := NewStore(nil)
	paint(t, s, StatusLeave, HalfDayFull, "2026-01-05", "2026-01-06", "2026-01-08", "2026-01-09")
	paint(t, s, StatusLeave, HalfDayPM, "2026-01-07")

	periods := s.AllPeriods(FilterOf(StatusLeave), DefaultGapTolerance)
	if len(periods) != 3 {
		t.Fatalf("expected 3 periods, got %+v", periods)
	}
	assertPeriod(t, periods[0], "2026-01-05", "2026-01-06", StatusLeave, HalfDayFull)
	assertPeriod(t, periods[1], "2026-01-07", "2026-01-07", StatusLeave, HalfDayPM)
	assertPeriod(t, periods[2], "2026-01-08", "2026-01-09", StatusLeave, HalfDayFull)
}

func TestAggregate_PeriodsAreMaximal(t *testing.T) {
	s := NewStore(nil)
	paint(t, s, StatusRemote, HalfDayFull, "2026-02-02", "2026-02-04", "2026-02-06", "2026-02-09", "2026-02-16")
	paint(t, s, StatusRemote, HalfDayAM, "2026-02-11")

	obs := s.Observations(day("2026-02-01"), day("2026-02-28"))
	periods := Aggregate(obs, FilterOf(StatusRemote), DefaultGapTolerance)
	for i, p := range periods {
		if p.Start.After(p.End) {
			t.Errorf("period %d has start after end", i)
		}
		for j := i + 1; j < len(periods); j++ {
			q := periods[j]
			if q.HalfDay != p.HalfDay || q.Status != p.Status {
				continue
			}
			// something non-qualifying must separate two periods of one stream
			separated := p.End.DaysUntil(q.Start) > DefaultGapTolerance
			for _, o := range obs {
				if o.Date.After(p.End) && o.Date.Before(q.Start) && normHalf(o.HalfDay) == p.HalfDay && o.Status != p.Status {
					separated = true
				}
			}
			if !separated {
				t.Errorf("periods %d and %d could be merged: %+v %+v", i, j, p, q)
			}
		}
	}
	if len(periods) != 5 {
		t.Errorf("expected 5 REMOTE periods, got %+v", periods)
	}
}

func TestGroupByStatus(t *testing.T) {
	periods := []Period{
		{Start: day("2026-01-05"), End: day("2026-01-05"), Status: StatusLeave},
		{Start: day("2026-01-06"), End: day("2026-01-06"), Status: StatusSchool},
		{Start: day("2026-01-08"), End: day("2026-01-08"), Status: StatusLeave},
	}
	g := GroupByStatus(periods)
	if len(g[StatusLeave]) != 2 || len(g[StatusSchool]) != 1 {
		t.Errorf("unexpected grouping %+v", g)
	}
}
