package calendar

import (
	"math"
	"testing"
	"time"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestYearStats_EmptyStoreIsAllWork(t *testing.T) {
	st := YearStats(NewStore(nil), 2026)
	// 261 weekdays minus 9 weekday holidays
	if !almost(st.WorkedDays, 252) {
		t.Errorf("expected 252 worked days, got %v", st.WorkedDays)
	}
	if !almost(st.Counts[StatusWork], 252) {
		t.Errorf("expected 252 WORK, got %v", st.Counts[StatusWork])
	}
	if !almost(st.Percentages[StatusWork], 100) {
		t.Errorf("expected 100%% WORK, got %v", st.Percentages[StatusWork])
	}
	if _, ok := st.Counts[StatusLeave]; !ok {
		t.Error("every user status must be listed, even at zero")
	}
	if st.Counts[StatusHoliday] != 0 || st.Counts[StatusOff] != 0 {
		t.Error("holidays and weekends are not counted")
	}
}

func TestYearStats_HalfDayWeighting(t *testing.T) {
	s := NewStore(Snapshot{
		"2026-01-05": WholeDay(StatusLeave),
		"2026-01-06": HalfDayEntry(StatusLeave, StatusNone),
		"2026-01-07": HalfDayEntry(StatusRemote, StatusSchool),
	})
	st := YearStats(s, 2026)
	if !almost(st.Counts[StatusLeave], 1.5) {
		t.Errorf("expected 1.5 LEAVE, got %v", st.Counts[StatusLeave])
	}
	if !almost(st.Counts[StatusRemote], 0.5) || !almost(st.Counts[StatusSchool], 0.5) {
		t.Errorf("expected 0.5 REMOTE and 0.5 SCHOOL, got %v", st.Counts)
	}
	if !almost(st.Counts[StatusWork], 252-1.5-1) {
		t.Errorf("unexpected WORK count %v", st.Counts[StatusWork])
	}
	if !almost(st.WorkedDays, 252) {
		t.Errorf("denominator must stay 252, got %v", st.WorkedDays)
	}
}

func TestYearStats_OverriddenHolidayCounts(t *testing.T) {
	s := NewStore(Snapshot{
		"2026-07-14": WholeDay(StatusWork),
		"2026-11-11": HalfDayEntry(StatusNone, StatusRemote),
		// weekends never count, even painted
		"2026-01-10": WholeDay(StatusLeave),
	})
	st := YearStats(s, 2026)
	if !almost(st.WorkedDays, 253.5) {
		t.Errorf("expected 253.5, got %v", st.WorkedDays)
	}
	if !almost(st.Counts[StatusLeave], 0) {
		t.Errorf("painted weekend must not count, got %v", st.Counts[StatusLeave])
	}
}

func TestYearStats_PercentagesSumTo100(t *testing.T) {
	s := NewStore(nil)
	_, _ = s.PaintRange(day("2026-03-02"), day("2026-03-20"), StatusTrainer, HalfDayFull)
	st := YearStats(s, 2026)
	sum := 0.0
	for _, p := range st.Percentages {
		sum += p
	}
	if !almost(sum, 100) {
		t.Errorf("expected percentages to sum to 100, got %v", sum)
	}
}

func TestMonthView(t *testing.T) {
	s := NewStore(Snapshot{"2026-01-06": HalfDayEntry(StatusLeave, StatusRemote)})
	view := MonthView(s, 2026, time.January)
	if len(view) != 31 {
		t.Fatalf("expected 31 days, got %d", len(view))
	}
	if !view[0].Holiday || view[0].HolidayName != "Jour de l'an" || view[0].Status != StatusHoliday {
		t.Errorf("unexpected new year's day %+v", view[0])
	}
	if !view[2].Weekend || view[2].Status != StatusOff {
		t.Errorf("expected saturday OFF, got %+v", view[2])
	}
	d := view[5]
	if !d.Split || d.AM != StatusLeave || d.PM != StatusRemote || d.Status != StatusLeave {
		t.Errorf("unexpected split day %+v", d)
	}
	if len(MonthView(s, 2028, time.February)) != 29 {
		t.Error("february 2028 has 29 days")
	}
}
