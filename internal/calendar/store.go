package calendar

import (
	"fmt"
	"sort"
	"time"
)

// ── Calendar Status Store ───────────────────────────────────
//
// Sparse override map plus the default derivation rules:
//   1. public holiday → HOLIDAY, unless an explicit value exists for the
//      requested half (holidays are overridable)
//   2. Saturday/Sunday → OFF, never overridable
//   3. explicit value, else WORK
//
// Holidays are recomputed from the calendar and cached per year; they are
// never part of the persisted snapshot.
// ─────────────────────────────────────────────────────────────

// PersistFunc receives a copy of the override map after every effective
// mutation.
type PersistFunc func(Snapshot) error

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPersist installs the persistence callback.
func WithPersist(fn PersistFunc) StoreOption {
	return func(s *Store) { s.persist = fn }
}

// WithClock overrides time.Now (ResetData seeds holidays from it).
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store is the single source of truth for one user's painted statuses.
// It is not safe for concurrent mutation; callers own one Store per
// request or session.
type Store struct {
	entries  Snapshot
	holidays map[int]HolidaySet
	persist  PersistFunc
	now      func() time.Time
}

// NewStore wraps an existing snapshot (nil means empty). The snapshot is
// copied.
func NewStore(snap Snapshot, opts ...StoreOption) *Store {
	s := &Store{
		entries:  make(Snapshot, len(snap)),
		holidays: make(map[int]HolidaySet),
		now:      time.Now,
	}
	for k, v := range snap {
		if !v.IsEmpty() {
			s.entries[k] = v
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Holidays returns the cached holiday set of year.
func (s *Store) Holidays(year int) HolidaySet {
	h, ok := s.holidays[year]
	if !ok {
		h = GetFrenchHolidays(year)
		s.holidays[year] = h
	}
	return h
}

// IsHoliday reports whether d is a public holiday.
func (s *Store) IsHoliday(d Date) bool {
	return s.Holidays(d.Year).Contains(d)
}

// IsBareHoliday reports a public holiday nobody painted over.
func (s *Store) IsBareHoliday(d Date) bool {
	if !s.IsHoliday(d) {
		return false
	}
	_, painted := s.entries[d.Key()]
	return !painted
}

// Entry returns the explicit entry of d, if any.
func (s *Store) Entry(d Date) (DayEntry, bool) {
	e, ok := s.entries[d.Key()]
	return e, ok
}

// Len is the number of explicit entries.
func (s *Store) Len() int { return len(s.entries) }

// Snapshot returns a copy of the override map.
func (s *Store) Snapshot() Snapshot {
	out := make(Snapshot, len(s.entries))
	for k, v := range s.entries {
		out[k] = v
	}
	return out
}

// Keys returns the explicit date keys in ascending order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Bounds returns the first and last explicit dates; ok is false when the
// store is empty.
func (s *Store) Bounds() (first, last Date, ok bool) {
	keys := s.Keys()
	if len(keys) == 0 {
		return Date{}, Date{}, false
	}
	first, _ = ParseDateKey(keys[0])
	last, _ = ParseDateKey(keys[len(keys)-1])
	return first, last, true
}

// GetDayStatus returns the effective status of d for the requested half.
// It never fails.
func (s *Store) GetDayStatus(d Date, half HalfDay) DayStatus {
	entry, hasEntry := s.entries[d.Key()]
	var explicit DayStatus
	var hasExplicit bool
	if hasEntry {
		explicit, hasExplicit = entry.statusFor(half)
	}

	if s.IsHoliday(d) {
		if hasExplicit {
			return explicit
		}
		return StatusHoliday
	}
	if d.IsWeekend() {
		return StatusOff
	}
	if hasExplicit {
		return explicit
	}
	return StatusWork
}

// HasSplitDay reports a half-day entry whose two sides are set and differ.
func (s *Store) HasSplitDay(d Date) bool {
	e, ok := s.entries[d.Key()]
	if !ok {
		return false
	}
	switch e.Kind() {
	case KindHalfDay:
		return e.AM() != StatusNone && e.PM() != StatusNone && e.AM() != e.PM()
	case KindWholeDay:
		return false
	}
	return false
}

// SetDayStatus paints (or, with StatusNone, erases) d for the given half.
func (s *Store) SetDayStatus(d Date, status DayStatus, half HalfDay) error {
	if err := checkPaintable(status); err != nil {
		return err
	}
	switch half {
	case HalfDayFull, HalfDayAM, HalfDayPM:
	default:
		return ErrInvalidHalfDay
	}

	key := d.Key()
	prev, existed := s.entries[key]
	next, keep := applyStatus(prev, existed, status, half)

	if !keep {
		if !existed {
			return nil
		}
		delete(s.entries, key)
		return s.flush()
	}
	if existed && prev == next {
		return nil
	}
	s.entries[key] = next
	return s.flush()
}

// SetDayStatusByKey is SetDayStatus for a canonical YYYY-MM-DD key.
func (s *Store) SetDayStatusByKey(key string, status DayStatus, half HalfDay) error {
	d, ok := ParseDateKey(key)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDateKey, key)
	}
	return s.SetDayStatus(d, status, half)
}

// applyStatus computes the entry after a paint/erase. keep=false means the
// key must be absent.
func applyStatus(prev DayEntry, existed bool, status DayStatus, half HalfDay) (DayEntry, bool) {
	if half == HalfDayFull {
		if status == StatusNone {
			return DayEntry{}, false
		}
		return WholeDay(status), true
	}

	var am, pm DayStatus
	if existed {
		switch prev.Kind() {
		case KindWholeDay:
			am, pm = prev.Status(), prev.Status()
		case KindHalfDay:
			am, pm = prev.AM(), prev.PM()
		}
	}
	if half == HalfDayAM {
		am = status
	} else {
		pm = status
	}
	if am == StatusNone && pm == StatusNone {
		return DayEntry{}, false
	}
	return HalfDayEntry(am, pm), true
}

func checkPaintable(status DayStatus) error {
	if status == StatusNone {
		return nil
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(status))
	}
	if status.IsDerived() {
		return ErrDerivedStatus
	}
	return nil
}

// PaintRange paints every weekday of [from, to]; weekends are skipped
// because they always derive OFF. The persister is called once.
func (s *Store) PaintRange(from, to Date, status DayStatus, half HalfDay) (int, error) {
	if to.Before(from) {
		from, to = to, from
	}
	var days []Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if !d.IsWeekend() {
			days = append(days, d)
		}
	}
	return s.paintDays(days, status, half)
}

func (s *Store) paintDays(days []Date, status DayStatus, half HalfDay) (int, error) {
	if err := checkPaintable(status); err != nil {
		return 0, err
	}
	persist := s.persist
	s.persist = nil
	changed := 0
	for _, d := range days {
		before := len(s.entries)
		prev, existed := s.entries[d.Key()]
		if err := s.SetDayStatus(d, status, half); err != nil {
			s.persist = persist
			return changed, err
		}
		cur, exists := s.entries[d.Key()]
		if existed != exists || prev != cur || before != len(s.entries) {
			changed++
		}
	}
	s.persist = persist
	if changed == 0 {
		return 0, nil
	}
	return changed, s.flush()
}

// ResetData drops every override and re-seeds the holiday cache for the
// current and next year.
func (s *Store) ResetData() error {
	s.entries = make(Snapshot)
	year := s.now().Year()
	s.holidays = map[int]HolidaySet{
		year:     GetFrenchHolidays(year),
		year + 1: GetFrenchHolidays(year + 1),
	}
	return s.flush()
}

func (s *Store) flush() error {
	if s.persist == nil {
		return nil
	}
	return s.persist(s.Snapshot())
}
