package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ── Civil date ──────────────────────────────────────────────
//
// Date is a plain (year, month, day) triple. It carries no clock and no
// zone: painted statuses are civil days, so nothing here ever converts
// through UTC offsets. Time() is only used for arithmetic and layout.
// ─────────────────────────────────────────────────────────────

var (
	frenchDatePattern = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	dateKeyPattern    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// Date is a civil calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date without validation; use ParseFrenchDate or
// ParseDateKey for untrusted input.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf returns the civil date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// In returns the wall clock time hour:minute of the date in loc.
func (d Date) In(loc *time.Location, hour, minute int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// Key is the canonical YYYY-MM-DD form; lexical order equals chronological order.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// French is the user facing DD/MM/YYYY form.
func (d Date) French() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

func (d Date) String() string { return d.Key() }

// AddDays returns the date n days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// IsWeekend reports Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }
func (d Date) IsZero() bool       { return d == Date{} }

// DaysUntil returns the signed number of calendar days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// ── Parsing / formatting ──

// ParseFrenchDate accepts only strict zero-padded DD/MM/YYYY and validates
// the day against the month length (leap years included). Malformed or
// impossible dates return ok=false.
func ParseFrenchDate(s string) (Date, bool) {
	m := frenchDatePattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	return buildDate(m[3], m[2], m[1])
}

// ParseDateKey is the strict inverse of FormatDateKey.
func ParseDateKey(s string) (Date, bool) {
	m := dateKeyPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, false
	}
	return buildDate(m[1], m[2], m[3])
}

func buildDate(ys, ms, ds string) (Date, bool) {
	y, _ := strconv.Atoi(ys)
	mo, _ := strconv.Atoi(ms)
	d, _ := strconv.Atoi(ds)
	if mo < 1 || mo > 12 || d < 1 || d > DaysInMonth(y, time.Month(mo)) {
		return Date{}, false
	}
	return Date{Year: y, Month: time.Month(mo), Day: d}, true
}

// FormatToFrenchDate formats d as DD/MM/YYYY.
func FormatToFrenchDate(d Date) string { return d.French() }

// FormatDateKey formats d as YYYY-MM-DD.
func FormatDateKey(d Date) string { return d.Key() }

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// GetDaysBetween returns the inclusive day count between a and b, whatever
// their order. Display only.
func GetDaysBetween(a, b Date) int {
	n := a.DaysUntil(b)
	if n < 0 {
		n = -n
	}
	return n + 1
}
