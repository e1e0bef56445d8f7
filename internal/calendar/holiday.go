package calendar

import (
	"sort"
	"time"
)

// ── French public holidays ──────────────────────────────────
//
// 8 fixed dates + 3 Easter-relative dates. Easter Sunday comes from the
// anonymous Gregorian algorithm, valid from 1583 onward.
// ─────────────────────────────────────────────────────────────

type fixedHoliday struct {
	month time.Month
	day   int
	name  string
}

var fixedHolidays = []fixedHoliday{
	{time.January, 1, "Jour de l'an"},
	{time.May, 1, "Fête du Travail"},
	{time.May, 8, "Victoire 1945"},
	{time.July, 14, "Fête nationale"},
	{time.August, 15, "Assomption"},
	{time.November, 1, "Toussaint"},
	{time.November, 11, "Armistice 1918"},
	{time.December, 25, "Noël"},
}

// Offsets from Easter Sunday.
var easterHolidays = []struct {
	offset int
	name   string
}{
	{1, "Lundi de Pâques"},
	{39, "Ascension"},
	{50, "Lundi de Pentecôte"},
}

// HolidaySet maps a canonical date key to the holiday name.
type HolidaySet map[string]string

// Contains reports whether d is a public holiday.
func (h HolidaySet) Contains(d Date) bool {
	_, ok := h[d.Key()]
	return ok
}

// Name returns the holiday name of d, or "".
func (h HolidaySet) Name(d Date) string { return h[d.Key()] }

// Keys returns the sorted date keys.
func (h HolidaySet) Keys() []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EasterSunday computes Easter Sunday of year (Gregorian calendar).
func EasterSunday(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	n := h + l - 7*m + 114
	return Date{Year: year, Month: time.Month(n / 31), Day: n%31 + 1}
}

// GetFrenchHolidays returns the 11 public holidays of year.
func GetFrenchHolidays(year int) HolidaySet {
	set := make(HolidaySet, len(fixedHolidays)+len(easterHolidays))
	for _, fh := range fixedHolidays {
		set[NewDate(year, fh.month, fh.day).Key()] = fh.name
	}
	easter := EasterSunday(year)
	for _, eh := range easterHolidays {
		set[easter.AddDays(eh.offset).Key()] = eh.name
	}
	return set
}
