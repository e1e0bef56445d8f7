package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidStatus  = errors.New("statut inconnu")
	ErrDerivedStatus  = errors.New("les statuts HOLIDAY et OFF sont calculés et ne peuvent pas être saisis")
	ErrInvalidHalfDay = errors.New("demi-journée invalide (FULL, AM ou PM)")
	ErrInvalidDateKey = errors.New("clé de date invalide (format attendu YYYY-MM-DD)")
	ErrInvalidEntry   = errors.New("entrée de calendrier invalide")
)

// DayStatus is the work status painted on a day (or half-day).
type DayStatus string

const (
	// StatusNone is the eraser: writing it removes the override.
	StatusNone    DayStatus = ""
	StatusWork    DayStatus = "WORK"
	StatusRemote  DayStatus = "REMOTE"
	StatusSchool  DayStatus = "SCHOOL"
	StatusTrainer DayStatus = "TRAINER"
	StatusLeave   DayStatus = "LEAVE"
	StatusHoliday DayStatus = "HOLIDAY"
	StatusOff     DayStatus = "OFF"
)

// AllStatuses lists every status in display order.
var AllStatuses = []DayStatus{
	StatusWork, StatusRemote, StatusSchool, StatusTrainer, StatusLeave, StatusHoliday, StatusOff,
}

// UserStatuses are the statuses a user may paint.
var UserStatuses = []DayStatus{
	StatusWork, StatusRemote, StatusSchool, StatusTrainer, StatusLeave,
}

var statusLabels = map[DayStatus]string{
	StatusWork:    "Bureau",
	StatusRemote:  "Télétravail",
	StatusSchool:  "École",
	StatusTrainer: "Formateur",
	StatusLeave:   "Congés",
	StatusHoliday: "Jour férié",
	StatusOff:     "Repos",
}

// Valid reports whether s is one of the known tags.
func (s DayStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsDerived reports HOLIDAY and OFF, which are computed, never painted.
func (s DayStatus) IsDerived() bool {
	return s == StatusHoliday || s == StatusOff
}

// Label is the French display label.
func (s DayStatus) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseDayStatus accepts any case and surrounding blanks.
func ParseDayStatus(s string) (DayStatus, error) {
	st := DayStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return StatusNone, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// HalfDay selects the whole day or one of its halves.
type HalfDay string

const (
	HalfDayFull HalfDay = "FULL"
	HalfDayAM   HalfDay = "AM"
	HalfDayPM   HalfDay = "PM"
)

// ParseHalfDay maps "" to FULL.
func ParseHalfDay(s string) (HalfDay, error) {
	switch h := HalfDay(strings.ToUpper(strings.TrimSpace(s))); h {
	case "", HalfDayFull:
		return HalfDayFull, nil
	case HalfDayAM, HalfDayPM:
		return h, nil
	}
	return HalfDayFull, ErrInvalidHalfDay
}

// ── DayEntry: WholeDay(status) | HalfDay(am?, pm?) ──

// EntryKind discriminates the two DayEntry shapes.
type EntryKind uint8

const (
	KindWholeDay EntryKind = iota + 1
	KindHalfDay
)

// DayEntry is the value stored per date. Build it with WholeDay or
// HalfDayEntry; the zero value is not a valid entry.
type DayEntry struct {
	kind   EntryKind
	status DayStatus
	am     DayStatus
	pm     DayStatus
}

// WholeDay builds a whole-day entry.
func WholeDay(s DayStatus) DayEntry {
	return DayEntry{kind: KindWholeDay, status: s}
}

// HalfDayEntry builds a half-day entry; either side may be StatusNone but
// not both.
func HalfDayEntry(am, pm DayStatus) DayEntry {
	return DayEntry{kind: KindHalfDay, am: am, pm: pm}
}

func (e DayEntry) Kind() EntryKind { return e.kind }

// Status is the whole-day tag (StatusNone for half-day entries).
func (e DayEntry) Status() DayStatus { return e.status }

// AM is the morning tag of a half-day entry.
func (e DayEntry) AM() DayStatus { return e.am }

// PM is the afternoon tag of a half-day entry.
func (e DayEntry) PM() DayStatus { return e.pm }

// IsEmpty reports an entry carrying no status at all.
func (e DayEntry) IsEmpty() bool {
	switch e.kind {
	case KindWholeDay:
		return e.status == StatusNone
	case KindHalfDay:
		return e.am == StatusNone && e.pm == StatusNone
	}
	return true
}

// statusFor returns the explicit value for the requested half. For FULL
// queries on a half-day entry the morning wins, then the afternoon.
func (e DayEntry) statusFor(half HalfDay) (DayStatus, bool) {
	switch e.kind {
	case KindWholeDay:
		return e.status, e.status != StatusNone
	case KindHalfDay:
		switch half {
		case HalfDayAM:
			return e.am, e.am != StatusNone
		case HalfDayPM:
			return e.pm, e.pm != StatusNone
		default:
			if e.am != StatusNone {
				return e.am, true
			}
			return e.pm, e.pm != StatusNone
		}
	}
	return StatusNone, false
}

func (e DayEntry) validate() error {
	check := func(s DayStatus) error {
		if s != StatusNone && !s.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
		}
		return nil
	}
	switch e.kind {
	case KindWholeDay:
		if e.status == StatusNone {
			return ErrInvalidEntry
		}
		return check(e.status)
	case KindHalfDay:
		if e.IsEmpty() {
			return ErrInvalidEntry
		}
		if err := check(e.am); err != nil {
			return err
		}
		return check(e.pm)
	}
	return ErrInvalidEntry
}

type halfDayJSON struct {
	AM DayStatus `json:"am,omitempty"`
	PM DayStatus `json:"pm,omitempty"`
}

// MarshalJSON writes "LEAVE" for whole days and {"am":..,"pm":..} for
// half days, the legacy persisted layout.
func (e DayEntry) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case KindWholeDay:
		return json.Marshal(string(e.status))
	case KindHalfDay:
		return json.Marshal(halfDayJSON{AM: e.am, PM: e.pm})
	}
	return nil, ErrInvalidEntry
}

// UnmarshalJSON accepts both persisted shapes.
func (e *DayEntry) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = DayEntry{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		entry := WholeDay(DayStatus(s))
		if err := entry.validate(); err != nil {
			return err
		}
		*e = entry
		return nil
	}
	var h halfDayJSON
	if err := json.Unmarshal(data, &h); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	entry := HalfDayEntry(h.AM, h.PM)
	if err := entry.validate(); err != nil {
		return err
	}
	*e = entry
	return nil
}

// Snapshot is the persisted status map: canonical date key → entry.
type Snapshot map[string]DayEntry

// DecodeSnapshot parses a stored document. Derived HOLIDAY/OFF tags are
// dropped: those days always derive from the date.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	for k, e := range snap {
		if e = withoutDerived(e); e.IsEmpty() {
			delete(snap, k)
		} else {
			snap[k] = e
		}
	}
	return snap, nil
}

// ParseSnapshot parses a client document and rejects derived tags.
func ParseSnapshot(data []byte) (Snapshot, error) {
	snap, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}
	for k, e := range snap {
		if withoutDerived(e) != e {
			return nil, fmt.Errorf("%w: %s", ErrDerivedStatus, k)
		}
	}
	return snap, nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	snap := Snapshot{}
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	for k, e := range snap {
		if _, ok := ParseDateKey(k); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDateKey, k)
		}
		// erased entries written as null by older clients
		if e.IsEmpty() {
			delete(snap, k)
		}
	}
	return snap, nil
}

// withoutDerived clears HOLIDAY/OFF values, half by half.
func withoutDerived(e DayEntry) DayEntry {
	switch e.kind {
	case KindWholeDay:
		if e.status.IsDerived() {
			return DayEntry{}
		}
	case KindHalfDay:
		am, pm := e.am, e.pm
		if am.IsDerived() {
			am = StatusNone
		}
		if pm.IsDerived() {
			pm = StatusNone
		}
		if am == StatusNone && pm == StatusNone {
			return DayEntry{}
		}
		return HalfDayEntry(am, pm)
	}
	return e
}

// Encode serialises the snapshot; encoding/json sorts map keys.
func (s Snapshot) Encode() ([]byte, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]DayEntry(s))
}
