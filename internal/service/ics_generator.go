package service

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pgvplaning/backend/config"
	"pgvplaning/backend/internal/calendar"
)

// ── ICS generation engine ───────────────────────────────────
//
// Turns aggregated periods (painted calendar) or declared vacation
// periods (form) into one RFC 5545 document:
//   - whole day: DTSTART;VALUE=DATE = start, DTEND;VALUE=DATE = end + 1 day
//   - half day: DTSTART/DTEND with TZID at the configured AM/PM hours; a
//     span over several days becomes a daily weekday RRULE, bare public
//     holidays inside it become EXDATEs; the zone is declared once as a
//     VTIMEZONE
//   - lines end with CRLF
//   - the document is either complete or not returned at all
// ─────────────────────────────────────────────────────────────

var (
	ErrICSInvalidDate   = errors.New("date invalide (format attendu JJ/MM/AAAA)")
	ErrICSInvalidRange  = errors.New("la date de fin précède la date de début")
	ErrNothingToExport  = errors.New("aucune période à exporter")
	ErrICSGenerateFail  = errors.New("échec de la génération du fichier ICS")
	ErrICSInvalidZone   = errors.New("fuseau horaire inconnu")
	ErrICSEmployeeEmpty = errors.New("le nom de l'employé est obligatoire")
	ErrICSTitleEmpty    = errors.New("le titre de la période est obligatoire")
)

// ExportScope marks personal vs team exports in UIDs and filenames.
type ExportScope string

const (
	ScopePersonal ExportScope = "perso"
	ScopeTeam     ExportScope = "equipe"
)

// Microsoft busy-status extension values.
const (
	BusyStatusOOF  = "OOF"
	BusyStatusFree = "FREE"

	busyStatusProperty = ics.ComponentProperty("X-MICROSOFT-CDO-BUSYSTATUS")
	icsLocalLayout     = "20060102T150405"
	icsDateLayout      = "20060102"
)

var halfDaySuffix = map[calendar.HalfDay]string{
	calendar.HalfDayAM: " (Matin)",
	calendar.HalfDayPM: " (Après-midi)",
}

// ICSSettings are the rendering parameters, usually from config.CalendarConfig.
type ICSSettings struct {
	Location    *time.Location
	AMStartHour int
	AMEndHour   int
	PMStartHour int
	PMEndHour   int
	ProductID   string
	UIDDomain   string
}

// NewICSSettings resolves the configured timezone.
func NewICSSettings(cfg *config.CalendarConfig) (ICSSettings, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return ICSSettings{}, fmt.Errorf("%w: %q", ErrICSInvalidZone, cfg.Timezone)
	}
	return ICSSettings{
		Location:    loc,
		AMStartHour: cfg.AMStartHour,
		AMEndHour:   cfg.AMEndHour,
		PMStartHour: cfg.PMStartHour,
		PMEndHour:   cfg.PMEndHour,
		ProductID:   cfg.ProductID,
		UIDDomain:   cfg.UIDDomain,
	}, nil
}

// ICSEvent is one VEVENT. For all-day events Start/End are civil dates at
// midnight UTC and End is exclusive; otherwise they are wall clock times
// in the generator location.
type ICSEvent struct {
	UID          string
	Start        time.Time
	End          time.Time
	AllDay       bool
	Title        string
	Description  string
	Status       ics.ObjectStatus
	BusyStatus   string
	Transparency ics.TimeTransparency
	Categories   []string
	RRule        string
	ExDates      []time.Time
}

// PeriodExportOptions parameterises the painted-calendar path.
type PeriodExportOptions struct {
	Scope        ExportScope
	EmployeeName string
	// MemberID scopes UIDs per member in team exports.
	MemberID     string
	CalendarName string
	// Skip reports days a half-day recurrence must not cover. Nil means
	// French public holidays.
	Skip func(calendar.Date) bool
}

// MemberPeriods is one member's share of a team export.
type MemberPeriods struct {
	MemberID string
	Name     string
	Periods  []calendar.Period
	Skip     func(calendar.Date) bool
}

// VacationPeriod is a declared period of the form path. Dates are
// DD/MM/YYYY; Status defaults to LEAVE.
type VacationPeriod struct {
	StartDate   string
	EndDate     string
	Title       string
	Description string
	Status      calendar.DayStatus
}

// ICSGenerator renders ICS documents. It holds no per-request state.
type ICSGenerator struct {
	settings ICSSettings
	logger   *zap.Logger
	now      func() time.Time
}

// NewICSGenerator builds a generator; now may be nil (time.Now).
func NewICSGenerator(settings ICSSettings, logger *zap.Logger, now func() time.Time) *ICSGenerator {
	if now == nil {
		now = time.Now
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &ICSGenerator{settings: settings, logger: logger, now: now}
}

// Location is the timezone of timed events.
func (g *ICSGenerator) Location() *time.Location { return g.settings.Location }

// ═══════════════════════════════════════════════════════════
// Painted-calendar path
// ═══════════════════════════════════════════════════════════

// GeneratePeriodsICS renders one person's aggregated periods.
func (g *ICSGenerator) GeneratePeriodsICS(periods []calendar.Period, opts PeriodExportOptions) ([]byte, error) {
	events, err := g.PeriodEvents(periods, opts)
	if err != nil {
		return nil, err
	}
	return g.render(events, opts.CalendarName, opts.EmployeeName, len(periods))
}

// GenerateTeamICS renders every member's periods into one calendar.
// Summaries are prefixed with the member name and UIDs scoped per member.
func (g *ICSGenerator) GenerateTeamICS(members []MemberPeriods, calendarName string) ([]byte, error) {
	var events []ICSEvent
	total := 0
	for _, m := range members {
		evs, err := g.PeriodEvents(m.Periods, PeriodExportOptions{
			Scope:        ScopeTeam,
			EmployeeName: m.Name,
			MemberID:     m.MemberID,
			Skip:         m.Skip,
		})
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
		total += len(m.Periods)
	}
	return g.render(events, calendarName, calendarName, total)
}

// PeriodEvents converts periods to events without rendering them.
func (g *ICSGenerator) PeriodEvents(periods []calendar.Period, opts PeriodExportOptions) ([]ICSEvent, error) {
	if opts.Scope == "" {
		opts.Scope = ScopePersonal
	}
	skip := opts.Skip
	if skip == nil {
		skip = func(d calendar.Date) bool { return calendar.GetFrenchHolidays(d.Year).Contains(d) }
	}

	events := make([]ICSEvent, 0, len(periods))
	for _, p := range periods {
		if p.End.Before(p.Start) {
			return nil, fmt.Errorf("%w: %s > %s", ErrICSInvalidRange, p.Start.French(), p.End.French())
		}
		if !p.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", calendar.ErrInvalidStatus, string(p.Status))
		}

		title := p.Status.Label()
		if opts.Scope == ScopeTeam && opts.EmployeeName != "" {
			title = opts.EmployeeName + " - " + title
		}
		ev := ICSEvent{
			UID:         g.uid(p.Start, p.HalfDay, p.Status, opts.Scope, opts.MemberID),
			Title:       title + halfDaySuffix[p.HalfDay],
			Description: periodDescription(p),
			Status:      ics.ObjectStatusConfirmed,
			Categories:  []string{p.Status.Label()},
		}
		ev.BusyStatus, ev.Transparency = paintedBusy(p.Status)
		if err := g.schedule(&ev, p.Start, p.End, p.HalfDay, skip); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// paintedBusy: the person is reachable when remote, so REMOTE stays free
// here.
func paintedBusy(s calendar.DayStatus) (string, ics.TimeTransparency) {
	switch s {
	case calendar.StatusLeave, calendar.StatusSchool, calendar.StatusTrainer:
		return BusyStatusOOF, ics.TransparencyOpaque
	default:
		return BusyStatusFree, ics.TransparencyTransparent
	}
}

// formBusy: every declared absence away from the office blocks the slot,
// whole-day REMOTE included.
func formBusy(s calendar.DayStatus) (string, ics.TimeTransparency) {
	if s == calendar.StatusWork {
		return BusyStatusFree, ics.TransparencyTransparent
	}
	return BusyStatusOOF, ics.TransparencyOpaque
}

func periodDescription(p calendar.Period) string {
	n := calendar.GetDaysBetween(p.Start, p.End)
	if n == 1 {
		return fmt.Sprintf("%s le %s", p.Status.Label(), p.Start.French())
	}
	return fmt.Sprintf("%s du %s au %s (%d jours)", p.Status.Label(), p.Start.French(), p.End.French(), n)
}

// ═══════════════════════════════════════════════════════════
// Form path
// ═══════════════════════════════════════════════════════════

// GenerateVacationICS validates every declared period first, then renders.
// A single bad date rejects the whole export.
func (g *ICSGenerator) GenerateVacationICS(employeeName string, periods []VacationPeriod, timezone string) ([]byte, error) {
	employeeName = strings.TrimSpace(employeeName)
	if employeeName == "" {
		return nil, ErrICSEmployeeEmpty
	}
	if len(periods) == 0 {
		return nil, ErrNothingToExport
	}
	gen := g
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrICSInvalidZone, timezone)
		}
		settings := g.settings
		settings.Location = loc
		gen = &ICSGenerator{settings: settings, logger: g.logger, now: g.now}
	}

	events := make([]ICSEvent, 0, len(periods))
	seen := make(map[string]int, len(periods))
	for i, vp := range periods {
		start, ok := calendar.ParseFrenchDate(vp.StartDate)
		if !ok {
			return nil, fmt.Errorf("%w: période %d, début %q", ErrICSInvalidDate, i+1, vp.StartDate)
		}
		end, ok := calendar.ParseFrenchDate(vp.EndDate)
		if !ok {
			return nil, fmt.Errorf("%w: période %d, fin %q", ErrICSInvalidDate, i+1, vp.EndDate)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: période %d (%s > %s)", ErrICSInvalidRange, i+1, vp.StartDate, vp.EndDate)
		}
		title := strings.TrimSpace(vp.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: période %d", ErrICSTitleEmpty, i+1)
		}
		status := vp.Status
		if status == calendar.StatusNone {
			status = calendar.StatusLeave
		}
		if !status.Valid() {
			return nil, fmt.Errorf("%w: %q", calendar.ErrInvalidStatus, string(status))
		}

		uid := gen.uid(start, calendar.HalfDayFull, status, ScopePersonal, employeeName)
		// two declarations starting the same day keep distinct, stable UIDs
		if n := seen[uid]; n > 0 {
			seen[uid] = n + 1
			uid = strings.Replace(uid, "@", fmt.Sprintf("-%d@", n+1), 1)
		} else {
			seen[uid] = 1
		}

		desc := strings.TrimSpace(vp.Description)
		if desc == "" {
			desc = fmt.Sprintf("%s : %s du %s au %s", employeeName, status.Label(), vp.StartDate, vp.EndDate)
		}
		ev := ICSEvent{
			UID:         uid,
			Title:       title,
			Description: desc,
			Status:      ics.ObjectStatusConfirmed,
			Categories:  []string{status.Label()},
		}
		ev.BusyStatus, ev.Transparency = formBusy(status)
		if err := gen.schedule(&ev, start, end, calendar.HalfDayFull, nil); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return gen.render(events, "Absences - "+employeeName, employeeName, len(periods))
}

// ═══════════════════════════════════════════════════════════
// Rendering
// ═══════════════════════════════════════════════════════════

func (g *ICSGenerator) schedule(ev *ICSEvent, start, end calendar.Date, half calendar.HalfDay, skip func(calendar.Date) bool) error {
	switch half {
	case calendar.HalfDayAM, calendar.HalfDayPM:
		from, to := g.settings.AMStartHour, g.settings.AMEndHour
		if half == calendar.HalfDayPM {
			from, to = g.settings.PMStartHour, g.settings.PMEndHour
		}
		loc := g.settings.Location
		ev.Start = start.In(loc, from, 0)
		ev.End = start.In(loc, to, 0)
		if start == end {
			return nil
		}
		opt := rrule.ROption{
			Freq:      rrule.DAILY,
			Dtstart:   ev.Start,
			Until:     end.In(loc, to, 0),
			Byweekday: []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR},
		}
		rule, err := rrule.NewRRule(opt)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrICSGenerateFail, err)
		}
		ev.RRule = opt.RRuleString()
		if skip != nil {
			for _, occ := range rule.All() {
				if skip(calendar.DateOf(occ)) {
					ev.ExDates = append(ev.ExDates, occ)
				}
			}
		}
	default:
		ev.AllDay = true
		ev.Start = start.Time()
		ev.End = end.AddDays(1).Time()
	}
	return nil
}

// render is all-or-nothing: a serializer failure discards the buffer.
func (g *ICSGenerator) render(events []ICSEvent, calendarName, employee string, periodCount int) ([]byte, error) {
	if len(events) == 0 {
		return nil, ErrNothingToExport
	}

	cal := ics.NewCalendarFor("PGV Planning")
	if g.settings.ProductID != "" {
		cal.SetProductId(g.settings.ProductID)
	}
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if calendarName != "" {
		cal.SetXWRCalName(calendarName)
	}
	tzid := g.settings.Location.String()
	cal.SetXWRTimezone(tzid)
	if year, ok := firstTimedYear(events); ok {
		addTimezone(cal, g.settings.Location, year)
	}

	stamp := g.now().UTC()
	for _, e := range events {
		ev := cal.AddEvent(e.UID)
		ev.SetDtStampTime(stamp)
		if e.AllDay {
			ev.SetAllDayStartAt(e.Start)
			ev.SetAllDayEndAt(e.End)
		} else {
			ev.SetProperty(ics.ComponentPropertyDtStart, e.Start.Format(icsLocalLayout), ics.WithTZID(tzid))
			ev.SetProperty(ics.ComponentPropertyDtEnd, e.End.Format(icsLocalLayout), ics.WithTZID(tzid))
		}
		if e.RRule != "" {
			ev.AddRrule(e.RRule)
		}
		for _, ex := range e.ExDates {
			ev.AddExdate(ex.In(g.settings.Location).Format(icsLocalLayout), ics.WithTZID(tzid))
		}
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		ev.SetStatus(e.Status)
		ev.SetTimeTransparency(e.Transparency)
		ev.SetProperty(busyStatusProperty, e.BusyStatus)
		for _, c := range e.Categories {
			ev.AddCategory(c)
		}
	}

	var buf bytes.Buffer
	if err := cal.SerializeTo(&buf, ics.WithNewLineWindows); err != nil {
		g.logger.Error("sérialisation ICS échouée",
			zap.String("employee", employee),
			zap.Int("periods", periodCount),
			zap.Error(err),
		)
		return nil, ErrICSGenerateFail
	}
	return buf.Bytes(), nil
}

// firstTimedYear is the earliest start year among half-day events.
func firstTimedYear(events []ICSEvent) (int, bool) {
	year, found := 0, false
	for _, e := range events {
		if e.AllDay {
			continue
		}
		if !found || e.Start.Year() < year {
			year, found = e.Start.Year(), true
		}
	}
	return year, found
}

// uid is stable for one logical period and distinct across periods:
// <yyyymmdd>-<half>-<status>-<scope>[-<member>]@<domain>.
func (g *ICSGenerator) uid(start calendar.Date, half calendar.HalfDay, status calendar.DayStatus, scope ExportScope, member string) string {
	if half == "" {
		half = calendar.HalfDayFull
	}
	parts := []string{
		start.Time().Format(icsDateLayout),
		string(half),
		string(status),
		string(scope),
	}
	if m := slugify(member, "-"); m != "" {
		parts = append(parts, m)
	}
	domain := g.settings.UIDDomain
	if domain == "" {
		domain = "pgvplaning.app"
	}
	return strings.Join(parts, "-") + "@" + domain
}

// ── filenames ──

// ExportFilename builds "<employee>_<category>_<scope>[_<yyyymmdd>].ics",
// ASCII folded and lowercase. Empty parts are dropped.
func ExportFilename(employeeName, category string, scope ExportScope, date *time.Time) string {
	var parts []string
	for _, p := range []string{employeeName, category} {
		if s := slugify(p, "_"); s != "" {
			parts = append(parts, s)
		}
	}
	if scope != "" {
		parts = append(parts, string(scope))
	}
	if date != nil {
		parts = append(parts, date.Format(icsDateLayout))
	}
	if len(parts) == 0 {
		parts = []string{"calendrier"}
	}
	return strings.Join(parts, "_") + ".ics"
}

// slugify folds accents, lowercases and collapses every run of
// non-alphanumerics into sep.
func slugify(s, sep string) string {
	// transformers carry state; one chain per call
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteString(sep)
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
