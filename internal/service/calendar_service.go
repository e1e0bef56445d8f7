package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pgvplaning/backend/config"
	"pgvplaning/backend/internal/calendar"
	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/model"
	"pgvplaning/backend/internal/repository"
	pkgerrors "pgvplaning/backend/pkg/errors"
)

// ── Calendar errors ──

var (
	ErrCalendarConflict = errors.New("le calendrier a été modifié ailleurs, veuillez recharger")
	ErrCalendarCorrupt  = errors.New("calendrier enregistré illisible")
	ErrCalendarImport   = errors.New("document de calendrier invalide")
	ErrPeriodRange      = errors.New("la date de fin précède la date de début")
)

// CalendarCache is the read-through cache of persisted status maps.
// *redis.Client implements it.
type CalendarCache interface {
	GetCalendar(ctx context.Context, userID string) ([]byte, int, error)
	SetCalendar(ctx context.Context, userID string, data []byte, version int) error
	InvalidateCalendar(ctx context.Context, userID string) error
}

// CalendarService loads a user's status map, runs one mutation or query
// on a calendar.Store and persists through the store's persist hook.
type CalendarService interface {
	Get(ctx context.Context, userID string) (*dto.CalendarResponse, error)
	SetDay(ctx context.Context, userID string, req *dto.SetDayRequest) (*dto.MutationResponse, error)
	PaintRange(ctx context.Context, userID string, req *dto.PaintRangeRequest) (*dto.MutationResponse, error)
	ApplyPattern(ctx context.Context, userID string, req *dto.WeeklyPatternRequest) (*dto.MutationResponse, error)
	Import(ctx context.Context, userID string, req *dto.ImportCalendarRequest) (*dto.MutationResponse, error)
	Reset(ctx context.Context, userID string) (*dto.MutationResponse, error)

	Month(ctx context.Context, userID string, q *dto.MonthQuery) ([]calendar.DayView, error)
	Stats(ctx context.Context, userID string, year int) (*calendar.Stats, error)
	Periods(ctx context.Context, userID string, q *dto.PeriodsQuery) ([]dto.PeriodResponse, error)

	// Store returns a read-only store (no persist hook) of userID.
	Store(ctx context.Context, userID string) (*calendar.Store, error)
	// Stores loads several users at once; users without a calendar get an
	// empty store.
	Stores(ctx context.Context, userIDs []string) (map[string]*calendar.Store, error)
	GapTolerance() int
}

type calendarService struct {
	repo   *repository.Repository
	cache  CalendarCache
	cfg    *config.CalendarConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewCalendarService cache may be nil (Redis unavailable).
func NewCalendarService(repo *repository.Repository, cache CalendarCache, cfg *config.CalendarConfig, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, cache: cache, cfg: cfg, logger: logger, now: time.Now}
}

func (s *calendarService) GapTolerance() int {
	if s.cfg == nil || s.cfg.GapToleranceDays < 1 {
		return calendar.DefaultGapTolerance
	}
	return s.cfg.GapToleranceDays
}

// ── session ──

// calendarSession binds one loaded store to the version it was read at.
type calendarSession struct {
	svc     *calendarService
	ctx     context.Context
	userID  string
	version int
	store   *calendar.Store
}

func (s *calendarService) open(ctx context.Context, userID string, writable bool) (*calendarSession, error) {
	snap, version, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	sess := &calendarSession{svc: s, ctx: ctx, userID: userID, version: version}
	opts := []calendar.StoreOption{calendar.WithClock(s.now)}
	if writable {
		opts = append(opts, calendar.WithPersist(sess.persist))
	}
	sess.store = calendar.NewStore(snap, opts...)
	return sess, nil
}

func (s *calendarService) load(ctx context.Context, userID string) (calendar.Snapshot, int, error) {
	if s.cache != nil {
		data, version, err := s.cache.GetCalendar(ctx, userID)
		if err == nil {
			snap, decErr := calendar.DecodeSnapshot(data)
			if decErr == nil {
				return snap, version, nil
			}
			s.logger.Warn("cache calendrier illisible, relecture en base",
				zap.String("user_id", userID), zap.Error(decErr))
			s.invalidate(ctx, userID)
		}
	}

	rec, err := s.repo.CalendarSnapshot.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return calendar.Snapshot{}, 0, nil
		}
		s.logger.Error("lecture du calendrier échouée", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}
	snap, err := calendar.DecodeSnapshot(rec.Data)
	if err != nil {
		s.logger.Error("calendrier enregistré illisible", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %v", ErrCalendarCorrupt, err)
	}
	s.fill(ctx, userID, rec.Data, rec.Version)
	return snap, rec.Version, nil
}

func (s *calendarService) fill(ctx context.Context, userID string, data []byte, version int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetCalendar(ctx, userID, data, version); err != nil {
		s.logger.Warn("mise en cache du calendrier échouée", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *calendarService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCalendar(ctx, userID); err != nil {
		s.logger.Warn("invalidation du cache calendrier échouée", zap.String("user_id", userID), zap.Error(err))
	}
}

// persist is the store's PersistFunc.
func (sess *calendarSession) persist(snap calendar.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	rec := &model.CalendarSnapshot{
		UserID:  sess.userID,
		Data:    datatypes.JSON(data),
		Version: sess.version,
	}
	if err := sess.svc.repo.CalendarSnapshot.Save(sess.ctx, rec); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			sess.svc.invalidate(sess.ctx, sess.userID)
			return ErrCalendarConflict
		}
		sess.svc.logger.Error("enregistrement du calendrier échoué",
			zap.String("user_id", sess.userID), zap.Int("entries", len(snap)), zap.Error(err))
		return err
	}
	sess.version = rec.Version
	sess.svc.fill(sess.ctx, sess.userID, data, rec.Version)
	return nil
}

func (sess *calendarSession) result(changed int) *dto.MutationResponse {
	return &dto.MutationResponse{Changed: changed, Version: sess.version}
}

// ═══════════════════════════════════════════════════════════
// Mutations
// ═══════════════════════════════════════════════════════════

func (s *calendarService) Get(ctx context.Context, userID string) (*dto.CalendarResponse, error) {
	sess, err := s.open(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	data, err := sess.store.Snapshot().Encode()
	if err != nil {
		return nil, err
	}
	return &dto.CalendarResponse{Entries: data, Version: sess.version}, nil
}

func (s *calendarService) SetDay(ctx context.Context, userID string, req *dto.SetDayRequest) (*dto.MutationResponse, error) {
	status, half, err := parseStatusHalf(req.Status, req.HalfDay)
	if err != nil {
		return nil, err
	}
	sess, err := s.open(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	before := sess.version
	if err := sess.store.SetDayStatusByKey(req.Date, status, half); err != nil {
		return nil, err
	}
	changed := 0
	if sess.version != before {
		changed = 1
	}
	return sess.result(changed), nil
}

func (s *calendarService) PaintRange(ctx context.Context, userID string, req *dto.PaintRangeRequest) (*dto.MutationResponse, error) {
	status, half, err := parseStatusHalf(req.Status, req.HalfDay)
	if err != nil {
		return nil, err
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}
	sess, err := s.open(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	changed, err := sess.store.PaintRange(from, to, status, half)
	if err != nil {
		return nil, err
	}
	return sess.result(changed), nil
}

func (s *calendarService) ApplyPattern(ctx context.Context, userID string, req *dto.WeeklyPatternRequest) (*dto.MutationResponse, error) {
	status, half, err := parseStatusHalf(req.Status, req.HalfDay)
	if err != nil {
		return nil, err
	}
	from, until, err := parseRange(req.From, req.Until)
	if err != nil {
		return nil, err
	}
	weekdays := make([]time.Weekday, 0, len(req.Weekdays))
	for _, wd := range req.Weekdays {
		weekdays = append(weekdays, time.Weekday(wd))
	}

	sess, err := s.open(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	changed, err := sess.store.ApplyWeeklyPattern(calendar.WeeklyPattern{
		Status:   status,
		HalfDay:  half,
		Weekdays: weekdays,
		From:     from,
		Until:    until,
		Interval: req.Interval,
	})
	if err != nil {
		return nil, err
	}
	return sess.result(changed), nil
}

func (s *calendarService) Import(ctx context.Context, userID string, req *dto.ImportCalendarRequest) (*dto.MutationResponse, error) {
	snap, err := calendar.ParseSnapshot(req.Entries)
	if errors.Is(err, calendar.ErrDerivedStatus) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCalendarImport, err)
	}

	sess, err := s.open(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	if err := sess.persist(snap); err != nil {
		return nil, err
	}
	s.logger.Info("calendrier importé", zap.String("user_id", userID), zap.Int("entries", len(snap)))
	return sess.result(len(snap)), nil
}

func (s *calendarService) Reset(ctx context.Context, userID string) (*dto.MutationResponse, error) {
	sess, err := s.open(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	cleared := sess.store.Len()
	if err := sess.store.ResetData(); err != nil {
		return nil, err
	}
	s.logger.Info("calendrier réinitialisé", zap.String("user_id", userID), zap.Int("entries", cleared))
	return sess.result(cleared), nil
}

// ═══════════════════════════════════════════════════════════
// Queries
// ═══════════════════════════════════════════════════════════

func (s *calendarService) Month(ctx context.Context, userID string, q *dto.MonthQuery) ([]calendar.DayView, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return nil, err
	}
	return calendar.MonthView(store, q.Year, time.Month(q.Month)), nil
}

func (s *calendarService) Stats(ctx context.Context, userID string, year int) (*calendar.Stats, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats := calendar.YearStats(store, year)
	return &stats, nil
}

func (s *calendarService) Periods(ctx context.Context, userID string, q *dto.PeriodsQuery) ([]dto.PeriodResponse, error) {
	filter, err := parseStatusFilter(q.Status, nil)
	if err != nil {
		return nil, err
	}
	store, err := s.Store(ctx, userID)
	if err != nil {
		return nil, err
	}
	periods, err := periodsInRange(store, q.From, q.To, filter, s.GapTolerance())
	if err != nil {
		return nil, err
	}
	out := make([]dto.PeriodResponse, 0, len(periods))
	for _, p := range periods {
		out = append(out, toPeriodResponse(p))
	}
	return out, nil
}

func (s *calendarService) Store(ctx context.Context, userID string) (*calendar.Store, error) {
	sess, err := s.open(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	return sess.store, nil
}

func (s *calendarService) Stores(ctx context.Context, userIDs []string) (map[string]*calendar.Store, error) {
	recs, err := s.repo.CalendarSnapshot.ListByUsers(ctx, userIDs)
	if err != nil {
		s.logger.Error("lecture des calendriers échouée", zap.Int("users", len(userIDs)), zap.Error(err))
		return nil, err
	}
	out := make(map[string]*calendar.Store, len(userIDs))
	for _, rec := range recs {
		snap, err := calendar.DecodeSnapshot(rec.Data)
		if err != nil {
			// unreadable calendars load empty
			s.logger.Error("calendrier enregistré illisible", zap.String("user_id", rec.UserID), zap.Error(err))
			snap = nil
		}
		out[rec.UserID] = calendar.NewStore(snap, calendar.WithClock(s.now))
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = calendar.NewStore(nil, calendar.WithClock(s.now))
		}
	}
	return out, nil
}

// ── helpers ──

func parseStatusHalf(status, half string) (calendar.DayStatus, calendar.HalfDay, error) {
	st := calendar.StatusNone
	if status != "" {
		var err error
		if st, err = calendar.ParseDayStatus(status); err != nil {
			return "", "", err
		}
	}
	h, err := calendar.ParseHalfDay(half)
	if err != nil {
		return "", "", err
	}
	return st, h, nil
}

func parseRange(fromKey, toKey string) (calendar.Date, calendar.Date, error) {
	from, ok := calendar.ParseDateKey(fromKey)
	if !ok {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("%w: %q", calendar.ErrInvalidDateKey, fromKey)
	}
	to, ok := calendar.ParseDateKey(toKey)
	if !ok {
		return calendar.Date{}, calendar.Date{}, fmt.Errorf("%w: %q", calendar.ErrInvalidDateKey, toKey)
	}
	if to.Before(from) {
		return calendar.Date{}, calendar.Date{}, ErrPeriodRange
	}
	return from, to, nil
}

// parseStatusFilter reads "LEAVE,REMOTE"; empty yields def.
func parseStatusFilter(csv string, def []calendar.DayStatus) (calendar.StatusFilter, error) {
	var statuses []calendar.DayStatus
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, err := calendar.ParseDayStatus(part)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	if len(statuses) == 0 {
		statuses = def
	}
	return calendar.FilterOf(statuses...), nil
}

// periodsInRange aggregates [from, to]; missing bounds default to the
// painted bounds of the store.
func periodsInRange(store *calendar.Store, fromKey, toKey string, filter calendar.StatusFilter, tol int) ([]calendar.Period, error) {
	first, last, ok := store.Bounds()
	if fromKey == "" && toKey == "" {
		if !ok {
			return []calendar.Period{}, nil
		}
		return store.Periods(first, last, filter, tol), nil
	}
	if fromKey == "" {
		fromKey = first.Key()
		if !ok {
			fromKey = toKey
		}
	}
	if toKey == "" {
		toKey = last.Key()
		if !ok {
			toKey = fromKey
		}
	}
	from, to, err := parseRange(fromKey, toKey)
	if err != nil {
		return nil, err
	}
	return store.Periods(from, to, filter, tol), nil
}

func toPeriodResponse(p calendar.Period) dto.PeriodResponse {
	return dto.PeriodResponse{
		Start:   p.Start.Key(),
		End:     p.End.Key(),
		Status:  string(p.Status),
		Label:   p.Status.Label(),
		HalfDay: string(p.HalfDay),
		Days:    p.Days(),
	}
}
