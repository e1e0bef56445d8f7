package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"pgvplaning/backend/internal/calendar"
	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/model"
)

const calUser = "0b7c1f5e-8a43-4c55-9a31-6a0a7f1d2e01"

func setupTestCalendarService() (*calendarService, *mockRepos, *mockCalendarCache) {
	repo, mocks := newMockRepository()
	cache := newMockCalendarCache()
	svc := &calendarService{
		repo:   repo,
		cache:  cache,
		cfg:    testCalendarConfig(),
		logger: zap.NewNop(),
		now:    testClock,
	}
	return svc, mocks, cache
}

func seedSnapshot(m *mockRepos, userID, doc string, version int) {
	m.snapshots.snaps[userID] = &model.CalendarSnapshot{
		UserID:  userID,
		Data:    datatypes.JSON(doc),
		Version: version,
	}
}

// ── reads ──

func TestCalendarService_Get_Empty(t *testing.T) {
	svc, _, _ := setupTestCalendarService()

	resp, err := svc.Get(context.Background(), calUser)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(resp.Entries) != "{}" || resp.Version != 0 {
		t.Errorf("calendrier vide attendu, obtenu %s v%d", resp.Entries, resp.Version)
	}
}

func TestCalendarService_Get_ReadThroughCache(t *testing.T) {
	svc, mocks, cache := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"LEAVE"}`, 3)

	for i := 0; i < 3; i++ {
		resp, err := svc.Get(context.Background(), calUser)
		if err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
		if resp.Version != 3 {
			t.Errorf("version 3 attendue, obtenu %d", resp.Version)
		}
	}
	if mocks.snapshots.gets != 1 {
		t.Errorf("une seule lecture en base attendue, obtenu %d", mocks.snapshots.gets)
	}
	if cache.hits != 2 {
		t.Errorf("deux lectures en cache attendues, obtenu %d", cache.hits)
	}
}

func TestCalendarService_Get_CorruptCacheFallsBack(t *testing.T) {
	svc, mocks, cache := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"REMOTE"}`, 2)
	cache.entries[calUser] = cachedCalendar{data: []byte(`{"pas une date":"LEAVE"}`), version: 9}

	resp, err := svc.Get(context.Background(), calUser)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Version != 2 {
		t.Errorf("version de la base attendue, obtenu %d", resp.Version)
	}
	if cache.invalidated != 1 {
		t.Errorf("le cache illisible doit être invalidé")
	}
}

func TestCalendarService_Get_CorruptDocument(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"VACANCES"}`, 1)

	_, err := svc.Get(context.Background(), calUser)
	if !errors.Is(err, ErrCalendarCorrupt) {
		t.Errorf("ErrCalendarCorrupt attendu, obtenu %v", err)
	}
}

func TestCalendarService_Get_DropsStoredDerivedTags(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"OFF","2026-01-06":{"am":"HOLIDAY","pm":"LEAVE"},"2026-01-07":"SCHOOL"}`, 1)

	resp, err := svc.Get(context.Background(), calUser)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := string(resp.Entries); got != `{"2026-01-06":{"pm":"LEAVE"},"2026-01-07":"SCHOOL"}` {
		t.Errorf("statuts dérivés enregistrés non écartés: %s", got)
	}
}

// ── writes ──

func TestCalendarService_SetDay_PersistsAndCaches(t *testing.T) {
	svc, mocks, cache := setupTestCalendarService()
	ctx := context.Background()

	resp, err := svc.SetDay(ctx, calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "LEAVE"})
	if err != nil {
		t.Fatalf("SetDay: %v", err)
	}
	if resp.Changed != 1 || resp.Version != 1 {
		t.Errorf("changed=1 v1 attendu, obtenu %+v", resp)
	}
	if got := string(mocks.snapshots.snaps[calUser].Data); got != `{"2026-01-05":"LEAVE"}` {
		t.Errorf("document enregistré inattendu: %s", got)
	}
	if cache.entries[calUser].version != 1 {
		t.Errorf("le cache doit porter la nouvelle version")
	}

	resp, err = svc.SetDay(ctx, calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "REMOTE", HalfDay: "PM"})
	if err != nil {
		t.Fatalf("SetDay PM: %v", err)
	}
	if resp.Version != 2 {
		t.Errorf("version 2 attendue, obtenu %d", resp.Version)
	}
	if got := string(mocks.snapshots.snaps[calUser].Data); got != `{"2026-01-05":{"am":"LEAVE","pm":"REMOTE"}}` {
		t.Errorf("fusion demi-journée inattendue: %s", got)
	}
}

func TestCalendarService_SetDay_NoOpDoesNotSave(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"LEAVE"}`, 4)

	resp, err := svc.SetDay(context.Background(), calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "LEAVE"})
	if err != nil {
		t.Fatalf("SetDay: %v", err)
	}
	if resp.Changed != 0 || resp.Version != 4 {
		t.Errorf("aucun changement attendu, obtenu %+v", resp)
	}
	if mocks.snapshots.saves != 0 {
		t.Errorf("aucune écriture attendue, obtenu %d", mocks.snapshots.saves)
	}
}

func TestCalendarService_SetDay_Erase(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"LEAVE","2026-01-06":"REMOTE"}`, 1)

	if _, err := svc.SetDay(context.Background(), calUser, &dto.SetDayRequest{Date: "2026-01-05"}); err != nil {
		t.Fatalf("SetDay gomme: %v", err)
	}
	if got := string(mocks.snapshots.snaps[calUser].Data); got != `{"2026-01-06":"REMOTE"}` {
		t.Errorf("la gomme doit retirer l'entrée, obtenu %s", got)
	}
}

func TestCalendarService_SetDay_Rejects(t *testing.T) {
	svc, _, _ := setupTestCalendarService()
	ctx := context.Background()

	if _, err := svc.SetDay(ctx, calUser, &dto.SetDayRequest{Date: "2026-01-01", Status: "HOLIDAY"}); !errors.Is(err, calendar.ErrDerivedStatus) {
		t.Errorf("HOLIDAY: ErrDerivedStatus attendu, obtenu %v", err)
	}
	if _, err := svc.SetDay(ctx, calUser, &dto.SetDayRequest{Date: "2026-13-01", Status: "LEAVE"}); !errors.Is(err, calendar.ErrInvalidDateKey) {
		t.Errorf("date invalide: ErrInvalidDateKey attendu, obtenu %v", err)
	}
	if _, err := svc.SetDay(ctx, calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "LEAVE", HalfDay: "SOIR"}); !errors.Is(err, calendar.ErrInvalidHalfDay) {
		t.Errorf("demi-journée invalide: ErrInvalidHalfDay attendu, obtenu %v", err)
	}
}

func TestCalendarService_SetDay_Conflict(t *testing.T) {
	svc, mocks, cache := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{}`, 1)
	// a stale cache entry behind the stored version
	cache.entries[calUser] = cachedCalendar{data: []byte(`{}`), version: 0}

	_, err := svc.SetDay(context.Background(), calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "LEAVE"})
	if !errors.Is(err, ErrCalendarConflict) {
		t.Fatalf("ErrCalendarConflict attendu, obtenu %v", err)
	}
	if _, ok := cache.entries[calUser]; ok {
		t.Error("le cache doit être invalidé après un conflit")
	}

	// the retry reads the stored version and succeeds
	if _, err := svc.SetDay(context.Background(), calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "LEAVE"}); err != nil {
		t.Fatalf("nouvel essai: %v", err)
	}
}

func TestCalendarService_PaintRange(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()

	resp, err := svc.PaintRange(context.Background(), calUser, &dto.PaintRangeRequest{
		From: "2026-01-05", To: "2026-01-18", Status: "LEAVE",
	})
	if err != nil {
		t.Fatalf("PaintRange: %v", err)
	}
	if resp.Changed != 10 {
		t.Errorf("10 jours ouvrés attendus, obtenu %d", resp.Changed)
	}
	if mocks.snapshots.saves != 1 {
		t.Errorf("une seule écriture attendue, obtenu %d", mocks.snapshots.saves)
	}

	if _, err := svc.PaintRange(context.Background(), calUser, &dto.PaintRangeRequest{
		From: "2026-01-18", To: "2026-01-05", Status: "LEAVE",
	}); !errors.Is(err, ErrPeriodRange) {
		t.Errorf("plage inversée: ErrPeriodRange attendu, obtenu %v", err)
	}
}

func TestCalendarService_ApplyPattern(t *testing.T) {
	svc, _, _ := setupTestCalendarService()

	resp, err := svc.ApplyPattern(context.Background(), calUser, &dto.WeeklyPatternRequest{
		Status:   "REMOTE",
		Weekdays: []int{3},
		From:     "2026-05-01",
		Until:    "2026-05-31",
	})
	if err != nil {
		t.Fatalf("ApplyPattern: %v", err)
	}
	if resp.Changed != 4 {
		t.Errorf("4 mercredis attendus en mai 2026, obtenu %d", resp.Changed)
	}
}

func TestCalendarService_Import(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	doc := json.RawMessage(`{"2026-01-05":"LEAVE","2026-01-06":{"am":"SCHOOL"},"2026-01-07":null}`)

	resp, err := svc.Import(context.Background(), calUser, &dto.ImportCalendarRequest{Entries: doc})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if resp.Changed != 2 {
		t.Errorf("2 entrées attendues, obtenu %d", resp.Changed)
	}
	if got := string(mocks.snapshots.snaps[calUser].Data); got != `{"2026-01-05":"LEAVE","2026-01-06":{"am":"SCHOOL"}}` {
		t.Errorf("document importé inattendu: %s", got)
	}
}

func TestCalendarService_Import_Rejects(t *testing.T) {
	svc, _, _ := setupTestCalendarService()
	ctx := context.Background()

	if _, err := svc.Import(ctx, calUser, &dto.ImportCalendarRequest{Entries: json.RawMessage(`{"05/01/2026":"LEAVE"}`)}); !errors.Is(err, ErrCalendarImport) {
		t.Errorf("clé non canonique: ErrCalendarImport attendu, obtenu %v", err)
	}
	if _, err := svc.Import(ctx, calUser, &dto.ImportCalendarRequest{Entries: json.RawMessage(`{"2026-01-05":"OFF"}`)}); !errors.Is(err, calendar.ErrDerivedStatus) {
		t.Errorf("statut dérivé: ErrDerivedStatus attendu, obtenu %v", err)
	}
}

func TestCalendarService_Reset(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"LEAVE","2026-01-06":"LEAVE"}`, 1)

	resp, err := svc.Reset(context.Background(), calUser)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if resp.Changed != 2 || resp.Version != 2 {
		t.Errorf("2 entrées effacées en v2 attendues, obtenu %+v", resp)
	}
	if got := string(mocks.snapshots.snaps[calUser].Data); got != "{}" {
		t.Errorf("document vide attendu, obtenu %s", got)
	}
}

// ── queries ──

func TestCalendarService_Periods(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser,
		`{"2026-01-08":"LEAVE","2026-01-09":"LEAVE","2026-01-12":"LEAVE","2026-01-14":"REMOTE"}`, 1)

	periods, err := svc.Periods(context.Background(), calUser, &dto.PeriodsQuery{Status: "leave"})
	if err != nil {
		t.Fatalf("Periods: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("1 période attendue, obtenu %d (%+v)", len(periods), periods)
	}
	p := periods[0]
	if p.Start != "2026-01-08" || p.End != "2026-01-12" || p.HalfDay != "FULL" || p.Days != 5 {
		t.Errorf("période inattendue: %+v", p)
	}

	all, err := svc.Periods(context.Background(), calUser, &dto.PeriodsQuery{})
	if err != nil {
		t.Fatalf("Periods sans filtre: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("LEAVE, WORK (13/01) et REMOTE attendus, obtenu %+v", all)
	}

	if _, err := svc.Periods(context.Background(), calUser, &dto.PeriodsQuery{Status: "SIESTE"}); !errors.Is(err, calendar.ErrInvalidStatus) {
		t.Errorf("statut inconnu: ErrInvalidStatus attendu, obtenu %v", err)
	}
}

func TestCalendarService_StatsAndMonth(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	seedSnapshot(mocks, calUser, `{"2026-01-05":"LEAVE","2026-01-06":{"am":"REMOTE"}}`, 1)
	ctx := context.Background()

	stats, err := svc.Stats(ctx, calUser, 2026)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.WorkedDays != 252 {
		t.Errorf("252 jours comptés attendus, obtenu %v", stats.WorkedDays)
	}
	if stats.Counts[calendar.StatusLeave] != 1 || stats.Counts[calendar.StatusRemote] != 0.5 {
		t.Errorf("compteurs inattendus: %+v", stats.Counts)
	}

	days, err := svc.Month(ctx, calUser, &dto.MonthQuery{Year: 2026, Month: 1})
	if err != nil {
		t.Fatalf("Month: %v", err)
	}
	if len(days) != 31 {
		t.Fatalf("31 jours attendus, obtenu %d", len(days))
	}
	if !days[0].Holiday || days[4].Status != calendar.StatusLeave {
		t.Errorf("1er janvier férié et 5 janvier en congé attendus: %+v %+v", days[0], days[4])
	}
}

func TestCalendarService_Stores(t *testing.T) {
	svc, mocks, _ := setupTestCalendarService()
	other := "5d1e3c7a-2b8f-4e6d-8c1a-9f0e7d6c5b4a"
	seedSnapshot(mocks, calUser, `{"2026-01-05":"LEAVE"}`, 1)

	stores, err := svc.Stores(context.Background(), []string{calUser, other})
	if err != nil {
		t.Fatalf("Stores: %v", err)
	}
	if stores[calUser].Len() != 1 {
		t.Errorf("1 entrée attendue pour %s", calUser)
	}
	if stores[other] == nil || stores[other].Len() != 0 {
		t.Errorf("calendrier vide attendu pour un membre sans données")
	}
}

func TestCalendarService_NilCache(t *testing.T) {
	repo, _ := newMockRepository()
	svc := NewCalendarService(repo, nil, testCalendarConfig(), zap.NewNop())

	if _, err := svc.SetDay(context.Background(), calUser, &dto.SetDayRequest{Date: "2026-01-05", Status: "LEAVE"}); err != nil {
		t.Fatalf("SetDay sans cache: %v", err)
	}
	resp, err := svc.Get(context.Background(), calUser)
	if err != nil || resp.Version != 1 {
		t.Errorf("lecture sans cache: %v %+v", err, resp)
	}
}
