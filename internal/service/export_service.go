package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pgvplaning/backend/internal/calendar"
	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/repository"
)

// ── Export errors ──

var (
	ErrExportNoMembers    = errors.New("l'équipe n'a aucun membre")
	ErrExportGenerateFail = errors.New("échec de la génération du fichier Excel")
)

// ExportService produces downloadable files. Results are returned as
// bytes plus a suggested filename; the handler sets the HTTP headers.
type ExportService interface {
	// ExportPersonalICS exports the caller's painted periods.
	ExportPersonalICS(ctx context.Context, userID string, q *dto.CalendarExportQuery) ([]byte, string, error)
	// ExportTeamICS exports every member's periods in one calendar.
	ExportTeamICS(ctx context.Context, teamID, callerID string, q *dto.CalendarExportQuery) ([]byte, string, error)
	// ExportVacationICS renders declared vacation periods (form path).
	ExportVacationICS(ctx context.Context, req *dto.ExportICSRequest) ([]byte, string, error)
	// ExportTeamStats builds the yearly statistics workbook of a team.
	ExportTeamStats(ctx context.Context, teamID, callerID string, year int) (*bytes.Buffer, string, error)
	// TeamStats is the JSON rollup behind ExportTeamStats.
	TeamStats(ctx context.Context, teamID, callerID string, year int) ([]dto.MemberStatsResponse, error)
}

type exportService struct {
	repo      *repository.Repository
	calendars CalendarService
	teams     TeamService
	generator *ICSGenerator
	logger    *zap.Logger
	now       func() time.Time
}

func NewExportService(repo *repository.Repository, calendars CalendarService, teams TeamService, generator *ICSGenerator, logger *zap.Logger) ExportService {
	return &exportService{
		repo:      repo,
		calendars: calendars,
		teams:     teams,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

var defaultExportStatuses = []calendar.DayStatus{calendar.StatusLeave}

// ═══════════════════════════════════════════════════════════
// ICS
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportPersonalICS(ctx context.Context, userID string, q *dto.CalendarExportQuery) ([]byte, string, error) {
	filter, err := parseStatusFilter(q.Status, defaultExportStatuses)
	if err != nil {
		return nil, "", err
	}
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}
	store, err := s.calendars.Store(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	periods, err := periodsInRange(store, q.From, q.To, filter, s.calendars.GapTolerance())
	if err != nil {
		return nil, "", err
	}

	data, err := s.generator.GeneratePeriodsICS(periods, PeriodExportOptions{
		Scope:        ScopePersonal,
		EmployeeName: user.Name,
		CalendarName: "Planning - " + user.Name,
		Skip:         store.IsBareHoliday,
	})
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("export ICS personnel",
		zap.String("user_id", userID), zap.Int("periods", len(periods)), zap.Int("bytes", len(data)))
	return data, ExportFilename(user.Name, exportCategory(q.Category, periods), ScopePersonal, s.stamp(q.Dated)), nil
}

func (s *exportService) ExportTeamICS(ctx context.Context, teamID, callerID string, q *dto.CalendarExportQuery) ([]byte, string, error) {
	filter, err := parseStatusFilter(q.Status, defaultExportStatuses)
	if err != nil {
		return nil, "", err
	}
	if _, err := s.teams.Membership(ctx, teamID, callerID); err != nil {
		return nil, "", err
	}
	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrTeamNotFound
		}
		return nil, "", err
	}
	members, stores, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, "", err
	}

	tol := s.calendars.GapTolerance()
	shares := make([]MemberPeriods, 0, len(members))
	var all []calendar.Period
	for _, m := range members {
		store := stores[m.userID]
		periods, err := periodsInRange(store, q.From, q.To, filter, tol)
		if err != nil {
			return nil, "", err
		}
		all = append(all, periods...)
		shares = append(shares, MemberPeriods{
			MemberID: m.userID,
			Name:     m.name,
			Periods:  periods,
			Skip:     store.IsBareHoliday,
		})
	}

	data, err := s.generator.GenerateTeamICS(shares, "Équipe - "+team.Name)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("export ICS équipe",
		zap.String("team_id", teamID), zap.Int("members", len(members)), zap.Int("periods", len(all)))
	return data, ExportFilename(team.Name, exportCategory(q.Category, all), ScopeTeam, s.stamp(q.Dated)), nil
}

func (s *exportService) ExportVacationICS(_ context.Context, req *dto.ExportICSRequest) ([]byte, string, error) {
	periods := make([]VacationPeriod, 0, len(req.Periods))
	for _, p := range req.Periods {
		var status calendar.DayStatus
		if p.Status != "" {
			st, err := calendar.ParseDayStatus(p.Status)
			if err != nil {
				return nil, "", err
			}
			status = st
		}
		periods = append(periods, VacationPeriod{
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			Title:       p.Title,
			Description: p.Description,
			Status:      status,
		})
	}

	data, err := s.generator.GenerateVacationICS(req.EmployeeName, periods, req.Timezone)
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	return data, ExportFilename(req.EmployeeName, "conges", ScopePersonal, &now), nil
}

// ═══════════════════════════════════════════════════════════
// Team statistics
// ═══════════════════════════════════════════════════════════
//
// One sheet "Statistiques <year>":
//   - title row
//   - header: Membre | Jours comptés | one column per status (days) |
//     one column per status (%)
//   - one row per member, ordered by name

type teamMember struct {
	userID string
	name   string
}

func (s *exportService) loadTeam(ctx context.Context, teamID string) ([]teamMember, map[string]*calendar.Store, error) {
	rows, err := s.repo.TeamMember.ListByTeam(ctx, teamID)
	if err != nil {
		s.logger.Error("liste des membres échouée", zap.String("team_id", teamID), zap.Error(err))
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, ErrExportNoMembers
	}
	members := make([]teamMember, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		name := r.UserID
		if r.User != nil && r.User.Name != "" {
			name = r.User.Name
		}
		members = append(members, teamMember{userID: r.UserID, name: name})
		ids = append(ids, r.UserID)
	}
	stores, err := s.calendars.Stores(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return members, stores, nil
}

func (s *exportService) TeamStats(ctx context.Context, teamID, callerID string, year int) ([]dto.MemberStatsResponse, error) {
	if _, err := s.teams.Membership(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	members, stores, err := s.loadTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MemberStatsResponse, 0, len(members))
	for _, m := range members {
		st := calendar.YearStats(stores[m.userID], year)
		resp := dto.MemberStatsResponse{
			UserID:      m.userID,
			Name:        m.name,
			WorkedDays:  st.WorkedDays,
			Counts:      make(map[string]float64, len(st.Counts)),
			Percentages: make(map[string]float64, len(st.Percentages)),
		}
		for k, v := range st.Counts {
			resp.Counts[string(k)] = v
		}
		for k, v := range st.Percentages {
			resp.Percentages[string(k)] = v
		}
		out = append(out, resp)
	}
	return out, nil
}

func (s *exportService) ExportTeamStats(ctx context.Context, teamID, callerID string, year int) (*bytes.Buffer, string, error) {
	stats, err := s.TeamStats(ctx, teamID, callerID, year)
	if err != nil {
		return nil, "", err
	}
	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrTeamNotFound
		}
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := fmt.Sprintf("Statistiques %d", year)
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	statuses := calendar.UserStatuses
	lastCol := 2 + 2*len(statuses)

	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", colName(lastCol-1), 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1F4E79"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	percentStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 10})

	// title
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s : statistiques %d", team.Name, year))
	f.MergeCell(sheetName, "A1", cell(colName(lastCol-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// header
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "Membre")
	f.SetCellValue(sheetName, cell("B", row), "Jours comptés")
	for i, st := range statuses {
		f.SetCellValue(sheetName, cell(colName(2+i), row), st.Label()+" (j)")
		f.SetCellValue(sheetName, cell(colName(2+len(statuses)+i), row), st.Label()+" (%)")
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(lastCol-1), row), headerStyle)

	// one row per member
	row = 3
	for _, m := range stats {
		f.SetCellValue(sheetName, cell("A", row), m.Name)
		f.SetCellValue(sheetName, cell("B", row), m.WorkedDays)
		for i, st := range statuses {
			f.SetCellValue(sheetName, cell(colName(2+i), row), m.Counts[string(st)])
			f.SetCellValue(sheetName, cell(colName(2+len(statuses)+i), row), m.Percentages[string(st)]/100)
		}
		row++
	}
	if row > 3 {
		f.SetCellStyle(sheetName, cell(colName(2+len(statuses)), 3), cell(colName(lastCol-1), row-1), percentStyle)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("écriture du classeur Excel échouée", zap.String("team_id", teamID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("statistiques_%s_%d.xlsx", slugify(team.Name, "_"), year)
	return buf, filename, nil
}

// ── helpers ──

// exportCategory is the explicit category or, when every exported period
// carries the same status, that status label.
func exportCategory(category string, periods []calendar.Period) string {
	if category != "" {
		return category
	}
	if groups := calendar.GroupByStatus(periods); len(groups) == 1 {
		for st := range groups {
			return st.Label()
		}
	}
	return "planning"
}

func (s *exportService) stamp(dated bool) *time.Time {
	if !dated {
		return nil
	}
	now := s.now()
	return &now
}

// colName is the 0-based column index as a letter ("A", "B", …).
func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
