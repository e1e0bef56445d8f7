package dto

// ── ICS form export (public contract, camelCase) ──

// ExportICSRequest POST /api/v1/export/ics
type ExportICSRequest struct {
	EmployeeName string                  `json:"employeeName" binding:"required,notblank,min=2,max=50"`
	Periods      []VacationPeriodRequest `json:"periods"      binding:"required,min=1,max=100,dive"`
	Timezone     string                  `json:"timezone"     binding:"omitempty,max=64"`
}

// VacationPeriodRequest is one declared period, dates in DD/MM/YYYY.
type VacationPeriodRequest struct {
	StartDate   string `json:"startDate"   binding:"required,frdate"`
	EndDate     string `json:"endDate"     binding:"required,frdate"`
	Title       string `json:"title"       binding:"required,notblank,max=200"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	Status      string `json:"status"      binding:"omitempty,oneof=WORK REMOTE SCHOOL TRAINER LEAVE"`
}

// ── Painted calendar exports ──

// CalendarExportQuery GET /export/calendar.ics and /teams/:id/export.ics.
// Status is a comma separated list, default LEAVE.
type CalendarExportQuery struct {
	Status   string `form:"status"`
	From     string `form:"from"     binding:"omitempty,datekey"`
	To       string `form:"to"       binding:"omitempty,datekey"`
	Category string `form:"category" binding:"omitempty,max=50"`
	Dated    bool   `form:"dated"`
}

// TeamStatsQuery GET /teams/:id/stats.xlsx
type TeamStatsQuery struct {
	Year int `form:"year" binding:"required,min=1970,max=2100"`
}
