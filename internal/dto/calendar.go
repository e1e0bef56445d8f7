package dto

import "encoding/json"

// ── Calendar ──

// CalendarResponse is the raw persisted status map
// ({"YYYY-MM-DD": "LEAVE" | {"am": .., "pm": ..}}).
type CalendarResponse struct {
	Entries json.RawMessage `json:"entries"`
	Version int             `json:"version"`
}

// SetDayRequest paints one day. An empty status erases.
type SetDayRequest struct {
	Date    string `json:"date"     binding:"required,datekey"`
	Status  string `json:"status"   binding:"omitempty,oneof=WORK REMOTE SCHOOL TRAINER LEAVE"`
	HalfDay string `json:"half_day" binding:"omitempty,oneof=FULL AM PM"`
}

// PaintRangeRequest paints every weekday of [from, to].
type PaintRangeRequest struct {
	From    string `json:"from"     binding:"required,datekey"`
	To      string `json:"to"       binding:"required,datekey"`
	Status  string `json:"status"   binding:"omitempty,oneof=WORK REMOTE SCHOOL TRAINER LEAVE"`
	HalfDay string `json:"half_day" binding:"omitempty,oneof=FULL AM PM"`
}

// WeeklyPatternRequest paints a recurring weekday pattern. Weekdays use
// 1 = Monday … 5 = Friday.
type WeeklyPatternRequest struct {
	Status   string `json:"status"   binding:"required,oneof=WORK REMOTE SCHOOL TRAINER LEAVE"`
	HalfDay  string `json:"half_day" binding:"omitempty,oneof=FULL AM PM"`
	Weekdays []int  `json:"weekdays" binding:"required,min=1,max=5,dive,min=1,max=5"`
	From     string `json:"from"     binding:"required,datekey"`
	Until    string `json:"until"    binding:"required,datekey"`
	Interval int    `json:"interval" binding:"omitempty,min=1,max=4"`
}

// ImportCalendarRequest replaces the whole status map, e.g. with a
// document exported from the browser storage of the legacy app.
type ImportCalendarRequest struct {
	Entries json.RawMessage `json:"entries" binding:"required"`
}

// MonthQuery GET /calendar/month
type MonthQuery struct {
	Year  int `form:"year"  binding:"required,min=1970,max=2100"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// YearQuery GET /calendar/stats
type YearQuery struct {
	Year int `form:"year" binding:"required,min=1970,max=2100"`
}

// PeriodsQuery filters period aggregation. Status is a comma separated
// list; empty means every status. From/To default to the painted bounds.
type PeriodsQuery struct {
	Status string `form:"status"`
	From   string `form:"from"   binding:"omitempty,datekey"`
	To     string `form:"to"     binding:"omitempty,datekey"`
}

// PeriodResponse is one aggregated period.
type PeriodResponse struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Status  string `json:"status"`
	Label   string `json:"label"`
	HalfDay string `json:"half_day"`
	Days    int    `json:"days"`
}
