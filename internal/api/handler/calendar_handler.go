package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pgvplaning/backend/internal/calendar"
	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/service"
	"pgvplaning/backend/pkg/response"
)

// CalendarHandler serves the caller's own calendar.
type CalendarHandler struct {
	calendarSvc service.CalendarService
}

func NewCalendarHandler(calendarSvc service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendarSvc: calendarSvc}
}

// GetCalendar GET /api/v1/calendar
func (h *CalendarHandler) GetCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cal, err := h.calendarSvc.Get(c.Request.Context(), userID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, cal)
}

// SetDay PUT /api/v1/calendar/day
func (h *CalendarHandler) SetDay(c *gin.Context) {
	var req dto.SetDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	res, err := h.calendarSvc.SetDay(c.Request.Context(), userID, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, res)
}

// PaintRange POST /api/v1/calendar/range
func (h *CalendarHandler) PaintRange(c *gin.Context) {
	var req dto.PaintRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	res, err := h.calendarSvc.PaintRange(c.Request.Context(), userID, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, res)
}

// ApplyPattern POST /api/v1/calendar/pattern
func (h *CalendarHandler) ApplyPattern(c *gin.Context) {
	var req dto.WeeklyPatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	res, err := h.calendarSvc.ApplyPattern(c.Request.Context(), userID, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, res)
}

// ImportCalendar PUT /api/v1/calendar
func (h *CalendarHandler) ImportCalendar(c *gin.Context) {
	var req dto.ImportCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	res, err := h.calendarSvc.Import(c.Request.Context(), userID, &req)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, res)
}

// ResetCalendar DELETE /api/v1/calendar
func (h *CalendarHandler) ResetCalendar(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	res, err := h.calendarSvc.Reset(c.Request.Context(), userID)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, res)
}

// GetMonth GET /api/v1/calendar/month?year=2026&month=5
func (h *CalendarHandler) GetMonth(c *gin.Context) {
	var q dto.MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	days, err := h.calendarSvc.Month(c.Request.Context(), userID, &q)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, gin.H{"list": days})
}

// GetStats GET /api/v1/calendar/stats?year=2026
func (h *CalendarHandler) GetStats(c *gin.Context) {
	var q dto.YearQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	stats, err := h.calendarSvc.Stats(c.Request.Context(), userID, q.Year)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, stats)
}

// GetPeriods GET /api/v1/calendar/periods?status=LEAVE,REMOTE
func (h *CalendarHandler) GetPeriods(c *gin.Context) {
	var q dto.PeriodsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	periods, err := h.calendarSvc.Periods(c.Request.Context(), userID, &q)
	if err != nil {
		handleCalendarError(c, err)
		return
	}

	response.OK(c, gin.H{"list": periods})
}

func handleCalendarError(c *gin.Context, err error) {
	if !mapCalendarError(c, err) {
		response.InternalError(c)
	}
}

// mapCalendarError writes the response of a calendar sentinel and reports
// whether err was one.
func mapCalendarError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, calendar.ErrInvalidStatus):
		response.BadRequest(c, 30001, "statut inconnu")
	case errors.Is(err, calendar.ErrDerivedStatus):
		response.BadRequest(c, 30002, "les jours fériés et le repos ne peuvent pas être saisis")
	case errors.Is(err, calendar.ErrInvalidHalfDay):
		response.BadRequest(c, 30003, "demi-journée invalide")
	case errors.Is(err, calendar.ErrInvalidDateKey):
		response.BadRequest(c, 30004, "date invalide")
	case errors.Is(err, service.ErrPeriodRange):
		response.BadRequest(c, 30005, "la date de fin précède la date de début")
	case errors.Is(err, calendar.ErrEmptyPattern):
		response.BadRequest(c, 30006, "le motif ne contient aucun jour ouvré")
	case errors.Is(err, service.ErrCalendarImport):
		response.ErrorWithDetails(c, http.StatusBadRequest, 30007, "document de calendrier invalide", err.Error())
	case errors.Is(err, service.ErrCalendarConflict):
		response.Conflict(c, 30008, "le calendrier a été modifié ailleurs, veuillez recharger")
	case errors.Is(err, service.ErrCalendarCorrupt):
		response.Error(c, http.StatusInternalServerError, 30009, "calendrier enregistré illisible")
	default:
		return false
	}
	return true
}
