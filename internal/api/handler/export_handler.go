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

const (
	contentTypeICS  = "text/calendar; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler serves calendar downloads.
type ExportHandler struct {
	exportSvc service.ExportService
}

func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportVacationICS POST /api/v1/export/ics (public)
//
// Errors use the flat {"error": "..."} body.
func (h *ExportHandler) ExportVacationICS(c *gin.Context) {
	var req dto.ExportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Flat(c, http.StatusBadRequest, "requête invalide : nom (2 à 50 caractères) et au moins une période titrée aux dates JJ/MM/AAAA requis")
		return
	}

	data, filename, err := h.exportSvc.ExportVacationICS(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrICSInvalidDate),
			errors.Is(err, service.ErrICSInvalidRange),
			errors.Is(err, service.ErrICSInvalidZone),
			errors.Is(err, service.ErrICSEmployeeEmpty),
			errors.Is(err, service.ErrICSTitleEmpty),
			errors.Is(err, service.ErrNothingToExport),
			errors.Is(err, calendar.ErrInvalidStatus):
			response.Flat(c, http.StatusBadRequest, err.Error())
		default:
			response.Flat(c, http.StatusInternalServerError, "erreur lors de la génération du fichier ICS")
		}
		return
	}

	response.Attachment(c, filename, contentTypeICS, data)
}

// ExportCalendarICS GET /api/v1/export/calendar.ics?status=LEAVE&dated=true
func (h *ExportHandler) ExportCalendarICS(c *gin.Context) {
	var q dto.CalendarExportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, 10001, "paramètres invalides")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.ExportPersonalICS(c.Request.Context(), userID, &q)
	if err != nil {
		handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, data)
}

func handleExportError(c *gin.Context, err error) {
	switch {
	case mapCalendarError(c, err), mapTeamError(c, err):
	case errors.Is(err, service.ErrNothingToExport):
		response.NotFound(c, 60001, "aucune période à exporter")
	case errors.Is(err, service.ErrExportNoMembers):
		response.NotFound(c, 60002, "l'équipe n'a aucun membre")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "utilisateur introuvable")
	case errors.Is(err, service.ErrICSInvalidRange):
		response.BadRequest(c, 60003, "la date de fin précède la date de début")
	default:
		response.InternalError(c)
	}
}
