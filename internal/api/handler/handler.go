package handler

import "pgvplaning/backend/internal/service"

// Handler aggregates every HTTP handler.
type Handler struct {
	User     *UserHandler
	Calendar *CalendarHandler
	Team     *TeamHandler
	Export   *ExportHandler
}

// NewHandler builds the handlers from the service aggregate.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		User:     NewUserHandler(svc.User),
		Calendar: NewCalendarHandler(svc.Calendar),
		Team:     NewTeamHandler(svc.Team, svc.Export),
		Export:   NewExportHandler(svc.Export),
	}
}
