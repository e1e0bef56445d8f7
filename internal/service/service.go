package service

import (
	"go.uber.org/zap"

	"pgvplaning/backend/config"
	"pgvplaning/backend/internal/repository"
)

// Service aggregates every service.
type Service struct {
	User     UserService
	Calendar CalendarService
	Team     TeamService
	Export   ExportService
}

// NewService wires the services. cache may be nil.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache CalendarCache,
	logger *zap.Logger,
) (*Service, error) {
	settings, err := NewICSSettings(&cfg.Calendar)
	if err != nil {
		return nil, err
	}
	generator := NewICSGenerator(settings, logger.Named("ics"), nil)

	calendars := NewCalendarService(repo, cache, &cfg.Calendar, logger)
	teams := NewTeamService(repo, cfg, logger)

	return &Service{
		User:     NewUserService(repo, logger),
		Calendar: calendars,
		Team:     teams,
		Export:   NewExportService(repo, calendars, teams, generator, logger),
	}, nil
}
