package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pgvplaning/backend/config"
)

// purgeTimeout bounds one purge run.
const purgeTimeout = 2 * time.Minute

// InvitePurger deletes invite codes expired for longer than grace.
type InvitePurger interface {
	PurgeExpiredInvites(ctx context.Context, grace time.Duration) (int64, error)
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler registers every job whose cron spec is set.
func NewScheduler(cfg *config.JobsConfig, invites InvitePurger, logger *zap.Logger) (*Scheduler, error) {
	clog := cronLogger{logger.Sugar()}
	c := cron.New(cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	if cfg.InvitePurgeCron != "" {
		_, err := c.AddFunc(cfg.InvitePurgeCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
			defer cancel()
			RunInvitePurge(ctx, invites, cfg.InvitePurgeGrace, logger)
		})
		if err != nil {
			return nil, fmt.Errorf("planification de la purge des invitations %q: %w", cfg.InvitePurgeCron, err)
		}
		logger.Info("purge des invitations planifiée",
			zap.String("schedule", cfg.InvitePurgeCron), zap.Duration("grace", cfg.InvitePurgeGrace))
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("arrêt des tâches planifiées interrompu", zap.Error(ctx.Err()))
	}
}

// Jobs is the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// RunInvitePurge performs one purge and logs the outcome.
func RunInvitePurge(ctx context.Context, invites InvitePurger, grace time.Duration, logger *zap.Logger) {
	start := time.Now()
	n, err := invites.PurgeExpiredInvites(ctx, grace)
	if err != nil {
		logger.Error("purge des invitations échouée", zap.Error(err))
		return
	}
	logger.Info("purge des invitations terminée",
		zap.Int64("deleted", n), zap.Duration("latency", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
