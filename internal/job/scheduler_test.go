package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"pgvplaning/backend/config"
)

type fakePurger struct {
	calls int
	grace time.Duration
	n     int64
	err   error
}

func (f *fakePurger) PurgeExpiredInvites(_ context.Context, grace time.Duration) (int64, error) {
	f.calls++
	f.grace = grace
	return f.n, f.err
}

func TestRunInvitePurge_LogsCount(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	purger := &fakePurger{n: 4}

	RunInvitePurge(context.Background(), purger, 24*time.Hour, zap.New(core))

	if purger.calls != 1 || purger.grace != 24*time.Hour {
		t.Fatalf("un appel avec une grâce de 24h attendu: %+v", purger)
	}
	entries := logs.FilterMessage("purge des invitations terminée").All()
	if len(entries) != 1 {
		t.Fatalf("une ligne de log attendue, obtenu %d", len(entries))
	}
	if got := entries[0].ContextMap()["deleted"]; got != int64(4) {
		t.Errorf("deleted=4 attendu, obtenu %v", got)
	}
}

func TestRunInvitePurge_LogsError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	RunInvitePurge(context.Background(), &fakePurger{err: errors.New("connexion perdue")}, time.Hour, zap.New(core))

	if n := logs.FilterMessage("purge des invitations échouée").Len(); n != 1 {
		t.Errorf("une erreur journalisée attendue, obtenu %d", n)
	}
}

func TestNewScheduler(t *testing.T) {
	s, err := NewScheduler(&config.JobsConfig{InvitePurgeCron: "0 3 * * *", InvitePurgeGrace: time.Hour}, &fakePurger{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Jobs() != 1 {
		t.Errorf("1 tâche attendue, obtenu %d", s.Jobs())
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestNewScheduler_Disabled(t *testing.T) {
	s, err := NewScheduler(&config.JobsConfig{}, &fakePurger{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Jobs() != 0 {
		t.Errorf("aucune tâche attendue, obtenu %d", s.Jobs())
	}
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	if _, err := NewScheduler(&config.JobsConfig{InvitePurgeCron: "tous les jours"}, &fakePurger{}, zap.NewNop()); err == nil {
		t.Error("expression cron invalide: erreur attendue")
	}
}
