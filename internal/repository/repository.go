package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every repository.
type Repository struct {
	db *gorm.DB

	User             UserRepository
	Team             TeamRepository
	TeamMember       TeamMemberRepository
	InviteCode       InviteCodeRepository
	CalendarSnapshot CalendarSnapshotRepository
}

// NewRepository builds the aggregate on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		User:             NewUserRepo(db),
		Team:             NewTeamRepo(db),
		TeamMember:       NewTeamMemberRepo(db),
		InviteCode:       NewInviteCodeRepo(db),
		CalendarSnapshot: NewCalendarSnapshotRepo(db),
	}
}

// BeginTx opens a transaction. With no database (unit tests on mock
// repositories) it returns a nil tx and WithTx is then a no-op.
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx returns an aggregate bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
