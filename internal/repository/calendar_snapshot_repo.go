package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pgvplaning/backend/internal/model"
	pkgerrors "pgvplaning/backend/pkg/errors"
)

// CalendarSnapshotRepository stores one status map per user.
type CalendarSnapshotRepository interface {
	Get(ctx context.Context, userID string) (*model.CalendarSnapshot, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]model.CalendarSnapshot, error)
	// Save writes snap if its Version still matches the stored row
	// (Version 0 = first write) and bumps Version. A concurrent writer
	// yields pkgerrors.ErrOptimisticLock.
	Save(ctx context.Context, snap *model.CalendarSnapshot) error
}

type calendarSnapshotRepo struct {
	db *gorm.DB
}

func NewCalendarSnapshotRepo(db *gorm.DB) CalendarSnapshotRepository {
	return &calendarSnapshotRepo{db: db}
}

func (r *calendarSnapshotRepo) Get(ctx context.Context, userID string) (*model.CalendarSnapshot, error) {
	var snap model.CalendarSnapshot
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&snap).Error
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *calendarSnapshotRepo) ListByUsers(ctx context.Context, userIDs []string) ([]model.CalendarSnapshot, error) {
	var snaps []model.CalendarSnapshot
	if len(userIDs) == 0 {
		return snaps, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&snaps).Error
	return snaps, err
}

func (r *calendarSnapshotRepo) Save(ctx context.Context, snap *model.CalendarSnapshot) error {
	if snap.Version == 0 {
		snap.Version = 1
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(snap)
		if result.Error != nil {
			snap.Version = 0
			return result.Error
		}
		if result.RowsAffected == 0 {
			snap.Version = 0
			return pkgerrors.ErrOptimisticLock
		}
		return nil
	}

	oldVersion := snap.Version
	result := r.db.WithContext(ctx).
		Model(&model.CalendarSnapshot{}).
		Where("user_id = ? AND version = ?", snap.UserID, oldVersion).
		Updates(map[string]interface{}{
			"data":       snap.Data,
			"version":    oldVersion + 1,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	snap.Version = oldVersion + 1
	return nil
}
