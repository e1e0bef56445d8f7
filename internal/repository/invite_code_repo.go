package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pgvplaning/backend/internal/model"
)

// InviteCodeRepository team invite code data access.
type InviteCodeRepository interface {
	Create(ctx context.Context, code *model.InviteCode) error
	// GetByCode preloads Team; soft deleted codes are not returned.
	GetByCode(ctx context.Context, code string) (*model.InviteCode, error)
	// GetByCodeForUpdate takes a row lock (SELECT ... FOR UPDATE) so two
	// joins cannot both consume the last use. Call it on a WithTx aggregate.
	GetByCodeForUpdate(ctx context.Context, code string) (*model.InviteCode, error)
	// MarkUsed increments use_count and records the last user.
	MarkUsed(ctx context.Context, inviteCodeID, userID string) error
	ListActiveByTeam(ctx context.Context, teamID string, now time.Time) ([]model.InviteCode, error)
	Revoke(ctx context.Context, inviteCodeID, callerID string) error
	// DeleteExpired hard deletes codes expired before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type inviteCodeRepo struct {
	db *gorm.DB
}

func NewInviteCodeRepo(db *gorm.DB) InviteCodeRepository {
	return &inviteCodeRepo{db: db}
}

func (r *inviteCodeRepo) Create(ctx context.Context, code *model.InviteCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *inviteCodeRepo) GetByCode(ctx context.Context, code string) (*model.InviteCode, error) {
	var invite model.InviteCode
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("code = ?", code).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteCodeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*model.InviteCode, error) {
	var invite model.InviteCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&invite).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *inviteCodeRepo) MarkUsed(ctx context.Context, inviteCodeID, userID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.InviteCode{}).
		Where("invite_code_id = ?", inviteCodeID).
		Updates(map[string]interface{}{
			"use_count":  gorm.Expr("use_count + 1"),
			"used_at":    now,
			"used_by":    userID,
			"updated_at": now,
			"version":    gorm.Expr("version + 1"),
		}).Error
}

func (r *inviteCodeRepo) ListActiveByTeam(ctx context.Context, teamID string, now time.Time) ([]model.InviteCode, error) {
	var codes []model.InviteCode
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND expires_at > ?", teamID, now).
		Where("max_uses = 0 OR use_count < max_uses").
		Order("created_at DESC").
		Find(&codes).Error
	return codes, err
}

func (r *inviteCodeRepo) Revoke(ctx context.Context, inviteCodeID, callerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.InviteCode{}).
			Where("invite_code_id = ?", inviteCodeID).
			Update("deleted_by", callerID).Error; err != nil {
			return err
		}
		return tx.Where("invite_code_id = ?", inviteCodeID).Delete(&model.InviteCode{}).Error
	})
}

func (r *inviteCodeRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("expires_at < ?", cutoff).
		Delete(&model.InviteCode{})
	return result.RowsAffected, result.Error
}
