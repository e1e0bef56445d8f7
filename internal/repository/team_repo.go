package repository

import (
	"context"

	"gorm.io/gorm"

	"pgvplaning/backend/internal/model"
	pkgerrors "pgvplaning/backend/pkg/errors"
)

// TeamRepository team data access.
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	// ListByUser returns the teams userID belongs to.
	ListByUser(ctx context.Context, userID string) ([]model.Team, error)
	// Update renames the team under optimistic locking.
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id, callerID string) error
}

type teamRepo struct {
	db *gorm.DB
}

func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Where("team_id = ?", id).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) ListByUser(ctx context.Context, userID string) ([]model.Team, error) {
	var teams []model.Team
	err := r.db.WithContext(ctx).
		Joins("JOIN team_members tm ON tm.team_id = teams.team_id").
		Where("tm.user_id = ?", userID).
		Order("teams.name ASC").
		Find(&teams).Error
	return teams, err
}

func (r *teamRepo) Update(ctx context.Context, team *model.Team) error {
	oldVersion := team.Version
	result := r.db.WithContext(ctx).
		Model(team).
		Where("team_id = ? AND version = ?", team.TeamID, oldVersion).
		Updates(map[string]interface{}{
			"name":       team.Name,
			"owner_id":   team.OwnerID,
			"updated_by": team.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	team.Version = oldVersion + 1
	return nil
}

// Delete soft deletes the team.
func (r *teamRepo) Delete(ctx context.Context, id, callerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Team{}).
			Where("team_id = ?", id).
			Update("deleted_by", callerID).Error; err != nil {
			return err
		}
		return tx.Where("team_id = ?", id).Delete(&model.Team{}).Error
	})
}

// ── TeamMember ──

// TeamMemberRepository membership data access.
type TeamMemberRepository interface {
	Add(ctx context.Context, member *model.TeamMember) error
	Get(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
	// ListByTeam preloads User, ordered by name.
	ListByTeam(ctx context.Context, teamID string) ([]model.TeamMember, error)
	Count(ctx context.Context, teamID string) (int64, error)
	Remove(ctx context.Context, teamID, userID string) error
	UpdateRole(ctx context.Context, teamID, userID, role string) error
}

type teamMemberRepo struct {
	db *gorm.DB
}

func NewTeamMemberRepo(db *gorm.DB) TeamMemberRepository {
	return &teamMemberRepo{db: db}
}

func (r *teamMemberRepo) Add(ctx context.Context, member *model.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *teamMemberRepo) Get(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	var m model.TeamMember
	err := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *teamMemberRepo) ListByTeam(ctx context.Context, teamID string) ([]model.TeamMember, error) {
	var members []model.TeamMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("LEFT JOIN users u ON u.user_id = team_members.user_id").
		Where("team_members.team_id = ?", teamID).
		Order("u.name ASC").
		Find(&members).Error
	return members, err
}

func (r *teamMemberRepo) Count(ctx context.Context, teamID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.TeamMember{}).
		Where("team_id = ?", teamID).
		Count(&n).Error
	return n, err
}

func (r *teamMemberRepo) Remove(ctx context.Context, teamID, userID string) error {
	return r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&model.TeamMember{}).Error
}

func (r *teamMemberRepo) UpdateRole(ctx context.Context, teamID, userID, role string) error {
	return r.db.WithContext(ctx).
		Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role).Error
}
