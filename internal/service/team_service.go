package service

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"pgvplaning/backend/config"
	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/model"
	"pgvplaning/backend/internal/repository"
	pkgerrors "pgvplaning/backend/pkg/errors"
)

// ── Team errors ──

var (
	ErrTeamNotFound      = errors.New("équipe introuvable")
	ErrNotTeamMember     = errors.New("vous n'êtes pas membre de cette équipe")
	ErrNotTeamOwner      = errors.New("action réservée au propriétaire de l'équipe")
	ErrTeamConflict      = errors.New("l'équipe a été modifiée entre-temps, veuillez recharger")
	ErrOwnerCannotLeave  = errors.New("le propriétaire doit transférer la propriété avant de quitter une équipe qui a encore des membres")
	ErrCannotRemoveOwner = errors.New("le propriétaire ne peut pas être retiré")
	ErrMemberNotFound    = errors.New("membre introuvable")
	ErrAlreadyMember     = errors.New("vous êtes déjà membre de cette équipe")
	ErrTeamFull          = errors.New("l'équipe a atteint son nombre maximal de membres")
	ErrInviteNotFound    = errors.New("code d'invitation introuvable")
	ErrInviteExpired     = errors.New("code d'invitation expiré")
	ErrInviteExhausted   = errors.New("code d'invitation déjà utilisé")
)

const inviteGenerateAttempts = 3

// TeamService teams, membership and invite codes.
type TeamService interface {
	Create(ctx context.Context, req *dto.CreateTeamRequest, callerID string) (*dto.TeamResponse, error)
	ListMine(ctx context.Context, callerID string) ([]dto.TeamResponse, error)
	Get(ctx context.Context, teamID, callerID string) (*dto.TeamResponse, error)
	Rename(ctx context.Context, teamID string, req *dto.RenameTeamRequest, callerID string) (*dto.TeamResponse, error)
	Members(ctx context.Context, teamID, callerID string) ([]dto.TeamMemberResponse, error)
	RemoveMember(ctx context.Context, teamID, userID, callerID string) error
	Leave(ctx context.Context, teamID, callerID string) error
	TransferOwnership(ctx context.Context, teamID string, req *dto.TransferOwnershipRequest, callerID string) (*dto.TeamResponse, error)

	GenerateInvite(ctx context.Context, teamID string, req *dto.GenerateInviteRequest, callerID string) (*dto.InviteResponse, error)
	ListInvites(ctx context.Context, teamID, callerID string) ([]dto.InviteResponse, error)
	RevokeInvite(ctx context.Context, teamID, inviteID, callerID string) error
	ValidateInvite(ctx context.Context, code string) (*dto.InviteValidateResponse, error)
	Join(ctx context.Context, req *dto.JoinTeamRequest, callerID string) (*dto.TeamResponse, error)
	// PurgeExpiredInvites deletes invite codes expired for more than grace.
	PurgeExpiredInvites(ctx context.Context, grace time.Duration) (int64, error)

	// Membership returns the caller's membership or ErrNotTeamMember.
	Membership(ctx context.Context, teamID, userID string) (*model.TeamMember, error)
}

type teamService struct {
	repo    *repository.Repository
	cfg     *config.TeamConfig
	baseURL string
	logger  *zap.Logger
	now     func() time.Time
}

func NewTeamService(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) TeamService {
	return &teamService{
		repo:    repo,
		cfg:     &cfg.Team,
		baseURL: strings.TrimRight(cfg.Server.BaseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// ────────────────────── Teams ──────────────────────

func (s *teamService) Create(ctx context.Context, req *dto.CreateTeamRequest, callerID string) (*dto.TeamResponse, error) {
	team := &model.Team{
		TeamID:  uuid.NewString(),
		Name:    strings.TrimSpace(req.Name),
		OwnerID: callerID,
	}
	team.CreatedBy = &callerID
	team.Version = 1

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("ouverture de transaction échouée", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Team.Create(ctx, team); err != nil {
		rollback(tx)
		s.logger.Error("création d'équipe échouée", zap.String("owner", callerID), zap.Error(err))
		return nil, err
	}
	owner := &model.TeamMember{
		TeamID:   team.TeamID,
		UserID:   callerID,
		Role:     model.TeamRoleOwner,
		JoinedAt: s.now(),
	}
	if err := txRepo.TeamMember.Add(ctx, owner); err != nil {
		rollback(tx)
		s.logger.Error("ajout du propriétaire échoué", zap.String("team_id", team.TeamID), zap.Error(err))
		return nil, err
	}
	if err := commit(tx); err != nil {
		s.logger.Error("validation de transaction échouée", zap.Error(err))
		return nil, err
	}

	s.logger.Info("équipe créée", zap.String("team_id", team.TeamID), zap.String("owner", callerID))
	return toTeamResponse(team, model.TeamRoleOwner, 1), nil
}

func (s *teamService) ListMine(ctx context.Context, callerID string) ([]dto.TeamResponse, error) {
	teams, err := s.repo.Team.ListByUser(ctx, callerID)
	if err != nil {
		s.logger.Error("liste des équipes échouée", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}
	out := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		t := &teams[i]
		count, err := s.repo.TeamMember.Count(ctx, t.TeamID)
		if err != nil {
			return nil, err
		}
		role := model.TeamRoleMember
		if t.OwnerID == callerID {
			role = model.TeamRoleOwner
		}
		out = append(out, *toTeamResponse(t, role, count))
	}
	return out, nil
}

func (s *teamService) Get(ctx context.Context, teamID, callerID string) (*dto.TeamResponse, error) {
	member, err := s.Membership(ctx, teamID, callerID)
	if err != nil {
		return nil, err
	}
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.TeamMember.Count(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return toTeamResponse(team, member.Role, count), nil
}

func (s *teamService) Rename(ctx context.Context, teamID string, req *dto.RenameTeamRequest, callerID string) (*dto.TeamResponse, error) {
	team, err := s.requireOwner(ctx, teamID, callerID)
	if err != nil {
		return nil, err
	}
	if team.Version != req.Version {
		return nil, ErrTeamConflict
	}
	team.Name = strings.TrimSpace(req.Name)
	team.UpdatedBy = &callerID
	if err := s.repo.Team.Update(ctx, team); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrTeamConflict
		}
		s.logger.Error("renommage d'équipe échoué", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	count, err := s.repo.TeamMember.Count(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return toTeamResponse(team, model.TeamRoleOwner, count), nil
}

func (s *teamService) Members(ctx context.Context, teamID, callerID string) ([]dto.TeamMemberResponse, error) {
	if _, err := s.Membership(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	members, err := s.repo.TeamMember.ListByTeam(ctx, teamID)
	if err != nil {
		s.logger.Error("liste des membres échouée", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	out := make([]dto.TeamMemberResponse, 0, len(members))
	for i := range members {
		out = append(out, toTeamMemberResponse(&members[i]))
	}
	return out, nil
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, userID, callerID string) error {
	team, err := s.requireOwner(ctx, teamID, callerID)
	if err != nil {
		return err
	}
	if userID == team.OwnerID {
		return ErrCannotRemoveOwner
	}
	if _, err := s.repo.TeamMember.Get(ctx, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	if err := s.repo.TeamMember.Remove(ctx, teamID, userID); err != nil {
		s.logger.Error("retrait du membre échoué", zap.String("team_id", teamID), zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.logger.Info("membre retiré", zap.String("team_id", teamID), zap.String("user_id", userID), zap.String("by", callerID))
	return nil
}

// Leave removes the caller. An owner alone in the team deletes it.
func (s *teamService) Leave(ctx context.Context, teamID, callerID string) error {
	member, err := s.Membership(ctx, teamID, callerID)
	if err != nil {
		return err
	}
	if member.Role != model.TeamRoleOwner {
		if err := s.repo.TeamMember.Remove(ctx, teamID, callerID); err != nil {
			s.logger.Error("départ de l'équipe échoué", zap.String("team_id", teamID), zap.Error(err))
			return err
		}
		return nil
	}

	count, err := s.repo.TeamMember.Count(ctx, teamID)
	if err != nil {
		return err
	}
	if count > 1 {
		return ErrOwnerCannotLeave
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	txRepo := s.repo.WithTx(tx)
	if err := txRepo.TeamMember.Remove(ctx, teamID, callerID); err != nil {
		rollback(tx)
		return err
	}
	if err := txRepo.Team.Delete(ctx, teamID, callerID); err != nil {
		rollback(tx)
		s.logger.Error("suppression d'équipe échouée", zap.String("team_id", teamID), zap.Error(err))
		return err
	}
	if err := commit(tx); err != nil {
		return err
	}
	s.logger.Info("équipe supprimée par son dernier membre", zap.String("team_id", teamID))
	return nil
}

// TransferOwnership makes another member the owner; the caller stays as a
// plain member and may then leave.
func (s *teamService) TransferOwnership(ctx context.Context, teamID string, req *dto.TransferOwnershipRequest, callerID string) (*dto.TeamResponse, error) {
	team, err := s.requireOwner(ctx, teamID, callerID)
	if err != nil {
		return nil, err
	}
	if team.Version != req.Version {
		return nil, ErrTeamConflict
	}
	if req.UserID == callerID {
		return s.Get(ctx, teamID, callerID)
	}
	if _, err := s.repo.TeamMember.Get(ctx, teamID, req.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	team.OwnerID = req.UserID
	team.UpdatedBy = &callerID
	if err := txRepo.Team.Update(ctx, team); err != nil {
		rollback(tx)
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrTeamConflict
		}
		s.logger.Error("transfert de propriété échoué", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	if err := txRepo.TeamMember.UpdateRole(ctx, teamID, callerID, model.TeamRoleMember); err != nil {
		rollback(tx)
		return nil, err
	}
	if err := txRepo.TeamMember.UpdateRole(ctx, teamID, req.UserID, model.TeamRoleOwner); err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	s.logger.Info("propriété de l'équipe transférée",
		zap.String("team_id", teamID), zap.String("from", callerID), zap.String("to", req.UserID))
	count, err := s.repo.TeamMember.Count(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return toTeamResponse(team, model.TeamRoleMember, count), nil
}

// ────────────────────── Invites ──────────────────────

func (s *teamService) GenerateInvite(ctx context.Context, teamID string, req *dto.GenerateInviteRequest, callerID string) (*dto.InviteResponse, error) {
	if _, err := s.requireOwner(ctx, teamID, callerID); err != nil {
		return nil, err
	}

	ttl := s.cfg.InviteTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}
	invite := &model.InviteCode{
		TeamID:    teamID,
		ExpiresAt: s.now().Add(ttl),
		MaxUses:   req.MaxUses,
	}
	invite.CreatedBy = &callerID
	invite.Version = 1

	// a fresh uuid id per attempt; a code collision hits the unique index
	var lastErr error
	for attempt := 0; attempt < inviteGenerateAttempts; attempt++ {
		invite.InviteCodeID = uuid.NewString()
		invite.Code = newInviteCode(s.codeLength())
		if lastErr = s.repo.InviteCode.Create(ctx, invite); lastErr == nil {
			s.logger.Info("code d'invitation généré", zap.String("team_id", teamID), zap.Time("expires_at", invite.ExpiresAt))
			return s.toInviteResponse(invite), nil
		}
		if !errors.Is(lastErr, gorm.ErrDuplicatedKey) {
			break
		}
	}
	s.logger.Error("génération du code d'invitation échouée", zap.String("team_id", teamID), zap.Error(lastErr))
	return nil, lastErr
}

func (s *teamService) ListInvites(ctx context.Context, teamID, callerID string) ([]dto.InviteResponse, error) {
	if _, err := s.requireOwner(ctx, teamID, callerID); err != nil {
		return nil, err
	}
	codes, err := s.repo.InviteCode.ListActiveByTeam(ctx, teamID, s.now())
	if err != nil {
		return nil, err
	}
	out := make([]dto.InviteResponse, 0, len(codes))
	for i := range codes {
		out = append(out, *s.toInviteResponse(&codes[i]))
	}
	return out, nil
}

func (s *teamService) RevokeInvite(ctx context.Context, teamID, inviteID, callerID string) error {
	if _, err := s.requireOwner(ctx, teamID, callerID); err != nil {
		return err
	}
	codes, err := s.repo.InviteCode.ListActiveByTeam(ctx, teamID, s.now())
	if err != nil {
		return err
	}
	for _, c := range codes {
		if c.InviteCodeID == inviteID {
			return s.repo.InviteCode.Revoke(ctx, inviteID, callerID)
		}
	}
	return ErrInviteNotFound
}

func (s *teamService) ValidateInvite(ctx context.Context, code string) (*dto.InviteValidateResponse, error) {
	invite, err := s.repo.InviteCode.GetByCode(ctx, normalizeInviteCode(code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.InviteValidateResponse{Valid: false}, nil
		}
		return nil, err
	}
	if invite.Expired(s.now()) || invite.Exhausted() {
		return &dto.InviteValidateResponse{Valid: false}, nil
	}
	resp := &dto.InviteValidateResponse{
		Valid:     true,
		ExpiresAt: invite.ExpiresAt.Format(time.RFC3339),
	}
	if invite.Team != nil {
		resp.TeamName = invite.Team.Name
	}
	return resp, nil
}

// Join consumes one use of code under a row lock.
func (s *teamService) Join(ctx context.Context, req *dto.JoinTeamRequest, callerID string) (*dto.TeamResponse, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			rollback(tx)
			panic(r)
		}
	}()
	txRepo := s.repo.WithTx(tx)

	invite, err := txRepo.InviteCode.GetByCodeForUpdate(ctx, normalizeInviteCode(req.Code))
	if err != nil {
		rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInviteNotFound
		}
		return nil, err
	}
	if invite.Expired(s.now()) {
		rollback(tx)
		return nil, ErrInviteExpired
	}
	if invite.Exhausted() {
		rollback(tx)
		return nil, ErrInviteExhausted
	}

	if _, err := txRepo.TeamMember.Get(ctx, invite.TeamID, callerID); err == nil {
		rollback(tx)
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		rollback(tx)
		return nil, err
	}

	count, err := txRepo.TeamMember.Count(ctx, invite.TeamID)
	if err != nil {
		rollback(tx)
		return nil, err
	}
	if s.cfg.MaxMembers > 0 && count >= int64(s.cfg.MaxMembers) {
		rollback(tx)
		return nil, ErrTeamFull
	}

	member := &model.TeamMember{
		TeamID:   invite.TeamID,
		UserID:   callerID,
		Role:     model.TeamRoleMember,
		JoinedAt: s.now(),
	}
	if err := txRepo.TeamMember.Add(ctx, member); err != nil {
		rollback(tx)
		s.logger.Error("adhésion échouée", zap.String("team_id", invite.TeamID), zap.Error(err))
		return nil, err
	}
	if err := txRepo.InviteCode.MarkUsed(ctx, invite.InviteCodeID, callerID); err != nil {
		rollback(tx)
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	team, err := s.getTeam(ctx, invite.TeamID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("membre ajouté par invitation", zap.String("team_id", team.TeamID), zap.String("user_id", callerID))
	return toTeamResponse(team, model.TeamRoleMember, count+1), nil
}

func (s *teamService) PurgeExpiredInvites(ctx context.Context, grace time.Duration) (int64, error) {
	n, err := s.repo.InviteCode.DeleteExpired(ctx, s.now().Add(-grace))
	if err != nil {
		s.logger.Error("purge des invitations échouée", zap.Error(err))
		return 0, err
	}
	return n, nil
}

// ────────────────────── helpers ──────────────────────

func (s *teamService) Membership(ctx context.Context, teamID, userID string) (*model.TeamMember, error) {
	m, err := s.repo.TeamMember.Get(ctx, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTeamMember
		}
		s.logger.Error("lecture d'adhésion échouée", zap.String("team_id", teamID), zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (s *teamService) getTeam(ctx context.Context, teamID string) (*model.Team, error) {
	team, err := s.repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *teamService) requireOwner(ctx context.Context, teamID, callerID string) (*model.Team, error) {
	team, err := s.getTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team.OwnerID != callerID {
		if _, err := s.Membership(ctx, teamID, callerID); err != nil {
			return nil, err
		}
		return nil, ErrNotTeamOwner
	}
	return team, nil
}

func (s *teamService) codeLength() int {
	if s.cfg.InviteCodeLength < 6 {
		return 8
	}
	return s.cfg.InviteCodeLength
}

func (s *teamService) toInviteResponse(c *model.InviteCode) *dto.InviteResponse {
	return &dto.InviteResponse{
		ID:         c.InviteCodeID,
		InviteCode: c.Code,
		InviteURL:  fmt.Sprintf("%s/join/%s", s.baseURL, c.Code),
		ExpiresAt:  c.ExpiresAt.Format(time.RFC3339),
		MaxUses:    c.MaxUses,
		UseCount:   c.UseCount,
	}
}

var inviteEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newInviteCode takes n base32 characters (max 26) of a random uuid.
func newInviteCode(n int) string {
	id := uuid.New()
	code := inviteEncoding.EncodeToString(id[:])
	if n > len(code) {
		n = len(code)
	}
	return code[:n]
}

func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func toTeamResponse(t *model.Team, role string, count int64) *dto.TeamResponse {
	return &dto.TeamResponse{
		ID:          t.TeamID,
		Name:        t.Name,
		OwnerID:     t.OwnerID,
		Role:        role,
		MemberCount: count,
		Version:     t.Version,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toTeamMemberResponse(m *model.TeamMember) dto.TeamMemberResponse {
	resp := dto.TeamMemberResponse{
		UserID:   m.UserID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt.Format(time.RFC3339),
	}
	if m.User != nil {
		resp.Name = m.User.Name
		resp.Email = m.User.Email
	}
	return resp
}

// rollback and commit tolerate the nil tx of mock repositories.
func rollback(tx *gorm.DB) {
	if tx != nil {
		tx.Rollback()
	}
}

func commit(tx *gorm.DB) error {
	if tx == nil {
		return nil
	}
	return tx.Commit().Error
}
