package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pgvplaning/backend/internal/dto"
	"pgvplaning/backend/internal/model"
	"pgvplaning/backend/internal/repository"
)

// ── User errors ──

var (
	ErrUserNotFound = errors.New("utilisateur introuvable")
	ErrUserIdentity = errors.New("identité incomplète dans le jeton")
)

// UserService mirrors identity provider accounts locally so teams and
// calendars can reference them.
type UserService interface {
	// Sync upserts the caller's row. Unchanged identities are skipped.
	Sync(ctx context.Context, userID, name, email string) error
	GetByID(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
	// userID → "name\x00email" of the last successful upsert
	synced sync.Map
}

func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

func (s *userService) Sync(ctx context.Context, userID, name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if userID == "" || email == "" {
		return ErrUserIdentity
	}
	if name == "" {
		name = email
	}

	fingerprint := name + "\x00" + email
	if prev, ok := s.synced.Load(userID); ok && prev.(string) == fingerprint {
		return nil
	}

	user := &model.User{UserID: userID, Name: name, Email: email}
	if err := s.repo.User.Upsert(ctx, user); err != nil {
		s.logger.Error("synchronisation utilisateur échouée", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.synced.Store(userID, fingerprint)
	return nil
}

func (s *userService) GetByID(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("lecture utilisateur échouée", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toUserResponse(user), nil
}

func toUserResponse(u *model.User) *dto.UserResponse {
	return &dto.UserResponse{ID: u.UserID, Name: u.Name, Email: u.Email}
}
