package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService interface {
	GetUserInfo(ctx context.Context, id string) (*models.User, error)
	RemoveUser(ctx context.Context, userID string) error
}

type userService struct {
	u repository.UserRepository
}

func NewUserService(u repository.UserRepository) UserService {
	return &userService{
		u: u,
	}
}

func (s *userService) GetUserInfo(ctx context.Context, id string) (*models.User, error) {
	user, err := s.u.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting user %s: %w", id, err)
	}
	if user == nil {
		slog.Info("user not found", "user_id", id)
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return user, nil
}

func (s *userService) RemoveUser(ctx context.Context, userID string) error {
	if err := s.u.Remove(ctx, userID); err != nil {
		return fmt.Errorf("error removing user %s: %w", userID, err)
	}
	return nil
}
