package services

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
)

type UserService struct {
	users *repository.UserRepository
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{users: store.Users}
}

// RegisterUser returns the user for telegramID, creating it on first contact.
func (s *UserService) RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	user, err := s.users.GetOrCreateUser(ctx, telegramID, username, firstName, lastName)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to register user: %w", err)).
			WithContext("telegram_id", telegramID)
	}
	return user, nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error) {
	user, err := s.users.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to get user: %w", err))
	}
	return user, nil
}
