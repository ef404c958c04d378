package repository

import (
	"context"
	"errors"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreateUser returns the user with telegramID, creating it on first
// contact. Display metadata is refreshed when it changed.
func (r *UserRepository) GetOrCreateUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error) {
	var user database.User
	err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = database.User{
			TelegramID: telegramID,
			Username:   username,
			FirstName:  firstName,
			LastName:   lastName,
		}
		// a concurrent first contact may have created the row meanwhile
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "telegram_id"}}, DoNothing: true}).
			Create(&user)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &user, nil
		}
		user = database.User{}
		err = r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	}
	if err != nil {
		return nil, err
	}

	if user.Username != username || user.FirstName != firstName || user.LastName != lastName {
		if err := r.db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
			"username":   username,
			"first_name": firstName,
			"last_name":  lastName,
		}).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// GetUserByTelegramID gets a user by their Telegram ID
func (r *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error) {
	var user database.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
