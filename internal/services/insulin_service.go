package services

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
)

type InsulinService struct {
	store *repository.Store
}

func NewInsulinService(store *repository.Store) *InsulinService {
	return &InsulinService{store: store}
}

// ReplaceManual makes amount the only manual food total of the day. Earlier
// manual food rows of that day are removed in the same transaction, so
// repeating the call with the same amount leaves one row.
func (s *InsulinService) ReplaceManual(ctx context.Context, userID uint, day string, amount float64) error {
	if amount <= 0 {
		return apperrors.NewOutOfRange(amount, 0, 0).WithContext("field", "daily_insulin")
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Insulin.DeleteManual(ctx, userID, day, domain.CategoryFood); err != nil {
			return fmt.Errorf("failed to delete manual records: %w", err)
		}
		return tx.Insulin.Create(ctx, &database.InsulinRecord{
			UserID:   userID,
			Day:      day,
			Category: domain.CategoryFood,
			Origin:   domain.OriginManual,
			Amount:   amount,
		})
	})
	if err != nil {
		return apperrors.NewDatabaseError(err).
			WithContext("user_id", userID).
			WithContext("day", day)
	}
	return nil
}
