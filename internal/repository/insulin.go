package repository

import (
	"context"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	"gorm.io/gorm"
)

type InsulinRepository struct {
	db *gorm.DB
}

func NewInsulinRepository(db *gorm.DB) *InsulinRepository {
	return &InsulinRepository{db: db}
}

func (r *InsulinRepository) Create(ctx context.Context, rec *database.InsulinRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// Sum adds up all amounts of the given origin recorded for the day.
func (r *InsulinRepository) Sum(ctx context.Context, userID uint, day string, origin domain.InsulinOrigin) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&database.InsulinRecord{}).
		Where("user_id = ? AND day = ? AND origin = ?", userID, day, origin).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// DeleteManual removes manual records of a category for the day for good.
func (r *InsulinRepository) DeleteManual(ctx context.Context, userID uint, day string, category domain.InsulinCategory) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("user_id = ? AND day = ? AND category = ? AND origin = ?", userID, day, category, domain.OriginManual).
		Delete(&database.InsulinRecord{}).Error
}

// List returns records of the day in creation order.
func (r *InsulinRepository) List(ctx context.Context, userID uint, day string) ([]database.InsulinRecord, error) {
	var records []database.InsulinRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", userID, day).
		Order("id").
		Find(&records).Error
	return records, err
}
