package repository

import (
	"context"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"gorm.io/gorm"
)

type MealRepository struct {
	db *gorm.DB
}

func NewMealRepository(db *gorm.DB) *MealRepository {
	return &MealRepository{db: db}
}

// Create inserts the meal together with its Injections.
func (r *MealRepository) Create(ctx context.Context, meal *database.MealRecord) error {
	return r.db.WithContext(ctx).Create(meal).Error
}

// SumInsulin adds food and corrected supplemental insulin over the day's meals.
func (r *MealRepository) SumInsulin(ctx context.Context, userID uint, day string) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&database.MealRecord{}).
		Where("user_id = ? AND day = ?", userID, day).
		Select("COALESCE(SUM(food_insulin + supplemental_insulin), 0)").
		Scan(&total).Error
	return total, err
}

// Range returns meals recorded for days in [start, end] in creation order.
func (r *MealRepository) Range(ctx context.Context, userID uint, start, end string) ([]database.MealRecord, error) {
	var meals []database.MealRecord
	err := r.db.WithContext(ctx).
		Preload("Injections").
		Where("user_id = ? AND day BETWEEN ? AND ?", userID, start, end).
		Order("id").
		Find(&meals).Error
	return meals, err
}
