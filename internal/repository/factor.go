package repository

import (
	"context"
	"errors"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FactorRepository struct {
	db *gorm.DB
}

func NewFactorRepository(db *gorm.DB) *FactorRepository {
	return &FactorRepository{db: db}
}

// Upsert stores f, replacing the value already stored for its user and day.
func (r *FactorRepository) Upsert(ctx context.Context, f *database.SensitivityFactor) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "day1_total", "day2_total", "day3_total", "updated_at"}),
	}).Create(f).Error
}

// Latest returns the most recent factor of the user, or nil when none exists.
func (r *FactorRepository) Latest(ctx context.Context, userID uint) (*database.SensitivityFactor, error) {
	var f database.SensitivityFactor
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC").
		Order("updated_at DESC").
		Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Range returns factors stored for days in [start, end], oldest first.
func (r *FactorRepository) Range(ctx context.Context, userID uint, start, end string) ([]database.SensitivityFactor, error) {
	var factors []database.SensitivityFactor
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND day BETWEEN ? AND ?", userID, start, end).
		Order("day").
		Find(&factors).Error
	return factors, err
}
