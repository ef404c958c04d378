package interfaces

import (
	"context"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	"github.com/vladimiradmaev/diabetbot/internal/services"
)

// UserServiceInterface defines the contract for user operations
type UserServiceInterface interface {
	RegisterUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*database.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*database.User, error)
}

// InsulinServiceInterface defines the contract for manual insulin entry
type InsulinServiceInterface interface {
	ReplaceManual(ctx context.Context, userID uint, day string, amount float64) error
}

// ResolverInterface defines the contract for daily insulin lookups
type ResolverInterface interface {
	ResolveDailyInsulin(ctx context.Context, userID uint, day string) (float64, error)
}

// FactorServiceInterface defines the contract for sensitivity factor operations
type FactorServiceInterface interface {
	Recalculate(ctx context.Context, userID uint, anchor string) (*services.FactorSnapshot, error)
	Snapshot(ctx context.Context, userID uint, anchor string) (*services.FactorSnapshot, error)
	Save(ctx context.Context, userID uint, days [3]string, totals [3]float64) (*database.SensitivityFactor, error)
}

// MealServiceInterface defines the contract for meal coefficient operations
type MealServiceInterface interface {
	Commit(ctx context.Context, draft services.MealDraft) (*database.MealRecord, error)
}

// StatisticsServiceInterface defines the contract for reports
type StatisticsServiceInterface interface {
	Summary(ctx context.Context, userID uint, period domain.StatsPeriod, today string) (*services.Report, error)
}

// FoodAnalysisServiceInterface defines the contract for photo carb estimates
type FoodAnalysisServiceInterface interface {
	Enabled() bool
	EstimateMealCarbs(ctx context.Context, imageURL string) (*services.CarbEstimate, error)
}
