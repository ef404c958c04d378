package database

import (
	"time"

	"github.com/vladimiradmaev/diabetbot/internal/domain"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex"`
	Username   string
	FirstName  string
	LastName   string
}

// InsulinRecord is an insulin amount attributed to a calendar day.
// Day is stored as YYYY-MM-DD.
type InsulinRecord struct {
	gorm.Model
	UserID   uint                   `gorm:"index:idx_insulin_user_day"`
	Day      string                 `gorm:"size:10;index:idx_insulin_user_day"`
	Category domain.InsulinCategory `gorm:"size:16"`
	Origin   domain.InsulinOrigin   `gorm:"size:16"`
	Amount   float64
}

// SensitivityFactor holds at most one value per user and day.
type SensitivityFactor struct {
	ID        uint   `gorm:"primarykey"`
	UserID    uint   `gorm:"uniqueIndex:idx_factor_user_day"`
	Day       string `gorm:"size:10;uniqueIndex:idx_factor_user_day"`
	Value     float64
	Day1Total float64
	Day2Total float64
	Day3Total float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MealRecord is an immutable snapshot of one meal and its coefficient.
type MealRecord struct {
	gorm.Model
	UserID              uint            `gorm:"index:idx_meal_user_day"`
	Day                 string          `gorm:"size:10;index:idx_meal_user_day"`
	Slot                domain.MealSlot `gorm:"size:16"`
	GlucoseStart        float64
	GlucoseEnd          float64
	PauseMinutes        int
	CarbsPrimary        float64
	CarbsSecondary      float64
	Protein             *float64
	Fat                 *float64
	FoodInsulin         float64
	SupplementalInsulin float64 // sum of corrected doses
	Factor              float64
	Coefficient         float64
	Injections          []InjectionCorrection `gorm:"foreignKey:MealRecordID"`
}

// InjectionCorrection is a supplemental dose given after a meal.
type InjectionCorrection struct {
	ID            uint `gorm:"primarykey"`
	MealRecordID  uint `gorm:"index"`
	OffsetMinutes int
	Dose          float64
	CorrectedDose float64
	CreatedAt     time.Time
}

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&InsulinRecord{},
		&SensitivityFactor{},
		&MealRecord{},
		&InjectionCorrection{},
	}
}
