package services

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/formula"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
)

// Injection is a raw supplemental dose and how long after the meal it was given.
type Injection struct {
	OffsetMinutes int     `json:"offset_minutes"`
	Dose          float64 `json:"dose"`
}

// MealDraft holds the answers collected for one meal.
type MealDraft struct {
	UserID         uint
	Day            string
	Slot           domain.MealSlot
	GlucoseStart   float64
	GlucoseEnd     float64
	PauseMinutes   int
	CarbsPrimary   float64
	CarbsSecondary float64
	Protein        *float64
	Fat            *float64
	FoodInsulin    float64
	Injections     []Injection
}

// SupplementalInsulin is the sum of decay-corrected supplemental doses.
func (d *MealDraft) SupplementalInsulin() float64 {
	var total float64
	for _, inj := range d.Injections {
		total += formula.CorrectedDose(inj.Dose, inj.OffsetMinutes)
	}
	return total
}

type MealService struct {
	store *repository.Store
}

func NewMealService(store *repository.Store) *MealService {
	return &MealService{store: store}
}

// Commit computes the meal coefficient with the latest sensitivity factor and
// stores the meal, its supplemental injections and one automatic insulin
// record for the meal in a single transaction. Without any stored factor it
// fails with a missing prerequisite error and writes nothing.
func (s *MealService) Commit(ctx context.Context, draft MealDraft) (*database.MealRecord, error) {
	var meal *database.MealRecord

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		factor, err := tx.Factors.Latest(ctx, draft.UserID)
		if err != nil {
			return apperrors.NewDatabaseError(fmt.Errorf("failed to load latest factor: %w", err))
		}
		if factor == nil {
			return apperrors.NewMissingPrerequisite("sensitivity factor")
		}

		supplemental := draft.SupplementalInsulin()
		coefficient, err := formula.MealCoefficient(formula.MealInput{
			GlucoseStart:        draft.GlucoseStart,
			GlucoseEnd:          draft.GlucoseEnd,
			Factor:              factor.Value,
			FoodInsulin:         draft.FoodInsulin,
			SupplementalInsulin: supplemental,
			CarbsPrimary:        draft.CarbsPrimary,
			CarbsSecondary:      draft.CarbsSecondary,
			Protein:             draft.Protein,
			Fat:                 draft.Fat,
		})
		if err != nil {
			return apperrors.NewInternalError(err)
		}

		meal = &database.MealRecord{
			UserID:              draft.UserID,
			Day:                 draft.Day,
			Slot:                draft.Slot,
			GlucoseStart:        draft.GlucoseStart,
			GlucoseEnd:          draft.GlucoseEnd,
			PauseMinutes:        draft.PauseMinutes,
			CarbsPrimary:        draft.CarbsPrimary,
			CarbsSecondary:      draft.CarbsSecondary,
			Protein:             draft.Protein,
			Fat:                 draft.Fat,
			FoodInsulin:         draft.FoodInsulin,
			SupplementalInsulin: supplemental,
			Factor:              factor.Value,
			Coefficient:         coefficient,
		}
		for _, inj := range draft.Injections {
			meal.Injections = append(meal.Injections, database.InjectionCorrection{
				OffsetMinutes: inj.OffsetMinutes,
				Dose:          inj.Dose,
				CorrectedDose: formula.CorrectedDose(inj.Dose, inj.OffsetMinutes),
			})
		}
		if err := tx.Meals.Create(ctx, meal); err != nil {
			return apperrors.NewDatabaseError(fmt.Errorf("failed to create meal record: %w", err))
		}

		// post-meal injections count at their decay-corrected dose
		amounts := []struct {
			category domain.InsulinCategory
			amount   float64
		}{
			{domain.CategoryFood, draft.FoodInsulin},
			{domain.CategoryCorrection, supplemental},
		}
		for _, a := range amounts {
			if a.amount <= 0 {
				continue
			}
			if err := tx.Insulin.Create(ctx, &database.InsulinRecord{
				UserID:   draft.UserID,
				Day:      draft.Day,
				Category: a.category,
				Origin:   domain.OriginAutomatic,
				Amount:   a.amount,
			}); err != nil {
				return apperrors.NewDatabaseError(fmt.Errorf("failed to create insulin record: %w", err))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meal, nil
}
