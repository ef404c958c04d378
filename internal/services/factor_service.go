package services

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/formula"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

// FactorSnapshot describes the sensitivity factor inputs around an anchor day.
type FactorSnapshot struct {
	Days   [3]string
	Totals [3]float64
	// Value is set when all totals are positive and the factor was stored.
	Value *float64
	// Latest is the most recent stored factor of the user, if any.
	Latest *database.SensitivityFactor
}

// Complete reports whether every day has insulin data.
func (s *FactorSnapshot) Complete() bool {
	return s.Totals[0] > 0 && s.Totals[1] > 0 && s.Totals[2] > 0
}

// Missing returns the indexes of days without data, oldest first.
func (s *FactorSnapshot) Missing() []int {
	var idx []int
	for i, v := range s.Totals {
		if v <= 0 {
			idx = append(idx, i)
		}
	}
	return idx
}

type FactorService struct {
	store    *repository.Store
	resolver *Resolver
}

func NewFactorService(store *repository.Store, resolver *Resolver) *FactorService {
	return &FactorService{store: store, resolver: resolver}
}

// Recalculate resolves the three days before anchor and, when all of them
// have data, computes the factor and stores it under the most recent one.
func (s *FactorService) Recalculate(ctx context.Context, userID uint, anchor string) (*FactorSnapshot, error) {
	snap, err := s.Snapshot(ctx, userID, anchor)
	if err != nil {
		return nil, err
	}
	if !snap.Complete() {
		return snap, nil
	}

	stored, err := s.Save(ctx, userID, snap.Days, snap.Totals)
	if err != nil {
		return nil, err
	}
	snap.Value = &stored.Value
	snap.Latest = stored
	return snap, nil
}

// Snapshot resolves the anchor days and loads the latest factor without writing.
func (s *FactorService) Snapshot(ctx context.Context, userID uint, anchor string) (*FactorSnapshot, error) {
	days := utils.SensitivityDays(anchor)
	totals, err := s.resolver.ResolveDays(ctx, userID, days)
	if err != nil {
		return nil, err
	}
	latest, err := s.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FactorSnapshot{Days: days, Totals: totals, Latest: latest}, nil
}

// Save computes the factor from totals and upserts it under days[2].
func (s *FactorService) Save(ctx context.Context, userID uint, days [3]string, totals [3]float64) (*database.SensitivityFactor, error) {
	for _, v := range totals {
		if v <= 0 {
			return nil, apperrors.NewInternalError(apperrors.ErrDivisionByZero).
				WithContext("totals", totals)
		}
	}
	value, err := formula.SensitivityFactor(totals[0], totals[1], totals[2])
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	f := &database.SensitivityFactor{
		UserID:    userID,
		Day:       days[2],
		Value:     value,
		Day1Total: totals[0],
		Day2Total: totals[1],
		Day3Total: totals[2],
	}
	if err := s.store.Factors.Upsert(ctx, f); err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to upsert sensitivity factor: %w", err))
	}
	return f, nil
}

// Latest returns the most recent factor of the user, or nil.
func (s *FactorService) Latest(ctx context.Context, userID uint) (*database.SensitivityFactor, error) {
	f, err := s.store.Factors.Latest(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to load latest factor: %w", err))
	}
	return f, nil
}
