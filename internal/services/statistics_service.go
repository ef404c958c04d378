package services

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/vladimiradmaev/diabetbot/internal/database"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
	"github.com/vladimiradmaev/diabetbot/internal/utils"
)

type FactorStats struct {
	Count int
	Mean  float64
	Min   float64
	Max   float64
}

type SlotStats struct {
	Slot   domain.MealSlot
	Count  int
	Mean   float64
	Latest float64
}

// Report summarizes stored factors and meal coefficients over a period.
type Report struct {
	Period domain.StatsPeriod
	Start  string
	End    string
	// Single-day periods only.
	Factor  *float64
	Insulin float64

	Factors FactorStats
	Slots   []SlotStats
}

// SingleDay reports whether the report covers one calendar day.
func (r *Report) SingleDay() bool {
	return r.Start == r.End
}

type StatisticsService struct {
	store    *repository.Store
	resolver *Resolver
}

func NewStatisticsService(store *repository.Store, resolver *Resolver) *StatisticsService {
	return &StatisticsService{store: store, resolver: resolver}
}

// Summary builds the report for period relative to today.
func (s *StatisticsService) Summary(ctx context.Context, userID uint, period domain.StatsPeriod, today string) (*Report, error) {
	offset, days := period.Span()
	start := utils.AddDays(today, offset)
	end := utils.AddDays(start, days-1)

	factors, err := s.store.Factors.Range(ctx, userID, start, end)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to load factors: %w", err))
	}
	meals, err := s.store.Meals.Range(ctx, userID, start, end)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("failed to load meals: %w", err))
	}

	report := &Report{
		Period:  period,
		Start:   start,
		End:     end,
		Factors: factorStats(factors),
		Slots:   slotStats(meals),
	}

	if report.SingleDay() {
		if len(factors) > 0 {
			report.Factor = &factors[len(factors)-1].Value
		}
		report.Insulin, err = s.resolver.ResolveDailyInsulin(ctx, userID, start)
		if err != nil {
			return nil, err
		}
	}
	return report, nil
}

func factorStats(factors []database.SensitivityFactor) FactorStats {
	if len(factors) == 0 {
		return FactorStats{}
	}
	values := lo.Map(factors, func(f database.SensitivityFactor, _ int) float64 { return f.Value })
	return FactorStats{
		Count: len(values),
		Mean:  lo.Sum(values) / float64(len(values)),
		Min:   lo.Min(values),
		Max:   lo.Max(values),
	}
}

func slotStats(meals []database.MealRecord) []SlotStats {
	bySlot := lo.GroupBy(meals, func(m database.MealRecord) domain.MealSlot { return m.Slot })

	stats := make([]SlotStats, 0, len(bySlot))
	for _, slot := range domain.MealSlots {
		group, ok := bySlot[slot]
		if !ok {
			continue
		}
		coefs := lo.Map(group, func(m database.MealRecord, _ int) float64 { return m.Coefficient })
		stats = append(stats, SlotStats{
			Slot:   slot,
			Count:  len(coefs),
			Mean:   lo.Sum(coefs) / float64(len(coefs)),
			Latest: coefs[len(coefs)-1],
		})
	}
	return stats
}
