package services

import (
	"context"
	"fmt"

	"github.com/vladimiradmaev/diabetbot/internal/domain"
	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/repository"
)

// InsulinSource yields one candidate daily insulin total.
type InsulinSource struct {
	Name  string
	Fetch func(ctx context.Context, userID uint, day string) (float64, error)
}

// Resolver answers "how much insulin did the user take that day" by asking
// its sources in order. The first strictly positive answer wins; 0 means
// there is no data for the day.
type Resolver struct {
	sources []InsulinSource
}

// NewResolver uses manual totals, then automatic meal records, then the
// insulin stored on meal snapshots.
func NewResolver(store *repository.Store) *Resolver {
	return NewResolverWithSources(
		InsulinSource{Name: "manual", Fetch: func(ctx context.Context, userID uint, day string) (float64, error) {
			return store.Insulin.Sum(ctx, userID, day, domain.OriginManual)
		}},
		InsulinSource{Name: "automatic", Fetch: func(ctx context.Context, userID uint, day string) (float64, error) {
			return store.Insulin.Sum(ctx, userID, day, domain.OriginAutomatic)
		}},
		InsulinSource{Name: "meals", Fetch: store.Meals.SumInsulin},
	)
}

func NewResolverWithSources(sources ...InsulinSource) *Resolver {
	return &Resolver{sources: sources}
}

// ResolveDailyInsulin returns the insulin total of the day, or 0.
func (r *Resolver) ResolveDailyInsulin(ctx context.Context, userID uint, day string) (float64, error) {
	for _, src := range r.sources {
		v, err := src.Fetch(ctx, userID, day)
		if err != nil {
			return 0, apperrors.NewDatabaseError(fmt.Errorf("resolve %s insulin for %s: %w", src.Name, day, err))
		}
		if v > 0 {
			return v, nil
		}
	}
	return 0, nil
}

// ResolveDays resolves every day of days.
func (r *Resolver) ResolveDays(ctx context.Context, userID uint, days [3]string) ([3]float64, error) {
	var totals [3]float64
	for i, day := range days {
		v, err := r.ResolveDailyInsulin(ctx, userID, day)
		if err != nil {
			return totals, err
		}
		totals[i] = v
	}
	return totals, nil
}
