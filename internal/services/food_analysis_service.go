package services

import (
	"context"
	"math"
	"strings"

	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
	"github.com/vladimiradmaev/diabetbot/internal/logger"
)

type carbEstimator interface {
	EstimateCarbs(ctx context.Context, imageURL string) (*CarbEstimate, error)
	Enabled() bool
}

// FoodAnalysisService turns a meal photo into a carbohydrate suggestion
// offered at the primary carbohydrate step of the meal flow.
type FoodAnalysisService struct {
	ai carbEstimator
}

func NewFoodAnalysisService(ai carbEstimator) *FoodAnalysisService {
	return &FoodAnalysisService{ai: ai}
}

// Enabled reports whether photos can be analyzed at all.
func (s *FoodAnalysisService) Enabled() bool {
	return s.ai != nil && s.ai.Enabled()
}

// EstimateMealCarbs returns the estimate with carbs rounded to 0.1 g.
func (s *FoodAnalysisService) EstimateMealCarbs(ctx context.Context, imageURL string) (*CarbEstimate, error) {
	if !s.Enabled() {
		return nil, apperrors.NewMissingPrerequisite("AI provider")
	}

	est, err := s.ai.EstimateCarbs(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	est.Carbs = math.Round(est.Carbs*10) / 10
	est.Confidence = normalizeConfidence(est.Confidence)
	logger.FromContext(ctx).Info("Carbohydrates estimated from photo",
		"provider", est.Provider,
		"carbs", est.Carbs,
		"confidence", est.Confidence)
	return est, nil
}

func normalizeConfidence(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "high":
		return "high"
	case "medium":
		return "medium"
	default:
		return "low"
	}
}
