package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
)

type fakeEstimator struct {
	est *CarbEstimate
	err error
}

func (f *fakeEstimator) EstimateCarbs(context.Context, string) (*CarbEstimate, error) {
	return f.est, f.err
}

func (f *fakeEstimator) Enabled() bool { return true }

func TestEstimateMealCarbsRounds(t *testing.T) {
	svc := NewFoodAnalysisService(&fakeEstimator{est: &CarbEstimate{Carbs: 47.26, Confidence: "HIGH", Provider: "gemini"}})

	est, err := svc.EstimateMealCarbs(context.Background(), "https://example.org/p.jpg")
	require.NoError(t, err)
	assert.Equal(t, 47.3, est.Carbs)
	assert.Equal(t, "high", est.Confidence)
}

func TestEstimateMealCarbsDisabled(t *testing.T) {
	ai, err := NewAIService(context.Background(), "", "")
	require.NoError(t, err)
	svc := NewFoodAnalysisService(ai)

	assert.False(t, svc.Enabled())
	_, err = svc.EstimateMealCarbs(context.Background(), "x")
	assert.ErrorIs(t, err, apperrors.ErrMissingPrerequisite)
}

func TestEstimateMealCarbsPropagatesErrors(t *testing.T) {
	boom := errors.New("quota")
	svc := NewFoodAnalysisService(&fakeEstimator{err: boom})

	_, err := svc.EstimateMealCarbs(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestParseCarbEstimate(t *testing.T) {
	est, err := parseCarbEstimate("```json\n{\"food_items\":[\"гречка\"],\"carbs\":42.5,\"confidence\":\"medium\",\"analysis_text\":\"порция 200 г\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, 42.5, est.Carbs)
	assert.Equal(t, []string{"гречка"}, est.FoodItems)

	_, err = parseCarbEstimate("no json here")
	assert.Error(t, err)

	_, err = parseCarbEstimate(`{"carbs": -3}`)
	assert.Error(t, err)
}
