package utils

import (
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
)

const (
	GlucoseMin = 1.0
	GlucoseMax = 30.0
)

// ParseDecimal keeps only digits, '.' and ',' from text, treats ',' as the
// decimal separator and parses the rest. "12,5 ед" yields 12.5.
func ParseDecimal(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.':
			return r
		case r == ',':
			return '.'
		default:
			return -1
		}
	}, text)

	if cleaned == "" {
		return 0, apperrors.NewInvalidFormat(text)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, apperrors.NewInvalidFormat(text)
	}
	return v, nil
}

// ParseBounded parses a decimal and requires min <= v <= max.
func ParseBounded(text string, min, max float64) (float64, error) {
	v, err := ParseDecimal(text)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, apperrors.NewOutOfRange(v, min, max)
	}
	return v, nil
}

// ParsePositive parses a decimal that must be strictly greater than zero.
func ParsePositive(text string) (float64, error) {
	v, err := ParseDecimal(text)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, apperrors.NewOutOfRange(v, math.SmallestNonzeroFloat64, math.MaxFloat64)
	}
	return v, nil
}

// ParseGlucose parses a blood glucose reading in mmol/L within [1, 30].
func ParseGlucose(text string) (float64, error) {
	return ParseBounded(text, GlucoseMin, GlucoseMax)
}

// ParseInt parses a whole number within [min, max]. Fractions are rejected.
func ParseInt(text string, min, max int) (int, error) {
	v, err := ParseDecimal(text)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) {
		return 0, apperrors.NewInvalidFormat(text)
	}
	if v < float64(min) || v > float64(max) {
		return 0, apperrors.NewOutOfRange(v, float64(min), float64(max))
	}
	return int(v), nil
}

// ParseMinutes parses a non-negative whole number of minutes.
func ParseMinutes(text string) (int, error) {
	return ParseInt(text, 0, 24*60)
}

// ParseDate parses a calendar date typed as DD.MM.YYYY and returns its day key.
func ParseDate(text string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(text))
	if err != nil {
		return "", apperrors.NewInvalidFormat(text)
	}
	return DayKey(t), nil
}
