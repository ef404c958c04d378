package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vladimiradmaev/diabetbot/internal/errors"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"12,5", 12.5},
		{" 7.25 ед", 7.25},
		{"≈ 30 units", 30},
		{"0", 0},
	}
	for _, tt := range tests {
		got, err := ParseDecimal(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestParseDecimalInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.2.3", ",", "..", "ед"} {
		_, err := ParseDecimal(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidFormat, in)
	}
}

func TestParseGlucoseBounds(t *testing.T) {
	v, err := ParseGlucose("1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	v, err = ParseGlucose("30,0")
	require.NoError(t, err)
	assert.Equal(t, 30.0, v)

	_, err = ParseGlucose("0.9")
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	_, err = ParseGlucose("31")
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	_, err = ParseGlucose("high")
	assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
}

func TestParsePositive(t *testing.T) {
	_, err := ParsePositive("0")
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	v, err := ParsePositive("0,5")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
}

func TestParseInt(t *testing.T) {
	v, err := ParseInt("17", 0, 18)
	require.NoError(t, err)
	assert.Equal(t, 17, v)

	_, err = ParseInt("19", 0, 18)
	assert.ErrorIs(t, err, apperrors.ErrOutOfRange)

	_, err = ParseInt("2.5", 0, 18)
	assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)

	m, err := ParseMinutes("90 мин")
	require.NoError(t, err)
	assert.Equal(t, 90, m)
}

func TestParseDate(t *testing.T) {
	day, err := ParseDate("05.03.2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", day)

	for _, in := range []string{"5.3.2024", "2024-03-05", "31.02.2024", "05/03/2024", "yesterday"} {
		_, err := ParseDate(in)
		assert.ErrorIs(t, err, apperrors.ErrInvalidFormat, in)
	}
}

func TestSensitivityDays(t *testing.T) {
	days := SensitivityDays("2024-03-01")
	assert.Equal(t, [3]string{"2024-02-27", "2024-02-28", "2024-02-29"}, days)
}

func TestTodayUsesLocation(t *testing.T) {
	now := time.Date(2024, 3, 1, 22, 30, 0, 0, time.UTC)
	loc := time.FixedZone("UTC+3", 3*3600)
	assert.Equal(t, "2024-03-02", Today(now, loc))
	assert.Equal(t, "2024-03-01", Today(now, time.UTC))
}

func TestDayRangeAndFormat(t *testing.T) {
	assert.Equal(t, []string{"2024-12-30", "2024-12-31", "2025-01-01"}, DayRange("2024-12-30", "2025-01-01"))
	assert.Empty(t, DayRange("2024-01-02", "2024-01-01"))
	assert.Equal(t, "01.01.2025", FormatDay("2025-01-01"))
}
