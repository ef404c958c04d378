package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/diabetbot/internal/database/migrations"
	"github.com/vladimiradmaev/diabetbot/internal/domain"
)

func manualTotal(amount float64) *InsulinRecord {
	return &InsulinRecord{
		UserID:   1,
		Day:      "2024-03-09",
		Category: domain.CategoryFood,
		Origin:   domain.OriginManual,
		Amount:   amount,
	}
}

func TestOpenMemoryRunsMigrations(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	var applied []migrations.MigrationRecord
	require.NoError(t, db.Find(&applied).Error)
	require.Len(t, applied, 1)
	assert.Equal(t, "0001_unique_manual_total", applied[0].ID)

	// second run is a no-op
	require.NoError(t, migrations.RunMigrations(db))
	require.NoError(t, db.Find(&applied).Error)
	assert.Len(t, applied, 1)
}

func TestSingleManualTotalPerDay(t *testing.T) {
	db, err := OpenMemory()
	require.NoError(t, err)

	require.NoError(t, db.Create(manualTotal(30)).Error)
	assert.Error(t, db.Create(manualTotal(31)).Error)

	for n := 0; n < 2; n++ {
		auto := manualTotal(4)
		auto.Origin = domain.OriginAutomatic
		require.NoError(t, db.Create(auto).Error)
	}

	other := manualTotal(28)
	other.Day = "2024-03-08"
	require.NoError(t, db.Create(other).Error)
}
