package migrations

import (
	"fmt"
	"sort"

	"github.com/vladimiradmaev/diabetbot/internal/logger"
	"gorm.io/gorm"
)

// Migration is a schema change that AutoMigrate cannot express.
type Migration struct {
	ID string
	Up func(*gorm.DB) error
}

var migrations = make(map[string]Migration)

// Register adds a new migration to the registry
func Register(id string, up func(*gorm.DB) error) {
	migrations[id] = Migration{ID: id, Up: up}
}

func init() {
	// A user-stated daily total replaces earlier ones, so at most one manual
	// food row may exist per user and day.
	Register("0001_unique_manual_total",
		func(db *gorm.DB) error {
			return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_insulin_manual_total
				ON insulin_records (user_id, day, category)
				WHERE origin = 'manual' AND deleted_at IS NULL`).Error
		})
}

// MigrationRecord represents a record of executed migrations
type MigrationRecord struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt int64  `gorm:"autoCreateTime"`
}

// RunMigrations executes all pending migrations in ID order.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	ids := make([]string, 0, len(migrations))
	for id := range migrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var executed []MigrationRecord
	if err := db.Find(&executed).Error; err != nil {
		return fmt.Errorf("failed to get executed migrations: %w", err)
	}
	executedMap := make(map[string]bool, len(executed))
	for _, m := range executed {
		executedMap[m.ID] = true
	}

	for _, id := range ids {
		if executedMap[id] {
			continue
		}
		migration := migrations[id]
		logger.Debug("Running migration", "id", id)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("failed to run migration %s: %w", id, err)
			}
			if err := tx.Create(&MigrationRecord{ID: id}).Error; err != nil {
				return fmt.Errorf("failed to record migration %s: %w", id, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		logger.Info("Completed migration", "id", id)
	}

	return nil
}
