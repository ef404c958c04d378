package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories sharing one gorm handle, which is either the
// pool or an open transaction.
type Store struct {
	db      *gorm.DB
	Users   *UserRepository
	Insulin *InsulinRepository
	Factors *FactorRepository
	Meals   *MealRepository
}

// New creates a Store over db
func New(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		Users:   NewUserRepository(db),
		Insulin: NewInsulinRepository(db),
		Factors: NewFactorRepository(db),
		Meals:   NewMealRepository(db),
	}
}

// GetDB returns the underlying GORM database instance
func (s *Store) GetDB() *gorm.DB {
	return s.db
}

// Transaction runs fn with a Store bound to a single transaction. The
// transaction is rolled back when fn returns an error.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}
