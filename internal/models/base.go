package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewID returns a fresh opaque record id.
func NewID() string {
	return uuid.NewString()
}

// assignID fills an empty primary key before insert.
func assignID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// All lists every table for AutoMigrate, parents first.
func All() []any {
	return []any{&User{}, &Product{}, &ProductRef{}}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
