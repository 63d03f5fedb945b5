// package models defines the data model for the moodlist service
package models

import (
	"time"
)

// Model is the base interface for anything the interaction log persists.
type Model interface {
	ID() string           // ID returns the record's UUID
	CreatedAt() time.Time // CreatedAt returns when the record was created
	UpdatedAt() time.Time // UpdatedAt returns when the record last changed
	Validate() error      // Validate checks the record before persistence
}

// Repository is the data access contract implemented per persisted model type.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new record
	Get(id string) (T, error)                  // Get retrieves a record by UUID
	Update(model T) error                      // Update modifies an existing record
	Delete(id string) error                    // Delete soft-deletes a record by UUID
	List(criteria map[string]any) ([]T, error) // List retrieves records matching criteria
}
