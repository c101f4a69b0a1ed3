package repository

import (
	"kiosk/internal/dto"
	"kiosk/internal/model"
)

// SnapshotRepository defines the interface for snapshot data operations.
type SnapshotRepository interface {
	// Create operations
	Insert(s *model.Snapshot) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Snapshot, error)
	GetByFilename(filename string) (*model.Snapshot, error)
	GetAll(filter *dto.SnapshotFilters) ([]model.Snapshot, error)
	GetTotalCount(filter *dto.SnapshotFilters) (int, error)
	Exists(filename string) (bool, error)

	// Delete operations
	DeleteByFilename(filename string) error
}

// SnapshotItemRepository defines the interface for receipt line operations.
type SnapshotItemRepository interface {
	// Create operations
	InsertBatch(items []model.SnapshotItem) error

	// Read operations
	GetBySnapshotID(snapshotID int64) ([]model.SnapshotItem, error)
	GetAllClasses() ([]string, error)
}
