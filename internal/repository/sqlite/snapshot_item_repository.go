package sqlite

import (
	"fmt"

	"kiosk/internal/model"
)

// SnapshotItemRepository implements repository.SnapshotItemRepository for SQLite.
type SnapshotItemRepository struct {
	db *DB
}

func NewSnapshotItemRepository(db *DB) *SnapshotItemRepository {
	return &SnapshotItemRepository{db: db}
}

// InsertBatch adds all lines of one receipt in a single transaction.
// Unpriced lines are stored with NULL unit_price and total.
func (r *SnapshotItemRepository) InsertBatch(items []model.SnapshotItem) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO snapshot_items (snapshot_id, class, count, unit_price, total)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if _, err := stmt.Exec(item.SnapshotID, item.Class, item.Count, item.UnitPrice, item.Total); err != nil {
			return fmt.Errorf("failed to insert snapshot item: %w", err)
		}
	}

	return tx.Commit()
}

// GetBySnapshotID returns the receipt lines of a snapshot ordered by class.
func (r *SnapshotItemRepository) GetBySnapshotID(snapshotID int64) ([]model.SnapshotItem, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, snapshot_id, class, count, unit_price, total
		FROM snapshot_items WHERE snapshot_id = ? ORDER BY class
	`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot items: %w", err)
	}
	defer rows.Close()

	var items []model.SnapshotItem
	for rows.Next() {
		var item model.SnapshotItem
		if err := rows.Scan(&item.ID, &item.SnapshotID, &item.Class, &item.Count, &item.UnitPrice, &item.Total); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// GetAllClasses returns every class that appears on a stored receipt.
func (r *SnapshotItemRepository) GetAllClasses() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT class FROM snapshot_items ORDER BY class`)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer rows.Close()

	var classes []string
	for rows.Next() {
		var class string
		if err := rows.Scan(&class); err != nil {
			return nil, fmt.Errorf("failed to scan class: %w", err)
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}
