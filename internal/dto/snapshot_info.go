package dto

import (
	"encoding/json"
	"time"
)

// SnapshotInfo describes a stored snapshot together with its receipt.
type SnapshotInfo struct {
	Name      string     `json:"name"`
	ReceiptID string     `json:"receiptId"`
	Date      time.Time  `json:"date"`
	TimeOfDay time.Time  `json:"timeOfDay"`
	Total     string     `json:"total"`
	Items     []LineItem `json:"items"`
}

// MarshalJSON customizes JSON output for SnapshotInfo to format date and time-of-day.
func (p SnapshotInfo) MarshalJSON() ([]byte, error) {
	type Alias SnapshotInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(p),
	})
}

// SnapshotsData is a paginated response payload for the snapshot list.
type SnapshotsData struct {
	Snapshots   []SnapshotInfo `json:"snapshots"`
	Classes     []string       `json:"classes"`
	Length      int            `json:"length"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
