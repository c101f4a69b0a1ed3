package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot represents a saved scan photo and the receipt it was taken for.
type Snapshot struct {
	ID        int64           `json:"id"`
	Filename  string          `json:"filename"`
	ReceiptID string          `json:"receiptId"`
	SessionID string          `json:"sessionId"`
	FrameSeq  int64           `json:"frameSeq"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
	FilePath  string          `json:"filepath"`
	FileSize  int64           `json:"filesize"`
}

// SnapshotItem is one receipt line. UnitPrice and Total are null for
// unpriced classes.
type SnapshotItem struct {
	ID         int64               `json:"id"`
	SnapshotID int64               `json:"snapshotId"`
	Class      string              `json:"class"`
	Count      int                 `json:"count"`
	UnitPrice  decimal.NullDecimal `json:"unitPrice"`
	Total      decimal.NullDecimal `json:"total"`
}
