package dto

import (
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
)

// Capture is everything needed to export a snapshot taken on scan.
type Capture struct {
	SessionID string
	Frame     *frame.Frame
	Receipt   *ledger.Receipt
	Overlay   []ledger.OverlayItem
}
