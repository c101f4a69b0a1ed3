package dto

import (
	"kiosk/internal/ledger"
)

// Message types sent to kiosk clients.
const (
	MessageLive         = "live"
	MessageReceipt      = "receipt"
	MessagePayment      = "payment"
	MessageConfirmation = "confirmation"
	MessageClose        = "close"
	MessageCloseAll     = "closeAll"
)

// Unpriced is what price columns show for classes missing from the catalog.
const Unpriced = "unpriced"

// LineItem is one receipt row: Item, Price, Quantity, Total.
type LineItem struct {
	Class     string `json:"class"`
	Count     int    `json:"count"`
	UnitPrice string `json:"unitPrice"`
	Total     string `json:"total"`
}

// ReceiptView is a frozen receipt as sent to clients.
type ReceiptView struct {
	ID         string     `json:"id"`
	FrameSeq   uint64     `json:"frameSeq"`
	Items      []LineItem `json:"items"`
	GrandTotal string     `json:"grandTotal"`
}

// OverlayBox is one detection drawn over the live image.
type OverlayBox struct {
	Label      string  `json:"label"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Priced     bool    `json:"priced"`
	Box        [4]int  `json:"box"`
}

// KioskMessage is the server-to-client envelope. Only the fields relevant to
// Type are set.
type KioskMessage struct {
	Type       string       `json:"type"`
	FrameSeq   uint64       `json:"frameSeq,omitempty"`
	Image      []byte       `json:"image,omitempty"` // JPEG, base64 in JSON
	Width      int          `json:"width,omitempty"`
	Height     int          `json:"height,omitempty"`
	Overlay    []OverlayBox `json:"overlay,omitempty"`
	Items      []LineItem   `json:"items,omitempty"`
	GrandTotal string       `json:"grandTotal,omitempty"`
	Receipt    *ReceiptView `json:"receipt,omitempty"`
	Payment    string       `json:"payment,omitempty"`
	Surface    string       `json:"surface,omitempty"`
}

// InputMessage is what clients send back: a key, a click or a named action.
type InputMessage struct {
	Kind   string `json:"kind"` // "key", "pointer" or "action"
	Key    string `json:"key,omitempty"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Action string `json:"action,omitempty"`
}

// LineItems converts ledger entries into receipt rows.
func LineItems(entries []ledger.Entry) []LineItem {
	items := make([]LineItem, 0, len(entries))
	for _, e := range entries {
		item := LineItem{
			Class:     e.Class,
			Count:     e.Count,
			UnitPrice: Unpriced,
			Total:     Unpriced,
		}
		if unit, ok := e.Price.Amount(); ok {
			total, _ := e.Total()
			item.UnitPrice = unit.StringFixed(2)
			item.Total = total.StringFixed(2)
		}
		items = append(items, item)
	}
	return items
}

func NewReceiptView(r *ledger.Receipt) *ReceiptView {
	if r == nil {
		return nil
	}
	return &ReceiptView{
		ID:         r.ID,
		FrameSeq:   r.FrameSeq,
		Items:      LineItems(r.Entries()),
		GrandTotal: r.GrandTotal().StringFixed(2),
	}
}

func NewOverlayBoxes(overlay []ledger.OverlayItem) []OverlayBox {
	boxes := make([]OverlayBox, 0, len(overlay))
	for _, o := range overlay {
		boxes = append(boxes, OverlayBox{
			Label:      o.Label(),
			Class:      o.Class,
			Confidence: o.Confidence,
			Priced:     o.Price.IsPriced(),
			Box:        [4]int{o.Box.X1, o.Box.Y1, o.Box.X2, o.Box.Y2},
		})
	}
	return boxes
}
