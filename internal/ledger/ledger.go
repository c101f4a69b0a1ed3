// Package ledger turns per-frame detections into priced item counts.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kiosk/internal/catalog"
)

// Entry aggregates all detections of one class in a frame.
type Entry struct {
	Class string
	Count int
	Price catalog.Price
}

// Total is Count x unit price. It is always derived, never stored, and
// reports false for unpriced entries.
func (e Entry) Total() (decimal.Decimal, bool) {
	unit, ok := e.Price.Amount()
	if !ok {
		return decimal.Decimal{}, false
	}
	return unit.Mul(decimal.NewFromInt(int64(e.Count))), true
}

// Ledger is the item aggregate of a single processed frame. It has no
// mutating methods; a new frame always produces a new Ledger.
type Ledger struct {
	entries map[string]Entry
}

func Empty() Ledger {
	return Ledger{}
}

func (l Ledger) Len() int {
	return len(l.entries)
}

func (l Ledger) Get(class string) (Entry, bool) {
	e, ok := l.entries[catalog.Normalize(class)]
	return e, ok
}

// Entries returns the entries ordered by class name.
func (l Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}

// GrandTotal sums the totals of priced entries; unpriced entries are skipped.
func (l Ledger) GrandTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, e := range l.entries {
		if total, ok := e.Total(); ok {
			sum = sum.Add(total)
		}
	}
	return sum
}

// ItemCount is the number of detected instances across all classes.
func (l Ledger) ItemCount() int {
	n := 0
	for _, e := range l.entries {
		n += e.Count
	}
	return n
}

func (l Ledger) Equal(other Ledger) bool {
	if len(l.entries) != len(other.entries) {
		return false
	}
	for class, e := range l.entries {
		o, ok := other.entries[class]
		if !ok || o.Count != e.Count || o.Price.IsPriced() != e.Price.IsPriced() {
			return false
		}
		a, _ := e.Price.Amount()
		b, _ := o.Price.Amount()
		if !a.Equal(b) {
			return false
		}
	}
	return true
}

func (l Ledger) clone() Ledger {
	if l.entries == nil {
		return Ledger{}
	}
	entries := make(map[string]Entry, len(l.entries))
	for k, v := range l.entries {
		entries[k] = v
	}
	return Ledger{entries: entries}
}

// Receipt is a ledger frozen at scan time. It does not change when the live
// ledger moves on.
type Receipt struct {
	ID         string
	FrameSeq   uint64
	CapturedAt time.Time
	ledger     Ledger
}

// Freeze copies l into a new receipt.
func Freeze(l Ledger, frameSeq uint64) *Receipt {
	return &Receipt{
		ID:         uuid.NewString(),
		FrameSeq:   frameSeq,
		CapturedAt: time.Now(),
		ledger:     l.clone(),
	}
}

func (r *Receipt) Ledger() Ledger {
	return r.ledger
}

func (r *Receipt) Entries() []Entry {
	return r.ledger.Entries()
}

func (r *Receipt) GrandTotal() decimal.Decimal {
	return r.ledger.GrandTotal()
}
