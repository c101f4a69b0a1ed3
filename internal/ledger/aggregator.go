package ledger

import (
	"errors"
	"fmt"

	"kiosk/internal/catalog"
	"kiosk/internal/frame"
)

// DefaultThreshold is the confidence a detection must exceed to be counted.
const DefaultThreshold = 0.5

// ErrDetection wraps failures of the detection capability.
var ErrDetection = errors.New("detection failed")

// Box is a bounding box in pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
}

// DetectedItem is one raw detection on one frame.
type DetectedItem struct {
	Class      string
	Confidence float64
	Box        Box
}

// Detector is the object detection capability.
type Detector interface {
	Detect(f *frame.Frame) ([]DetectedItem, error)
}

// OverlayItem is what the presentation layer needs to draw one detection.
type OverlayItem struct {
	Class      string
	Confidence float64
	Box        Box
	Price      catalog.Price
}

func (o OverlayItem) Label() string {
	return fmt.Sprintf("%s: %s", o.Class, o.Price)
}

// Result is the output of processing one frame.
type Result struct {
	FrameSeq uint64
	Ledger   Ledger
	Overlay  []OverlayItem
}

// Build groups detections above threshold by case-insensitive class and
// prices them. Items
// at or below threshold are dropped entirely. Build has no hidden state.
func Build(items []DetectedItem, prices *catalog.Catalog, threshold float64) (Ledger, []OverlayItem) {
	var entries map[string]Entry
	var overlay []OverlayItem

	for _, item := range items {
		if item.Confidence <= threshold {
			continue
		}
		if entries == nil {
			entries = make(map[string]Entry)
		}

		class := catalog.Normalize(item.Class)
		price := prices.Lookup(class)
		e := entries[class]
		e.Class = class
		e.Count++
		e.Price = price
		entries[class] = e

		overlay = append(overlay, OverlayItem{
			Class:      class,
			Confidence: item.Confidence,
			Box:        item.Box,
			Price:      price,
		})
	}

	return Ledger{entries: entries}, overlay
}

// Aggregator runs the detector over a frame and builds its ledger.
type Aggregator struct {
	detector  Detector
	catalog   *catalog.Catalog
	threshold float64
}

func NewAggregator(detector Detector, prices *catalog.Catalog, threshold float64) *Aggregator {
	return &Aggregator{
		detector:  detector,
		catalog:   prices,
		threshold: threshold,
	}
}

func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Process detects items on f and returns a ledger rebuilt from scratch.
func (a *Aggregator) Process(f *frame.Frame) (Result, error) {
	items, err := a.detector.Detect(f)
	if err != nil {
		return Result{}, fmt.Errorf("%w on frame %d: %v", ErrDetection, f.Seq, err)
	}

	l, overlay := Build(items, a.catalog, a.threshold)
	return Result{
		FrameSeq: f.Seq,
		Ledger:   l,
		Overlay:  overlay,
	}, nil
}
