package ai

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"kiosk/internal/config"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
)

// CascadeDetector reports Haar cascade hits (faces by default) as a single
// priced class.
type CascadeDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	label      string
}

func NewCascadeDetector(cfg *config.Config, logger *logger.Logger) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.CascadePath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade: %s", cfg.CascadePath)
	}

	logger.Info("Cascade %s loaded, hits priced as %q", cfg.CascadePath, cfg.CascadeLabel)
	return &CascadeDetector{classifier: classifier, label: cfg.CascadeLabel}, nil
}

// Detect reports every hit with confidence 1.
func (d *CascadeDetector) Detect(f *frame.Frame) ([]ledger.DetectedItem, error) {
	mat, err := decode(f)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	d.mu.Lock()
	rects := d.classifier.DetectMultiScaleWithParams(gray, 1.1, 5, 0, image.Pt(30, 30), image.Pt(0, 0))
	d.mu.Unlock()

	items := make([]ledger.DetectedItem, 0, len(rects))
	for _, r := range rects {
		items = append(items, ledger.DetectedItem{
			Class:      d.label,
			Confidence: 1,
			Box:        ledger.Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
		})
	}
	return items, nil
}

func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
