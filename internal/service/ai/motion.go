package ai

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
)

// MotionGate skips the wrapped detector while the scene is still, reusing the
// detections of the last frame it did run on.
type MotionGate struct {
	next      ledger.Detector
	threshold int
	logger    *logger.Logger

	mu          sync.Mutex
	previousMat gocv.Mat
	hasPrevious bool
	last        []ledger.DetectedItem
}

// NewMotionGate wraps next. A frame is passed on when more than threshold
// pixels changed since the last frame that was.
func NewMotionGate(next ledger.Detector, threshold int, logger *logger.Logger) *MotionGate {
	return &MotionGate{next: next, threshold: threshold, logger: logger}
}

func (g *MotionGate) Detect(f *frame.Frame) ([]ledger.DetectedItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	mat, err := decode(f)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if g.hasPrevious {
		changed, err := changedPixels(g.previousMat, mat)
		if err != nil {
			return nil, err
		}
		if changed <= g.threshold {
			return append([]ledger.DetectedItem(nil), g.last...), nil
		}
		g.logger.Info("Motion detected: %d pixels changed", changed)
	}

	items, err := g.next.Detect(f)
	if err != nil {
		return nil, err
	}

	if g.hasPrevious {
		g.previousMat.Close()
	}
	g.previousMat = mat.Clone()
	g.hasPrevious = true
	g.last = items
	return append([]ledger.DetectedItem(nil), items...), nil
}

func (g *MotionGate) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.hasPrevious {
		g.hasPrevious = false
		return g.previousMat.Close()
	}
	return nil
}

// changedPixels counts pixels whose grayscale difference exceeds 30.
func changedPixels(previous, current gocv.Mat) (int, error) {
	if previous.Rows() != current.Rows() || previous.Cols() != current.Cols() {
		return previous.Rows() * previous.Cols(), nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	if err := gocv.AbsDiff(previous, current, &diff); err != nil {
		return 0, fmt.Errorf("failed to compute absolute difference: %v", err)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray); err != nil {
		return 0, fmt.Errorf("failed to convert image to grayscale: %v", err)
	}

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, 30, 255, gocv.ThresholdBinary)

	return gocv.CountNonZero(thresh), nil
}
