package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"kiosk/internal/config"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
)

// DetectorService runs an SSD MobileNet COCO graph over frames.
type DetectorService struct {
	mu         sync.Mutex
	net        gocv.Net
	modelPath  string
	configPath string
	logger     *logger.Logger
}

// NewDetectorService loads the network from cfg.ModelPath and cfg.ConfigPath.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network")
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized successfully")
	return nil
}

// Detect returns every non-zero-confidence detection on f. Filtering by the
// configured threshold is left to the ledger.
func (s *DetectorService) Detect(f *frame.Frame) ([]ledger.DetectedItem, error) {
	mat, err := decode(f)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	// ssd coco input: 300x300, scaled to [-1, 1], RGB
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// rows of [batch_id, class_id, confidence, x1, y1, x2, y2], coordinates relative
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	cols, height := float32(mat.Cols()), float32(mat.Rows())
	var items []ledger.DetectedItem
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if confidence <= 0 {
			continue
		}
		items = append(items, ledger.DetectedItem{
			Class:      cocoLabel(int(rows.GetFloatAt(i, 1))),
			Confidence: float64(confidence),
			Box: ledger.Box{
				X1: int(rows.GetFloatAt(i, 3) * cols),
				Y1: int(rows.GetFloatAt(i, 4) * height),
				X2: int(rows.GetFloatAt(i, 5) * cols),
				Y2: int(rows.GetFloatAt(i, 6) * height),
			},
		})
	}
	return items, nil
}

func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}

func decode(f *frame.Frame) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
	if err != nil {
		return mat, fmt.Errorf("failed to decode frame %d: %v", f.Seq, err)
	}
	if mat.Empty() {
		mat.Close()
		return mat, fmt.Errorf("decoded frame %d is empty", f.Seq)
	}
	return mat, nil
}
