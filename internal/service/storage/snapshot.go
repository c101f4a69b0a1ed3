package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kiosk/internal/config"
	"kiosk/internal/dto"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/repository"
)

const (
	filenamePrefix  = "detected_photo_"
	timestampLayout = "2006-01-02_15-04-05.000"
)

// ErrSnapshotSave is returned when a snapshot cannot be queued or written.
var ErrSnapshotSave = errors.New("snapshot save failed")

// Annotator draws the detection overlay onto a JPEG frame.
type Annotator func(jpeg []byte, overlay []ledger.OverlayItem) ([]byte, error)

type pendingSnapshot struct {
	filename string
	capture  dto.Capture
}

// SnapshotService queues scan photos in memory and periodically writes them
// to disk together with their receipt rows.
type SnapshotService struct {
	dir          string
	limit        int
	interval     time.Duration
	pending      []pendingSnapshot
	mu           sync.Mutex
	flushMu      sync.Mutex
	logger       *logger.Logger
	annotate     Annotator
	snapshotRepo repository.SnapshotRepository
	itemRepo     repository.SnapshotItemRepository
}

// NewSnapshotService creates a SnapshotService writing into cfg.SnapshotDirectory.
// annotate and the repositories may be nil.
func NewSnapshotService(cfg *config.Config, logger *logger.Logger, annotate Annotator,
	snapshotRepo repository.SnapshotRepository, itemRepo repository.SnapshotItemRepository) *SnapshotService {
	limit := cfg.SnapshotBufferLimit
	if limit < 1 {
		limit = 1
	}
	interval := cfg.SnapshotFlushInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SnapshotService{
		dir:          cfg.SnapshotDirectory,
		limit:        limit,
		interval:     interval,
		logger:       logger,
		annotate:     annotate,
		snapshotRepo: snapshotRepo,
		itemRepo:     itemRepo,
	}
}

func (s *SnapshotService) Directory() string {
	return s.dir
}

// Run flushes queued snapshots every interval until ctx ends, then flushes
// whatever is left.
func (s *SnapshotService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// SaveSnapshot queues c and returns the filename it will be written under.
// It never touches the disk.
func (s *SnapshotService) SaveSnapshot(c dto.Capture) (string, error) {
	if c.Frame == nil || len(c.Frame.Data) == 0 || c.Receipt == nil {
		return "", fmt.Errorf("%w: nothing to save", ErrSnapshotSave)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) >= s.limit {
		return "", fmt.Errorf("%w: buffer full (%d/%d)", ErrSnapshotSave, len(s.pending), s.limit)
	}

	filename := SnapshotFilename(c.Receipt.CapturedAt, c.Receipt.ID)
	s.pending = append(s.pending, pendingSnapshot{filename: filename, capture: c})
	s.logger.Info("Snapshot buffer: %d/%d", len(s.pending), s.limit)
	return filename, nil
}

// Pending returns the number of snapshots waiting for the next flush.
func (s *SnapshotService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush writes queued snapshots to disk and the database and returns how many
// were saved. Callers of SaveSnapshot are not blocked while files are written.
func (s *SnapshotService) Flush() int {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	saved := 0
	for _, p := range batch {
		if err := s.write(p); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", p.filename, err)
			continue
		}
		saved++
	}

	s.logger.Info("Flushed %d snapshots to disk", saved)
	return saved
}

func (s *SnapshotService) write(p pendingSnapshot) error {
	data := p.capture.Frame.Data
	if s.annotate != nil && len(p.capture.Overlay) > 0 {
		annotated, err := s.annotate(data, p.capture.Overlay)
		if err != nil {
			s.logger.Warning("Saving %s without overlay: %v", p.filename, err)
		} else {
			data = annotated
		}
	}

	fullpath := filepath.Join(s.dir, p.filename)
	if err := os.WriteFile(fullpath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrSnapshotSave, err)
	}

	if s.snapshotRepo == nil {
		return nil
	}

	receipt := p.capture.Receipt
	id, err := s.snapshotRepo.Insert(&model.Snapshot{
		Filename:  p.filename,
		ReceiptID: receipt.ID,
		SessionID: p.capture.SessionID,
		FrameSeq:  int64(receipt.FrameSeq),
		ItemCount: receipt.Ledger().ItemCount(),
		Total:     receipt.GrandTotal(),
		Timestamp: receipt.CapturedAt,
		FilePath:  fullpath,
		FileSize:  int64(len(data)),
	})
	if err != nil {
		return fmt.Errorf("%w: database: %v", ErrSnapshotSave, err)
	}

	if s.itemRepo == nil || receipt.Ledger().Len() == 0 {
		return nil
	}
	if err := s.itemRepo.InsertBatch(SnapshotItems(id, receipt)); err != nil {
		s.logger.Error("Error saving receipt lines for %s: %v", p.filename, err)
	}
	return nil
}

// SnapshotItems converts the receipt lines into rows for snapshotID.
func SnapshotItems(snapshotID int64, receipt *ledger.Receipt) []model.SnapshotItem {
	entries := receipt.Entries()
	items := make([]model.SnapshotItem, 0, len(entries))
	for _, e := range entries {
		item := model.SnapshotItem{
			SnapshotID: snapshotID,
			Class:      e.Class,
			Count:      e.Count,
		}
		if unit, ok := e.Price.Amount(); ok {
			total, _ := e.Total()
			item.UnitPrice = decimal.NewNullDecimal(unit)
			item.Total = decimal.NewNullDecimal(total)
		}
		items = append(items, item)
	}
	return items
}

// SnapshotFilename names the photo of a receipt, e.g.
// detected_photo_2025-06-15_14-30-05.000_<receipt id>.jpg.
func SnapshotFilename(capturedAt time.Time, receiptID string) string {
	return fmt.Sprintf("%s%s_%s.jpg", filenamePrefix, capturedAt.Format(timestampLayout), receiptID)
}

// ParseFilename is the inverse of SnapshotFilename.
func ParseFilename(name string) (time.Time, string, error) {
	base := strings.TrimSuffix(filepath.Base(name), ".jpg")
	if !strings.HasPrefix(base, filenamePrefix) || base == filepath.Base(name) {
		return time.Time{}, "", fmt.Errorf("not a snapshot filename: %s", name)
	}
	base = strings.TrimPrefix(base, filenamePrefix)

	i := strings.LastIndex(base, "_")
	if i < 0 {
		return time.Time{}, "", fmt.Errorf("missing receipt id: %s", name)
	}

	ts, err := time.ParseInLocation(timestampLayout, base[:i], time.Local)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid timestamp in %s: %w", name, err)
	}

	receiptID := base[i+1:]
	if _, err := uuid.Parse(receiptID); err != nil {
		return time.Time{}, "", fmt.Errorf("invalid receipt id in %s: %w", name, err)
	}
	return ts, receiptID, nil
}
