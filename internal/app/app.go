package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kiosk/internal/capture"
	"kiosk/internal/catalog"
	"kiosk/internal/config"
	"kiosk/internal/kiosk"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
	"kiosk/internal/repository/sqlite"
	"kiosk/internal/routes"
	"kiosk/internal/service/ai"
	"kiosk/internal/service/camera"
	"kiosk/internal/service/display"
	"kiosk/internal/service/storage"
	"kiosk/internal/service/websocket"
)

type App struct {
	config          *config.Config
	logger          *logger.Logger
	db              *sqlite.DB
	source          *capture.Source
	hubService      *websocket.HubService
	snapshotService *storage.SnapshotService
	session         *kiosk.Session
	server          *http.Server
	detectorClosers []io.Closer
	upload          *camera.Upload
}

// NewApp builds every component. It must be called from the main goroutine
// when a local window is used.
func NewApp(cfg *config.Config, logger *logger.Logger) (*App, error) {
	prices, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("🏷️  Catalog: %d priced classes", prices.Len())

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	snapshotRepo := sqlite.NewSnapshotRepository(db)
	itemRepo := sqlite.NewSnapshotItemRepository(db)

	detector, closers, err := newDetector(cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	hub := websocket.NewHubService(logger)
	snapshots := storage.NewSnapshotService(cfg, logger, ai.DrawOverlay, snapshotRepo, itemRepo)
	source := capture.NewSource(logger, cfg.ReadRetryDelay)

	presenters := []kiosk.Presenter{hub}
	if !cfg.Headless {
		presenters = append(presenters, display.NewWindow(logger))
	}

	session := kiosk.NewSession(
		source,
		ledger.NewAggregator(detector, prices, cfg.ConfidenceThreshold),
		kiosk.NewPresenters(presenters...),
		snapshots,
		logger,
		kiosk.Options{FrameSkip: cfg.FrameSkip, TickInterval: cfg.TickInterval},
	)

	var upload *camera.Upload
	var uploadHandler http.Handler
	if cfg.CameraDevice == camera.UploadDevice {
		upload = camera.NewUpload(logger)
		uploadHandler = upload
	}

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		source:          source,
		hubService:      hub,
		snapshotService: snapshots,
		session:         session,
		detectorClosers: closers,
		upload:          upload,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           routes.SetupRoutes(cfg, logger, hub, snapshotRepo, itemRepo, uploadHandler),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadFile(cfg.CatalogPath)
}

// newDetector picks the detection backend and wraps it in a motion gate when
// MOTION_THRESHOLD is set.
func newDetector(cfg *config.Config, logger *logger.Logger) (ledger.Detector, []io.Closer, error) {
	var detector ledger.Detector
	var closers []io.Closer

	switch cfg.Detector {
	case "dnn":
		ds, err := ai.NewDetectorService(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		detector, closers = ds, append(closers, ds)
	case "cascade":
		cd, err := ai.NewCascadeDetector(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		detector, closers = cd, append(closers, cd)
	default:
		return nil, nil, fmt.Errorf("unknown detector %q (want dnn or cascade)", cfg.Detector)
	}

	if cfg.MotionThreshold > 0 {
		gate := ai.NewMotionGate(detector, cfg.MotionThreshold, logger)
		detector, closers = gate, append(closers, gate)
	}
	return detector, closers, nil
}

// Run starts acquisition, background services and the HTTP server, then
// drives the kiosk session on the calling goroutine until it closes or ctx
// ends. A camera that cannot be opened is returned as capture.ErrDeviceUnavailable.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	var opener capture.Opener
	switch {
	case a.upload != nil:
		opener = a.upload.Opener()
	case camera.IsUDP(a.config.CameraDevice):
		opener = camera.UDPOpener(a.config.CameraDevice, a.logger)
	default:
		opener = camera.Opener(a.config, a.logger)
	}
	if err := a.source.Start(opener); err != nil {
		return err
	}
	defer a.source.Stop()

	listener, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a.hubService.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		a.snapshotService.Run(bgCtx)
	}()
	go func() {
		defer wg.Done()
		if err := a.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server stopped: %v", err)
		}
	}()

	a.logger.Info("🛒 Checkout Kiosk")
	a.logger.Info("📍 URL: http://localhost:%d/kiosk", a.config.Port)
	a.logger.Info("📷 Camera: %s", a.config.CameraDevice)
	a.logger.Info("🤖 Detector: %s (threshold %.2f, every %d frame(s))", a.config.Detector, a.config.ConfidenceThreshold, a.config.FrameSkip)
	a.logger.Info("📁 Snapshots: %s", a.config.SnapshotDirectory)

	runErr := a.session.Run(ctx)

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warning("HTTP shutdown: %v", err)
	}
	cancel()
	wg.Wait()

	st := a.source.Stats()
	a.logger.Info("Capture stopped: %d frames, %d read failures, %d dropped unread", st.Frames, st.ReadFailures, st.Slot.Dropped)

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func (a *App) close() {
	for _, c := range a.detectorClosers {
		if err := c.Close(); err != nil {
			a.logger.Warning("Closing detector: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warning("Closing database: %v", err)
	}
}
