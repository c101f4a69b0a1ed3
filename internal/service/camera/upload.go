package camera

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"sync"
	"time"

	"kiosk/internal/capture"
	"kiosk/internal/logger"
)

// UploadDevice is the camera device name that selects HTTP uploads.
const UploadDevice = "upload"

const (
	uploadReadTimeout = time.Second
	maxUploadSize     = 8 << 20
)

// Upload receives JPEG frames POSTed by a network camera. Only the most
// recent unread upload is kept.
type Upload struct {
	frames chan uploadedFrame
	closed chan struct{}
	once   sync.Once
	logger *logger.Logger
}

type uploadedFrame struct {
	data          []byte
	width, height int
}

func NewUpload(logger *logger.Logger) *Upload {
	return &Upload{
		frames: make(chan uploadedFrame, 1),
		closed: make(chan struct{}),
		logger: logger,
	}
}

func (u *Upload) Opener() capture.Opener {
	return func() (capture.Device, error) {
		select {
		case <-u.closed:
			return nil, fmt.Errorf("upload endpoint closed")
		default:
		}
		u.logger.Info("📷 Waiting for camera uploads")
		return u, nil
	}
}

// ServeHTTP accepts one frame per POST body.
func (u *Upload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.ContentLength <= 0 {
		http.Error(w, "Invalid content length", http.StatusBadRequest)
		return
	}
	if r.ContentLength > maxUploadSize {
		http.Error(w, "Frame too large", http.StatusRequestEntityTooLarge)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Frame too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err != nil {
		u.logger.Warning("Error reading upload from camera %s: %v", r.URL.Query().Get("camera"), err)
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		http.Error(w, "Body is not a JPEG image", http.StatusUnsupportedMediaType)
		return
	}

	f := uploadedFrame{data: body, width: cfg.Width, height: cfg.Height}
	select {
	case <-u.closed:
		http.Error(w, "Capture stopped", http.StatusServiceUnavailable)
		return
	default:
	}

	// Replace an unread frame rather than wait for the reader.
	for {
		select {
		case u.frames <- f:
			w.Write([]byte("OK"))
			return
		default:
		}
		select {
		case <-u.frames:
		default:
		}
	}
}

// Read waits for the next upload.
func (u *Upload) Read() ([]byte, int, int, error) {
	select {
	case f := <-u.frames:
		return f.data, f.width, f.height, nil
	case <-u.closed:
		return nil, 0, 0, fmt.Errorf("%w: upload endpoint closed", capture.ErrTransientRead)
	case <-time.After(uploadReadTimeout):
		return nil, 0, 0, fmt.Errorf("%w: no upload within %s", capture.ErrTransientRead, uploadReadTimeout)
	}
}

func (u *Upload) Close() error {
	u.once.Do(func() { close(u.closed) })
	return nil
}
