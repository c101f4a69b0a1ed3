// Package camera reads JPEG frames from a local camera or stream URL.
package camera

import (
	"fmt"
	"strconv"

	"gocv.io/x/gocv"

	"kiosk/internal/capture"
	"kiosk/internal/config"
	"kiosk/internal/logger"
)

// Device is a gocv.VideoCapture that encodes each frame to JPEG.
type Device struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// Opener returns a capture.Opener for cfg.CameraDevice, which is either a
// device index ("0") or a file/stream URL.
func Opener(cfg *config.Config, logger *logger.Logger) capture.Opener {
	return func() (capture.Device, error) {
		var source interface{} = cfg.CameraDevice
		if index, err := strconv.Atoi(cfg.CameraDevice); err == nil {
			source = index
		}

		vc, err := gocv.OpenVideoCapture(source)
		if err != nil {
			return nil, fmt.Errorf("open %s: %v", cfg.CameraDevice, err)
		}
		if !vc.IsOpened() {
			vc.Close()
			return nil, fmt.Errorf("open %s: not opened", cfg.CameraDevice)
		}

		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))
		logger.Info("📷 Camera %s opened at %dx%d", cfg.CameraDevice, cfg.FrameWidth, cfg.FrameHeight)

		return &Device{capture: vc, mat: gocv.NewMat()}, nil
	}
}

// Read is only ever called from the acquisition goroutine.
func (d *Device) Read() ([]byte, int, int, error) {
	if ok := d.capture.Read(&d.mat); !ok || d.mat.Empty() {
		return nil, 0, 0, capture.ErrTransientRead
	}

	buf, err := gocv.IMEncode(".jpg", d.mat)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: encode: %v", capture.ErrTransientRead, err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, d.mat.Cols(), d.mat.Rows(), nil
}

func (d *Device) Close() error {
	d.mat.Close()
	return d.capture.Close()
}
