// Package capture runs camera acquisition on a background goroutine and
// exposes the newest frame through a latest-wins slot.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"kiosk/internal/frame"
	"kiosk/internal/logger"
)

var (
	// ErrDeviceUnavailable is returned by Start when the camera cannot be opened.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	// ErrTransientRead marks a single failed frame read; acquisition continues.
	ErrTransientRead = errors.New("transient frame read failure")
	// ErrStopped is returned by Start on a source that was already stopped.
	ErrStopped = errors.New("frame source stopped")
	// ErrAlreadyRunning is returned by Start while acquisition is active.
	ErrAlreadyRunning = errors.New("frame source already running")
)

// Device is an opened camera.
type Device interface {
	// Read blocks until the next frame is available and returns it JPEG-encoded.
	Read() (data []byte, width, height int, err error)
	Close() error
}

// Opener opens the camera device. It is called once per Start.
type Opener func() (Device, error)

// Stats are acquisition counters.
type Stats struct {
	Frames       uint64
	ReadFailures uint64
	Slot         frame.SlotStats
}

// Source owns the camera device and the acquisition loop.
type Source struct {
	slot       *frame.Slot
	logger     *logger.Logger
	retryDelay time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool

	seq          uint64
	frames       atomic.Uint64
	readFailures atomic.Uint64
}

func NewSource(logger *logger.Logger, retryDelay time.Duration) *Source {
	return &Source{
		slot:       frame.NewSlot(),
		logger:     logger,
		retryDelay: retryDelay,
	}
}

// Start opens the device and begins acquisition in the background.
// If the device cannot be opened no goroutine is started.
func (s *Source) Start(open Opener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	device, err := open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.acquire(ctx, device, s.done)

	s.logger.Info("📷 Frame acquisition started")
	return nil
}

// Latest returns the most recent frame or nil. It never blocks.
func (s *Source) Latest() *frame.Frame {
	return s.slot.Latest()
}

// Stop ends acquisition and waits for the loop to exit. No frame is published
// after Stop returns. Safe to call more than once.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
	s.slot.Close()

	s.logger.Info("🛑 Frame acquisition stopped after %d frames", s.frames.Load())
}

func (s *Source) Stats() Stats {
	return Stats{
		Frames:       s.frames.Load(),
		ReadFailures: s.readFailures.Load(),
		Slot:         s.slot.Stats(),
	}
}

func (s *Source) acquire(ctx context.Context, device Device, done chan struct{}) {
	defer close(done)
	defer func() {
		if err := device.Close(); err != nil {
			s.logger.Warning("Error closing capture device: %v", err)
		}
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		data, width, height, err := s.read(device)
		if err != nil {
			s.readFailures.Add(1)
			s.logger.Warning("Frame read failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryDelay):
			}
			continue
		}

		// Stop may have been requested while Read was blocked.
		if ctx.Err() != nil {
			return
		}

		s.seq++
		s.slot.Publish(&frame.Frame{
			Seq:        s.seq,
			Data:       data,
			Width:      width,
			Height:     height,
			CapturedAt: time.Now(),
		})
		s.frames.Add(1)
	}
}

// read isolates device panics so a faulty driver cannot take the loop down.
func (s *Source) read(device Device) (data []byte, width, height int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: device panic: %v", ErrTransientRead, r)
		}
	}()

	data, width, height, err = device.Read()
	if err != nil && !errors.Is(err, ErrTransientRead) {
		err = fmt.Errorf("%w: %v", ErrTransientRead, err)
	}
	return data, width, height, err
}
