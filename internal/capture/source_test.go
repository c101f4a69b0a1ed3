package capture

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/internal/logger"
)

// fakeDevice produces numbered frames; reads listed in failOn return an error.
type fakeDevice struct {
	mu     sync.Mutex
	reads  int
	failOn map[int]bool
	panics map[int]bool
	closed atomic.Bool
	delay  time.Duration
}

func (d *fakeDevice) Read() ([]byte, int, int, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.mu.Lock()
	d.reads++
	n := d.reads
	d.mu.Unlock()

	if d.panics[n] {
		panic("driver exploded")
	}
	if d.failOn[n] {
		return nil, 0, 0, errors.New("usb hiccup")
	}
	return []byte{byte(n)}, 960, 720, nil
}

func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

func openerFor(d *fakeDevice) Opener {
	return func() (Device, error) { return d, nil }
}

func waitForFrames(t *testing.T, s *Source, n uint64) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Stats().Frames >= n }, 2*time.Second, time.Millisecond)
}

func TestSource_LatestBeforeStartIsNil(t *testing.T) {
	s := NewSource(logger.Discard(), time.Millisecond)
	assert.Nil(t, s.Latest())
}

func TestSource_DeviceUnavailable(t *testing.T) {
	s := NewSource(logger.Discard(), time.Millisecond)

	err := s.Start(func() (Device, error) { return nil, errors.New("no /dev/video0") })

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	assert.Nil(t, s.Latest())
	assert.Equal(t, uint64(0), s.Stats().Frames)

	// Nothing is running, Stop still behaves.
	s.Stop()
}

func TestSource_PublishesFrames(t *testing.T) {
	dev := &fakeDevice{delay: time.Millisecond}
	s := NewSource(logger.Discard(), time.Millisecond)
	require.NoError(t, s.Start(openerFor(dev)))
	defer s.Stop()

	waitForFrames(t, s, 3)

	f := s.Latest()
	require.NotNil(t, f)
	assert.GreaterOrEqual(t, f.Seq, uint64(3))
	assert.Equal(t, 960, f.Width)
	assert.Equal(t, 720, f.Height)
}

func TestSource_StartTwice(t *testing.T) {
	dev := &fakeDevice{delay: time.Millisecond}
	s := NewSource(logger.Discard(), time.Millisecond)
	require.NoError(t, s.Start(openerFor(dev)))
	defer s.Stop()

	assert.ErrorIs(t, s.Start(openerFor(dev)), ErrAlreadyRunning)
}

func TestSource_TransientFailuresDoNotStopAcquisition(t *testing.T) {
	dev := &fakeDevice{
		failOn: map[int]bool{1: true, 2: true},
		panics: map[int]bool{3: true},
	}
	s := NewSource(logger.Discard(), time.Millisecond)
	require.NoError(t, s.Start(openerFor(dev)))

	waitForFrames(t, s, 2)
	s.Stop()

	st := s.Stats()
	assert.Equal(t, uint64(3), st.ReadFailures)
	f := s.Latest()
	require.NotNil(t, f)
	assert.Equal(t, st.Frames, f.Seq, "sequence counts published frames only")
}

func TestSource_StopHaltsPublication(t *testing.T) {
	dev := &fakeDevice{delay: 100 * time.Microsecond}
	s := NewSource(logger.Discard(), time.Millisecond)
	require.NoError(t, s.Start(openerFor(dev)))

	waitForFrames(t, s, 5)
	s.Stop()

	assert.True(t, dev.closed.Load(), "device released on stop")
	last := s.Latest()
	require.NotNil(t, last)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, last.Seq, s.Latest().Seq, "no frame published after Stop returned")
	assert.Equal(t, last.Seq, s.Stats().Frames)
}

func TestSource_StopIsIdempotent(t *testing.T) {
	dev := &fakeDevice{delay: time.Millisecond}
	s := NewSource(logger.Discard(), time.Millisecond)
	require.NoError(t, s.Start(openerFor(dev)))

	s.Stop()
	s.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()

	assert.ErrorIs(t, s.Start(openerFor(dev)), ErrStopped)
}
