package kiosk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiosk/internal/catalog"
	"kiosk/internal/checkout"
	"kiosk/internal/dto"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
)

type fakeSource struct {
	mu      sync.Mutex
	latest  *frame.Frame
	stopped int
}

func (s *fakeSource) push(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &frame.Frame{Seq: seq, Data: []byte{byte(seq)}}
}

func (s *fakeSource) Latest() *frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *fakeSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

// scriptedDetector returns detections keyed by frame sequence.
type scriptedDetector struct {
	byFrame map[uint64][]ledger.DetectedItem
	fail    map[uint64]bool
	panicOn map[uint64]bool
	calls   []uint64
}

func (d *scriptedDetector) Detect(f *frame.Frame) ([]ledger.DetectedItem, error) {
	d.calls = append(d.calls, f.Seq)
	if d.panicOn[f.Seq] {
		panic("model crashed")
	}
	if d.fail[f.Seq] {
		return nil, errors.New("inference error")
	}
	return d.byFrame[f.Seq], nil
}

type recordingPresenter struct {
	inputs chan checkout.Input
	calls  []string
	live   []ledger.Result
	shown  []*ledger.Receipt
	polls  int
	fail   bool
}

func newRecordingPresenter() *recordingPresenter {
	return &recordingPresenter{inputs: make(chan checkout.Input, 8)}
}

func (p *recordingPresenter) record(call string) error {
	p.calls = append(p.calls, call)
	if p.fail {
		return errors.New("surface gone")
	}
	return nil
}

func (p *recordingPresenter) RenderLive(f *frame.Frame, res ledger.Result) error {
	p.live = append(p.live, res)
	return p.record("live")
}

func (p *recordingPresenter) RenderReceipt(r *ledger.Receipt) error {
	p.shown = append(p.shown, r)
	return p.record("receipt")
}

func (p *recordingPresenter) RenderPayment(r *ledger.Receipt) error {
	return p.record("payment")
}

func (p *recordingPresenter) RenderConfirmation(kind checkout.Payment, r *ledger.Receipt) error {
	return p.record("confirmation:" + kind.String())
}

func (p *recordingPresenter) Close(s checkout.Surface) error {
	return p.record("close:" + s.String())
}

func (p *recordingPresenter) CloseAll() error {
	return p.record("closeAll")
}

func (p *recordingPresenter) Inputs() <-chan checkout.Input {
	return p.inputs
}

func (p *recordingPresenter) Poll() {
	p.polls++
}

type fakeSaver struct {
	captures []dto.Capture
	err      error
}

func (s *fakeSaver) SaveSnapshot(c dto.Capture) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.captures = append(s.captures, c)
	return "snap.jpg", nil
}

type fixture struct {
	source    *fakeSource
	detector  *scriptedDetector
	presenter *recordingPresenter
	saver     *fakeSaver
	session   *Session
}

func newFixture(t *testing.T, frameSkip int) *fixture {
	t.Helper()
	prices, err := catalog.New(map[string]decimal.Decimal{
		"apple":  decimal.NewFromInt(1),
		"banana": decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	f := &fixture{
		source:    &fakeSource{},
		detector:  &scriptedDetector{byFrame: map[uint64][]ledger.DetectedItem{}, fail: map[uint64]bool{}, panicOn: map[uint64]bool{}},
		presenter: newRecordingPresenter(),
		saver:     &fakeSaver{},
	}
	agg := ledger.NewAggregator(f.detector, prices, ledger.DefaultThreshold)
	f.session = NewSession(f.source, agg, f.presenter, f.saver, logger.Discard(), Options{FrameSkip: frameSkip, TickInterval: time.Millisecond})
	return f
}

func items(classes ...string) []ledger.DetectedItem {
	var out []ledger.DetectedItem
	for _, c := range classes {
		out = append(out, ledger.DetectedItem{Class: c, Confidence: 0.9})
	}
	return out
}

func TestSession_ProcessesEveryNthFrame(t *testing.T) {
	f := newFixture(t, 2)

	f.session.Tick() // nothing published yet
	for seq := uint64(1); seq <= 6; seq++ {
		f.source.push(seq)
		f.session.Tick()
		f.session.Tick() // same frame again is not counted
	}

	assert.Equal(t, []uint64{2, 4, 6}, f.detector.calls)
	st := f.session.Stats()
	assert.Equal(t, uint64(6), st.FramesSeen)
	assert.Equal(t, uint64(3), st.FramesProcessed)
	assert.Len(t, f.presenter.live, 3)
	assert.Equal(t, 13, f.presenter.polls)
}

func TestSession_FrameSkipCountsAcquiredFrames(t *testing.T) {
	tests := []struct {
		name      string
		frameSkip int
		seqs      []uint64
		expected  []uint64
	}{
		{"loop slower than camera", 2, []uint64{2, 4, 6, 8, 10, 12}, []uint64{2, 4, 6, 8, 10, 12}},
		{"uneven gaps", 3, []uint64{2, 5, 6, 9, 10, 11, 12}, []uint64{5, 9, 12}},
		{"every frame", 1, []uint64{3, 4, 9}, []uint64{3, 4, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.frameSkip)
			for _, seq := range tt.seqs {
				f.source.push(seq)
				f.session.Tick()
			}

			assert.Equal(t, tt.expected, f.detector.calls)
			assert.Equal(t, uint64(len(tt.seqs)), f.session.Stats().FramesSeen)
		})
	}
}

func TestSession_DetectionFailureKeepsPreviousLedger(t *testing.T) {
	f := newFixture(t, 1)
	f.detector.byFrame[1] = items("apple", "apple")
	f.detector.fail[2] = true
	f.detector.panicOn[3] = true

	for seq := uint64(1); seq <= 3; seq++ {
		f.source.push(seq)
		f.session.Tick()
	}

	assert.Equal(t, uint64(2), f.session.Stats().DetectionFailures)
	assert.Len(t, f.presenter.live, 1)

	tr := f.session.Dispatch(checkout.EventScan)
	require.True(t, tr.Accepted)
	assert.Equal(t, uint64(1), tr.To.Receipt.FrameSeq)
	assert.True(t, tr.To.Receipt.GrandTotal().Equal(decimal.NewFromInt(2)))
}

func TestSession_ScanFreezesAndSnapshots(t *testing.T) {
	f := newFixture(t, 1)
	f.detector.byFrame[1] = items("apple", "banana")
	f.detector.byFrame[2] = items("banana", "banana", "banana")

	f.source.push(1)
	f.session.Tick()

	tr := f.session.HandleInput(checkout.KeyInput('c'))
	require.Equal(t, checkout.Reviewing, tr.To.Kind)
	receipt := tr.To.Receipt

	require.Len(t, f.saver.captures, 1)
	assert.Equal(t, uint64(1), f.saver.captures[0].Frame.Seq)
	assert.Same(t, receipt, f.saver.captures[0].Receipt)
	assert.Len(t, f.saver.captures[0].Overlay, 2)
	assert.Equal(t, []string{"live", "receipt"}, f.presenter.calls)

	// Camera keeps running; the review must not change.
	f.source.push(2)
	f.session.Tick()
	assert.Equal(t, []uint64{1}, f.detector.calls, "no detection outside Live")
	assert.True(t, receipt.GrandTotal().Equal(decimal.NewFromInt(3)))
	assert.Same(t, receipt, f.session.State().Receipt)
}

func TestSession_SnapshotFailureDoesNotBlockTransition(t *testing.T) {
	f := newFixture(t, 1)
	f.saver.err = errors.New("disk full")
	f.source.push(1)
	f.session.Tick()

	tr := f.session.Dispatch(checkout.EventScan)

	assert.True(t, tr.Accepted)
	assert.Equal(t, checkout.Reviewing, f.session.State().Kind)
	assert.Equal(t, uint64(0), f.session.Stats().Snapshots)
}

func TestSession_PresenterErrorsAreNotFatal(t *testing.T) {
	f := newFixture(t, 1)
	f.presenter.fail = true
	f.source.push(1)
	f.session.Tick()

	f.session.Dispatch(checkout.EventScan)
	f.session.Dispatch(checkout.EventCheckout)

	assert.Equal(t, checkout.SelectingPayment, f.session.State().Kind)
}

func TestSession_FullCheckoutFlow(t *testing.T) {
	f := newFixture(t, 1)
	f.source.push(1)
	f.session.Tick()

	f.session.HandleInput(checkout.PointerInput(90, 55))
	f.session.HandleInput(checkout.ActionInput("checkout"))
	f.session.HandleInput(checkout.ActionInput("selectCash"))
	f.session.HandleInput(checkout.ActionInput("close"))
	f.session.HandleInput(checkout.ActionInput("retry"))

	assert.Equal(t, checkout.Live, f.session.State().Kind)
	assert.Equal(t, []string{
		"live", "receipt", "payment", "confirmation:cash",
		"close:confirmation", "close:payment", "close:review",
	}, f.presenter.calls)
}

func TestSession_RetryDropsPreviousFrame(t *testing.T) {
	f := newFixture(t, 1)
	f.detector.byFrame[1] = items("apple")
	f.detector.byFrame[2] = items("banana")
	f.source.push(1)
	f.session.Tick()

	f.session.Dispatch(checkout.EventScan)
	f.session.Dispatch(checkout.EventRetry)

	// no new frame processed yet
	tr := f.session.Dispatch(checkout.EventScan)
	require.True(t, tr.Accepted)
	assert.Equal(t, 0, tr.To.Receipt.Ledger().Len())
	assert.Len(t, f.saver.captures, 1, "no snapshot without a fresh frame")

	f.session.Dispatch(checkout.EventRetry)
	f.source.push(2)
	f.session.Tick()
	tr = f.session.Dispatch(checkout.EventScan)

	_, hasBanana := tr.To.Receipt.Ledger().Get("banana")
	assert.True(t, hasBanana)
	require.Len(t, f.saver.captures, 2)
	assert.Equal(t, uint64(2), f.saver.captures[1].Frame.Seq)
}

func TestSession_RunStopsOnQuit(t *testing.T) {
	f := newFixture(t, 1)
	f.detector.byFrame[1] = items("apple")
	f.source.push(1)

	done := make(chan error, 1)
	go func() { done <- f.session.Run(context.Background()) }()

	f.presenter.inputs <- checkout.KeyInput('q')

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on quit")
	}
	assert.Equal(t, checkout.Closed, f.session.State().Kind)
	assert.Equal(t, 1, f.source.stopped)
	assert.Contains(t, f.presenter.calls, "closeAll")
}

func TestSession_RunCancelledContextStopsCapture(t *testing.T) {
	f := newFixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.session.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop on cancel")
	}
	assert.Equal(t, 1, f.source.stopped)
	assert.Equal(t, checkout.Closed, f.session.State().Kind)
}

func TestSession_ClosedIgnoresEverything(t *testing.T) {
	f := newFixture(t, 1)
	f.session.Dispatch(checkout.EventQuit)
	f.source.push(1)

	f.session.Tick()
	for _, ev := range checkout.Events {
		assert.False(t, f.session.Dispatch(ev).Accepted)
	}

	assert.Empty(t, f.detector.calls)
	assert.Equal(t, 1, f.source.stopped)
}
