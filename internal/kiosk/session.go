// Package kiosk runs the checkout display loop for one kiosk session.
package kiosk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kiosk/internal/checkout"
	"kiosk/internal/dto"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
)

type Options struct {
	FrameSkip    int           // process every Nth acquired frame
	TickInterval time.Duration // display loop period
}

type Stats struct {
	FramesSeen        uint64
	FramesProcessed   uint64
	DetectionFailures uint64
	Snapshots         uint64
}

// Session owns everything the display loop touches. All of its state is
// confined to the goroutine calling Run (or Tick/HandleInput in tests).
type Session struct {
	ID string

	source    FrameSource
	processor Processor
	presenter Presenter
	saver     SnapshotSaver
	machine   *checkout.Machine
	logger    *logger.Logger

	frameSkip int
	tick      time.Duration

	lastSeq          uint64
	lastProcessedSeq uint64
	lastFrame        *frame.Frame
	lastResult       ledger.Result
	stats            Stats
}

func NewSession(source FrameSource, processor Processor, presenter Presenter, saver SnapshotSaver, logger *logger.Logger, opts Options) *Session {
	if opts.FrameSkip < 1 {
		opts.FrameSkip = 1
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 15 * time.Millisecond
	}
	return &Session{
		ID:        uuid.NewString(),
		source:    source,
		processor: processor,
		presenter: presenter,
		saver:     saver,
		machine:   checkout.NewMachine(),
		logger:    logger,
		frameSkip: opts.FrameSkip,
		tick:      opts.TickInterval,
	}
}

func (s *Session) State() checkout.State {
	return s.machine.State()
}

func (s *Session) Stats() Stats {
	return s.stats
}

// Run drives the loop until the machine reaches Closed. Cancelling ctx is
// treated as a quit so acquisition is always stopped before Run returns.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("🛒 Kiosk session %s started", s.ID)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	inputs := s.presenter.Inputs()
	for s.machine.State().Kind != checkout.Closed {
		select {
		case <-ctx.Done():
			s.Dispatch(checkout.EventQuit)
			return ctx.Err()
		case in, ok := <-inputs:
			if !ok {
				inputs = nil
				continue
			}
			s.HandleInput(in)
		case <-ticker.C:
			s.Tick()
		}
	}

	s.logger.Info("🛒 Kiosk session %s closed (%d frames processed)", s.ID, s.stats.FramesProcessed)
	return nil
}

// Tick runs one display iteration: pump presenters, then in Live process the
// newest frame once at least FrameSkip frames were acquired since the last
// processed one.
func (s *Session) Tick() {
	if p, ok := s.presenter.(Poller); ok {
		p.Poll()
	}
	if s.machine.State().Kind != checkout.Live {
		return
	}

	f := s.source.Latest()
	if f == nil || f.Seq == s.lastSeq {
		return
	}
	s.lastSeq = f.Seq
	s.stats.FramesSeen++

	if f.Seq-s.lastProcessedSeq < uint64(s.frameSkip) {
		return
	}
	s.lastProcessedSeq = f.Seq

	if err := s.process(f); err != nil {
		s.stats.DetectionFailures++
		s.logger.Error("Skipping frame %d: %v", f.Seq, err)
	}
}

// process keeps the previous ledger when detection fails or panics.
func (s *Session) process(f *frame.Frame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ledger.ErrDetection, r)
		}
	}()

	res, err := s.processor.Process(f)
	if err != nil {
		return err
	}

	s.machine.UpdateLive(res.Ledger, f.Seq)
	s.lastFrame = f
	s.lastResult = res
	s.stats.FramesProcessed++

	if err := s.presenter.RenderLive(f, res); err != nil {
		s.logger.Warning("Live render failed: %v", err)
	}
	return nil
}

func (s *Session) HandleInput(in checkout.Input) checkout.Transition {
	return s.Dispatch(checkout.Normalize(in))
}

// Dispatch feeds ev to the state machine and carries out its effects.
func (s *Session) Dispatch(ev checkout.Event) checkout.Transition {
	tr := s.machine.Handle(ev)
	if !tr.Accepted {
		if ev != checkout.EventNone {
			s.logger.Info("Ignoring %s in state %s", ev, tr.From.Kind)
		}
		return tr
	}

	s.logger.Info("State %s -> %s on %s", tr.From.Kind, tr.To.Kind, ev)
	if tr.To.Kind == checkout.Live {
		s.lastFrame = nil
		s.lastResult = ledger.Result{}
	}
	for _, effect := range tr.Effects {
		s.apply(effect, tr.To)
	}
	return tr
}

func (s *Session) apply(effect checkout.Effect, state checkout.State) {
	var err error
	switch effect.Kind {
	case checkout.EffectSaveSnapshot:
		s.saveSnapshot(state.Receipt)
	case checkout.EffectOpenReview:
		err = s.presenter.RenderReceipt(state.Receipt)
	case checkout.EffectCloseReview:
		err = s.presenter.Close(checkout.SurfaceReview)
	case checkout.EffectOpenPayment:
		err = s.presenter.RenderPayment(state.Receipt)
	case checkout.EffectClosePayment:
		err = s.presenter.Close(checkout.SurfacePayment)
	case checkout.EffectOpenConfirmation:
		err = s.presenter.RenderConfirmation(effect.Payment, state.Receipt)
	case checkout.EffectCloseConfirmation:
		err = s.presenter.Close(checkout.SurfaceConfirmation)
	case checkout.EffectCloseAll:
		err = s.presenter.CloseAll()
	case checkout.EffectStopCapture:
		s.source.Stop()
	}
	if err != nil {
		s.logger.Warning("Presenter failed on effect %d: %v", effect.Kind, err)
	}
}

func (s *Session) saveSnapshot(receipt *ledger.Receipt) {
	if s.saver == nil {
		return
	}
	if s.lastFrame == nil {
		s.logger.Warning("No processed frame to snapshot for receipt %s", receipt.ID)
		return
	}

	id, err := s.saver.SaveSnapshot(dto.Capture{
		SessionID: s.ID,
		Frame:     s.lastFrame,
		Receipt:   receipt,
		Overlay:   s.lastResult.Overlay,
	})
	if err != nil {
		s.logger.Error("Snapshot for receipt %s not saved: %v", receipt.ID, err)
		return
	}
	s.stats.Snapshots++
	s.logger.Info("📸 Snapshot queued: %s", id)
}
