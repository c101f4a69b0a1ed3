package kiosk

import (
	"kiosk/internal/checkout"
	"kiosk/internal/dto"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
)

// FrameSource is the acquisition side as seen from the display loop.
type FrameSource interface {
	Latest() *frame.Frame
	Stop()
}

// Processor builds a ledger from a frame.
type Processor interface {
	Process(f *frame.Frame) (ledger.Result, error)
}

// Presenter renders kiosk surfaces and reports operator input.
type Presenter interface {
	RenderLive(f *frame.Frame, res ledger.Result) error
	RenderReceipt(r *ledger.Receipt) error
	RenderPayment(r *ledger.Receipt) error
	RenderConfirmation(kind checkout.Payment, r *ledger.Receipt) error
	Close(s checkout.Surface) error
	CloseAll() error
	Inputs() <-chan checkout.Input
}

// Poller is implemented by presenters that must be pumped from the display
// loop, e.g. a window whose key events are only read on that thread.
type Poller interface {
	Poll()
}

// SnapshotSaver exports the frame captured on scan. It must not block.
type SnapshotSaver interface {
	SaveSnapshot(c dto.Capture) (string, error)
}
