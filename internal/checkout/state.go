// Package checkout is the kiosk's scan/review/pay state machine.
package checkout

import "kiosk/internal/ledger"

type Kind int

const (
	Live Kind = iota
	Reviewing
	SelectingPayment
	Closed
)

func (k Kind) String() string {
	switch k {
	case Live:
		return "live"
	case Reviewing:
		return "reviewing"
	case SelectingPayment:
		return "selectingPayment"
	case Closed:
		return "closed"
	}
	return "unknown"
}

type Event int

const (
	EventNone Event = iota
	EventScan
	EventRetry
	EventQuit
	EventCheckout
	EventSelectQR
	EventSelectCash
	EventClose
)

// Events lists every event the machine understands, in declaration order.
var Events = []Event{EventScan, EventRetry, EventQuit, EventCheckout, EventSelectQR, EventSelectCash, EventClose}

var eventNames = map[Event]string{
	EventNone:       "none",
	EventScan:       "scan",
	EventRetry:      "retry",
	EventQuit:       "quit",
	EventCheckout:   "checkout",
	EventSelectQR:   "selectQr",
	EventSelectCash: "selectCash",
	EventClose:      "close",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseEvent maps an action name ("scan", "selectQr", ...) to its event.
func ParseEvent(name string) Event {
	for e, n := range eventNames {
		if n == name {
			return e
		}
	}
	return EventNone
}

type Payment int

const (
	PaymentNone Payment = iota
	PaymentQR
	PaymentCash
)

func (p Payment) String() string {
	switch p {
	case PaymentQR:
		return "qr"
	case PaymentCash:
		return "cash"
	}
	return "none"
}

// State is the machine's current state. Receipt is set in Reviewing and
// SelectingPayment; Confirmation is set while a payment confirmation is open.
type State struct {
	Kind         Kind
	Receipt      *ledger.Receipt
	Confirmation Payment
}

type Surface int

const (
	SurfaceReview Surface = iota
	SurfacePayment
	SurfaceConfirmation
)

func (s Surface) String() string {
	switch s {
	case SurfaceReview:
		return "review"
	case SurfacePayment:
		return "payment"
	case SurfaceConfirmation:
		return "confirmation"
	}
	return "unknown"
}

type EffectKind int

const (
	EffectSaveSnapshot EffectKind = iota
	EffectOpenReview
	EffectCloseReview
	EffectOpenPayment
	EffectClosePayment
	EffectOpenConfirmation
	EffectCloseConfirmation
	EffectCloseAll
	EffectStopCapture
)

// Effect is a side effect the caller must carry out after a transition.
type Effect struct {
	Kind    EffectKind
	Payment Payment // for EffectOpenConfirmation
}

// Transition describes the outcome of one event.
type Transition struct {
	Event    Event
	From     State
	To       State
	Accepted bool
	Effects  []Effect
}
