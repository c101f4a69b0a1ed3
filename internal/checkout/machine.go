package checkout

import "kiosk/internal/ledger"

// Machine owns the checkout state and the latest live ledger. It is not safe
// for concurrent use; it lives on the display loop.
type Machine struct {
	state   State
	live    ledger.Ledger
	liveSeq uint64
}

func NewMachine() *Machine {
	return &Machine{state: State{Kind: Live}, live: ledger.Empty()}
}

func (m *Machine) State() State {
	return m.state
}

// Live returns the most recent ledger accepted while in Live.
func (m *Machine) Live() (ledger.Ledger, uint64) {
	return m.live, m.liveSeq
}

// UpdateLive replaces the live ledger. Ignored outside Live so a frozen
// receipt never races with camera updates.
func (m *Machine) UpdateLive(l ledger.Ledger, frameSeq uint64) bool {
	if m.state.Kind != Live {
		return false
	}
	m.live = l
	m.liveSeq = frameSeq
	return true
}

// Handle applies ev. Every (state, event) pair is defined; pairs without a
// transition come back with Accepted=false and no effects.
func (m *Machine) Handle(ev Event) Transition {
	from := m.state
	to, effects, ok := m.next(from, ev)
	if !ok {
		return Transition{Event: ev, From: from, To: from}
	}
	m.state = to
	return Transition{Event: ev, From: from, To: to, Accepted: true, Effects: effects}
}

func (m *Machine) next(s State, ev Event) (State, []Effect, bool) {
	if s.Kind == Closed {
		return s, nil, false
	}
	if ev == EventQuit {
		return State{Kind: Closed}, []Effect{{Kind: EffectCloseAll}, {Kind: EffectStopCapture}}, true
	}

	switch s.Kind {
	case Live:
		if ev == EventScan {
			receipt := ledger.Freeze(m.live, m.liveSeq)
			return State{Kind: Reviewing, Receipt: receipt},
				[]Effect{{Kind: EffectSaveSnapshot}, {Kind: EffectOpenReview}}, true
		}

	case Reviewing:
		switch ev {
		case EventRetry:
			// Live starts over; the next scan needs a newly processed frame.
			m.live, m.liveSeq = ledger.Empty(), 0
			return State{Kind: Live}, []Effect{{Kind: EffectCloseReview}}, true
		case EventCheckout:
			return State{Kind: SelectingPayment, Receipt: s.Receipt}, []Effect{{Kind: EffectOpenPayment}}, true
		}

	case SelectingPayment:
		switch ev {
		case EventSelectQR, EventSelectCash:
			kind := PaymentQR
			if ev == EventSelectCash {
				kind = PaymentCash
			}
			var effects []Effect
			if s.Confirmation != PaymentNone {
				effects = append(effects, Effect{Kind: EffectCloseConfirmation})
			}
			effects = append(effects, Effect{Kind: EffectOpenConfirmation, Payment: kind})
			return State{Kind: SelectingPayment, Receipt: s.Receipt, Confirmation: kind}, effects, true
		case EventClose:
			var effects []Effect
			if s.Confirmation != PaymentNone {
				effects = append(effects, Effect{Kind: EffectCloseConfirmation})
			}
			effects = append(effects, Effect{Kind: EffectClosePayment})
			return State{Kind: Reviewing, Receipt: s.Receipt}, effects, true
		}
	}

	return s, nil, false
}
