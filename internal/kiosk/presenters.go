package kiosk

import (
	"errors"
	"sync"

	"kiosk/internal/checkout"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
)

// Presenters fans rendering out to several presenters and merges their input.
type Presenters struct {
	list   []Presenter
	inputs chan checkout.Input
	wg     sync.WaitGroup
}

func NewPresenters(list ...Presenter) *Presenters {
	p := &Presenters{
		list:   list,
		inputs: make(chan checkout.Input, 16),
	}
	for _, pr := range list {
		ch := pr.Inputs()
		if ch == nil {
			continue
		}
		p.wg.Add(1)
		go func(ch <-chan checkout.Input) {
			defer p.wg.Done()
			for in := range ch {
				p.inputs <- in
			}
		}(ch)
	}
	go func() {
		p.wg.Wait()
		close(p.inputs)
	}()
	return p
}

func (p *Presenters) each(fn func(Presenter) error) error {
	var errs []error
	for _, pr := range p.list {
		if err := fn(pr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Presenters) RenderLive(f *frame.Frame, res ledger.Result) error {
	return p.each(func(pr Presenter) error { return pr.RenderLive(f, res) })
}

func (p *Presenters) RenderReceipt(r *ledger.Receipt) error {
	return p.each(func(pr Presenter) error { return pr.RenderReceipt(r) })
}

func (p *Presenters) RenderPayment(r *ledger.Receipt) error {
	return p.each(func(pr Presenter) error { return pr.RenderPayment(r) })
}

func (p *Presenters) RenderConfirmation(kind checkout.Payment, r *ledger.Receipt) error {
	return p.each(func(pr Presenter) error { return pr.RenderConfirmation(kind, r) })
}

func (p *Presenters) Close(s checkout.Surface) error {
	return p.each(func(pr Presenter) error { return pr.Close(s) })
}

func (p *Presenters) CloseAll() error {
	return p.each(func(pr Presenter) error { return pr.CloseAll() })
}

func (p *Presenters) Inputs() <-chan checkout.Input {
	return p.inputs
}

func (p *Presenters) Poll() {
	for _, pr := range p.list {
		if poller, ok := pr.(Poller); ok {
			poller.Poll()
		}
	}
}
