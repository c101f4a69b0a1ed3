// Package display presents the kiosk in local OpenCV windows. All methods
// must be called from the goroutine that created the Window, which should be
// locked to the main OS thread.
package display

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"kiosk/internal/checkout"
	"kiosk/internal/dto"
	"kiosk/internal/frame"
	"kiosk/internal/ledger"
	"kiosk/internal/logger"
	"kiosk/internal/service/ai"
)

const (
	liveTitle = "Kiosk"

	// OpenCV's EVENT_LBUTTONDOWN
	eventLeftButtonDown = 1

	sheetCols = 640
	sheetRows = 480
)

var (
	white = gocv.NewScalar(255, 255, 255, 0)
	black = color.RGBA{}
	gray  = color.RGBA{R: 120, G: 120, B: 120}
)

// Window implements kiosk.Presenter over highgui windows and turns key
// presses and clicks on the live view into input.
type Window struct {
	live   *gocv.Window
	sheets map[checkout.Surface]*gocv.Window
	inputs chan checkout.Input
	logger *logger.Logger
}

func NewWindow(logger *logger.Logger) *Window {
	w := &Window{
		live:   gocv.NewWindow(liveTitle),
		sheets: make(map[checkout.Surface]*gocv.Window),
		inputs: make(chan checkout.Input, 16),
		logger: logger,
	}
	w.live.SetMouseHandler(w.onMouse, nil)
	return w
}

// onMouse runs inside WaitKey, on the thread that polls the window.
func (w *Window) onMouse(event, x, y, flags int, _ interface{}) {
	if event != eventLeftButtonDown {
		return
	}
	w.submit(checkout.PointerInput(x, y))
}

func (w *Window) submit(in checkout.Input) {
	select {
	case w.inputs <- in:
	default:
		w.logger.Warning("Input dropped, queue full")
	}
}

func (w *Window) RenderLive(f *frame.Frame, res ledger.Result) error {
	if w.live == nil {
		return nil
	}
	mat, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("failed to decode frame %d: %v", f.Seq, err)
	}
	defer mat.Close()

	if err := ai.DrawLiveView(&mat, res); err != nil {
		return err
	}
	w.live.IMShow(mat)
	return nil
}

func (w *Window) RenderReceipt(r *ledger.Receipt) error {
	lines := []line{{text: "Receipt " + shortID(r.ID), scale: 0.9}}
	lines = append(lines, line{text: fmt.Sprintf("%-12s %9s %9s %9s", "Item", "Price", "Quantity", "Total"), scale: 0.6})
	for _, item := range dto.LineItems(r.Entries()) {
		lines = append(lines, line{
			text:  fmt.Sprintf("%-12s %9s %9d %9s", item.Class, item.UnitPrice, item.Count, item.Total),
			scale: 0.6,
			faint: item.UnitPrice == dto.Unpriced,
		})
	}
	lines = append(lines,
		line{text: "Grand total: $" + r.GrandTotal().StringFixed(2), scale: 0.8},
		line{text: "k: checkout   e: retry   q: quit", scale: 0.5, faint: true},
	)
	return w.showSheet(checkout.SurfaceReview, "Receipt", lines)
}

func (w *Window) RenderPayment(r *ledger.Receipt) error {
	return w.showSheet(checkout.SurfacePayment, "Payment", []line{
		{text: "Amount due: $" + r.GrandTotal().StringFixed(2), scale: 0.9},
		{text: "1: QR code", scale: 0.7},
		{text: "2: Cash", scale: 0.7},
		{text: "x: back to receipt", scale: 0.5, faint: true},
	})
}

func (w *Window) RenderConfirmation(kind checkout.Payment, r *ledger.Receipt) error {
	msg := "Scan the QR code to pay"
	if kind == checkout.PaymentCash {
		msg = "Please pay in cash at the counter"
	}
	return w.showSheet(checkout.SurfaceConfirmation, "Confirmation", []line{
		{text: msg, scale: 0.8},
		{text: "$" + r.GrandTotal().StringFixed(2), scale: 1.2},
		{text: "x: close", scale: 0.5, faint: true},
	})
}

func (w *Window) Close(s checkout.Surface) error {
	sheet, ok := w.sheets[s]
	if !ok {
		return nil
	}
	delete(w.sheets, s)
	return sheet.Close()
}

func (w *Window) CloseAll() error {
	for s := range w.sheets {
		w.Close(s)
	}
	if w.live == nil {
		return nil
	}
	err := w.live.Close()
	w.live = nil
	return err
}

func (w *Window) Inputs() <-chan checkout.Input {
	return w.inputs
}

// Poll pumps the highgui event loop and forwards a pressed key, if any.
func (w *Window) Poll() {
	if w.live == nil {
		return
	}
	key := w.live.WaitKey(1)
	if key < 0 {
		return
	}
	w.submit(checkout.KeyInput(key & 0xFF))
}

type line struct {
	text  string
	scale float64
	faint bool
}

func (w *Window) showSheet(s checkout.Surface, title string, lines []line) error {
	sheet := gocv.NewMatWithSizeFromScalar(white, sheetRows, sheetCols, gocv.MatTypeCV8UC3)
	defer sheet.Close()

	y := 40
	for _, l := range lines {
		c := black
		if l.faint {
			c = gray
		}
		if err := gocv.PutText(&sheet, l.text, image.Pt(20, y), gocv.FontHersheySimplex, l.scale, c, 1); err != nil {
			return fmt.Errorf("failed to draw %s: %v", title, err)
		}
		y += int(40 * l.scale)
	}

	win, ok := w.sheets[s]
	if !ok {
		win = gocv.NewWindow(title)
		w.sheets[s] = win
	}
	win.IMShow(sheet)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
