package ai

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"kiosk/internal/checkout"
	"kiosk/internal/ledger"
)

var (
	pricedColor   = color.RGBA{G: 255}
	unpricedColor = color.RGBA{R: 255}
	buttonColor   = color.RGBA{R: 200, G: 200, B: 200}
	textColor     = color.RGBA{}
)

// DrawOverlay draws detection boxes and labels onto a JPEG and returns the
// re-encoded image. Priced items are green, unpriced red.
func DrawOverlay(jpeg []byte, overlay []ledger.OverlayItem) ([]byte, error) {
	mat, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if err := drawDetections(&mat, overlay); err != nil {
		return nil, err
	}
	return encode(mat)
}

func drawDetections(mat *gocv.Mat, overlay []ledger.OverlayItem) error {
	for _, item := range overlay {
		c := unpricedColor
		if item.Price.IsPriced() {
			c = pricedColor
		}

		rect := image.Rect(item.Box.X1, item.Box.Y1, item.Box.X2, item.Box.Y2)
		if err := gocv.Rectangle(mat, rect, c, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		pt := image.Pt(item.Box.X1, item.Box.Y1-10)
		if err := gocv.PutText(mat, item.Label(), pt, gocv.FontHersheySimplex, 0.5, c, 2); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}
	return nil
}

// DrawButtons draws the live view button row.
func DrawButtons(mat *gocv.Mat, buttons []checkout.Button) error {
	for _, b := range buttons {
		if err := gocv.Rectangle(mat, b.Rect, buttonColor, -1); err != nil {
			return fmt.Errorf("failed to draw button %s: %v", b.Label, err)
		}
		pt := image.Pt(b.Rect.Min.X+10, b.Rect.Max.Y-15)
		if err := gocv.PutText(mat, b.Label, pt, gocv.FontHersheySimplex, 0.8, textColor, 2); err != nil {
			return fmt.Errorf("failed to draw button %s: %v", b.Label, err)
		}
	}
	return nil
}

// DrawLiveView draws detections, the running total and the buttons onto mat.
func DrawLiveView(mat *gocv.Mat, res ledger.Result) error {
	if err := drawDetections(mat, res.Overlay); err != nil {
		return err
	}

	y := 110
	for _, e := range res.Ledger.Entries() {
		line := fmt.Sprintf("%s x%d", e.Class, e.Count)
		c := unpricedColor
		if total, ok := e.Total(); ok {
			line += " = $" + total.StringFixed(2)
			c = pricedColor
		}
		if err := gocv.PutText(mat, line, image.Pt(30, y), gocv.FontHersheySimplex, 0.6, c, 2); err != nil {
			return fmt.Errorf("failed to draw ledger: %v", err)
		}
		y += 25
	}

	total := "Total: $" + res.Ledger.GrandTotal().StringFixed(2)
	if err := gocv.PutText(mat, total, image.Pt(30, y+10), gocv.FontHersheySimplex, 0.8, pricedColor, 2); err != nil {
		return fmt.Errorf("failed to draw total: %v", err)
	}

	return DrawButtons(mat, checkout.LiveButtons)
}

func encode(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
