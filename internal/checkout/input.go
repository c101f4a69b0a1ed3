package checkout

import (
	"image"
	"strings"
)

type InputKind int

const (
	InputKey InputKind = iota
	InputPointer
	InputAction
)

// Input is raw operator input from any presenter: a key press, a pointer
// press in live-view coordinates, or a named action from a rendered button.
type Input struct {
	Kind   InputKind
	Key    int
	X, Y   int
	Action string
}

func KeyInput(key int) Input { return Input{Kind: InputKey, Key: key} }
func PointerInput(x, y int) Input { return Input{Kind: InputPointer, X: x, Y: y} }
func ActionInput(action string) Input { return Input{Kind: InputAction, Action: action} }

// Button is a clickable region on the live view.
type Button struct {
	Label string
	Event Event
	Rect  image.Rectangle
}

// LiveButtons is the button row drawn over the live feed.
var LiveButtons = []Button{
	{Label: "Scan", Event: EventScan, Rect: image.Rect(30, 30, 150, 80)},
	{Label: "Retry", Event: EventRetry, Rect: image.Rect(180, 30, 300, 80)},
	{Label: "Quit", Event: EventQuit, Rect: image.Rect(330, 30, 450, 80)},
}

// KeyBindings maps key codes to events. c/e/q work on the live view; the rest
// drive the review and payment screens when no pointer is available.
var KeyBindings = map[int]Event{
	'c': EventScan,
	'e': EventRetry,
	'q': EventQuit,
	'k': EventCheckout,
	'1': EventSelectQR,
	'2': EventSelectCash,
	'x': EventClose,
}

// Normalize turns any input into a single event. Pointer presses only hit
// the live buttons, which are visible in every state.
func Normalize(in Input) Event {
	switch in.Kind {
	case InputKey:
		key := in.Key
		if key >= 'A' && key <= 'Z' {
			key += 'a' - 'A'
		}
		if ev, ok := KeyBindings[key]; ok {
			return ev
		}
	case InputPointer:
		pt := image.Pt(in.X, in.Y)
		for _, b := range LiveButtons {
			if pt.In(inner(b.Rect)) {
				return b.Event
			}
		}
	case InputAction:
		return ParseEvent(strings.TrimSpace(in.Action))
	}
	return EventNone
}

// inner shrinks r by one pixel on each side; edges are not part of a button.
func inner(r image.Rectangle) image.Rectangle {
	return image.Rect(r.Min.X+1, r.Min.Y+1, r.Max.X, r.Max.Y)
}
