package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input Input
		want  Event
	}{
		{"key c", KeyInput('c'), EventScan},
		{"key upper C", KeyInput('C'), EventScan},
		{"key e", KeyInput('e'), EventRetry},
		{"key q", KeyInput('q'), EventQuit},
		{"key k", KeyInput('k'), EventCheckout},
		{"key 1", KeyInput('1'), EventSelectQR},
		{"key 2", KeyInput('2'), EventSelectCash},
		{"key x", KeyInput('x'), EventClose},
		{"unbound key", KeyInput('z'), EventNone},
		{"no key", KeyInput(-1), EventNone},

		{"scan button", PointerInput(90, 55), EventScan},
		{"retry button", PointerInput(200, 40), EventRetry},
		{"quit button", PointerInput(449, 79), EventQuit},
		{"scan left edge", PointerInput(30, 55), EventNone},
		{"scan right edge", PointerInput(150, 55), EventNone},
		{"between buttons", PointerInput(165, 55), EventNone},
		{"below buttons", PointerInput(90, 200), EventNone},

		{"action checkout", ActionInput("checkout"), EventCheckout},
		{"action selectQr", ActionInput("selectQr"), EventSelectQR},
		{"action selectCash", ActionInput(" selectCash "), EventSelectCash},
		{"action close", ActionInput("close"), EventClose},
		{"unknown action", ActionInput("refund"), EventNone},
		{"empty action", ActionInput(""), EventNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestKeyAndPointerAgree(t *testing.T) {
	keys := map[string]int{"Scan": 'c', "Retry": 'e', "Quit": 'q'}

	for _, b := range LiveButtons {
		center := PointerInput((b.Rect.Min.X+b.Rect.Max.X)/2, (b.Rect.Min.Y+b.Rect.Max.Y)/2)
		assert.Equal(t, b.Event, Normalize(center), b.Label)
		assert.Equal(t, b.Event, Normalize(KeyInput(keys[b.Label])), b.Label)
	}
}

func TestEventNames(t *testing.T) {
	for _, ev := range Events {
		assert.Equal(t, ev, ParseEvent(ev.String()))
	}
	assert.Equal(t, "unknown", Event(99).String())
	assert.Equal(t, EventNone, ParseEvent("none"))
}
