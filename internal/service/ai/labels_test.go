package ai

import "testing"

func TestCocoLabel(t *testing.T) {
	tests := []struct {
		id       int
		expected string
	}{
		{53, "apple"},
		{52, "banana"},
		{55, "orange"},
		{44, "bottle"},
		{74, "mouse"},
		{57, "carrot"},
		{62, "chair"},
		{12, "unknown12"},
	}

	for _, tt := range tests {
		if got := cocoLabel(tt.id); got != tt.expected {
			t.Errorf("cocoLabel(%d) = %q, expected %q", tt.id, got, tt.expected)
		}
	}
}
