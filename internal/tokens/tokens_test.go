package tokens

import "testing"

func TestEstimate(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 1},
		{"abcdefgh", 2},
		{"abcdefghi", 2},
	}
	for _, c := range cases {
		if got := Estimate(c.text); got != c.want {
			t.Errorf("Estimate(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestEstimateMultiByte(t *testing.T) {
	// 8 runes, each multi-byte; rune count drives the estimate, not byte length.
	text := "日本語日本語日本"
	if got := Estimate(text); got != 2 {
		t.Errorf("Estimate(%q) = %d, want 2", text, got)
	}
}
