package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		pct   float64
		width int
		want  string
	}{
		{0, 4, "░░░░   0%"},
		{50, 4, "██░░  50%"},
		{100, 4, "████ 100%"},
		{150, 2, "██ 100%"},
		{-5, 2, "░░   0%"},
		{50, 0, ""},
	}
	for _, tt := range tests {
		if got := ProgressBar(tt.pct, tt.width); got != tt.want {
			t.Errorf("ProgressBar(%v, %d) = %q, want %q", tt.pct, tt.width, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s    string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"photosynthesis", 6, "photo…"},
		{"abc", 1, "…"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.max, got, tt.want)
		}
	}
}

func TestKV(t *testing.T) {
	got := KV("Streak", 3)
	if !strings.HasPrefix(got, "Streak") || !strings.HasSuffix(got, "3") || len(got) != 15 {
		t.Errorf("KV() = %q", got)
	}
}
