package styles

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/hay-kot/pulse/internal/core/activity"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestBar(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		width    int
		want     string
	}{
		{"empty", 0, 4, "░░░░"},
		{"full", 1, 4, "████"},
		{"half", 0.5, 4, "██░░"},
		{"rounds", 0.3, 10, "███░░░░░░░"},
		{"clamped high", 2, 3, "███"},
		{"clamped low", -1, 3, "░░░"},
		{"zero width", 0.5, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Bar(tt.fraction, tt.width, ColorGreen))
		})
	}
}

func TestScore(t *testing.T) {
	assert.Equal(t, "73.3", Score(73.3, "73.3"))
}

func TestCategoryColor(t *testing.T) {
	for _, c := range activity.Categories {
		assert.NotEqual(t, lipgloss.Color(""), CategoryColor(c), string(c))
	}
	assert.Equal(t, ColorWhite, CategoryColor("bogus"))
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown("# Rules\n\nSome *text* here.\n", 60)
	assert.Contains(t, out, "Rules")
	assert.Contains(t, out, "text")
	assert.True(t, strings.HasSuffix(out, "\n"))
}
