// Package styles provides shared lipgloss styles for CLI output.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/pulse/internal/core/activity"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorRed    = lipgloss.Color("#f7768e")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorPurple = lipgloss.Color("#bb9af7")
	ColorCyan   = lipgloss.Color("#7dcfff")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

var categoryColors = map[activity.Category]lipgloss.Color{
	activity.CategoryProductive:    ColorGreen,
	activity.CategoryLearning:      ColorCyan,
	activity.CategoryCommunication: ColorBlue,
	activity.CategoryNeutral:       ColorWhite,
	activity.CategoryBreak:         ColorGray,
	activity.CategoryEntertainment: ColorPurple,
	activity.CategoryDistracting:   ColorRed,
}

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// CategoryColor returns the display color of a category, white when unknown.
func CategoryColor(c activity.Category) lipgloss.Color {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return ColorWhite
}

// Bar renders a horizontal bar width cells wide, filled to fraction. The
// fraction is clamped to [0, 1].
func Bar(fraction float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}
	fraction = min(max(fraction, 0), 1)

	filled := int(fraction*float64(width) + 0.5)
	full := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled))
	empty := DividerStyle.Render(strings.Repeat("░", width-filled))
	return full + empty
}

// Score renders a 0-100 productivity score colored by band.
func Score(score float64, text string) string {
	color := ColorRed
	switch {
	case score >= 70:
		color = ColorGreen
	case score >= 40:
		color = ColorYellow
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Render(text)
}
