package styles

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders md for a terminal of the given width. The source is
// returned unchanged when rendering fails.
func RenderMarkdown(md string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}

	rendered, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(rendered, "\n") + "\n"
}
