package markdown

import (
	"charm.land/glamour/v2"
)

// NewRenderer builds a glamour renderer for the given width and theme
// ("dark", "light" or anything else for auto-detection).
func NewRenderer(width int, theme string) *glamour.TermRenderer {
	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(min(width, 120)),
	}
	switch theme {
	case "dark", "light":
		opts = append(opts, glamour.WithStandardStyle(theme))
	default:
		opts = append(opts, glamour.WithEnvironmentConfig())
	}

	r, _ := glamour.NewTermRenderer(opts...)
	return r
}
