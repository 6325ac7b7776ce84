// Package turncard renders a single transcript turn as a block of terminal
// lines.
package turncard

import (
	"fmt"
	"strings"

	"github.com/coderelay/relay/pkg/transcript"
	"github.com/coderelay/relay/pkg/tui/components/markdown"
	"github.com/coderelay/relay/pkg/tui/styles"
)

// Card renders one turn. Rendering is pure with respect to (turn, width,
// options), so callers can cache the result per width.
type Card struct {
	turn           transcript.Turn
	theme          string
	hideToolOutput bool
}

type Option func(*Card)

// WithTheme sets the markdown rendering theme.
func WithTheme(theme string) Option { return func(c *Card) { c.theme = theme } }

// WithHideToolOutput collapses tool turns to a one-line summary.
func WithHideToolOutput(v bool) Option { return func(c *Card) { c.hideToolOutput = v } }

// New creates a card for a turn.
func New(turn transcript.Turn, opts ...Option) *Card {
	c := &Card{turn: turn}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the rendered turn's id.
func (c *Card) ID() string { return c.turn.ID }

// Render produces the turn's block at the given width.
func (c *Card) Render(width int) string {
	if width <= 0 {
		return ""
	}

	switch c.turn.Role {
	case transcript.RoleUser:
		border := styles.UserTurnBorderStyle
		inner := width - border.GetHorizontalFrameSize()
		if rendered, err := markdown.NewRenderer(inner, c.theme).Render(c.turn.Content); err == nil {
			return border.Render(strings.TrimRight(rendered, "\n\r\t "))
		}
		return border.Render(c.turn.Content)

	case transcript.RoleAssistant:
		text := authorPrefix(c.turn.Author) + c.turn.Content
		rendered, err := markdown.NewRenderer(width, c.theme).Render(text)
		if err != nil {
			return text
		}
		return strings.TrimRight(rendered, "\n\r\t ")

	case transcript.RoleTool:
		if c.hideToolOutput {
			lines := strings.Count(c.turn.Content, "\n") + 1
			return styles.MutedStyle.Render(fmt.Sprintf("▸ %s output hidden (%d lines)", toolName(c.turn.Author), lines))
		}
		block := fmt.Sprintf("```console\n%s\n```", c.turn.Content)
		if rendered, err := markdown.NewRenderer(width, c.theme).Render(block); err == nil {
			return strings.TrimRight(rendered, "\n\r\t ")
		}
		return styles.ToolTurnStyle.Render(c.turn.Content)

	default:
		return c.turn.Content
	}
}

// Height returns the number of lines Render produces at the given width.
func (c *Card) Height(width int) int {
	content := c.Render(width)
	if content == "" {
		return 0
	}
	return strings.Count(content, "\n") + 1
}

// PlainText returns the raw turn content for clipboard export.
func (c *Card) PlainText() string {
	return c.turn.Content
}

func authorPrefix(author string) string {
	if author == "" || author == "root" {
		return ""
	}
	return fmt.Sprintf("%s: ", author)
}

func toolName(author string) string {
	if author == "" {
		return "tool"
	}
	return author
}
