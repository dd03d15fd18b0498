package tui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// RendererOption configures the markdown renderer.
type RendererOption func(*rendererConfig)

type rendererConfig struct {
	style    string
	wordWrap int
}

// WithStyle forces a glamour style ("dark", "light", "notty", ...) instead of auto-detection.
func WithStyle(style string) RendererOption {
	return func(c *rendererConfig) {
		c.style = style
	}
}

// WithWordWrap sets the wrap width (0 keeps glamour's default).
func WithWordWrap(width int) RendererOption {
	return func(c *rendererConfig) {
		c.wordWrap = width
	}
}

// NewRenderer returns a function that renders markdown using glamour.
// The background (light/dark) is detected automatically unless WithStyle is given.
func NewRenderer(opts ...RendererOption) (func(string) (string, error), error) {
	var cfg rendererConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	glamourOpts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if cfg.style != "" {
		glamourOpts = []glamour.TermRendererOption{glamour.WithStandardStyle(cfg.style)}
	}
	if cfg.wordWrap > 0 {
		glamourOpts = append(glamourOpts, glamour.WithWordWrap(cfg.wordWrap))
	}

	r, err := glamour.NewTermRenderer(glamourOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}
