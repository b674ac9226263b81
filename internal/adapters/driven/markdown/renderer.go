// Package markdown renders harvested READMEs to HTML with goldmark.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/custodia-labs/harvester/internal/core/ports/driven"
)

// Ensure Renderer implements the interface.
var _ driven.Renderer = (*Renderer)(nil)

// Renderer converts GitHub Flavored Markdown to HTML.
// Raw HTML in the source is omitted from the output.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a renderer with GFM extensions and heading anchors.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				html.WithXHTML(),
			),
		),
	}
}

// Render converts markdown to HTML.
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
