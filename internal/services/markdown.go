package services

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Markdown renders model output to HTML. Fenced code blocks are syntax highlighted, and raw HTML embedded in
// the source is dropped instead of passed through.
type Markdown struct {
	md goldmark.Markdown
}

const highlightStyle = "monokai"

// NewMarkdown creates a Markdown renderer with GitHub flavored extensions enabled.
func NewMarkdown() Markdown {
	return Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle(highlightStyle),
				),
			),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
			),
		),
	}
}

// Render converts src to HTML that is safe to embed in a template.
func (m Markdown) Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	// Goldmark omits raw HTML unless html.WithUnsafe is set.
	return template.HTML(buf.String()), nil
}
