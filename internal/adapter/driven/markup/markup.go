// Package markup converts issue descriptions between the remote tracker's
// markdown and the sanitized HTML stored on local tasks.
package markup

import (
	"bytes"
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MarkupConverter = (*Converter)(nil)

// Converter renders remote markdown to sanitized local HTML and back.
type Converter struct {
	md        goldmark.Markdown
	sanitizer *bluemonday.Policy
}

// NewConverter creates a Converter using GitHub-flavored markdown and the UGC
// sanitization policy.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// ToLocal converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func (c *Converter) ToLocal(remote string) string {
	if strings.TrimSpace(remote) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := c.md.Convert([]byte(remote), &buf); err != nil {
		return c.sanitizer.Sanitize(remote)
	}

	return strings.TrimSpace(c.sanitizer.Sanitize(buf.String()))
}

// ToRemote converts local HTML to markdown for the remote tracker.
func (c *Converter) ToRemote(local string) (string, error) {
	if strings.TrimSpace(local) == "" {
		return "", nil
	}

	md, err := htmltomarkdown.ConvertString(c.sanitizer.Sanitize(local))
	if err != nil {
		return "", fmt.Errorf("convert html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}
