// Package render turns the light markdown used in chat replies and news posts
// into HTML or plain text.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in the source is dropped; only markdown produces tags.
var md = goldmark.New(
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
	),
)

func HTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Plain strips bold markers for channels that show text verbatim.
func Plain(src string) string {
	return strings.ReplaceAll(src, "**", "")
}
