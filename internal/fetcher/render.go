package fetcher

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/net/html"
)

// Renderer names accepted by NewRenderer
const (
	RendererMarkdown = "markdown"
	RendererPlain    = "plain"
)

// Renderer converts the inner HTML of one archive item into text
type Renderer interface {
	Render(fragment string) (string, error)
}

// NewRenderer returns the renderer registered under name. An empty name
// selects markdown.
func NewRenderer(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "", RendererMarkdown:
		return NewMarkdownRenderer(), nil
	case RendererPlain:
		return PlainRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q (want %s or %s)", name, RendererMarkdown, RendererPlain)
	}
}

// MarkdownRenderer renders items as markdown
type MarkdownRenderer struct {
	conv *md.Converter
}

// NewMarkdownRenderer creates a MarkdownRenderer. Relative links are kept as written.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{conv: md.NewConverter("", true, nil)}
}

// Render converts an HTML fragment to markdown
func (r *MarkdownRenderer) Render(fragment string) (string, error) {
	out, err := r.conv.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// PlainRenderer renders items as plain text, keeping links as [text](href)
// so the permalink marker can still be recognised.
type PlainRenderer struct{}

// Tags to skip (non-content)
var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true,
	"header": true, "footer": true, "aside": true,
	"noscript": true, "iframe": true,
}

// Render extracts readable text from an HTML fragment
func (PlainRenderer) Render(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse fragment: %w", err)
	}

	var sb strings.Builder
	var extract func(*html.Node)

	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.ElementNode && n.Data == "a" {
			sb.WriteString("[")
			sb.WriteString(strings.Join(strings.Fields(nodeText(n)), " "))
			sb.WriteString("](")
			sb.WriteString(attr(n, "href"))
			sb.WriteString(")")
			return
		}

		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}

		// Add newlines after block elements
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "li", "br":
				sb.WriteString("\n")
			}
		}
	}

	extract(doc)

	// Collapse whitespace per line, drop blank lines
	var lines []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(nodeText(c))
	}
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
