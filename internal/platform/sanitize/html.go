package sanitize

import (
	"html"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Strong:     true,
	atom.B:          true,
	atom.Em:         true,
	atom.I:          true,
	atom.U:          true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.Blockquote: true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.A:          true,
}

// Elements removed together with everything inside them.
var droppedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Form:     true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Head:     true,
}

// ContentHTML turns editor-supplied news content into safe HTML.
// Plain text becomes paragraphs split on blank lines; markup is reduced to a small
// allow-list of formatting elements and http(s)/mailto links.
func ContentHTML(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", nil
	}

	if !strings.Contains(trimmed, "<") {
		return paragraphs(trimmed), nil
	}

	context := &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := xhtml.ParseFragment(strings.NewReader(trimmed), context)
	if err != nil {
		return "", eris.Wrap(err, "parsing content html")
	}

	root := &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, node := range nodes {
		appendSanitized(root, node)
	}

	var builder strings.Builder
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if err := xhtml.Render(&builder, child); err != nil {
			return "", eris.Wrap(err, "rendering sanitized html")
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func paragraphs(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var builder strings.Builder
	for _, block := range strings.Split(normalized, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		for i, line := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(line))
		}
		builder.WriteString("<p>")
		builder.WriteString(strings.Join(lines, "<br>"))
		builder.WriteString("</p>")
	}
	return builder.String()
}

func appendSanitized(dst, src *xhtml.Node) {
	switch src.Type {
	case xhtml.TextNode:
		dst.AppendChild(&xhtml.Node{Type: xhtml.TextNode, Data: src.Data})
	case xhtml.ElementNode:
		if droppedElements[src.DataAtom] {
			return
		}
		if !allowedElements[src.DataAtom] {
			for child := src.FirstChild; child != nil; child = child.NextSibling {
				appendSanitized(dst, child)
			}
			return
		}

		replacement := &xhtml.Node{Type: xhtml.ElementNode, Data: src.DataAtom.String(), DataAtom: src.DataAtom}
		if src.DataAtom == atom.A {
			href, ok := safeHref(attribute(src, "href"))
			if !ok {
				for child := src.FirstChild; child != nil; child = child.NextSibling {
					appendSanitized(dst, child)
				}
				return
			}
			replacement.Attr = []xhtml.Attribute{
				{Key: "href", Val: href},
				{Key: "rel", Val: "noopener noreferrer nofollow"},
			}
		}

		for child := src.FirstChild; child != nil; child = child.NextSibling {
			appendSanitized(replacement, child)
		}
		dst.AppendChild(replacement)
	case xhtml.DocumentNode:
		for child := src.FirstChild; child != nil; child = child.NextSibling {
			appendSanitized(dst, child)
		}
	}
}

func attribute(node *xhtml.Node, key string) string {
	for _, attr := range node.Attr {
		if strings.EqualFold(attr.Key, key) {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func safeHref(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	switch strings.ToLower(parsed.Scheme) {
	case "", "http", "https", "mailto":
		return parsed.String(), true
	default:
		return "", false
	}
}
