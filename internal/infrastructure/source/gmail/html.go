package gmail

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText renders an HTML email body as plain text so body-only
// heuristics still have something to work with. Script and style
// subtrees are dropped entirely.
func htmlToText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "br", "div", "tr", "li":
				sb.WriteByte('\n')
			}
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}
