package extract

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// blockElements end a paragraph; their text is separated by blank lines
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "table": true, "ol": true,
	"ul": true, "dd": true, "dt": true, "header": true, "footer": true,
}

// skippedElements never contribute visible text
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
	"template": true, "head": true, "nav": true, "svg": true,
}

// HTMLText extracts the visible text of an HTML document. Content is taken
// from <main> or <article> when present, otherwise from the whole page.
// Block elements become paragraphs separated by blank lines.
func HTMLText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	root := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "main"
	})
	if root == nil {
		root = findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && (n.Data == "article" || attr(n, "role") == "main")
		})
	}
	if root == nil {
		root = doc
	}

	var paragraphs []string
	var current strings.Builder

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if n.Data == "br" {
				current.WriteString("\n")
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if current.Len() > 0 && !strings.HasSuffix(current.String(), "\n") {
					current.WriteString(" ")
				}
				current.WriteString(text)
			}
		}

		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}

	walk(root)
	flush()

	return strings.Join(paragraphs, "\n\n"), nil
}

func findFirst(n *html.Node, predicate func(*html.Node) bool) *html.Node {
	if predicate(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, predicate); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
