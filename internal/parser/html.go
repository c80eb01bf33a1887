package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docatom/internal/atom"
)

// HTMLParser handles HTML files.
type HTMLParser struct{ headerStructured }

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	em := newEmitter(filename)
	if title := findTitle(doc); title != "" {
		em.add(atom.TypeMeta, atom.WithText(clean(title)), atom.WithTitle(clean(title)))
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				em.heading(textContent(n), level)
				return // Don't recurse into heading children (already extracted text).
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript", "template":
				return
			case "p", "blockquote", "dd", "dt", "figcaption":
				if !addHTMLLinkOnly(em, n) {
					em.text(textContent(n))
				}
				return
			case "pre":
				code := strings.TrimRight(rawText(n), "\n")
				addCode(em, code, codeLanguage(n))
				return
			case "ul", "ol":
				addHTMLList(em, n)
				return
			case "table":
				addHTMLTable(em, n)
				return
			case "div", "section", "article", "main", "aside", "li":
				if !hasBlockChild(n) {
					em.text(textContent(n))
					return
				}
			case "img":
				if alt := clean(attr(n, "alt")); alt != "" {
					em.add(atom.TypeImage, atom.WithText(alt), atom.WithURL(attr(n, "src")))
				}
				return
			}
		}
		if n.Type == html.TextNode {
			em.text(n.Data)
			return
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	// Find <body> or use whole document.
	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}

	return em.atoms, nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "aside": true,
	"ul": true, "ol": true, "dl": true, "table": true, "pre": true, "blockquote": true,
	"figure": true, "img": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockTags[c.Data] || hasBlockChild(c)) {
			return true
		}
	}
	return false
}

// addHTMLLinkOnly emits a hyperlink atom when n's only content is one anchor.
func addHTMLLinkOnly(em *emitter, n *html.Node) bool {
	var anchor *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode && strings.TrimSpace(c.Data) == "":
		case c.Type == html.ElementNode && c.Data == "a" && anchor == nil:
			anchor = c
		default:
			return false
		}
	}
	if anchor == nil {
		return false
	}
	em.add(atom.TypeHyperlink,
		atom.WithText(clean(textContent(anchor))),
		atom.WithTitle(clean(attr(anchor, "title"))),
		atom.WithURL(attr(anchor, "href")),
	)
	return true
}

func addHTMLList(em *emitter, list *html.Node) {
	var items []string
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			if t := clean(textContent(c)); t != "" {
				items = append(items, t)
			}
		}
	}
	switch {
	case len(items) == 0:
	case list.Data == "ol":
		em.add(atom.TypeList, atom.WithOrderedItems(items...))
	default:
		em.add(atom.TypeList, atom.WithUnorderedItems(items...))
	}
}

func addHTMLTable(em *emitter, tbl *html.Node) {
	var columns []string
	var rows [][]string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			header := true
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
					continue
				}
				if c.Data == "td" {
					header = false
				}
				cells = append(cells, clean(textContent(c)))
			}
			if len(cells) == 0 {
				return
			}
			if header && columns == nil && len(rows) == 0 {
				columns = cells
			} else {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(tbl)
	if len(columns) == 0 && len(rows) == 0 {
		return
	}
	em.add(atom.TypeTable,
		atom.WithTable(&atom.Table{Columns: columns, Rows: rows}),
		atom.WithCounts(len(rows), len(columns)),
	)
}

// codeLanguage reads a "language-x" class from a pre element or its code child.
func codeLanguage(pre *html.Node) string {
	for n := pre; n != nil; n = n.FirstChild {
		for _, cls := range strings.Fields(attr(n, "class")) {
			if lang, ok := strings.CutPrefix(cls, "language-"); ok && lang != "" {
				return lang
			}
		}
	}
	return "code"
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// rawText concatenates text nodes without trimming, preserving layout.
func rawText(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return buf.String()
}

func textContent(n *html.Node) string {
	return strings.Join(strings.Fields(rawText(n)), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
