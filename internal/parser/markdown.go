package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docatom/internal/atom"
)

// MarkdownParser handles Markdown files using goldmark with GFM tables.
type MarkdownParser struct{ headerStructured }

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	em := newEmitter(filename)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			em.heading(inlineText(node, src), node.Level)

		case *ast.FencedCodeBlock:
			lang := string(node.Language(src))
			if lang == "" {
				lang = "code"
			}
			addCode(em, blockLines(node, src), lang)

		case *ast.CodeBlock:
			addCode(em, blockLines(node, src), "code")

		case *ast.List:
			var items []string
			for li := node.FirstChild(); li != nil; li = li.NextSibling() {
				if t := clean(inlineText(li, src)); t != "" {
					items = append(items, t)
				}
			}
			switch {
			case len(items) == 0:
			case node.IsOrdered():
				em.add(atom.TypeList, atom.WithOrderedItems(items...))
			default:
				em.add(atom.TypeList, atom.WithUnorderedItems(items...))
			}

		case *east.Table:
			addMarkdownTable(em, node, src)

		case *ast.ThematicBreak:

		case *ast.HTMLBlock:
			em.text(blockLines(node, src), atom.WithFormatting("html"))

		case *ast.Paragraph:
			if addLinkOnly(em, node, src) {
				continue
			}
			em.text(inlineText(node, src))

		default:
			em.text(inlineText(node, src))
		}
	}

	return em.atoms, nil
}

func addCode(em *emitter, code, lang string) {
	code = norm.NFC.String(strings.TrimRight(code, "\n"))
	if strings.TrimSpace(code) == "" {
		return
	}
	em.add(atom.TypeCode, atom.WithText(code), atom.WithFormatting(lang))
}

// addLinkOnly turns a paragraph consisting of a single link or image into a
// hyperlink or image atom.
func addLinkOnly(em *emitter, para *ast.Paragraph, src []byte) bool {
	if para.ChildCount() != 1 {
		return false
	}
	switch c := para.FirstChild().(type) {
	case *ast.Link:
		em.add(atom.TypeHyperlink,
			atom.WithText(clean(inlineText(c, src))),
			atom.WithTitle(clean(string(c.Title))),
			atom.WithURL(string(c.Destination)),
		)
		return true
	case *ast.Image:
		alt := clean(inlineText(c, src))
		if alt == "" {
			return false
		}
		em.add(atom.TypeImage,
			atom.WithText(alt),
			atom.WithTitle(clean(string(c.Title))),
			atom.WithURL(string(c.Destination)),
		)
		return true
	}
	return false
}

func addMarkdownTable(em *emitter, tbl *east.Table, src []byte) {
	var columns []string
	var rows [][]string
	for row := tbl.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, clean(inlineText(cell, src)))
		}
		if _, ok := row.(*east.TableHeader); ok {
			columns = cells
			continue
		}
		rows = append(rows, cells)
	}
	if len(columns) == 0 && len(rows) == 0 {
		return
	}
	em.add(atom.TypeTable,
		atom.WithTable(&atom.Table{Columns: columns, Rows: rows}),
		atom.WithCounts(len(rows), len(columns)),
	)
}

// inlineText gets the text content of a goldmark AST node. Nested blocks are
// separated by newlines.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Segment.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				if c.Type() == ast.TypeBlock && buf.Len() > 0 {
					buf.WriteByte('\n')
				}
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

// blockLines returns the raw source lines of a block such as a code block.
func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}
