package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docatom/internal/atom"
)

// DOCXParser handles .docx files. Heading-styled paragraphs become header
// atoms, list-styled paragraphs are grouped into list atoms, and everything
// else becomes text.
type DOCXParser struct{ headerStructured }

func (p *DOCXParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	em := newEmitter(filename)
	var items []string
	flushList := func() {
		if len(items) > 0 {
			em.add(atom.TypeList, atom.WithUnorderedItems(items...))
			items = nil
		}
	}

	for _, item := range doc.Document.Body.Items {
		var para *docx.Paragraph
		switch it := item.(type) {
		case *docx.Paragraph:
			para = it
		case *docx.Table:
			flushList()
			addDOCXTable(em, it)
			continue
		default:
			continue
		}
		text := clean(docxParagraphText(para))
		if text == "" {
			continue
		}
		style := docxStyle(para)

		switch level := docxHeadingLevel(style); {
		case level > 0:
			flushList()
			em.heading(text, level)
		case isListStyle(style):
			items = append(items, text)
		default:
			flushList()
			em.text(text)
		}
	}
	flushList()

	return em.atoms, nil
}

// addDOCXTable treats the first row as column names.
func addDOCXTable(em *emitter, tbl *docx.Table) {
	var rows [][]string
	for _, row := range tbl.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			parts := make([]string, 0, len(cell.Paragraphs))
			for _, p := range cell.Paragraphs {
				if t := docxParagraphText(p); t != "" {
					parts = append(parts, t)
				}
			}
			cells = append(cells, clean(strings.Join(parts, " ")))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}
	em.add(atom.TypeTable,
		atom.WithTable(&atom.Table{Columns: rows[0], Rows: rows[1:]}),
		atom.WithCounts(len(rows)-1, len(rows[0])),
	)
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(s, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func isListStyle(style string) bool {
	return strings.HasPrefix(strings.ToLower(strings.ReplaceAll(style, " ", "")), "listparagraph") ||
		strings.HasPrefix(strings.ToLower(strings.ReplaceAll(style, " ", "")), "listbullet")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
