package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docatom/internal/atom"
)

// Metadata keys written by Convert.
const (
	MetaSourceID       = "source_id"
	MetaSourceType     = "source_type"
	MetaSourceParentID = "source_parent_id"
	MetaPageNumber     = "page_number"
	MetaPosition       = "position"
	MetaLength         = "length"
	MetaMD5            = "md5"
	MetaSHA1           = "sha1"
	MetaSHA256         = "sha256"
	MetaHeaderLevel    = "header_level"
	MetaTitle          = "title"
	MetaSubtitle       = "subtitle"
	MetaFormatting     = "formatting"
	MetaBoundingBox    = "bounding_box"
	MetaSheet          = "sheet"
	MetaCell           = "cell"
	MetaRowCount       = "row_count"
	MetaColumnCount    = "column_count"
	MetaChildCount     = "child_count"
	MetaHasChildren    = "has_children"
)

// ConvertOptions controls atom conversion.
type ConvertOptions struct {
	// IncludeBinary keeps atoms carrying binary payloads. When false such
	// atoms are skipped entirely.
	IncludeBinary bool
	// ExcludeMetadata lists metadata keys to leave out of every element.
	ExcludeMetadata map[string]bool
}

// ExcludeKeys builds an exclusion set from a key list.
func ExcludeKeys(keys ...string) map[string]bool {
	if len(keys) == 0 {
		return nil
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set[k] = true
		}
	}
	return set
}

// Converter maps atoms to ingestion elements. It holds no state beyond its
// options and is safe for concurrent use.
type Converter struct {
	opts ConvertOptions
}

func NewConverter(opts ConvertOptions) *Converter {
	return &Converter{opts: opts}
}

// Convert maps one atom to at most one element. The boolean is false when the
// atom is skipped: meta atoms, atoms without any payload, and atoms with a
// binary payload when binary content is not included.
func (c *Converter) Convert(a atom.Atom) (Element, bool) {
	if a.Type == atom.TypeMeta {
		return Element{}, false
	}
	hasBinary := len(a.Binary) > 0
	if !hasTextual(a) && !hasBinary {
		return Element{}, false
	}
	if hasBinary && !c.opts.IncludeBinary {
		return Element{}, false
	}

	el := Element{
		ID:       a.ID,
		ParentID: a.ParentID,
		Metadata: c.metadata(a),
	}

	switch a.Type {
	case atom.TypeText:
		switch {
		case a.IsHeader():
			el.Type = ElementHeader
			el.HeaderLevel = a.Level()
		default:
			el.Type = classifyHint(a.Formatting)
		}
		el.Text = a.Text
		el.SubUnits = subUnits(a)
	case atom.TypeList:
		el.Type = ElementList
		el.Text = renderList(a)
	case atom.TypeTable:
		el.Type = ElementTable
		el.Text = renderTable(a)
	case atom.TypeImage:
		el.Type = ElementImage
		el.Text = a.Text
		el.Binary = a.Binary
	case atom.TypeBinary:
		el.Type = ElementBinary
		el.Binary = a.Binary
	case atom.TypeHyperlink:
		el.Type = ElementParagraph
		el.Text = renderLink(a)
	case atom.TypeCode:
		el.Type = ElementCode
		el.Text = renderCode(a)
	default:
		el.Type = ElementUnknown
		el.Text = a.Text
		el.SubUnits = subUnits(a)
	}

	if el.Text == "" && len(el.Binary) == 0 {
		return Element{}, false
	}
	return el, true
}

// ConvertAll converts atoms in order, dropping skipped ones.
func (c *Converter) ConvertAll(atoms []atom.Atom) []Element {
	out := make([]Element, 0, len(atoms))
	for _, a := range atoms {
		if el, ok := c.Convert(a); ok {
			out = append(out, el)
		}
	}
	return out
}

// BuildDocument converts atoms into a document with one section per page, in
// order of first appearance. Atoms without a page land in page 0.
func (c *Converter) BuildDocument(id, sourcePath string, atoms []atom.Atom) Document {
	doc := Document{ID: id, SourcePath: sourcePath}
	byPage := make(map[int]int)
	for _, a := range atoms {
		el, ok := c.Convert(a)
		if !ok {
			continue
		}
		idx, seen := byPage[a.Page]
		if !seen {
			idx = len(doc.Sections)
			byPage[a.Page] = idx
			s := Section{PageNumber: a.Page}
			if a.Page > 0 {
				s.Title = "Page " + strconv.Itoa(a.Page)
			}
			doc.Sections = append(doc.Sections, s)
		}
		doc.Sections[idx].Elements = append(doc.Sections[idx].Elements, el)
	}
	return doc
}

func hasTextual(a atom.Atom) bool {
	if strings.TrimSpace(a.Text) != "" {
		return true
	}
	switch a.Type {
	case atom.TypeTable:
		return a.Table != nil && (len(a.Table.Columns) > 0 || len(a.Table.Rows) > 0)
	case atom.TypeList:
		return len(a.OrderedItems) > 0 || len(a.UnorderedItems) > 0
	case atom.TypeHyperlink:
		return a.URL != "" || a.Title != ""
	}
	return false
}

func classifyHint(hint string) ElementType {
	switch strings.ToLower(hint) {
	case "list", "bullet", "ordered-list", "unordered-list":
		return ElementList
	case "table":
		return ElementTable
	case "code", "pre", "preformatted":
		return ElementCode
	}
	return ElementParagraph
}

func subUnits(a atom.Atom) []string {
	if len(a.Quarks) == 0 {
		return nil
	}
	out := make([]string, 0, len(a.Quarks))
	for _, q := range a.Quarks {
		if strings.TrimSpace(q.Text) != "" {
			out = append(out, q.Text)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func renderList(a atom.Atom) string {
	var b strings.Builder
	switch {
	case len(a.OrderedItems) > 0:
		for i, item := range a.OrderedItems {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d. %s", i+1, item)
		}
	case len(a.UnorderedItems) > 0:
		for i, item := range a.UnorderedItems {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(item)
		}
	default:
		return a.Text
	}
	return b.String()
}

// renderTable writes a markdown pipe table. Missing cells render empty. A
// table atom without a table payload falls back to its text.
func renderTable(a atom.Atom) string {
	t := a.Table
	if t == nil {
		return a.Text
	}
	width := len(t.Columns)
	for _, row := range t.Rows {
		width = max(width, len(row))
	}
	if width == 0 {
		return a.Text
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteByte('|')
		for i := range width {
			cell := ""
			if i < len(cells) {
				cell = escapeCell(cells[i])
			}
			b.WriteByte(' ')
			b.WriteString(cell)
			b.WriteString(" |")
		}
	}
	writeRow(t.Columns)
	b.WriteString("\n|")
	for range width {
		b.WriteString(" --- |")
	}
	for _, row := range t.Rows {
		b.WriteByte('\n')
		writeRow(row)
	}
	return b.String()
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func escapeCell(s string) string {
	return cellEscaper.Replace(strings.TrimSpace(s))
}

func renderLink(a atom.Atom) string {
	label := a.Title
	if label == "" {
		label = strings.TrimSpace(a.Text)
	}
	if label == "" {
		label = "link"
	}
	return "[" + label + "](" + a.URL + ")"
}

func renderCode(a atom.Atom) string {
	lang := a.Formatting
	if strings.EqualFold(lang, "code") {
		lang = ""
	}
	return "```" + lang + "\n" + strings.TrimRight(a.Text, "\n") + "\n```"
}

func (c *Converter) metadata(a atom.Atom) map[string]any {
	m := make(map[string]any, 12)
	set := func(k string, v any) {
		if !c.opts.ExcludeMetadata[k] {
			m[k] = v
		}
	}
	setStr := func(k, v string) {
		if v != "" {
			set(k, v)
		}
	}
	setInt := func(k string, v int) {
		if v > 0 {
			set(k, v)
		}
	}

	setStr(MetaSourceID, a.ID)
	set(MetaSourceType, a.Type.String())
	setStr(MetaSourceParentID, a.ParentID)
	setInt(MetaPageNumber, a.Page)
	set(MetaPosition, a.Position)
	set(MetaLength, a.Length)
	setStr(MetaMD5, a.Digests.MD5)
	setStr(MetaSHA1, a.Digests.SHA1)
	setStr(MetaSHA256, a.Digests.SHA256)
	setInt(MetaHeaderLevel, a.HeaderLevel)
	setStr(MetaTitle, a.Title)
	setStr(MetaSubtitle, a.Subtitle)
	setStr(MetaFormatting, a.Formatting)
	if a.Bounds != nil {
		set(MetaBoundingBox, map[string]float64{
			"x":      a.Bounds.X,
			"y":      a.Bounds.Y,
			"width":  a.Bounds.Width,
			"height": a.Bounds.Height,
		})
	}
	setStr(MetaSheet, a.Sheet)
	setStr(MetaCell, a.Cell)
	setInt(MetaRowCount, a.RowCount)
	setInt(MetaColumnCount, a.ColumnCount)
	set(MetaChildCount, len(a.Quarks))
	set(MetaHasChildren, len(a.Quarks) > 0)
	return m
}
