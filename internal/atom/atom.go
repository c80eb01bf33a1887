// Package atom defines the uniform content units extracted from documents.
//
// An Atom is created once by an extractor and never changed afterwards. All
// variant-specific fields live on the one record and are populated according
// to Type; the converter in package ingest switches on Type exhaustively.
package atom

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/dgallion1/docatom/internal/hasher"
)

// Type tags the kind of content an atom carries.
type Type int

const (
	TypeUnknown Type = iota
	TypeText
	TypeList
	TypeTable
	TypeBinary
	TypeImage
	TypeHyperlink
	TypeCode
	TypeMeta
)

var typeNames = [...]string{
	TypeUnknown:   "unknown",
	TypeText:      "text",
	TypeList:      "list",
	TypeTable:     "table",
	TypeBinary:    "binary",
	TypeImage:     "image",
	TypeHyperlink: "hyperlink",
	TypeCode:      "code",
	TypeMeta:      "meta",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return typeNames[TypeUnknown]
	}
	return typeNames[t]
}

// ParseType maps a type name back to its Type. Unrecognized names are TypeUnknown.
func ParseType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range typeNames {
		if name == s {
			return Type(i)
		}
	}
	return TypeUnknown
}

// MarshalText encodes the type by name.
func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText decodes a type name.
func (t *Type) UnmarshalText(b []byte) error {
	*t = ParseType(string(b))
	return nil
}

// Table is a grid of stringified cells. Rows may be shorter than Columns;
// missing cells are treated as empty.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// BoundingBox locates an atom on a rendered page.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Atom is the smallest self-contained content unit of a document.
type Atom struct {
	ID       string         `json:"id"`
	ParentID string         `json:"parent_id,omitempty"`
	Type     Type           `json:"type"`
	Position int            `json:"position"` // order among siblings, source order
	Length   int            `json:"length"`   // bytes of the canonical representation
	Digests  hasher.Digests `json:"digests"`

	Text           string   `json:"text,omitempty"`
	Table          *Table   `json:"table,omitempty"`
	OrderedItems   []string `json:"ordered_items,omitempty"`
	UnorderedItems []string `json:"unordered_items,omitempty"`
	Binary         []byte   `json:"binary,omitempty"`

	HeaderLevel int          `json:"header_level,omitempty"` // 1-6, 0 when not a header
	Title       string       `json:"title,omitempty"`
	Subtitle    string       `json:"subtitle,omitempty"`
	Formatting  string       `json:"formatting,omitempty"` // hint such as "header", "list", "code" or a language
	URL         string       `json:"url,omitempty"`
	Page        int          `json:"page,omitempty"`
	Bounds      *BoundingBox `json:"bounds,omitempty"`
	Sheet       string       `json:"sheet,omitempty"`
	Cell        string       `json:"cell,omitempty"`
	RowCount    int          `json:"row_count,omitempty"`
	ColumnCount int          `json:"column_count,omitempty"`

	// Quarks are sub-units: chunks of oversized text, or hierarchy children,
	// depending on the producer.
	Quarks []Atom `json:"quarks,omitempty"`
}

// Option sets an optional field during New.
type Option func(*Atom)

func WithText(s string) Option { return func(a *Atom) { a.Text = s } }
func WithTable(t *Table) Option { return func(a *Atom) { a.Table = t } }
func WithBinary(b []byte) Option { return func(a *Atom) { a.Binary = b } }
func WithOrderedItems(items ...string) Option {
	return func(a *Atom) { a.OrderedItems = items }
}
func WithUnorderedItems(items ...string) Option {
	return func(a *Atom) { a.UnorderedItems = items }
}
func WithHeaderLevel(level int) Option { return func(a *Atom) { a.HeaderLevel = level } }
func WithTitle(title string) Option { return func(a *Atom) { a.Title = title } }
func WithSubtitle(subtitle string) Option { return func(a *Atom) { a.Subtitle = subtitle } }
func WithFormatting(hint string) Option { return func(a *Atom) { a.Formatting = hint } }
func WithURL(url string) Option { return func(a *Atom) { a.URL = url } }
func WithPage(page int) Option { return func(a *Atom) { a.Page = page } }
func WithBounds(b BoundingBox) Option { return func(a *Atom) { a.Bounds = &b } }
func WithLocator(sheet, cell string) Option {
	return func(a *Atom) { a.Sheet, a.Cell = sheet, cell }
}
func WithCounts(rows, cols int) Option {
	return func(a *Atom) { a.RowCount, a.ColumnCount = rows, cols }
}

// New builds an atom and computes its length and digests from the canonical
// bytes. A negative position is treated as zero.
func New(id string, typ Type, parentID string, position int, opts ...Option) Atom {
	a := Atom{
		ID:       id,
		ParentID: parentID,
		Type:     typ,
		Position: max(position, 0),
	}
	for _, o := range opts {
		o(&a)
	}
	canon := CanonicalBytes(a)
	a.Length = len(canon)
	a.Digests = hasher.Hash(canon)
	return a
}

// CanonicalBytes is the byte representation the digests are computed over:
// raw bytes for binary payloads, a JSON serialization for tables, and UTF-8
// text otherwise. List atoms without text hash their items one per line.
func CanonicalBytes(a Atom) []byte {
	switch {
	case a.Type == TypeTable && a.Table != nil:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(a.Table); err != nil {
			return []byte(a.Text)
		}
		return bytes.TrimRight(buf.Bytes(), "\n")
	case len(a.Binary) > 0:
		return a.Binary
	case a.Text == "" && a.Type == TypeList:
		items := a.OrderedItems
		if len(items) == 0 {
			items = a.UnorderedItems
		}
		return []byte(strings.Join(items, "\n"))
	default:
		return []byte(a.Text)
	}
}

// Verify reports whether every populated digest matches the recomputed one.
func Verify(a Atom) bool {
	return a.Digests.Matches(CanonicalBytes(a))
}

// IsHeader reports whether the atom opens a section: a text atom with a
// header level in 1..6, or one hinted as a header.
func (a Atom) IsHeader() bool {
	if a.Type != TypeText {
		return false
	}
	if a.HeaderLevel >= 1 && a.HeaderLevel <= 6 {
		return true
	}
	return isHeaderHint(a.Formatting)
}

// AttachedTo returns a copy of a with its parent set.
func (a Atom) AttachedTo(parentID string) Atom {
	a.ParentID = parentID
	return a
}

// NodeID, ParentRef and Level let atoms be arranged by package hierarchy.
func (a Atom) NodeID() string { return a.ID }
func (a Atom) ParentRef() string { return a.ParentID }

// Level is the header level used by header-stack hierarchies. Non-header
// atoms and out-of-range levels report 0. A header hint without a level
// counts as level 1.
func (a Atom) Level() int {
	if !a.IsHeader() {
		return 0
	}
	if a.HeaderLevel >= 1 && a.HeaderLevel <= 6 {
		return a.HeaderLevel
	}
	return 1
}

func isHeaderHint(s string) bool {
	switch strings.ToLower(s) {
	case "header", "heading", "title":
		return true
	}
	return false
}
