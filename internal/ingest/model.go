// Package ingest holds the ingestion-side document model and the converter
// that maps extracted atoms onto it.
package ingest

// ElementType classifies an ingestion element.
type ElementType string

const (
	ElementParagraph ElementType = "paragraph"
	ElementHeader    ElementType = "header"
	ElementTable     ElementType = "table"
	ElementImage     ElementType = "image"
	ElementList      ElementType = "list"
	ElementCode      ElementType = "code"
	ElementBinary    ElementType = "binary"
	ElementUnknown   ElementType = "unknown"
)

// Element is one converted content unit. At least one of Text or Binary is
// populated.
type Element struct {
	ID       string         `json:"id"`
	Type     ElementType    `json:"type"`
	Text     string         `json:"text,omitempty"`
	Binary   []byte         `json:"binary,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	// ParentID is the hierarchy parent resolved for the source atom.
	ParentID string `json:"parent_id,omitempty"`
	// HeaderLevel is 1..6 for header elements.
	HeaderLevel int `json:"header_level,omitempty"`
	// SubUnits are precomputed splits of Text, reused by the chunker.
	SubUnits []string `json:"sub_units,omitempty"`
}

func (e Element) NodeID() string    { return e.ID }
func (e Element) ParentRef() string { return e.ParentID }

func (e Element) Level() int {
	if e.Type != ElementHeader {
		return 0
	}
	return e.HeaderLevel
}

// Section groups the elements of one page or logical part.
type Section struct {
	PageNumber int       `json:"page_number,omitempty"`
	Title      string    `json:"title,omitempty"`
	Elements   []Element `json:"elements"`
}

// Document is a fully read source ready for chunking.
type Document struct {
	ID         string         `json:"id"`
	SourcePath string         `json:"source_path,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Sections   []Section      `json:"sections"`
}

// Elements returns the concatenation of every section's elements in order.
func (d Document) Elements() []Element {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Elements)
	}
	out := make([]Element, 0, n)
	for _, s := range d.Sections {
		out = append(out, s.Elements...)
	}
	return out
}

// Chunk is a bounded span of document content prepared for embedding.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id,omitempty"`
	Index      int            `json:"index"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Embedding  []float32      `json:"embedding,omitempty"`
}
