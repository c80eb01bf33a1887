// Package chunker groups the elements of an ingestion document into bounded
// chunks.
//
// Sizes are measured in runes. Elements are joined with a blank line and a
// chunk is flushed when the next element would not fit. An element that is
// larger than the maximum on its own is re-split with package textsplit, or
// emitted as its precomputed sub-units when those are available.
package chunker

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/hierarchy"
	"github.com/dgallion1/docatom/internal/ingest"
	"github.com/dgallion1/docatom/internal/textsplit"
)

// ErrInvalidOptions reports chunker options that cannot produce bounded chunks.
var ErrInvalidOptions = errors.New("invalid chunker options")

// Chunk metadata keys.
const (
	MetaSourceIDs     = "source_ids"
	MetaPageNumber    = "page_number"
	MetaBreadcrumb    = "breadcrumb"
	MetaHeaderContext = "header_context"
	MetaStrategy      = "chunk_strategy"
	MetaSubUnit       = "sub_unit"
	MetaTokenEstimate = "token_estimate"
)

const (
	StrategyFlat         = "flat"
	StrategyHierarchical = "hierarchical"
)

const separator = "\n\n"

// Options controls chunking behavior.
type Options struct {
	MaxChunkSize int // Maximum chunk size in runes.
	ChunkOverlap int // Trailing runes of a chunk repeated at the start of the next.
	// PreserveParagraphs disables overlap seeding so chunks always start at
	// an element boundary.
	PreserveParagraphs bool
	// IncludeHeaderContext records the ancestor header breadcrumb in chunk
	// metadata. Content is never modified.
	IncludeHeaderContext bool
	// UseSubUnitsIfAvailable emits an element's precomputed sub-units
	// verbatim instead of re-splitting its text.
	UseSubUnitsIfAvailable bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxChunkSize:           1000,
		ChunkOverlap:           200,
		IncludeHeaderContext:   true,
		UseSubUnitsIfAvailable: true,
	}
}

// Validate checks that the options can produce bounded chunks.
func (o Options) Validate() error {
	if o.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size %d must be positive", ErrInvalidOptions, o.MaxChunkSize)
	}
	if o.ChunkOverlap < 0 {
		return fmt.Errorf("%w: chunk overlap %d must not be negative", ErrInvalidOptions, o.ChunkOverlap)
	}
	if o.ChunkOverlap >= o.MaxChunkSize {
		return fmt.Errorf("%w: chunk overlap %d must be less than max chunk size %d", ErrInvalidOptions, o.ChunkOverlap, o.MaxChunkSize)
	}
	return nil
}

// Chunker turns a document into a lazy chunk sequence. Indexes start at zero
// for every document and increase by one per emitted chunk.
type Chunker interface {
	Chunk(doc ingest.Document) iter.Seq[ingest.Chunk]
}

// New returns a Hierarchical chunker when hierarchical is set, a Flat one
// otherwise.
func New(opts Options, hierarchical bool) (Chunker, error) {
	if hierarchical {
		return NewHierarchical(opts)
	}
	return NewFlat(opts)
}

// Flat accumulates elements in document order without regard to structure.
type Flat struct {
	opts  Options
	split *textsplit.Splitter
}

func NewFlat(opts Options) (*Flat, error) {
	sp, err := newSplitter(opts)
	if err != nil {
		return nil, err
	}
	return &Flat{opts: opts, split: sp}, nil
}

func (f *Flat) Chunk(doc ingest.Document) iter.Seq[ingest.Chunk] {
	return func(yield func(ingest.Chunk) bool) {
		b := newBuilder(f.opts, f.split, doc.ID, StrategyFlat, yield)
		for _, el := range doc.Elements() {
			if !b.add(el) {
				return
			}
		}
		b.flush()
	}
}

// Hierarchical keeps every chunk inside one section. A header always starts
// a new chunk, as does any element whose header breadcrumb differs from the
// current chunk's. Overlap is never carried across a section change.
type Hierarchical struct {
	opts  Options
	split *textsplit.Splitter
}

func NewHierarchical(opts Options) (*Hierarchical, error) {
	sp, err := newSplitter(opts)
	if err != nil {
		return nil, err
	}
	return &Hierarchical{opts: opts, split: sp}, nil
}

func (h *Hierarchical) Chunk(doc ingest.Document) iter.Seq[ingest.Chunk] {
	return func(yield func(ingest.Chunk) bool) {
		elems := doc.Elements()
		tree := hierarchy.Build(elems, strategyFor(elems))
		b := newBuilder(h.opts, h.split, doc.ID, StrategyHierarchical, yield)
		for i, el := range elems {
			crumbs := breadcrumb(tree, i, el)
			if el.Type == ingest.ElementHeader || !slices.Equal(crumbs, b.crumbs) {
				if !b.flush() {
					return
				}
				b.crumbs = crumbs
			}
			if !b.add(el) {
				return
			}
		}
		b.flush()
	}
}

// strategyFor follows explicit parent links when the producer supplied any,
// and falls back to header levels otherwise.
func strategyFor(elems []ingest.Element) hierarchy.Strategy {
	for _, el := range elems {
		if el.ParentID != "" {
			return hierarchy.StructureExplicit
		}
	}
	return hierarchy.StructureHeaders
}

// breadcrumb lists the titles of the header ancestors of elems[i], outermost
// first, followed by the element's own title when it is a header.
func breadcrumb(tree *hierarchy.Tree[ingest.Element], i int, el ingest.Element) []string {
	var crumbs []string
	for _, a := range tree.AncestorsAt(i) {
		if a.Type == ingest.ElementHeader {
			crumbs = append(crumbs, headerTitle(a))
		}
	}
	if el.Type == ingest.ElementHeader {
		crumbs = append(crumbs, headerTitle(el))
	}
	return crumbs
}

func headerTitle(el ingest.Element) string {
	if t, ok := el.Metadata[ingest.MetaTitle].(string); ok && t != "" {
		return t
	}
	line, _, _ := strings.Cut(strings.TrimSpace(el.Text), "\n")
	return strings.TrimSpace(strings.TrimLeft(line, "# "))
}

func newSplitter(opts Options) (*textsplit.Splitter, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return textsplit.New(opts.MaxChunkSize, opts.MaxChunkSize-opts.ChunkOverlap)
}

// builder accumulates element text for one chunker pass.
type builder struct {
	opts     Options
	split    *textsplit.Splitter
	docID    string
	strategy string
	yield    func(ingest.Chunk) bool

	index   int
	buf     strings.Builder
	bufLen  int
	sources []string
	page    int
	crumbs  []string
	stopped bool
}

func newBuilder(opts Options, sp *textsplit.Splitter, docID, strategy string, yield func(ingest.Chunk) bool) *builder {
	return &builder{opts: opts, split: sp, docID: docID, strategy: strategy, yield: yield}
}

// add appends one element. It returns false once the consumer has stopped.
func (b *builder) add(el ingest.Element) bool {
	text := strings.TrimSpace(el.Text)
	if text == "" {
		return !b.stopped
	}
	page, _ := el.Metadata[ingest.MetaPageNumber].(int)

	if b.opts.UseSubUnitsIfAvailable && len(el.SubUnits) > 0 {
		if !b.flush() {
			return false
		}
		for _, u := range el.SubUnits {
			if u = strings.TrimSpace(u); u == "" {
				continue
			}
			if !b.emit(u, []string{el.ID}, page, true) {
				return false
			}
		}
		return true
	}

	n := utf8.RuneCountInString(text)
	if n > b.opts.MaxChunkSize {
		if !b.flush() {
			return false
		}
		for part := range b.split.Split(text) {
			if !b.emit(part, []string{el.ID}, page, false) {
				return false
			}
		}
		return true
	}

	if b.bufLen > 0 && b.bufLen+len(separator)+n > b.opts.MaxChunkSize {
		prev := b.buf.String()
		if !b.flush() {
			return false
		}
		if !b.opts.PreserveParagraphs {
			b.seed(prev, n)
		}
	}

	if b.bufLen > 0 {
		b.buf.WriteString(separator)
		b.bufLen += len(separator)
	}
	b.buf.WriteString(text)
	b.bufLen += n
	if len(b.sources) == 0 {
		b.page = page
	}
	b.sources = append(b.sources, el.ID)
	return true
}

// seed starts the next chunk with the tail of the previous one. Nothing is
// carried when the previous chunk is no longer than the overlap or when the
// tail would leave no room for the next element.
func (b *builder) seed(prev string, next int) {
	if utf8.RuneCountInString(prev) <= b.opts.ChunkOverlap {
		return
	}
	tail := textsplit.Tail(prev, b.opts.ChunkOverlap)
	n := utf8.RuneCountInString(tail)
	if n == 0 || n+len(separator)+next > b.opts.MaxChunkSize {
		return
	}
	b.buf.WriteString(tail)
	b.bufLen = n
}

// flush emits the accumulated text, if any, and resets the buffer.
func (b *builder) flush() bool {
	if b.stopped {
		return false
	}
	content, sources, page := b.buf.String(), b.sources, b.page
	b.buf.Reset()
	b.bufLen = 0
	b.sources = nil
	b.page = 0
	if len(sources) == 0 {
		return true
	}
	return b.emit(content, sources, page, false)
}

func (b *builder) emit(content string, sources []string, page int, subUnit bool) bool {
	if b.stopped {
		return false
	}
	meta := map[string]any{
		MetaSourceIDs:     slices.Clone(sources),
		MetaStrategy:      b.strategy,
		MetaTokenEstimate: EstimateTokens(content),
	}
	if page > 0 {
		meta[MetaPageNumber] = page
	}
	if subUnit {
		meta[MetaSubUnit] = true
	}
	if b.opts.IncludeHeaderContext && len(b.crumbs) > 0 {
		meta[MetaBreadcrumb] = slices.Clone(b.crumbs)
		meta[MetaHeaderContext] = strings.Join(b.crumbs, " > ")
	}
	c := ingest.Chunk{
		ID:         atom.DerivedID(b.docID, "chunk/"+strconv.Itoa(b.index)),
		DocumentID: b.docID,
		Index:      b.index,
		Content:    content,
		Metadata:   meta,
	}
	b.index++
	if !b.yield(c) {
		b.stopped = true
		return false
	}
	return true
}
