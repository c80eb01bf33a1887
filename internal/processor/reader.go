package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/hasher"
	"github.com/dgallion1/docatom/internal/hierarchy"
	"github.com/dgallion1/docatom/internal/ingest"
	"github.com/dgallion1/docatom/internal/parser"
)

// Document metadata keys written by FileReader.
const (
	MetaSourceName = "source_name"
	MetaFormat     = "format"
	MetaStructure  = "structure"
	MetaAtomCount  = "atom_count"
)

// FileReader reads documents with the format parsers, arranges the atoms into
// a hierarchy, splits oversized atoms into quarks and converts the result
// into an ingestion document.
type FileReader struct {
	quarks    atom.ChunkingSettings
	converter *ingest.Converter
	parsers   []parser.Option
}

func NewFileReader(quarks atom.ChunkingSettings, convert ingest.ConvertOptions, opts ...parser.Option) *FileReader {
	return &FileReader{quarks: quarks, converter: ingest.NewConverter(convert), parsers: opts}
}

func (r *FileReader) Read(ctx context.Context, path string) (ingest.Document, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.Document{}, err
	}
	return r.ReadBytes(ctx, path, data)
}

func (r *FileReader) ReadBytes(ctx context.Context, name string, data []byte) (ingest.Document, error) {
	if err := ctx.Err(); err != nil {
		return ingest.Document{}, err
	}
	p, err := parser.ForFile(name, r.parsers...)
	if err != nil {
		return ingest.Document{}, err
	}
	atoms, err := p.Parse(bytes.NewReader(data), name)
	if err != nil {
		return ingest.Document{}, fmt.Errorf("parse %s: %w", filepath.Base(name), err)
	}
	atoms, err = Arrange(atoms, p.Structure(), r.quarks)
	if err != nil {
		return ingest.Document{}, err
	}

	sum := hasher.ContentHashHex(data)
	doc := r.converter.BuildDocument(sum[:16], name, atoms)
	doc.Metadata = map[string]any{
		MetaSourceName:  filepath.Base(name),
		MetaFormat:      filepath.Ext(name),
		MetaStructure:   p.Structure().String(),
		MetaAtomCount:   len(atoms),
		MetaContentHash: sum,
	}
	return doc, nil
}

// Arrange returns copies of atoms with hierarchy parents attached and, when
// the settings are enabled, oversized text split into quarks. The input slice
// is not modified.
func Arrange(atoms []atom.Atom, s hierarchy.Strategy, quarks atom.ChunkingSettings) ([]atom.Atom, error) {
	tree := hierarchy.Build(atoms, s)
	out := make([]atom.Atom, len(atoms))
	for i, a := range atoms {
		a = a.AttachedTo(tree.ParentID(i))
		q, err := atom.WithQuarks(a, quarks)
		if err != nil {
			return nil, fmt.Errorf("split atom %s: %w", a.ID, err)
		}
		out[i] = q
	}
	return out, nil
}
