// Package parser turns raw document bytes into a flat, source-ordered list of
// atoms. Each parser also declares how its atoms should be arranged into a
// hierarchy.
package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/hierarchy"
)

// ErrUnsupportedFormat is returned by ForFile for unknown extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Parser converts raw document bytes into atoms.
type Parser interface {
	Parse(r io.Reader, filename string) ([]atom.Atom, error)
	// Structure names the hierarchy strategy that fits the parser's output.
	Structure() hierarchy.Strategy
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".json":     true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// Option adjusts the parsers returned by ForFile.
type Option func(*options)

type options struct {
	pdfFallback bool
}

// WithPDFFallback lets the PDF parser shell out to pdftotext when the
// built-in reader fails.
func WithPDFFallback(enabled bool) Option {
	return func(o *options) { o.pdfFallback = enabled }
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts ...Option) (Parser, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".json":
		return &JSONParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: o.pdfFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// headerStructured is embedded by parsers whose nesting comes from headings.
type headerStructured struct{}

func (headerStructured) Structure() hierarchy.Strategy { return hierarchy.StructureHeaders }

// emitter collects atoms in source order, assigning ids scoped to the file.
type emitter struct {
	ids   *atom.IDSource
	atoms []atom.Atom
}

func newEmitter(filename string) *emitter {
	return &emitter{ids: atom.NewIDSource(filename)}
}

// add appends a top-level atom positioned after every earlier one.
func (e *emitter) add(typ atom.Type, opts ...atom.Option) atom.Atom {
	return e.addChild("", len(e.atoms), typ, opts...)
}

func (e *emitter) addChild(parentID string, position int, typ atom.Type, opts ...atom.Option) atom.Atom {
	a := atom.New(e.ids.Next(), typ, parentID, position, opts...)
	e.atoms = append(e.atoms, a)
	return a
}

func (e *emitter) text(s string, opts ...atom.Option) {
	if s = clean(s); s != "" {
		e.add(atom.TypeText, append([]atom.Option{atom.WithText(s)}, opts...)...)
	}
}

func (e *emitter) heading(s string, level int) {
	if s = clean(s); s != "" {
		e.add(atom.TypeText, atom.WithText(s), atom.WithHeaderLevel(level))
	}
}

// clean trims s and normalizes it to NFC so digests do not depend on how the
// source composed its characters.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func cleanAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, clean(s))
	}
	return out
}

func baseName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
