package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docatom/internal/atom"
)

// PDFParser handles PDF files. It tries the Go library first, then falls
// back to pdftotext when FallbackPdftotext is set. Each page's paragraphs
// become text atoms carrying the page number.
type PDFParser struct {
	headerStructured
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	pages, err := extractPDFPages(data)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	em := newEmitter(filename)
	for i, page := range pages {
		for _, para := range splitParagraphs(page) {
			em.text(para, atom.WithPage(i+1))
		}
	}
	return em.atoms, nil
}

func extractPDFPages(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pdf content")
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	pages := make([]string, reader.NumPage())
	for i := range pages {
		page := reader.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i] = text
	}
	return pages, nil
}

// extractPdftotext shells out to pdftotext, which needs a file on disk.
func extractPdftotext(data []byte) ([]string, error) {
	tmp, err := os.CreateTemp("", "docatom-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	out, err := exec.Command("pdftotext", "-layout", tmpPath, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	// Pages are separated by form feeds.
	return strings.Split(string(out), "\f"), nil
}

// splitParagraphs splits on blank lines.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var result []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
