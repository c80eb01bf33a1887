package parser

import (
	"bytes"
	"testing"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docatom/internal/atom"
)

func TestDOCXParser_HeadingsAndText(t *testing.T) {
	w := docx.New().WithDefaultTheme()
	w.AddParagraph().Style("Heading1").AddText("Overview")
	w.AddParagraph().AddText("Body text.")
	w.AddParagraph().Style("Heading2").AddText("Details")

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		t.Fatalf("write docx: %v", err)
	}

	atoms, err := (&DOCXParser{}).Parse(bytes.NewReader(buf.Bytes()), "report.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(atoms) != 3 {
		t.Fatalf("expected 3 atoms, got %d: %q", len(atoms), texts(atoms))
	}
	if atoms[0].Text != "Overview" || atoms[0].HeaderLevel != 1 {
		t.Errorf("unexpected first atom %+v", atoms[0])
	}
	if atoms[1].Text != "Body text." || atoms[1].Type != atom.TypeText || atoms[1].HeaderLevel != 0 {
		t.Errorf("unexpected body atom %+v", atoms[1])
	}
	if atoms[2].HeaderLevel != 2 {
		t.Errorf("expected level 2 heading, got %d", atoms[2].HeaderLevel)
	}
}

func TestDOCXHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Heading1":  1,
		"heading 3": 3,
		"Title":     1,
		"Heading7":  0,
		"Normal":    0,
		"":          0,
	}
	for style, want := range tests {
		if got := docxHeadingLevel(style); got != want {
			t.Errorf("docxHeadingLevel(%q): expected %d, got %d", style, want, got)
		}
	}
}

func TestDOCXParser_InvalidInput(t *testing.T) {
	if _, err := (&DOCXParser{}).Parse(bytes.NewReader([]byte("not a zip")), "bad.docx"); err == nil {
		t.Fatal("expected error for invalid docx")
	}
}
