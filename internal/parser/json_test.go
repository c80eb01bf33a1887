package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/hierarchy"
)

func TestJSONParser_ExplicitParents(t *testing.T) {
	input := `{"name": "demo", "server": {"port": 8090, "tags": ["a", "b"]}, "items": [{"id": 1}, 2]}`
	p := &JSONParser{}
	atoms, err := p.Parse(strings.NewReader(input), "cfg.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Structure() != hierarchy.StructureExplicit {
		t.Errorf("expected explicit structure, got %v", p.Structure())
	}

	want := []struct {
		text   string
		parent int // index into atoms, -1 for none
		pos    int
	}{
		{"cfg", -1, 0},
		{"name: demo", 0, 0},
		{"server", 0, 1},
		{"port: 8090", 2, 0},
		{"tags", 2, 1},
		{"", 4, 0}, // list a, b
		{"items", 0, 2},
		{"items[0]", 6, 0},
		{"id: 1", 7, 0},
		{"", 6, 1}, // list 2
	}
	if len(atoms) != len(want) {
		t.Fatalf("expected %d atoms, got %d: %q", len(want), len(atoms), texts(atoms))
	}
	for i, w := range want {
		a := atoms[i]
		if a.Text != w.text {
			t.Errorf("atom %d: expected text %q, got %q", i, w.text, a.Text)
		}
		wantParent := ""
		if w.parent >= 0 {
			wantParent = atoms[w.parent].ID
		}
		if a.ParentID != wantParent {
			t.Errorf("atom %d (%q): expected parent %q, got %q", i, a.Text, wantParent, a.ParentID)
		}
		if a.Position != w.pos {
			t.Errorf("atom %d (%q): expected position %d, got %d", i, a.Text, w.pos, a.Position)
		}
	}

	if got := strings.Join(atoms[5].UnorderedItems, ","); got != "a,b" {
		t.Errorf("expected list items a,b, got %q", got)
	}
	if atoms[5].Type != atom.TypeList {
		t.Errorf("expected list atom, got %s", atoms[5].Type)
	}
	if !atoms[2].IsHeader() || atoms[2].HeaderLevel != 2 {
		t.Errorf("expected server container to be a level 2 header, got %+v", atoms[2])
	}

	tree := hierarchy.Build(atoms, p.Structure())
	if roots := tree.Roots(); len(roots) != 1 || roots[0].Text != "cfg" {
		t.Fatalf("expected single root cfg, got %q", texts(roots))
	}
	if got := strings.Join(texts(tree.Children(atoms[0].ID)), "|"); got != "name: demo|server|items" {
		t.Errorf("unexpected root children %q", got)
	}
}

func TestJSONParser_ScalarRoot(t *testing.T) {
	atoms, err := (&JSONParser{}).Parse(strings.NewReader(`"hello"`), "s.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(atoms) != 1 || atoms[0].Text != "s: hello" {
		t.Fatalf("expected one scalar atom, got %q", texts(atoms))
	}
}

func TestJSONParser_Errors(t *testing.T) {
	for _, input := range []string{`{`, `{"a": }`, `{} {}`} {
		if _, err := (&JSONParser{}).Parse(strings.NewReader(input), "bad.json"); err == nil {
			t.Errorf("input %q: expected error", input)
		}
	}
	atoms, err := (&JSONParser{}).Parse(strings.NewReader(""), "empty.json")
	if err != nil || len(atoms) != 0 {
		t.Errorf("expected no atoms and no error for empty input, got %d, %v", len(atoms), err)
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.txt", "b.MD", "c.markdown", "d.csv", "e.json", "f.html", "g.htm", "h.pdf", "i.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("%s: unexpected error %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("%s: expected supported", name)
		}
	}
	if _, err := ForFile("x.exe"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if IsSupportedExtension("noext") {
		t.Error("expected unsupported for missing extension")
	}
}

func TestForFile_PDFFallbackOption(t *testing.T) {
	p, err := ForFile("doc.pdf", WithPDFFallback(true))
	if err != nil {
		t.Fatal(err)
	}
	if pp, ok := p.(*PDFParser); !ok || !pp.FallbackPdftotext {
		t.Errorf("expected PDF parser with fallback enabled, got %#v", p)
	}
	p, _ = ForFile("doc.pdf")
	if p.(*PDFParser).FallbackPdftotext {
		t.Error("expected fallback disabled by default")
	}
}
