package hierarchy

import (
	"strings"
	"testing"
)

type unit struct {
	id     string
	parent string
	level  int
}

func (u unit) NodeID() string    { return u.id }
func (u unit) ParentRef() string { return u.parent }
func (u unit) Level() int        { return u.level }

func ids(units []unit) string {
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.id
	}
	return strings.Join(parts, ",")
}

func TestByParent_Chain(t *testing.T) {
	tree := ByParent([]unit{
		{id: "A"},
		{id: "B", parent: "A"},
		{id: "C", parent: "B"},
	})

	if got := ids(tree.Roots()); got != "A" {
		t.Fatalf("expected roots A, got %q", got)
	}
	if got := ids(tree.Children("A")); got != "B" {
		t.Errorf("expected A children B, got %q", got)
	}
	if got := ids(tree.Children("B")); got != "C" {
		t.Errorf("expected B children C, got %q", got)
	}
	if got := tree.Children("C"); len(got) != 0 {
		t.Errorf("expected C to be a leaf, got %v", got)
	}
	p, ok := tree.Parent("C")
	if !ok || p.id != "B" {
		t.Errorf("expected parent of C to be B, got %q ok=%v", p.id, ok)
	}
}

func TestByParent_DanglingParentBecomesRoot(t *testing.T) {
	tree := ByParent([]unit{
		{id: "A"},
		{id: "X", parent: "missing"},
	})
	if got := ids(tree.Roots()); got != "A,X" {
		t.Fatalf("expected roots A,X, got %q", got)
	}
}

func TestByParent_ForwardReferenceBecomesRoot(t *testing.T) {
	tree := ByParent([]unit{
		{id: "B", parent: "A"},
		{id: "A"},
	})
	if got := ids(tree.Roots()); got != "B,A" {
		t.Fatalf("expected roots B,A, got %q", got)
	}
	if _, ok := tree.Parent("B"); ok {
		t.Error("expected B to have no parent")
	}
}

func TestByParent_ChildrenInEncounterOrder(t *testing.T) {
	tree := ByParent([]unit{
		{id: "root"},
		{id: "c2", parent: "root"},
		{id: "c1", parent: "root"},
		{id: "c3", parent: "root"},
	})
	if got := ids(tree.Children("root")); got != "c2,c1,c3" {
		t.Fatalf("expected encounter order c2,c1,c3, got %q", got)
	}
}

func TestByParent_SelfReferenceBecomesRoot(t *testing.T) {
	tree := ByParent([]unit{{id: "A", parent: "A"}})
	if got := ids(tree.Roots()); got != "A" {
		t.Fatalf("expected A to be a root, got %q", got)
	}
}

func TestByHeaders_Outline(t *testing.T) {
	tree := ByHeaders([]unit{
		{id: "H1", level: 1},
		{id: "H2", level: 2},
		{id: "P"},
		{id: "H3", level: 1},
		{id: "Q"},
	})

	if got := ids(tree.Roots()); got != "H1,H3" {
		t.Fatalf("expected roots H1,H3, got %q", got)
	}
	if got := ids(tree.Children("H1")); got != "H2" {
		t.Errorf("expected H1 children H2, got %q", got)
	}
	if got := ids(tree.Children("H2")); got != "P" {
		t.Errorf("expected H2 children P, got %q", got)
	}
	if got := ids(tree.Children("H3")); got != "Q" {
		t.Errorf("expected H3 children Q, got %q", got)
	}
}

func TestByHeaders_ContentBeforeFirstHeaderIsRoot(t *testing.T) {
	tree := ByHeaders([]unit{
		{id: "intro"},
		{id: "H", level: 1},
		{id: "body"},
	})
	if got := ids(tree.Roots()); got != "intro,H" {
		t.Fatalf("expected roots intro,H, got %q", got)
	}
}

func TestByHeaders_SkippedLevels(t *testing.T) {
	tree := ByHeaders([]unit{
		{id: "H1", level: 1},
		{id: "H3", level: 3},
		{id: "H2", level: 2},
		{id: "P"},
	})
	if got := ids(tree.Children("H1")); got != "H3,H2" {
		t.Fatalf("expected H1 children H3,H2, got %q", got)
	}
	// H2 closed H3, so P belongs to H2.
	if got := ids(tree.Children("H2")); got != "P" {
		t.Errorf("expected H2 children P, got %q", got)
	}
}

func TestByHeaders_OutOfRangeLevelIsContent(t *testing.T) {
	tree := ByHeaders([]unit{
		{id: "H", level: 1},
		{id: "deep", level: 9},
	})
	if got := ids(tree.Children("H")); got != "deep" {
		t.Fatalf("expected out-of-range level to attach as content, got %q", got)
	}
}

func TestBuild_Dispatch(t *testing.T) {
	units := []unit{
		{id: "H", level: 1},
		{id: "P", parent: "nowhere"},
	}
	if got := ids(Build(units, StructureHeaders).Roots()); got != "H" {
		t.Errorf("headers: expected roots H, got %q", got)
	}
	if got := ids(Build(units, StructureExplicit).Roots()); got != "H,P" {
		t.Errorf("explicit: expected roots H,P, got %q", got)
	}
}

func TestAncestorsAtAndWalk(t *testing.T) {
	tree := ByHeaders([]unit{
		{id: "A", level: 1},
		{id: "B", level: 2},
		{id: "C", level: 3},
		{id: "p"},
		{id: "D", level: 2},
	})

	if got := ids(tree.AncestorsAt(3)); got != "A,B,C" {
		t.Errorf("expected ancestors A,B,C, got %q", got)
	}
	if got := tree.ParentID(4); got != "A" {
		t.Errorf("expected D parent A, got %q", got)
	}
	if got := tree.ParentID(0); got != "" {
		t.Errorf("expected root to have no parent, got %q", got)
	}

	var visited []string
	tree.Walk(func(u unit, depth int) bool {
		visited = append(visited, u.id+":"+string(rune('0'+depth)))
		return true
	})
	want := "A:0,B:1,C:2,p:3,D:1"
	if got := strings.Join(visited, ","); got != want {
		t.Errorf("expected walk %q, got %q", want, got)
	}

	count := 0
	tree.Walk(func(unit, int) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("expected walk to stop after 2 visits, got %d", count)
	}
}

func TestEmptyInput(t *testing.T) {
	tree := ByHeaders[unit](nil)
	if tree.Len() != 0 || len(tree.Roots()) != 0 {
		t.Fatalf("expected empty tree, got len=%d roots=%d", tree.Len(), len(tree.Roots()))
	}
}
