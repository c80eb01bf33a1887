package atom

import (
	"fmt"
	"unicode/utf8"

	"github.com/dgallion1/docatom/internal/textsplit"
)

// WithQuarks returns a copy of a whose Quarks hold the text split into
// word-boundary-safe windows. Atoms are returned unchanged when the settings
// are disabled, the atom is not text-like, the text already fits, or quarks
// are already present.
func WithQuarks(a Atom, s ChunkingSettings) (Atom, error) {
	if !s.Enabled() || len(a.Quarks) > 0 {
		return a, nil
	}
	switch a.Type {
	case TypeText, TypeCode, TypeUnknown:
	default:
		return a, nil
	}
	if utf8.RuneCountInString(a.Text) <= s.MaximumLength() {
		return a, nil
	}

	sp, err := textsplit.New(s.MaximumLength(), s.ShiftSize())
	if err != nil {
		return a, fmt.Errorf("quark splitter: %w", err)
	}
	var quarks []Atom
	for part := range sp.Split(a.Text) {
		id := fmt.Sprintf("%s/q%d", a.ID, len(quarks))
		quarks = append(quarks, New(id, TypeText, a.ID, len(quarks),
			WithText(part),
			WithPage(a.Page),
		))
	}
	a.Quarks = quarks
	return a, nil
}
