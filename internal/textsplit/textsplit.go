// Package textsplit extracts bounded, overlap-controlled windows from text
// without cutting words in half.
//
// Lengths are counted in runes. Whitespace is space, tab, '\n' and '\r'.
// A window never exceeds the maximum length: a token longer than the maximum
// cannot be snapped to a word boundary and is cut at the raw index instead.
package textsplit

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// ErrInvalidWindow reports an unusable maximum length or shift size.
var ErrInvalidWindow = errors.New("invalid split window")

// Splitter yields word-boundary-safe windows of at most MaximumLength runes,
// starting a new window roughly every ShiftSize runes. It holds no state
// between calls and is safe for concurrent use.
type Splitter struct {
	maximumLength int
	shiftSize     int
}

// New validates the window parameters. shiftSize equal to maximumLength yields
// effectively non-overlapping windows; smaller values overlap by about
// maximumLength-shiftSize runes.
func New(maximumLength, shiftSize int) (*Splitter, error) {
	if maximumLength <= 0 {
		return nil, fmt.Errorf("%w: maximum length %d must be positive", ErrInvalidWindow, maximumLength)
	}
	if shiftSize <= 0 {
		return nil, fmt.Errorf("%w: shift size %d must be positive", ErrInvalidWindow, shiftSize)
	}
	if shiftSize > maximumLength {
		return nil, fmt.Errorf("%w: shift size %d exceeds maximum length %d", ErrInvalidWindow, shiftSize, maximumLength)
	}
	return &Splitter{maximumLength: maximumLength, shiftSize: shiftSize}, nil
}

// MaximumLength returns the window bound in runes.
func (s *Splitter) MaximumLength() int { return s.maximumLength }

// ShiftSize returns the nominal advance between windows in runes.
func (s *Splitter) ShiftSize() int { return s.shiftSize }

// Split returns a lazy sequence of trimmed, non-empty windows over text.
// Text that fits in one window is yielded once. The loop advances its start
// position on every step, so it finishes within len(text)+1 iterations.
func (s *Splitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		trimmed := strings.TrimFunc(text, isSpace)
		if trimmed == "" {
			return
		}
		r := []rune(trimmed)
		n := len(r)
		if n <= s.maximumLength {
			yield(trimmed)
			return
		}

		prevFrom, lastA, lastB := -1, -1, -1
		start := 0
		for start < n {
			from := s.windowStart(r, start, prevFrom)
			to := min(from+s.maximumLength, n)
			to = snapEnd(r, from, to)

			a, b := trimBounds(r, from, to)
			if a < b && (a != lastA || b != lastB) {
				if !yield(string(r[a:b])) {
					return
				}
				lastA, lastB = a, b
			}
			prevFrom = from
			if to >= n {
				return
			}
			start = s.advance(r, start, from)
		}
	}
}

// Windows collects Split into a slice.
func (s *Splitter) Windows(text string) []string {
	return slices.Collect(s.Split(text))
}

// windowStart moves a mid-word start back to the beginning of its word. When
// that word began at or before the previous window it was either emitted
// whole (skip past it) or is an oversized token being cut raw (keep going).
func (s *Splitter) windowStart(r []rune, start, prevFrom int) int {
	if !midWord(r, start) {
		return start
	}
	b := wordStart(r, start)
	if b > prevFrom {
		return b
	}
	e := wordEnd(r, start)
	if e-b > s.maximumLength {
		return start
	}
	for e < len(r) && isSpace(r[e]) {
		e++
	}
	return e
}

// advance computes the next start: shift forward, then snap back to the
// nearest boundary. Progress past start is always guaranteed.
func (s *Splitter) advance(r []rune, start, from int) int {
	next := from + s.shiftSize
	if next >= len(r) {
		return next
	}
	raw := next
	for next > from && !boundary(r, next) {
		next--
	}
	if next > start {
		return next
	}
	if raw > start && wordEnd(r, raw)-wordStart(r, raw) > s.maximumLength {
		return raw
	}
	return start + 1
}

// snapEnd retracts a mid-word end to the previous boundary inside the window.
func snapEnd(r []rune, from, to int) int {
	if !midWord(r, to) {
		return to
	}
	p := to
	for p > from && !isSpace(r[p-1]) {
		p--
	}
	if p > from {
		return p
	}
	return to
}

// Tail returns the trailing part of text that fits in n runes, beginning at
// a word start. It is used to seed chunk overlap.
func Tail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(strings.TrimFunc(text, isSpace))
	if len(r) <= n {
		return string(r)
	}
	i := len(r) - n
	if midWord(r, i) {
		i = wordEnd(r, i)
	}
	return strings.TrimFunc(string(r[i:]), isSpace)
}

// IsSpace reports whether r is one of the word-separating characters.
func IsSpace(r rune) bool { return isSpace(r) }

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func midWord(r []rune, i int) bool {
	return i > 0 && i < len(r) && !isSpace(r[i-1]) && !isSpace(r[i])
}

func boundary(r []rune, i int) bool {
	return i <= 0 || i >= len(r) || isSpace(r[i]) || isSpace(r[i-1])
}

func wordStart(r []rune, i int) int {
	for i > 0 && !isSpace(r[i-1]) {
		i--
	}
	return i
}

func wordEnd(r []rune, i int) int {
	for i < len(r) && !isSpace(r[i]) {
		i++
	}
	return i
}

func trimBounds(r []rune, a, b int) (int, int) {
	for a < b && isSpace(r[a]) {
		a++
	}
	for b > a && isSpace(r[b-1]) {
		b--
	}
	return a, b
}
