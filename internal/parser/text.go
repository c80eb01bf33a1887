package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docatom/internal/atom"
)

// TextParser handles plain text files. Blank lines separate paragraphs.
type TextParser struct{ headerStructured }

func (p *TextParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	em := newEmitter(filename)
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			em.text(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	em.text(current.String())

	return em.atoms, nil
}
