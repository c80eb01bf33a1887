package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dgallion1/docatom/internal/atom"
	"github.com/dgallion1/docatom/internal/hierarchy"
)

// JSONParser handles JSON documents. Objects and arrays become titled
// container atoms; scalars become "key: value" text atoms and runs of
// scalar array items become list atoms. Every atom carries its container's
// id as ParentID, and keys keep their source order.
type JSONParser struct{}

func (p *JSONParser) Structure() hierarchy.Strategy { return hierarchy.StructureExplicit }

func (p *JSONParser) Parse(r io.Reader, filename string) ([]atom.Atom, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	w := &jsonWalker{dec: dec, em: newEmitter(filename)}
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return w.em.atoms, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := w.value(tok, "", baseName(filename), 0, 1); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse json: trailing data after top-level value")
	}
	return w.em.atoms, nil
}

type jsonWalker struct {
	dec *json.Decoder
	em  *emitter
}

// value emits tok, which has already been read, under parent.
func (w *jsonWalker) value(tok json.Token, parent, key string, pos, depth int) error {
	switch d := tok.(type) {
	case json.Delim:
		id := w.container(parent, key, pos, depth)
		if d == '{' {
			return w.object(id, depth+1)
		}
		return w.array(id, key, depth+1)
	default:
		w.em.addChild(parent, pos, atom.TypeText,
			atom.WithText(clean(key+": "+scalar(tok))),
			atom.WithTitle(key),
		)
		return nil
	}
}

func (w *jsonWalker) container(parent, key string, pos, depth int) string {
	a := w.em.addChild(parent, pos, atom.TypeText,
		atom.WithText(clean(key)),
		atom.WithTitle(key),
		atom.WithFormatting("header"),
		atom.WithHeaderLevel(min(depth, 6)),
	)
	return a.ID
}

func (w *jsonWalker) object(id string, depth int) error {
	pos := 0
	for w.dec.More() {
		keyTok, err := w.dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key %v", keyTok)
		}
		tok, err := w.dec.Token()
		if err != nil {
			return err
		}
		if err := w.value(tok, id, key, pos, depth); err != nil {
			return err
		}
		pos++
	}
	_, err := w.dec.Token() // '}'
	return err
}

func (w *jsonWalker) array(id, key string, depth int) error {
	pos := 0
	var items []string
	flush := func() {
		if len(items) == 0 {
			return
		}
		w.em.addChild(id, pos, atom.TypeList,
			atom.WithUnorderedItems(items...),
			atom.WithTitle(key),
		)
		items = nil
		pos++
	}

	for i := 0; w.dec.More(); i++ {
		tok, err := w.dec.Token()
		if err != nil {
			return err
		}
		if _, nested := tok.(json.Delim); !nested {
			items = append(items, clean(scalar(tok)))
			continue
		}
		flush()
		if err := w.value(tok, id, key+"["+strconv.Itoa(i)+"]", pos, depth); err != nil {
			return err
		}
		pos++
	}
	flush()
	_, err := w.dec.Token() // ']'
	return err
}

func scalar(tok json.Token) string {
	switch v := tok.(type) {
	case nil:
		return "null"
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
