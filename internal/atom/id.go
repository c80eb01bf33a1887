package atom

import (
	"strconv"

	"github.com/google/uuid"
)

// IDSource hands out identifiers that are unique within one extraction and
// identical across runs over the same source. It is not safe for concurrent use;
// each extraction owns its own source.
type IDSource struct {
	ns uuid.UUID
	n  int
}

// NewIDSource scopes identifiers to a source name such as a file path.
func NewIDSource(scope string) *IDSource {
	return &IDSource{ns: uuid.NewSHA1(uuid.NameSpaceURL, []byte("docatom:"+scope))}
}

// Next returns the next identifier.
func (s *IDSource) Next() string {
	id := uuid.NewSHA1(s.ns, []byte(strconv.Itoa(s.n)))
	s.n++
	return id.String()
}

// DerivedID returns a stable identifier for name within scope.
func DerivedID(scope, name string) string {
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("docatom:"+scope))
	return uuid.NewSHA1(ns, []byte(name)).String()
}
