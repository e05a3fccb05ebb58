package annotations

import (
	"fmt"
	"path/filepath"

	"github.com/janelia-flyem/catpub/catpub"
)

// Reader gives access to an exported annotation directory.
type Reader struct {
	dir      string
	children map[string][]string
}

// NewReader reads the annotation graph stored in dir.
func NewReader(dir string) (*Reader, error) {
	r := &Reader{dir: dir}
	if err := catpub.ReadJSON(filepath.Join(dir, GraphFile), &r.children); err != nil {
		return nil, fmt.Errorf("could not read annotations: %w", err)
	}
	if r.children == nil {
		r.children = make(map[string][]string)
	}
	return r, nil
}

// Dir returns the directory being read.
func (r *Reader) Dir() string {
	return r.dir
}

// Names returns the sorted names of all exported annotations.
func (r *Reader) Names() []string {
	return catpub.SortedKeys(r.children)
}

// Children returns the sorted sub-annotations of an annotation.
func (r *Reader) Children(name string) ([]string, error) {
	children, found := r.children[name]
	if !found {
		return nil, fmt.Errorf("annotation %q: %w", name, catpub.ErrNotFound)
	}
	out := make([]string, len(children))
	copy(out, children)
	return out, nil
}

// Graph returns the annotation graph.  Edges go from an annotation to each of
// its sub-annotations and are marked as meta-annotation edges.
func (r *Reader) Graph() *catpub.Graph {
	g := catpub.NewGraph()
	for name, children := range r.children {
		g.AddNode(name, catpub.AnnotationNode)
		for _, child := range children {
			g.AddNode(child, catpub.AnnotationNode)
			g.AddEdge(name, child, catpub.EdgeProperties{MetaAnnotation: true})
		}
	}
	return g
}
