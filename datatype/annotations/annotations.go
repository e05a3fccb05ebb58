/*
	Package annotations exports the hierarchy of CATMAID annotations, where an
	annotation may itself be annotated by meta-annotations, and reads it back.
*/
package annotations

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
)

const (
	// DirName is the export subdirectory for annotations.
	DirName = "annotations"

	// GraphFile maps each annotation to its sub-annotations.
	GraphFile = "annotation_graph.json"
)

// Readme describes the annotation files of an export.
//
//go:embed readme.md
var Readme string

// Source supplies the project's annotation graph.
type Source interface {
	AnnotationGraph(ctx context.Context) (*catmaid.AnnotationGraph, error)
}

// Export is the selected and renamed annotation hierarchy.
type Export struct {
	// Children maps each exported annotation name to the sorted exported names
	// of its sub-annotations.
	Children map[string][]string

	// Rename maps project annotation names to exported names for every
	// exported annotation.
	Rename map[string]string
}

// Empty returns true if no annotation is exported.
func (e *Export) Empty() bool {
	return e == nil || len(e.Children) == 0
}

// Fetch selects annotations from the project.  If all names are selected, every
// annotation is exported.  Otherwise the explicitly named annotations, the
// annotated ones and all their sub-annotations, and the rename keys are
// exported.
func Fetch(ctx context.Context, src Source, cfg config.AnnotationsConfig) (*Export, error) {
	ag, err := src.AnnotationGraph(ctx)
	if err != nil {
		return nil, err
	}
	g := ag.Annotations
	for _, name := range g.NodesOfType(catpub.NeuronNode) {
		g.RemoveNode(name)
	}

	var names []string
	if cfg.Names.All() {
		names = g.Nodes()
	} else {
		names = append(cfg.Names.Names(), g.Descendants(cfg.Annotated)...)
	}
	return Select(g, names, cfg.Rename)
}

// Select builds an Export from the given annotation graph so it contains the
// given names plus the keys of the rename map.  Names absent from the graph are
// skipped with a warning.
func Select(g *catpub.Graph, names []string, rename map[string]string) (*Export, error) {
	filled := catpub.FillIn(rename, names)

	selected := make(map[string]struct{}, len(filled))
	for _, name := range catpub.SortedKeys(filled) {
		if !g.HasNode(name) {
			catpub.Warningf("Annotation %q is not in the project; skipping\n", name)
			delete(filled, name)
			continue
		}
		selected[name] = struct{}{}
	}

	exp := &Export{
		Children: make(map[string][]string, len(filled)),
		Rename:   filled,
	}
	origin := make(map[string]string, len(filled))
	for _, name := range catpub.SortedKeys(filled) {
		newName := filled[name]
		if prev, found := origin[newName]; found {
			return nil, fmt.Errorf("annotations %q and %q are both exported as %q", prev, name, newName)
		}
		origin[newName] = name

		children := []string{}
		for _, sub := range g.Successors(name) {
			if _, found := selected[sub]; found {
				children = append(children, filled[sub])
			}
		}
		sort.Strings(children)
		exp.Children[newName] = children
	}
	return exp, nil
}

// Write stores the export under outDir.  It returns false without writing
// anything if no annotation is exported.
func Write(outDir string, exp *Export) (bool, error) {
	if exp.Empty() {
		return false, nil
	}
	dir := filepath.Join(outDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("could not create annotation directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(Readme), 0644); err != nil {
		return false, err
	}
	if err := catpub.WriteJSON(filepath.Join(dir, GraphFile), exp.Children); err != nil {
		return false, err
	}
	catpub.Infof("Wrote %d annotations\n", len(exp.Children))
	return true, nil
}
