package annotations

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
	"github.com/janelia-flyem/catpub/tests"
)

const expectedGraph = `{
  "Lineage A": [
    "lineage A left"
  ],
  "internal": [],
  "lineage A left": [],
  "other": [],
  "paper 1 neurons": [],
  "published": [
    "Lineage A",
    "paper 1 neurons"
  ]
}
`

func TestFetchAndWrite(t *testing.T) {
	srv, client := tests.SampleClient()
	defer srv.Close()

	cfg := config.AnnotationsConfig{
		Annotated: []string{"published"},
		Names:     catpub.SelectNames("internal"),
		Rename:    map[string]string{"lineage A": "Lineage A", "unrelated": "other"},
	}
	exp, err := Fetch(context.Background(), client, cfg)
	if err != nil {
		t.Fatal(err)
	}
	expectedRename := map[string]string{
		"internal":        "internal",
		"lineage A":       "Lineage A",
		"lineage A left":  "lineage A left",
		"paper 1 neurons": "paper 1 neurons",
		"published":       "published",
		"unrelated":       "other",
	}
	if !reflect.DeepEqual(exp.Rename, expectedRename) {
		t.Errorf("expected rename %v, got %v", expectedRename, exp.Rename)
	}

	out := t.TempDir()
	written, err := Write(out, exp)
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Fatalf("expected annotations to be written")
	}
	if got := tests.ReadFile(filepath.Join(out, DirName, GraphFile)); got != expectedGraph {
		t.Errorf("unexpected annotation graph:\n%s", got)
	}
	if got := tests.ReadFile(filepath.Join(out, DirName, "README.md")); got != Readme {
		t.Errorf("unexpected README")
	}

	r, err := NewReader(filepath.Join(out, DirName))
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Names()) != 6 {
		t.Errorf("expected 6 annotations, got %v", r.Names())
	}
	children, err := r.Children("published")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(children, []string{"Lineage A", "paper 1 neurons"}) {
		t.Errorf("unexpected children %v", children)
	}
	if _, err := r.Children("unrelated"); !errors.Is(err, catpub.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a renamed-away annotation, got %v", err)
	}
	g := r.Graph()
	if g.NumNodes() != 6 || g.NumEdges() != 3 {
		t.Errorf("expected 6 nodes and 3 edges, got %d and %d", g.NumNodes(), g.NumEdges())
	}
	props, found := g.EdgeProps("Lineage A", "lineage A left")
	if !found || !props.MetaAnnotation {
		t.Errorf("expected meta-annotation edge")
	}
	if tp, _ := g.Type("other"); tp != catpub.AnnotationNode {
		t.Errorf("expected annotation node type, got %q", tp)
	}
}

func TestFetchAll(t *testing.T) {
	srv, client := tests.SampleClient()
	defer srv.Close()

	exp, err := Fetch(context.Background(), client, config.AnnotationsConfig{Names: catpub.SelectAll()})
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"internal", "lineage A", "lineage A left", "paper 1 neurons", "published", "unrelated"}
	if got := catpub.SortedKeys(exp.Children); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestEmptySelection(t *testing.T) {
	srv, client := tests.SampleClient()
	defer srv.Close()

	cfg := config.AnnotationsConfig{Names: catpub.SelectNames("missing")}
	exp, err := Fetch(context.Background(), client, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !exp.Empty() {
		t.Fatalf("expected empty export, got %v", exp.Children)
	}
	out := t.TempDir()
	written, err := Write(out, exp)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Errorf("expected nothing written")
	}
	if _, err := os.Stat(filepath.Join(out, DirName)); !os.IsNotExist(err) {
		t.Errorf("expected no annotation directory")
	}
}

func TestSelect(t *testing.T) {
	g := catpub.NewGraph()
	g.AddNode("a", catpub.AnnotationNode)
	g.AddNode("b", catpub.AnnotationNode)
	g.AddNode("c", catpub.AnnotationNode)
	g.AddEdge("a", "b", catpub.EdgeProperties{MetaAnnotation: true})
	g.AddEdge("a", "c", catpub.EdgeProperties{MetaAnnotation: true})

	tcs := []struct {
		names    []string
		rename   map[string]string
		expected map[string][]string
		err      bool
	}{
		{
			names:    []string{"a", "b"},
			expected: map[string][]string{"a": {"b"}, "b": {}},
		},
		{
			names:    []string{"a"},
			rename:   map[string]string{"c": "C"},
			expected: map[string][]string{"a": {"C"}, "C": {}},
		},
		{
			names:  []string{"b", "c"},
			rename: map[string]string{"b": "x", "c": "x"},
			err:    true,
		},
		{
			names:    nil,
			expected: map[string][]string{},
		},
	}
	for i, tc := range tcs {
		exp, err := Select(g, tc.names, tc.rename)
		if tc.err {
			if err == nil {
				t.Errorf("test %d: expected error", i)
			}
			continue
		}
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if !reflect.DeepEqual(exp.Children, tc.expected) {
			t.Errorf("test %d: expected %v, got %v", i, tc.expected, exp.Children)
		}
	}
}
