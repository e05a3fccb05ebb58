/*
   This file defines the directed, name-keyed graph used for annotation
   hierarchies and annotation-to-neuron membership.
*/

package catpub

import "sort"

// NodeType distinguishes annotation vertices from neuron vertices.
type NodeType string

const (
	AnnotationNode NodeType = "annotation"
	NeuronNode     NodeType = "neuron"
)

// EdgeProperties are stored with each directed edge.
type EdgeProperties struct {
	// MetaAnnotation is true if the edge target is itself an annotation.
	MetaAnnotation bool
}

// Edge is a directed edge from an annotation to an annotated object.
type Edge struct {
	From, To string
	EdgeProperties
}

// Graph is a directed graph whose vertices are identified by name.
// The zero value is not usable; use NewGraph.
type Graph struct {
	nodes map[string]NodeType
	succ  map[string]map[string]EdgeProperties
	pred  map[string]map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]NodeType),
		succ:  make(map[string]map[string]EdgeProperties),
		pred:  make(map[string]map[string]struct{}),
	}
}

// AddNode adds a vertex or, if it exists, sets its type.
func (g *Graph) AddNode(name string, t NodeType) {
	g.nodes[name] = t
}

// AddEdge adds a directed edge, adding untyped vertices as necessary.
func (g *Graph) AddEdge(from, to string, props EdgeProperties) {
	if _, found := g.nodes[from]; !found {
		g.nodes[from] = ""
	}
	if _, found := g.nodes[to]; !found {
		g.nodes[to] = ""
	}
	s, found := g.succ[from]
	if !found {
		s = make(map[string]EdgeProperties)
		g.succ[from] = s
	}
	s[to] = props
	p, found := g.pred[to]
	if !found {
		p = make(map[string]struct{})
		g.pred[to] = p
	}
	p[from] = struct{}{}
}

func (g *Graph) HasNode(name string) bool {
	_, found := g.nodes[name]
	return found
}

func (g *Graph) HasEdge(from, to string) bool {
	_, found := g.succ[from][to]
	return found
}

// Type returns the type of a vertex and whether it exists.
func (g *Graph) Type(name string) (NodeType, bool) {
	t, found := g.nodes[name]
	return t, found
}

// EdgeProps returns the properties of an edge and whether it exists.
func (g *Graph) EdgeProps(from, to string) (EdgeProperties, bool) {
	p, found := g.succ[from][to]
	return p, found
}

func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

func (g *Graph) NumEdges() int {
	var n int
	for _, s := range g.succ {
		n += len(s)
	}
	return n
}

// Nodes returns all vertex names in sorted order.
func (g *Graph) Nodes() []string {
	return SortedKeys(g.nodes)
}

// NodesOfType returns the sorted names of vertices with the given type.
func (g *Graph) NodesOfType(t NodeType) []string {
	var out []string
	for name, nt := range g.nodes {
		if nt == t {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Successors returns the sorted targets of edges from the named vertex.
func (g *Graph) Successors(name string) []string {
	return SortedKeys(g.succ[name])
}

// Predecessors returns the sorted sources of edges to the named vertex.
func (g *Graph) Predecessors(name string) []string {
	return SortedKeys(g.pred[name])
}

// Edges returns all edges sorted by source then target.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, from := range SortedKeys(g.succ) {
		s := g.succ[from]
		for _, to := range SortedKeys(s) {
			out = append(out, Edge{From: from, To: to, EdgeProperties: s[to]})
		}
	}
	return out
}

// RemoveNode removes a vertex and all its edges.
func (g *Graph) RemoveNode(name string) {
	for to := range g.succ[name] {
		delete(g.pred[to], name)
	}
	for from := range g.pred[name] {
		delete(g.succ[from], name)
	}
	delete(g.succ, name)
	delete(g.pred, name)
	delete(g.nodes, name)
}

// Update adds all vertices and edges of another graph.  Typed vertices in the
// other graph override types in this one.
func (g *Graph) Update(other *Graph) {
	for name, t := range other.nodes {
		if cur, found := g.nodes[name]; !found || t != "" || cur == "" {
			g.nodes[name] = t
		}
	}
	for from, s := range other.succ {
		for to, props := range s {
			g.AddEdge(from, to, props)
		}
	}
}

// Subgraph returns the graph induced by the given vertices.
func (g *Graph) Subgraph(names []string) *Graph {
	sub := NewGraph()
	keep := make(map[string]struct{}, len(names))
	for _, name := range names {
		if t, found := g.nodes[name]; found {
			sub.nodes[name] = t
			keep[name] = struct{}{}
		}
	}
	for from := range keep {
		for to, props := range g.succ[from] {
			if _, found := keep[to]; found {
				sub.AddEdge(from, to, props)
			}
		}
	}
	return sub
}

// Descendants returns the roots plus every vertex reachable from them, sorted.
// Roots not in the graph are still included.
func (g *Graph) Descendants(roots []string) []string {
	out := make(map[string]struct{})
	toVisit := append([]string{}, roots...)
	for len(toVisit) > 0 {
		n := toVisit[len(toVisit)-1]
		toVisit = toVisit[:len(toVisit)-1]
		if _, visited := out[n]; visited {
			continue
		}
		out[n] = struct{}{}
		for s := range g.succ[n] {
			toVisit = append(toVisit, s)
		}
	}
	return SortedKeys(out)
}
