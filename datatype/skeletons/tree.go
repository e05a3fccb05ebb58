package skeletons

import (
	"github.com/janelia-flyem/catpub/catpub"
)

// Node is a skeleton tree node.  ParentID is -1 for a root and Radius is -1 if
// unmeasured.
type Node struct {
	ID       int64
	ParentID int64
	Location catpub.Vector3d
	Radius   float64
}

// Connector is a synapse site attached to a node.  IsInput is true for a
// postsynaptic site.
type Connector struct {
	NodeID      int64
	ConnectorID int64
	IsInput     bool
	Location    catpub.Vector3d
}

// TreeNeuron is a neuron read from an export.
type TreeNeuron struct {
	ID          int64
	Name        string
	SomaID      *int64
	Annotations []string
	Tags        map[string][]int64

	// Nodes are ordered so that parents precede children.
	Nodes      []Node
	Connectors []Connector

	// Units of spatial data, if known.
	Units string

	index    map[int64]int
	children map[int64][]int64
}

func newTreeNeuron(meta Metadata, nodes []Node, conns []Connector, tags map[string][]int64, units string) *TreeNeuron {
	t := &TreeNeuron{
		ID:          meta.ID,
		Name:        meta.Name,
		SomaID:      meta.SomaID,
		Annotations: meta.Annotations,
		Tags:        tags,
		Nodes:       nodes,
		Connectors:  conns,
		Units:       units,
		index:       make(map[int64]int, len(nodes)),
		children:    make(map[int64][]int64),
	}
	for i, n := range nodes {
		t.index[n.ID] = i
	}
	for _, n := range nodes {
		if n.ParentID >= 0 {
			t.children[n.ParentID] = append(t.children[n.ParentID], n.ID)
		}
	}
	for _, cs := range t.children {
		catpub.SortInt64s(cs)
	}
	return t
}

// Root returns the IDs of root nodes in file order.  A well-formed skeleton has
// exactly one.
func (t *TreeNeuron) Root() []int64 {
	var roots []int64
	for _, n := range t.Nodes {
		if n.ParentID < 0 {
			roots = append(roots, n.ID)
		}
	}
	return roots
}

// Node returns the node with the given ID.
func (t *TreeNeuron) Node(id int64) (Node, bool) {
	i, found := t.index[id]
	if !found {
		return Node{}, false
	}
	return t.Nodes[i], true
}

// Children returns the sorted IDs of a node's children.
func (t *TreeNeuron) Children(id int64) []int64 {
	cs := t.children[id]
	out := make([]int64, len(cs))
	copy(out, cs)
	return out
}

// CableLength is the summed length of all parent-child edges, in Units.
func (t *TreeNeuron) CableLength() float64 {
	var length float64
	for _, n := range t.Nodes {
		if n.ParentID < 0 {
			continue
		}
		if parent, found := t.Node(n.ParentID); found {
			length += n.Location.Distance(parent.Location)
		}
	}
	return length
}

// Inputs returns the postsynaptic connectors.
func (t *TreeNeuron) Inputs() []Connector {
	return t.connectors(true)
}

// Outputs returns the presynaptic connectors.
func (t *TreeNeuron) Outputs() []Connector {
	return t.connectors(false)
}

func (t *TreeNeuron) connectors(input bool) []Connector {
	var out []Connector
	for _, c := range t.Connectors {
		if c.IsInput == input {
			out = append(out, c)
		}
	}
	return out
}
