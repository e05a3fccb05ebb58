package skeletons

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/janelia-flyem/catpub/catpub"
)

// Reader gives access to an exported neuron directory.  Neuron metadata is
// read once and cached; a Reader is not safe for concurrent use.
type Reader struct {
	dir   string
	units string
	meta  map[int64]Metadata
}

// NewReader returns a reader for the neurons stored in dir.  The units are
// attached to every neuron read.
func NewReader(dir, units string) *Reader {
	return &Reader{dir: dir, units: units}
}

// Dir returns the directory being read.
func (r *Reader) Dir() string {
	return r.dir
}

// IDs returns the sorted skeleton IDs in the export.
func (r *Reader) IDs() ([]int64, error) {
	meta, err := r.metadata()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(meta))
	for id := range meta {
		ids = append(ids, id)
	}
	catpub.SortInt64s(ids)
	return ids, nil
}

func (r *Reader) metadata() (map[int64]Metadata, error) {
	if r.meta != nil {
		return r.meta, nil
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("could not list neurons: %w", err)
	}
	meta := make(map[int64]Metadata, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		var m Metadata
		if err := catpub.ReadJSON(filepath.Join(r.dir, entry.Name(), MetadataFile), &m); err != nil {
			return nil, err
		}
		meta[m.ID] = m
	}
	r.meta = meta
	return meta, nil
}

// NameToID maps neuron names to skeleton IDs.
func (r *Reader) NameToID() (map[string]int64, error) {
	meta, err := r.metadata()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(meta))
	for id, m := range meta {
		out[m.Name] = id
	}
	return out, nil
}

// AnnotationToIDs maps each annotation to the sorted IDs of neurons it is applied to.
func (r *Reader) AnnotationToIDs() (map[string][]int64, error) {
	meta, err := r.metadata()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]int64)
	for id, m := range meta {
		for _, ann := range m.Annotations {
			out[ann] = append(out[ann], id)
		}
	}
	for _, ids := range out {
		catpub.SortInt64s(ids)
	}
	return out, nil
}

// AnnotationGraph returns a graph with an edge from each annotation to the name of
// each neuron it is applied to.
func (r *Reader) AnnotationGraph() (*catpub.Graph, error) {
	meta, err := r.metadata()
	if err != nil {
		return nil, err
	}
	g := catpub.NewGraph()
	for _, m := range meta {
		g.AddNode(m.Name, catpub.NeuronNode)
		for _, ann := range m.Annotations {
			if !g.HasNode(ann) {
				g.AddNode(ann, catpub.AnnotationNode)
			}
			g.AddEdge(ann, m.Name, catpub.EdgeProperties{MetaAnnotation: false})
		}
	}
	return g, nil
}

// ByID reads a neuron.
func (r *Reader) ByID(skid int64) (*TreeNeuron, error) {
	dir := filepath.Join(r.dir, strconv.FormatInt(skid, 10))
	if !catpub.IsDir(dir) {
		return nil, fmt.Errorf("neuron %d: %w", skid, catpub.ErrNotFound)
	}
	var meta Metadata
	if err := catpub.ReadJSON(filepath.Join(dir, MetadataFile), &meta); err != nil {
		return nil, err
	}
	tags := make(map[string][]int64)
	if err := catpub.ReadJSON(filepath.Join(dir, TagsFile), &tags); err != nil {
		return nil, err
	}
	nodes, err := readNodes(filepath.Join(dir, NodesFile))
	if err != nil {
		return nil, err
	}
	conns, err := readConnectors(filepath.Join(dir, ConnectorsFile))
	if err != nil {
		return nil, err
	}
	return newTreeNeuron(meta, nodes, conns, tags, r.units), nil
}

// ByName reads the neuron with the given name.
func (r *Reader) ByName(name string) (*TreeNeuron, error) {
	ids, err := r.NameToID()
	if err != nil {
		return nil, err
	}
	skid, found := ids[name]
	if !found {
		return nil, fmt.Errorf("neuron %q: %w", name, catpub.ErrNotFound)
	}
	return r.ByID(skid)
}

// ByAnnotation reads every neuron with the given annotation, in ID order.
func (r *Reader) ByAnnotation(annotation string) ([]*TreeNeuron, error) {
	ids, err := r.AnnotationToIDs()
	if err != nil {
		return nil, err
	}
	skids, found := ids[annotation]
	if !found {
		return nil, fmt.Errorf("annotation %q: %w", annotation, catpub.ErrNotFound)
	}
	return r.read(skids)
}

// All reads every neuron in ID order.
func (r *Reader) All() ([]*TreeNeuron, error) {
	skids, err := r.IDs()
	if err != nil {
		return nil, err
	}
	return r.read(skids)
}

func (r *Reader) read(skids []int64) ([]*TreeNeuron, error) {
	out := make([]*TreeNeuron, 0, len(skids))
	for _, skid := range skids {
		nrn, err := r.ByID(skid)
		if err != nil {
			return nil, err
		}
		out = append(out, nrn)
	}
	return out, nil
}

// readTSV returns the rows of a tab-separated file as maps from column name,
// checking that the header holds the expected columns.
func readTSV(path string, columns []string, fn func(row map[string]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.Comma = '\t'
	header, err := rd.Read()
	if err != nil {
		return fmt.Errorf("could not read header of %s: %w", path, err)
	}
	have := append([]string{}, header...)
	want := append([]string{}, columns...)
	sort.Strings(have)
	sort.Strings(want)
	if fmt.Sprint(have) != fmt.Sprint(want) {
		return fmt.Errorf("%s has columns %v, expected %v", path, header, columns)
	}
	row := make(map[string]string, len(header))
	for line := 2; ; line++ {
		rec, err := rd.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for i, col := range header {
			row[col] = rec[i]
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}

func parseInt(row map[string]string, col string) (int64, error) {
	v, err := strconv.ParseInt(row[col], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s: %w", col, err)
	}
	return v, nil
}

func parseVector(row map[string]string) (catpub.Vector3d, error) {
	var v catpub.Vector3d
	for i, col := range []string{"x", "y", "z"} {
		f, err := catpub.ParseDecimal(row[col])
		if err != nil {
			return v, fmt.Errorf("bad %s: %w", col, err)
		}
		v[i] = f
	}
	return v, nil
}

func readNodes(path string) ([]Node, error) {
	var nodes []Node
	err := readTSV(path, nodeColumns, func(row map[string]string) error {
		var n Node
		var err error
		if n.ID, err = parseInt(row, "node_id"); err != nil {
			return err
		}
		if n.ParentID, err = parseInt(row, "parent_id"); err != nil {
			return err
		}
		if n.Location, err = parseVector(row); err != nil {
			return err
		}
		if n.Radius, err = catpub.ParseDecimal(row["radius"]); err != nil {
			return fmt.Errorf("bad radius: %w", err)
		}
		nodes = append(nodes, n)
		return nil
	})
	return nodes, err
}

func readConnectors(path string) ([]Connector, error) {
	var conns []Connector
	err := readTSV(path, connectorColumns, func(row map[string]string) error {
		var c Connector
		var err error
		if c.NodeID, err = parseInt(row, "node_id"); err != nil {
			return err
		}
		if c.ConnectorID, err = parseInt(row, "connector_id"); err != nil {
			return err
		}
		switch row["is_input"] {
		case "0":
		case "1":
			c.IsInput = true
		default:
			return fmt.Errorf("bad is_input %q", row["is_input"])
		}
		if c.Location, err = parseVector(row); err != nil {
			return err
		}
		conns = append(conns, c)
		return nil
	})
	return conns, err
}
