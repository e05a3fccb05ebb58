package skeletons

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
)

// SelectIDs returns the sorted skeleton IDs selected by the configuration.  If
// all names are selected, every skeleton is returned.  Otherwise neurons are
// selected by name, by rename key and by annotation.
func SelectIDs(ctx context.Context, src Source, cfg config.SkeletonsConfig) ([]int64, error) {
	if cfg.Names.All() {
		return src.SkeletonIDs(ctx)
	}
	set := make(map[int64]struct{})
	add := func(skids []int64) {
		for _, skid := range skids {
			set[skid] = struct{}{}
		}
	}
	if names := cfg.Names.Names(); len(names) != 0 {
		skids, err := src.SkeletonIDsByName(ctx, names)
		if err != nil {
			return nil, err
		}
		add(skids)
	}
	if len(cfg.Rename) != 0 {
		skids, err := src.SkeletonIDsByName(ctx, catpub.SortedKeys(cfg.Rename))
		if err != nil {
			return nil, err
		}
		add(skids)
	}
	if len(cfg.Annotated) != 0 {
		skids, err := src.SkeletonIDsByAnnotation(ctx, cfg.Annotated)
		if err != nil {
			return nil, err
		}
		add(skids)
	}
	out := make([]int64, 0, len(set))
	for skid := range set {
		out = append(out, skid)
	}
	catpub.SortInt64s(out)
	return out, nil
}

// Progress is notified after each neuron is written.
type Progress func(done, total int)

// Export fetches every selected neuron in ascending ID order and writes it under
// outDir.  Neuron annotations are kept only if they are keys of annRename, the
// rename map of exported annotations.  It returns the number of neurons
// written; the README is written if that is non-zero.
func Export(ctx context.Context, src Source, cfg config.SkeletonsConfig, annRename map[string]string, outDir string, progress Progress) (int, error) {
	skids, err := SelectIDs(ctx, src, cfg)
	if err != nil {
		return 0, err
	}
	if len(skids) == 0 {
		return 0, nil
	}
	dir := filepath.Join(outDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("could not create neuron directory: %w", err)
	}
	timedLog := catpub.NewTimeLog()
	for i, skid := range skids {
		nrn, err := src.Neuron(ctx, skid)
		if err != nil {
			return i, err
		}
		out := Transform(nrn, cfg, annRename)
		if err := WriteNeuron(filepath.Join(dir, strconv.FormatInt(skid, 10)), out); err != nil {
			return i, err
		}
		catpub.Debugf("Wrote skeleton %d (%q) with %d nodes\n", skid, out.Meta.Name, len(out.Nodes))
		if progress != nil {
			progress(i+1, len(skids))
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(Readme), 0644); err != nil {
		return len(skids), err
	}
	timedLog.Infof("Wrote %d skeletons", len(skids))
	return len(skids), nil
}

// Neuron is a skeleton ready to be written.
type Neuron struct {
	Meta       Metadata
	Tags       map[string][]int64
	Nodes      []catmaid.SkeletonNode
	Connectors []catmaid.SkeletonConnector
}

// Transform renames a fetched neuron and filters its tags and annotations.
func Transform(nrn *catmaid.Neuron, cfg config.SkeletonsConfig, annRename map[string]string) *Neuron {
	name := nrn.Name
	if newName, found := cfg.Rename[name]; found {
		name = newName
	}
	out := &Neuron{
		Meta: Metadata{
			Annotations: renameAnnotations(nrn.Annotations, annRename),
			ID:          nrn.SkeletonID,
			Name:        name,
		},
		Tags:       FilterTags(nrn.Tags, cfg.Tags.Names, cfg.Tags.Rename),
		Nodes:      nrn.Nodes,
		Connectors: nrn.Connectors,
	}
	if soma, found := nrn.Soma(); found {
		out.Meta.SomaID = &soma
	}
	return out
}

func renameAnnotations(anns []string, rename map[string]string) []string {
	set := make(map[string]struct{}, len(anns))
	for _, ann := range anns {
		if newName, found := rename[ann]; found {
			set[newName] = struct{}{}
		}
	}
	return catpub.SortedKeys(set)
}

// FilterTags keeps the selected tags plus the keys of rename, renames them and
// sorts their node IDs.  Tags renamed to the same name are merged.
func FilterTags(tags map[string][]int64, names catpub.Selection, rename map[string]string) map[string][]int64 {
	filled := catpub.FillIn(rename, names.Resolve(catpub.SortedKeys(tags)))
	merged := make(map[string]map[int64]struct{})
	for tag, ids := range tags {
		newName, found := filled[tag]
		if !found {
			continue
		}
		set, found := merged[newName]
		if !found {
			set = make(map[int64]struct{}, len(ids))
			merged[newName] = set
		}
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	out := make(map[string][]int64, len(merged))
	for name, set := range merged {
		ids := make([]int64, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		catpub.SortInt64s(ids)
		out[name] = ids
	}
	return out
}

// SortNodes returns nodes ordered by a depth-first traversal from the roots,
// visiting roots and children in ascending ID order, so that parents always
// precede their children.  A node whose parent is missing is treated as a root,
// and a cycle is broken at its lowest node ID.  Either way the node is returned
// with a parent ID of -1.
func SortNodes(nodes []catmaid.SkeletonNode) []catmaid.SkeletonNode {
	byID := make(map[int64]catmaid.SkeletonNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	children := make(map[int64][]int64)
	var roots []int64
	for _, n := range nodes {
		if _, found := byID[n.ParentID]; n.ParentID < 0 || !found {
			if n.ParentID >= 0 {
				catpub.Warningf("Node %d has missing parent %d; treating as root\n", n.ID, n.ParentID)
			}
			roots = append(roots, n.ID)
			continue
		}
		children[n.ParentID] = append(children[n.ParentID], n.ID)
	}

	out := make([]catmaid.SkeletonNode, 0, len(byID))
	visited := make(map[int64]struct{}, len(byID))
	visit := func(root int64) {
		toVisit := []int64{root}
		for len(toVisit) > 0 {
			id := toVisit[len(toVisit)-1]
			toVisit = toVisit[:len(toVisit)-1]
			if _, found := visited[id]; found {
				continue
			}
			visited[id] = struct{}{}
			n := byID[id]
			if id == root {
				n.ParentID = -1
			}
			out = append(out, n)
			cs := children[id]
			catpub.SortInt64s(cs)
			for i := len(cs) - 1; i >= 0; i-- {
				toVisit = append(toVisit, cs[i])
			}
		}
	}
	catpub.SortInt64s(roots)
	for _, root := range roots {
		visit(root)
	}
	if len(out) != len(byID) {
		// only possible with a cycle
		var rest []int64
		for id := range byID {
			if _, found := visited[id]; !found {
				rest = append(rest, id)
			}
		}
		catpub.SortInt64s(rest)
		catpub.Warningf("%d nodes are in cycles; breaking each at its lowest node ID\n", len(rest))
		for _, id := range rest {
			visit(id)
		}
	}
	return out
}

// SortConnectors returns pre- and postsynaptic connectors sorted by node ID,
// connector ID and relation.  Other relations are dropped.
func SortConnectors(conns []catmaid.SkeletonConnector) []catmaid.SkeletonConnector {
	out := make([]catmaid.SkeletonConnector, 0, len(conns))
	for _, c := range conns {
		if c.Relation == catmaid.RelationPresynaptic || c.Relation == catmaid.RelationPostsynaptic {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NodeID != out[j].NodeID {
			return out[i].NodeID < out[j].NodeID
		}
		if out[i].ConnectorID != out[j].ConnectorID {
			return out[i].ConnectorID < out[j].ConnectorID
		}
		return out[i].Relation < out[j].Relation
	})
	return out
}

// WriteNeuron writes the files of one neuron into dir, which must not exist.
func WriteNeuron(dir string, nrn *Neuron) error {
	if err := os.Mkdir(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory for neuron %d: %w", nrn.Meta.ID, err)
	}
	if nrn.Meta.Annotations == nil {
		nrn.Meta.Annotations = []string{}
	}
	if err := catpub.WriteJSON(filepath.Join(dir, MetadataFile), nrn.Meta); err != nil {
		return err
	}
	tags := nrn.Tags
	if tags == nil {
		tags = map[string][]int64{}
	}
	if err := catpub.WriteJSON(filepath.Join(dir, TagsFile), tags); err != nil {
		return err
	}

	var rows [][]string
	for _, n := range SortNodes(nrn.Nodes) {
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10),
			strconv.FormatInt(n.ParentID, 10),
			catpub.FormatDecimal(n.Location[0]),
			catpub.FormatDecimal(n.Location[1]),
			catpub.FormatDecimal(n.Location[2]),
			catpub.FormatDecimal(n.Radius),
		})
	}
	if err := writeTSV(filepath.Join(dir, NodesFile), nodeColumns, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, c := range SortConnectors(nrn.Connectors) {
		rows = append(rows, []string{
			strconv.FormatInt(c.NodeID, 10),
			strconv.FormatInt(c.ConnectorID, 10),
			strconv.Itoa(c.Relation),
			catpub.FormatDecimal(c.Location[0]),
			catpub.FormatDecimal(c.Location[1]),
			catpub.FormatDecimal(c.Location[2]),
		})
	}
	return writeTSV(filepath.Join(dir, ConnectorsFile), connectorColumns, rows)
}

func writeTSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return f.Close()
}
