package catmaid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/janelia-flyem/catpub/catpub"
)

// Connector relations as reported by compact-detail.
const (
	RelationPresynaptic  = 0
	RelationPostsynaptic = 1
)

// SomaTag is the node tag marking a neuron's soma.
const SomaTag = "soma"

// SkeletonNode is a skeleton tree node.  ParentID is -1 for a root.
type SkeletonNode struct {
	ID       int64
	ParentID int64
	Location catpub.Vector3d
	Radius   float64
}

// SkeletonConnector links a skeleton node to a connector.
type SkeletonConnector struct {
	NodeID      int64
	ConnectorID int64
	Relation    int
	Location    catpub.Vector3d
}

// Neuron is a skeleton with its neuron-level information.
type Neuron struct {
	SkeletonID  int64
	Name        string
	Nodes       []SkeletonNode
	Connectors  []SkeletonConnector
	Tags        map[string][]int64
	Annotations []string
}

// Soma returns the ID of the node tagged as soma.  If several nodes carry the
// tag, the lowest ID is returned.
func (n *Neuron) Soma() (int64, bool) {
	ids := n.Tags[SomaTag]
	if len(ids) == 0 {
		return 0, false
	}
	soma := ids[0]
	for _, id := range ids[1:] {
		if id < soma {
			soma = id
		}
	}
	return soma, true
}

// SkeletonIDs returns the IDs of every skeleton in the project.
func (c *Client) SkeletonIDs(ctx context.Context) ([]int64, error) {
	var skids []int64
	if err := c.getJSON(ctx, "skeletons/", nil, &skids); err != nil {
		return nil, fmt.Errorf("could not list skeletons: %w", err)
	}
	catpub.SortInt64s(skids)
	return skids, nil
}

// NeuronNames returns the neuron name of each given skeleton.
func (c *Client) NeuronNames(ctx context.Context, skids []int64) (map[int64]string, error) {
	form := url.Values{}
	listForm(form, "skids", int64Strings(skids))
	var resp map[string]string
	if err := c.postJSON(ctx, "skeleton/neuronnames", form, &resp); err != nil {
		return nil, fmt.Errorf("could not get neuron names: %w", err)
	}
	out := make(map[int64]string, len(resp))
	for k, name := range resp {
		skid, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad skeleton ID %q in neuron names: %w", k, err)
		}
		out[skid] = name
	}
	return out, nil
}

// SkeletonAnnotations returns the sorted annotation names of each given skeleton.
func (c *Client) SkeletonAnnotations(ctx context.Context, skids []int64) (map[int64][]string, error) {
	form := url.Values{}
	listForm(form, "skeleton_ids", int64Strings(skids))
	var resp struct {
		Skeletons map[string][]struct {
			ID int64 `json:"id"`
		} `json:"skeletons"`
		Annotations map[string]string `json:"annotations"`
	}
	if err := c.postJSON(ctx, "annotations/forskeletons", form, &resp); err != nil {
		return nil, fmt.Errorf("could not get skeleton annotations: %w", err)
	}
	out := make(map[int64][]string, len(skids))
	for _, skid := range skids {
		out[skid] = []string{}
	}
	for k, anns := range resp.Skeletons {
		skid, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad skeleton ID %q in annotations: %w", k, err)
		}
		names := make([]string, 0, len(anns))
		for _, ann := range anns {
			name, found := resp.Annotations[strconv.FormatInt(ann.ID, 10)]
			if !found {
				return nil, fmt.Errorf("annotation %d of skeleton %d has no name", ann.ID, skid)
			}
			names = append(names, name)
		}
		sort.Strings(names)
		out[skid] = names
	}
	return out, nil
}

// Neuron fetches one skeleton with its nodes, connectors, tags, name and annotations.
func (c *Client) Neuron(ctx context.Context, skid int64) (*Neuron, error) {
	query := url.Values{}
	query.Set("with_tags", "true")
	query.Set("with_connectors", "true")
	query.Set("with_history", "false")
	var detail []json.RawMessage
	endpoint := fmt.Sprintf("skeletons/%d/compact-detail", skid)
	if err := c.getJSON(ctx, endpoint, query, &detail); err != nil {
		return nil, fmt.Errorf("could not fetch skeleton %d: %w", skid, err)
	}
	nrn, err := parseCompactDetail(skid, detail)
	if err != nil {
		return nil, err
	}

	names, err := c.NeuronNames(ctx, []int64{skid})
	if err != nil {
		return nil, err
	}
	nrn.Name = names[skid]

	anns, err := c.SkeletonAnnotations(ctx, []int64{skid})
	if err != nil {
		return nil, err
	}
	nrn.Annotations = anns[skid]
	return nrn, nil
}

// parseCompactDetail decodes the [nodes, connectors, tags, ...] compact-detail form.
func parseCompactDetail(skid int64, detail []json.RawMessage) (*Neuron, error) {
	if len(detail) < 3 {
		return nil, fmt.Errorf("skeleton %d: compact-detail has %d elements, expected at least 3", skid, len(detail))
	}
	nrn := &Neuron{SkeletonID: skid, Tags: make(map[string][]int64)}

	// [id, parent_id, user_id, x, y, z, radius, confidence, ...]
	var nodeRows [][]json.RawMessage
	if err := json.Unmarshal(detail[0], &nodeRows); err != nil {
		return nil, fmt.Errorf("skeleton %d: bad node rows: %w", skid, err)
	}
	for i, raw := range nodeRows {
		row, err := rowNumbers(raw, 7)
		if err != nil {
			return nil, fmt.Errorf("skeleton %d: malformed node row %d: %w", skid, i, err)
		}
		node := SkeletonNode{ParentID: -1, Radius: -1}
		if node.ID, err = row[0].Int64(); err != nil {
			return nil, fmt.Errorf("skeleton %d: bad node ID in row %d: %w", skid, i, err)
		}
		if row[1] != "" {
			if node.ParentID, err = row[1].Int64(); err != nil {
				return nil, fmt.Errorf("skeleton %d: bad parent ID of node %d: %w", skid, node.ID, err)
			}
		}
		if node.Location, err = parseLocation(row[3:6]); err != nil {
			return nil, fmt.Errorf("skeleton %d: bad location of node %d: %w", skid, node.ID, err)
		}
		if row[6] != "" {
			if node.Radius, err = row[6].Float64(); err != nil {
				return nil, fmt.Errorf("skeleton %d: bad radius of node %d: %w", skid, node.ID, err)
			}
		}
		nrn.Nodes = append(nrn.Nodes, node)
	}

	// [treenode_id, connector_id, relation, x, y, z]
	var connRows [][]json.RawMessage
	if err := json.Unmarshal(detail[1], &connRows); err != nil {
		return nil, fmt.Errorf("skeleton %d: bad connector rows: %w", skid, err)
	}
	for i, raw := range connRows {
		row, err := rowNumbers(raw, 6)
		if err != nil {
			return nil, fmt.Errorf("skeleton %d: malformed connector row %d: %w", skid, i, err)
		}
		var conn SkeletonConnector
		if conn.NodeID, err = row[0].Int64(); err != nil {
			return nil, fmt.Errorf("skeleton %d: bad node ID in connector row %d: %w", skid, i, err)
		}
		if conn.ConnectorID, err = row[1].Int64(); err != nil {
			return nil, fmt.Errorf("skeleton %d: bad connector ID in connector row %d: %w", skid, i, err)
		}
		rel, err := row[2].Int64()
		if err != nil {
			return nil, fmt.Errorf("skeleton %d: bad relation in connector row %d: %w", skid, i, err)
		}
		conn.Relation = int(rel)
		if conn.Location, err = parseLocation(row[3:6]); err != nil {
			return nil, fmt.Errorf("skeleton %d: bad location in connector row %d: %w", skid, i, err)
		}
		nrn.Connectors = append(nrn.Connectors, conn)
	}

	// Tags come as an object when present and as an empty array otherwise.
	var tags map[string][]int64
	if err := json.Unmarshal(detail[2], &tags); err != nil {
		var empty []interface{}
		if err2 := json.Unmarshal(detail[2], &empty); err2 != nil || len(empty) != 0 {
			return nil, fmt.Errorf("skeleton %d: bad tags: %w", skid, err)
		}
	}
	for tag, ids := range tags {
		nrn.Tags[tag] = ids
	}
	return nrn, nil
}

func parseLocation(xyz []json.Number) (catpub.Vector3d, error) {
	var v catpub.Vector3d
	for i, n := range xyz {
		f, err := n.Float64()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

// rowNumbers decodes the first n columns of a row.  A null decodes to an empty Number.
func rowNumbers(row []json.RawMessage, n int) ([]json.Number, error) {
	if len(row) < n {
		return nil, fmt.Errorf("%d columns, expected at least %d", len(row), n)
	}
	out := make([]json.Number, n)
	for i := 0; i < n; i++ {
		if err := json.Unmarshal(row[i], &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
