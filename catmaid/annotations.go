package catmaid

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/janelia-flyem/catpub/catpub"
)

// Annotation is an entry of the project's annotation list.
type Annotation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type entityAnnotation struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// entity is an element of a query-targets response.
type entity struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Type        string             `json:"type"`
	SkeletonIDs []int64            `json:"skeleton_ids"`
	Annotations []entityAnnotation `json:"annotations"`
}

type queryTargetsResponse struct {
	Entities     []entity `json:"entities"`
	TotalRecords int      `json:"totalRecords"`
}

// AnnotationGraph holds annotation hierarchy and neuron membership.
type AnnotationGraph struct {
	// Annotations is the graph of annotation names, with an edge from each
	// meta-annotation to the annotation it annotates.
	Annotations *catpub.Graph
}

// Annotations returns every annotation in the project.
func (c *Client) Annotations(ctx context.Context) ([]Annotation, error) {
	var resp struct {
		Annotations []Annotation `json:"annotations"`
	}
	if err := c.getJSON(ctx, "annotations/", nil, &resp); err != nil {
		return nil, fmt.Errorf("could not list annotations: %w", err)
	}
	sort.Slice(resp.Annotations, func(i, j int) bool { return resp.Annotations[i].ID < resp.Annotations[j].ID })
	return resp.Annotations, nil
}

func (c *Client) queryTargets(ctx context.Context, form url.Values) ([]entity, error) {
	var resp queryTargetsResponse
	if err := c.postJSON(ctx, "annotations/query-targets", form, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// AnnotationGraph returns the annotation hierarchy and which annotations are
// applied to each neuron.
func (c *Client) AnnotationGraph(ctx context.Context) (*AnnotationGraph, error) {
	form := url.Values{}
	form.Set("with_annotations", "true")
	form.Set("sort_by", "id")
	form.Set("sort_dir", "ASC")
	listForm(form, "types", []string{"neuron", "annotation"})
	entities, err := c.queryTargets(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("could not fetch annotation graph: %w", err)
	}

	ag := &AnnotationGraph{
		Annotations: catpub.NewGraph(),
	}
	for _, e := range entities {
		switch e.Type {
		case "annotation":
			ag.Annotations.AddNode(e.Name, catpub.AnnotationNode)
			for _, ann := range e.Annotations {
				ag.Annotations.AddNode(ann.Name, catpub.AnnotationNode)
				ag.Annotations.AddEdge(ann.Name, e.Name, catpub.EdgeProperties{MetaAnnotation: true})
			}
		case "neuron":
			// annotations used only on neurons are still part of the graph
			for _, ann := range e.Annotations {
				ag.Annotations.AddNode(ann.Name, catpub.AnnotationNode)
			}
		default:
			catpub.Debugf("Ignoring query-targets entity %d of type %q\n", e.ID, e.Type)
		}
	}
	return ag, nil
}

// SkeletonIDsByName returns the IDs of skeletons whose neuron has exactly one of
// the given names.
func (c *Client) SkeletonIDsByName(ctx context.Context, names []string) ([]int64, error) {
	skids := make(map[int64]struct{})
	for _, name := range names {
		form := url.Values{}
		form.Set("name", name)
		form.Set("name_exact", "true")
		form.Set("with_annotations", "false")
		listForm(form, "types", []string{"neuron"})
		entities, err := c.queryTargets(ctx, form)
		if err != nil {
			return nil, fmt.Errorf("could not find neurons named %q: %w", name, err)
		}
		var found bool
		for _, e := range entities {
			if e.Type != "neuron" || e.Name != name {
				continue
			}
			found = true
			for _, skid := range e.SkeletonIDs {
				skids[skid] = struct{}{}
			}
		}
		if !found {
			catpub.Warningf("No neuron named %q found\n", name)
		}
	}
	return sortedIDs(skids), nil
}

// SkeletonIDsByAnnotation returns the IDs of skeletons whose neuron carries any
// of the given annotations.  Sub-annotations are not followed.
func (c *Client) SkeletonIDsByAnnotation(ctx context.Context, annotations []string) ([]int64, error) {
	if len(annotations) == 0 {
		return nil, nil
	}
	all, err := c.Annotations(ctx)
	if err != nil {
		return nil, err
	}
	nameToID := make(map[string]int64, len(all))
	for _, ann := range all {
		nameToID[ann.Name] = ann.ID
	}
	var ids []string
	for _, name := range annotations {
		id, found := nameToID[name]
		if !found {
			catpub.Warningf("Annotation %q does not exist\n", name)
			continue
		}
		ids = append(ids, fmt.Sprintf("%d", id))
	}
	if len(ids) == 0 {
		return nil, nil
	}

	form := url.Values{}
	// IDs within one annotated_with element are combined with OR.
	listForm(form, "annotated_with", []string{strings.Join(ids, ",")})
	form.Set("with_annotations", "false")
	listForm(form, "types", []string{"neuron"})
	entities, err := c.queryTargets(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("could not find neurons annotated with %v: %w", annotations, err)
	}
	skids := make(map[int64]struct{})
	for _, e := range entities {
		if e.Type != "neuron" {
			continue
		}
		for _, skid := range e.SkeletonIDs {
			skids[skid] = struct{}{}
		}
	}
	return sortedIDs(skids), nil
}

func sortedIDs(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	catpub.SortInt64s(out)
	return out
}
