package catmaid_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/tests"
)

func TestNewClientValidation(t *testing.T) {
	bad := []catmaid.ClientConfig{
		{ProjectID: 1},
		{Server: "http://x"},
		{Server: "ftp://x", ProjectID: 1},
		{Server: "://bad", ProjectID: 1},
	}
	for _, cfg := range bad {
		if _, err := catmaid.NewClient(cfg); err == nil {
			t.Errorf("expected error for config %+v", cfg)
		}
	}
	c, err := catmaid.NewClient(catmaid.ClientConfig{Server: "https://catmaid.example.org/sub/", ProjectID: 4})
	if err != nil {
		t.Fatal(err)
	}
	if c.Server() != "https://catmaid.example.org/sub" {
		t.Errorf("unexpected server %q", c.Server())
	}
	if c.ProjectID() != 4 {
		t.Errorf("unexpected project %d", c.ProjectID())
	}
}

func TestBadToken(t *testing.T) {
	srv := tests.NewFakeCATMAID(tests.SampleProject())
	defer srv.Close()

	c, err := catmaid.NewClient(catmaid.ClientConfig{Server: srv.URL, ProjectID: 1, APIToken: "wrong"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.SkeletonIDs(context.Background())
	var apiErr *catmaid.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != 403 || apiErr.Type != "PermissionError" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestSkeletonQueries(t *testing.T) {
	srv, c := tests.SampleClient()
	defer srv.Close()
	ctx := context.Background()

	skids, err := c.SkeletonIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(skids, []int64{11, 22, 33}) {
		t.Errorf("unexpected skeleton IDs %v", skids)
	}

	skids, err = c.SkeletonIDsByName(ctx, []string{"neuron B", "neuron", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(skids, []int64{22}) {
		t.Errorf("exact name search gave %v", skids)
	}

	skids, err = c.SkeletonIDsByAnnotation(ctx, []string{"internal", "lineage A left", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(skids, []int64{11, 22}) {
		t.Errorf("annotation search gave %v", skids)
	}

	// sub-annotations are not followed
	skids, err = c.SkeletonIDsByAnnotation(ctx, []string{"lineage A"})
	if err != nil {
		t.Fatal(err)
	}
	if len(skids) != 0 {
		t.Errorf("expected no neurons directly annotated with lineage A, got %v", skids)
	}
}

func TestNeuron(t *testing.T) {
	srv, c := tests.SampleClient()
	defer srv.Close()

	nrn, err := c.Neuron(context.Background(), 11)
	if err != nil {
		t.Fatal(err)
	}
	if nrn.Name != "neuron A" || nrn.SkeletonID != 11 {
		t.Errorf("unexpected neuron %d %q", nrn.SkeletonID, nrn.Name)
	}
	if len(nrn.Nodes) != 4 || len(nrn.Connectors) != 3 {
		t.Fatalf("got %d nodes and %d connectors", len(nrn.Nodes), len(nrn.Connectors))
	}
	for _, n := range nrn.Nodes {
		if n.ID == 1 && (n.ParentID != -1 || n.Radius != 10) {
			t.Errorf("bad root node %+v", n)
		}
		if n.ID == 2 && (n.ParentID != 1 || n.Radius != 0.5) {
			t.Errorf("bad node %+v", n)
		}
	}
	if !reflect.DeepEqual(nrn.Annotations, []string{"internal", "paper 1 neurons"}) {
		t.Errorf("unexpected annotations %v", nrn.Annotations)
	}
	soma, found := nrn.Soma()
	if !found || soma != 1 {
		t.Errorf("expected soma 1, got %d (%t)", soma, found)
	}

	nrn, err = c.Neuron(context.Background(), 22)
	if err != nil {
		t.Fatal(err)
	}
	if len(nrn.Tags) != 0 {
		t.Errorf("expected no tags, got %v", nrn.Tags)
	}
	if _, found := nrn.Soma(); found {
		t.Errorf("expected no soma")
	}

	_, err = c.Neuron(context.Background(), 999)
	var apiErr *catmaid.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != "ValueError" {
		t.Errorf("expected ValueError for missing skeleton, got %v", err)
	}
}

func TestAnnotationGraph(t *testing.T) {
	srv, c := tests.SampleClient()
	defer srv.Close()

	ag, err := c.AnnotationGraph(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	g := ag.Annotations
	if got := g.Successors("published"); !reflect.DeepEqual(got, []string{"lineage A", "paper 1 neurons"}) {
		t.Errorf("published annotates %v", got)
	}
	if got := g.Successors("lineage A"); !reflect.DeepEqual(got, []string{"lineage A left"}) {
		t.Errorf("lineage A annotates %v", got)
	}
	if !g.HasNode("unrelated") || !g.HasNode("internal") {
		t.Errorf("expected neuron-only annotations in graph: %v", g.Nodes())
	}

	anns, err := c.Annotations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(anns) != 6 {
		t.Errorf("expected 6 annotations, got %d", len(anns))
	}
}

func TestLandmarksAndVolumes(t *testing.T) {
	srv, c := tests.SampleClient()
	defer srv.Close()
	ctx := context.Background()

	lmarks, err := c.Landmarks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(lmarks) != 2 || lmarks[0].Name != "entry A" || len(lmarks[0].Locations) != 2 {
		t.Errorf("unexpected landmarks %+v", lmarks)
	}
	groups, err := c.LandmarkGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 || groups[0].Name != "left" || len(groups[0].Locations) != 2 {
		t.Errorf("unexpected groups %+v", groups)
	}

	vols, err := c.Volumes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(vols, []catmaid.VolumeInfo{{ID: 5, Name: "neuropil"}, {ID: 6, Name: "cell body layer"}}) {
		t.Errorf("unexpected volumes %+v", vols)
	}
	vol, err := c.Volume(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(vol.Vertices) != 4 || len(vol.Faces) != 4 || vol.Name != "neuropil" {
		t.Errorf("unexpected volume %+v", vol)
	}
	if _, err := c.Volume(ctx, 77); err == nil {
		t.Errorf("expected error for missing volume")
	}
}

func TestRateLimit(t *testing.T) {
	srv := tests.NewFakeCATMAID(tests.SampleProject())
	defer srv.Close()

	c, err := catmaid.NewClient(catmaid.ClientConfig{
		Server:            srv.URL,
		ProjectID:         1,
		APIToken:          tests.SampleToken,
		RequestsPerSecond: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	for i := 0; i < 25; i++ {
		if _, err := c.SkeletonIDs(ctx); err != nil {
			t.Fatal(err)
		}
	}
	// 20 requests of burst, then 5 more at 20/s
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("25 requests at 20/s took only %s", elapsed)
	}
	if got := len(srv.Requests()); got != 25 {
		t.Errorf("server saw %d requests", got)
	}
}
