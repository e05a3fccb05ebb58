package tests

import (
	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
)

// SampleToken is the API token required by the sample project.
const SampleToken = "sample-token"

// Tetrahedron is a closed mesh with 4 vertices and 4 faces.
var Tetrahedron = FakeVolume{
	Vertices: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	Faces:    [][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
}

// SampleProject returns a small project exercising meta-annotations, renaming,
// tag filtering, connector relations, shared landmark locations and volumes.
//
// Annotation hierarchy:
//
//	published -> paper 1 neurons -> neuron A
//	published -> lineage A -> lineage A left -> neuron B
//	internal -> neuron A
//	unrelated -> neuron C
func SampleProject() *FakeProject {
	neuropil := Tetrahedron
	neuropil.ID, neuropil.Name = 5, "neuropil"
	cbl := FakeVolume{
		ID:       6,
		Name:     "cell body layer",
		Vertices: [][3]float64{{10, 10, 10}, {11.5, 10, 10}, {10, 11.5, 10}, {10, 10, 11.5}},
		Faces:    Tetrahedron.Faces,
	}
	return &FakeProject{
		ID:    1,
		Token: SampleToken,
		Annotations: []FakeAnnotation{
			{Name: "paper 1 neurons", Meta: []string{"published"}},
			{Name: "lineage A", Meta: []string{"published"}},
			{Name: "lineage A left", Meta: []string{"lineage A"}},
			{Name: "internal"},
		},
		Neurons: []catmaid.Neuron{
			{
				SkeletonID:  11,
				Name:        "neuron A",
				Annotations: []string{"internal", "paper 1 neurons"},
				Nodes: []catmaid.SkeletonNode{
					{ID: 4, ParentID: 2, Location: catpub.Vector3d{4, 4, 4}, Radius: -1},
					{ID: 2, ParentID: 1, Location: catpub.Vector3d{2, 2, 2}, Radius: 0.5},
					{ID: 3, ParentID: 1, Location: catpub.Vector3d{3, 3, 3}, Radius: -1},
					{ID: 1, ParentID: -1, Location: catpub.Vector3d{1, 1, 1}, Radius: 10},
				},
				Connectors: []catmaid.SkeletonConnector{
					{NodeID: 4, ConnectorID: 500, Relation: catmaid.RelationPresynaptic, Location: catpub.Vector3d{4.5, 4, 4}},
					{NodeID: 2, ConnectorID: 502, Relation: 2, Location: catpub.Vector3d{2.5, 2, 2}},
					{NodeID: 2, ConnectorID: 501, Relation: catmaid.RelationPostsynaptic, Location: catpub.Vector3d{2, 2.5, 2}},
				},
				Tags: map[string][]int64{
					"soma": {1},
					"ends": {4, 3},
					"todo": {2},
				},
			},
			{
				SkeletonID:  22,
				Name:        "neuron B",
				Annotations: []string{"lineage A left"},
				Nodes: []catmaid.SkeletonNode{
					{ID: 10, ParentID: -1, Location: catpub.Vector3d{100, 100, 100}, Radius: -1},
					{ID: 11, ParentID: 10, Location: catpub.Vector3d{103, 104, 100}, Radius: -1},
				},
				Connectors: []catmaid.SkeletonConnector{
					{NodeID: 11, ConnectorID: 500, Relation: catmaid.RelationPostsynaptic, Location: catpub.Vector3d{4.5, 4, 4}},
				},
			},
			{
				SkeletonID:  33,
				Name:        "neuron C",
				Annotations: []string{"unrelated"},
				Nodes: []catmaid.SkeletonNode{
					{ID: 20, ParentID: -1, Location: catpub.Vector3d{0, 0, 0}, Radius: 2},
				},
			},
		},
		Landmarks: []catmaid.Landmark{
			{ID: 2, Name: "entry B", Locations: []catmaid.Location{{ID: 3, X: 1, Y: 1, Z: 1}}},
			{ID: 1, Name: "entry A", Locations: []catmaid.Location{
				{ID: 1, X: 10, Y: 20, Z: 30},
				{ID: 2, X: 40, Y: 50, Z: 60},
			}},
		},
		Groups: []catmaid.LandmarkGroup{
			{ID: 7, Name: "left", Locations: []catmaid.Location{
				{ID: 1, X: 10, Y: 20, Z: 30},
				{ID: 3, X: 1, Y: 1, Z: 1},
			}},
			{ID: 8, Name: "right", Locations: []catmaid.Location{
				{ID: 2, X: 40, Y: 50, Z: 60},
			}},
		},
		Volumes: []FakeVolume{neuropil, cbl},
	}
}

// SampleClient returns a client for a fake server of the sample project.
func SampleClient() (*FakeCATMAID, *catmaid.Client) {
	srv := NewFakeCATMAID(SampleProject())
	client, err := catmaid.NewClient(catmaid.ClientConfig{
		Server:    srv.URL,
		ProjectID: 1,
		APIToken:  SampleToken,
	})
	if err != nil {
		srv.Close()
		panic(err)
	}
	return srv, client
}
