/*
	Package skeletons exports CATMAID neurons as skeleton trees with their tags,
	connectors and metadata, one directory per neuron, and reads them back as
	TreeNeuron values.
*/
package skeletons

import (
	"context"
	_ "embed"

	"github.com/janelia-flyem/catpub/catmaid"
)

const (
	// DirName is the export subdirectory holding one directory per neuron.
	DirName = "neurons"

	MetadataFile   = "metadata.json"
	TagsFile       = "tags.json"
	NodesFile      = "nodes.tsv"
	ConnectorsFile = "connectors.tsv"
)

var (
	nodeColumns      = []string{"node_id", "parent_id", "x", "y", "z", "radius"}
	connectorColumns = []string{"node_id", "connector_id", "is_input", "x", "y", "z"}
)

// Readme describes the neuron files of an export.
//
//go:embed readme.md
var Readme string

// Metadata is the content of a neuron's metadata.json.  Fields are in key order.
type Metadata struct {
	Annotations []string `json:"annotations"`
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	SomaID      *int64   `json:"soma_id"`
}

// Source supplies skeletons from a CATMAID project.
type Source interface {
	SkeletonIDs(ctx context.Context) ([]int64, error)
	SkeletonIDsByName(ctx context.Context, names []string) ([]int64, error)
	SkeletonIDsByAnnotation(ctx context.Context, annotations []string) ([]int64, error)
	Neuron(ctx context.Context, skid int64) (*catmaid.Neuron, error)
}
