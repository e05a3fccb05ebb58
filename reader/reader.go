/*
	Package reader opens an export directory and gives typed access to each kind
	of exported data present in it.
*/
package reader

import (
	"fmt"
	"path/filepath"

	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/datatype/annotations"
	"github.com/janelia-flyem/catpub/datatype/landmarks"
	"github.com/janelia-flyem/catpub/datatype/skeletons"
	"github.com/janelia-flyem/catpub/datatype/volumes"
)

// DataReader reads an export.  Each reader is nil if its data is absent.
type DataReader struct {
	Dir string

	// Metadata is nil for exports without a metadata file.
	Metadata *catpub.Metadata

	Volumes     *volumes.Reader
	Landmarks   *landmarks.Reader
	Neurons     *skeletons.Reader
	Annotations *annotations.Reader
}

// Open returns a reader for the export in dir.
func Open(dir string) (*DataReader, error) {
	if !catpub.IsDir(dir) {
		return nil, fmt.Errorf("export directory %q: %w", dir, catpub.ErrNotFound)
	}
	r := &DataReader{Dir: dir}
	var err error
	if path := filepath.Join(dir, catpub.MetadataFile); catpub.IsFile(path) {
		if r.Metadata, err = catpub.ReadMetadata(path); err != nil {
			return nil, err
		}
	}
	if path := filepath.Join(dir, volumes.DirName); catpub.IsDir(path) {
		if r.Volumes, err = volumes.NewReader(path); err != nil {
			return nil, err
		}
	}
	if path := filepath.Join(dir, landmarks.DirName); catpub.IsDir(path) {
		if r.Landmarks, err = landmarks.NewReader(path); err != nil {
			return nil, err
		}
	}
	if path := filepath.Join(dir, skeletons.DirName); catpub.IsDir(path) {
		r.Neurons = skeletons.NewReader(path, r.Units())
	}
	if path := filepath.Join(dir, annotations.DirName); catpub.IsDir(path) {
		if r.Annotations, err = annotations.NewReader(path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Units returns the units of spatial data, or "" if unknown.
func (r *DataReader) Units() string {
	if r.Metadata == nil {
		return ""
	}
	return r.Metadata.Units
}

// FullAnnotationGraph returns the annotation graph including neurons.  Edges go
// from an annotation to each annotation or neuron it is applied to.  Vertices
// are typed as annotation or neuron and edges to annotations are marked as
// meta-annotation edges.
func (r *DataReader) FullAnnotationGraph() (*catpub.Graph, error) {
	g := catpub.NewGraph()
	if r.Annotations != nil {
		g.Update(r.Annotations.Graph())
	}
	if r.Neurons != nil {
		ng, err := r.Neurons.AnnotationGraph()
		if err != nil {
			return nil, err
		}
		g.Update(ng)
	}
	return g, nil
}
