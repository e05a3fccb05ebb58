package volumes

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/janelia-flyem/catpub/catpub"
)

// Reader gives access to an exported volume directory.
type Reader struct {
	dir      string
	idToName map[int64]string
	nameToID map[string]int64
}

// NewReader reads the volume names stored in dir.
func NewReader(dir string) (*Reader, error) {
	f, err := os.Open(filepath.Join(dir, NamesFile))
	if err != nil {
		return nil, fmt.Errorf("could not read volume names: %w", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.Comma = '\t'
	records, err := rd.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not read volume names: %w", err)
	}
	if len(records) == 0 || len(records[0]) != 2 || records[0][0] != namesColumns[0] || records[0][1] != namesColumns[1] {
		return nil, fmt.Errorf("%s does not have columns %v", NamesFile, namesColumns)
	}
	r := &Reader{
		dir:      dir,
		idToName: make(map[int64]string, len(records)-1),
		nameToID: make(map[string]int64, len(records)-1),
	}
	for _, rec := range records[1:] {
		id, err := strconv.ParseInt(strings.TrimSuffix(rec[0], ".stl"), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad volume filename %q: %w", rec[0], err)
		}
		r.idToName[id] = rec[1]
		r.nameToID[rec[1]] = id
	}
	return r, nil
}

// Dir returns the directory being read.
func (r *Reader) Dir() string {
	return r.dir
}

// Names returns the sorted names of all volumes.
func (r *Reader) Names() []string {
	return catpub.SortedKeys(r.nameToID)
}

// IDs returns the sorted IDs of all volumes.
func (r *Reader) IDs() []int64 {
	ids := make([]int64, 0, len(r.idToName))
	for id := range r.idToName {
		ids = append(ids, id)
	}
	catpub.SortInt64s(ids)
	return ids
}

// ByID reads a volume's mesh.
func (r *Reader) ByID(id int64) (*Volume, error) {
	name, found := r.idToName[id]
	if !found {
		return nil, fmt.Errorf("volume %d: %w", id, catpub.ErrNotFound)
	}
	f, err := os.Open(filepath.Join(r.dir, Filename(id)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vertices, faces, err := DecodeSTL(f)
	if err != nil {
		return nil, fmt.Errorf("volume %d: %w", id, err)
	}
	return &Volume{ID: id, Name: name, Vertices: vertices, Faces: faces}, nil
}

// ByName reads the mesh of the named volume.
func (r *Reader) ByName(name string) (*Volume, error) {
	id, found := r.nameToID[name]
	if !found {
		return nil, fmt.Errorf("volume %q: %w", name, catpub.ErrNotFound)
	}
	return r.ByID(id)
}

// All reads every volume in name order.
func (r *Reader) All() ([]*Volume, error) {
	names := r.Names()
	out := make([]*Volume, 0, len(names))
	for _, name := range names {
		vol, err := r.ByName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, vol)
	}
	return out, nil
}
