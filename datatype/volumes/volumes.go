/*
	Package volumes exports CATMAID volumes as ASCII STL meshes plus a table of
	their names, and reads them back.
*/
package volumes

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
)

const (
	// DirName is the export subdirectory for volumes.
	DirName = "volumes"

	NamesFile = "names.tsv"
)

var namesColumns = []string{"filename", "volume_name"}

// Readme describes the volume files of an export.
//
//go:embed readme.md
var Readme string

// Source supplies volumes.
type Source interface {
	Volumes(ctx context.Context) ([]catmaid.VolumeInfo, error)
	Volume(ctx context.Context, id int64) (*catmaid.Volume, error)
}

// Volume is a named triangle mesh.
type Volume struct {
	ID       int64
	Name     string
	Vertices []catpub.Vector3d
	Faces    [][3]int
}

// Bounds returns the minimum and maximum corners of the mesh's bounding box.
func (v *Volume) Bounds() (min, max catpub.Vector3d) {
	if len(v.Vertices) == 0 {
		return
	}
	min, max = v.Vertices[0], v.Vertices[0]
	for _, vtx := range v.Vertices[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], vtx[i])
			max[i] = math.Max(max[i], vtx[i])
		}
	}
	return
}

// Filename is the name of the STL file of a volume.
func Filename(id int64) string {
	return fmt.Sprintf("%d.stl", id)
}

// Fetch returns the selected volumes with their exported names, sorted by
// exported name.  If all names are selected, every volume is fetched;
// otherwise the named volumes and the rename keys.  If several volumes share
// a selected name, only the one with the lowest ID is kept.
func Fetch(ctx context.Context, src Source, cfg config.VolumesConfig) ([]*Volume, error) {
	infos, err := src.Volumes(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	byName := make(map[string]int64, len(infos))
	for _, info := range infos {
		if id, found := byName[info.Name]; found {
			catpub.Warningf("Volume name %q is shared by volumes %d and %d; using %d\n", info.Name, id, info.ID, id)
			continue
		}
		byName[info.Name] = info.ID
	}

	var names []string
	if cfg.Names.All() {
		names = catpub.SortedKeys(byName)
	} else {
		names = append(cfg.Names.Names(), catpub.SortedKeys(cfg.Rename)...)
	}
	rename := catpub.FillIn(cfg.Rename, names)

	var vols []*Volume
	origin := make(map[string]string)
	for _, name := range catpub.SortedKeys(rename) {
		id, found := byName[name]
		if !found {
			catpub.Warningf("Volume %q is not in the project; skipping\n", name)
			continue
		}
		newName := rename[name]
		if prev, found := origin[newName]; found {
			return nil, fmt.Errorf("volumes %q and %q are both exported as %q", prev, name, newName)
		}
		origin[newName] = name

		vol, err := src.Volume(ctx, id)
		if err != nil {
			return nil, err
		}
		vols = append(vols, &Volume{ID: id, Name: newName, Vertices: vol.Vertices, Faces: vol.Faces})
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].Name < vols[j].Name })
	return vols, nil
}

// Write stores the volumes under outDir.  It returns false without writing
// anything if there are no volumes.
func Write(outDir string, vols []*Volume) (bool, error) {
	if len(vols) == 0 {
		return false, nil
	}
	dir := filepath.Join(outDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("could not create volume directory: %w", err)
	}
	sorted := make([]*Volume, len(vols))
	copy(sorted, vols)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([][]string, 0, len(sorted))
	for _, vol := range sorted {
		fname := Filename(vol.ID)
		if err := writeSTL(filepath.Join(dir, fname), vol); err != nil {
			return false, fmt.Errorf("could not write volume %d (%q): %w", vol.ID, vol.Name, err)
		}
		rows = append(rows, []string{fname, vol.Name})
	}
	if err := writeTSV(filepath.Join(dir, NamesFile), namesColumns, rows); err != nil {
		return false, err
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(Readme), 0644); err != nil {
		return false, err
	}
	catpub.Infof("Wrote %d volumes\n", len(sorted))
	return true, nil
}
