/*
	Package landmarks exports CATMAID landmarks and landmark groups as a list of
	locations, each labelled with the landmarks and groups it belongs to.
*/
package landmarks

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/janelia-flyem/catpub/catmaid"
	"github.com/janelia-flyem/catpub/catpub"
	"github.com/janelia-flyem/catpub/config"
)

const (
	// DirName is the export subdirectory for landmarks.
	DirName = "landmarks"

	LocationsFile = "locations.json"
)

// Readme describes the landmark files of an export.
//
//go:embed readme.md
var Readme string

// Source supplies landmarks and landmark groups.
type Source interface {
	Landmarks(ctx context.Context) ([]catmaid.Landmark, error)
	LandmarkGroups(ctx context.Context) ([]catmaid.LandmarkGroup, error)
}

// Location is a point belonging to one or more landmarks or groups.
type Location struct {
	Groups    []string        `json:"groups"`
	Landmarks []string        `json:"landmarks"`
	XYZ       catpub.Vector3d `json:"xyz"`
}

type locationSet struct {
	xyz       catpub.Vector3d
	groups    map[string]struct{}
	landmarks map[string]struct{}
}

// Fetch returns the locations of the selected landmarks and groups, sorted by
// location ID.  Landmarks are selected by name and by rename key, groups by
// group name and by group rename key.
func Fetch(ctx context.Context, src Source, cfg config.LandmarksConfig) ([]Location, error) {
	lmarks, err := src.Landmarks(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := src.LandmarkGroups(ctx)
	if err != nil {
		return nil, err
	}

	locs := make(map[int64]*locationSet)
	get := func(loc catmaid.Location) *locationSet {
		ls, found := locs[loc.ID]
		if !found {
			ls = &locationSet{
				xyz:       loc.XYZ(),
				groups:    make(map[string]struct{}),
				landmarks: make(map[string]struct{}),
			}
			locs[loc.ID] = ls
		}
		return ls
	}

	names := make([]string, len(lmarks))
	for i, lm := range lmarks {
		names[i] = lm.Name
	}
	rename := catpub.FillIn(cfg.Rename, cfg.Names.Resolve(names))
	for _, lm := range lmarks {
		newName, found := rename[lm.Name]
		if !found {
			continue
		}
		for _, loc := range lm.Locations {
			get(loc).landmarks[newName] = struct{}{}
		}
	}

	names = make([]string, len(groups))
	for i, grp := range groups {
		names[i] = grp.Name
	}
	groupRename := catpub.FillIn(cfg.GroupRename, cfg.Groups.Resolve(names))
	for _, grp := range groups {
		newName, found := groupRename[grp.Name]
		if !found {
			continue
		}
		for _, loc := range grp.Locations {
			get(loc).groups[newName] = struct{}{}
		}
	}

	ids := make([]int64, 0, len(locs))
	for id := range locs {
		ids = append(ids, id)
	}
	catpub.SortInt64s(ids)
	out := make([]Location, len(ids))
	for i, id := range ids {
		ls := locs[id]
		out[i] = Location{
			Groups:    catpub.SortedKeys(ls.groups),
			Landmarks: catpub.SortedKeys(ls.landmarks),
			XYZ:       ls.xyz,
		}
	}
	return out, nil
}

// Write stores the locations under outDir.  It returns false without writing
// anything if there are no locations.
func Write(outDir string, locs []Location) (bool, error) {
	if len(locs) == 0 {
		return false, nil
	}
	dir := filepath.Join(outDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("could not create landmark directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(Readme), 0644); err != nil {
		return false, err
	}
	if err := catpub.WriteJSON(filepath.Join(dir, LocationsFile), locs); err != nil {
		return false, err
	}
	catpub.Infof("Wrote %d landmark locations\n", len(locs))
	return true, nil
}

// Reader gives access to an exported landmark directory.
type Reader struct {
	dir  string
	locs []Location
}

// NewReader reads the locations stored in dir.
func NewReader(dir string) (*Reader, error) {
	r := &Reader{dir: dir}
	if err := catpub.ReadJSON(filepath.Join(dir, LocationsFile), &r.locs); err != nil {
		return nil, fmt.Errorf("could not read landmarks: %w", err)
	}
	return r, nil
}

// Locations returns every location in file order.
func (r *Reader) Locations() []Location {
	out := make([]Location, len(r.locs))
	copy(out, r.locs)
	return out
}

// LandmarkNames returns the sorted names of all landmarks.
func (r *Reader) LandmarkNames() []string {
	set := make(map[string]struct{})
	for _, loc := range r.locs {
		for _, name := range loc.Landmarks {
			set[name] = struct{}{}
		}
	}
	return catpub.SortedKeys(set)
}

// GroupNames returns the sorted names of all landmark groups.
func (r *Reader) GroupNames() []string {
	set := make(map[string]struct{})
	for _, loc := range r.locs {
		for _, name := range loc.Groups {
			set[name] = struct{}{}
		}
	}
	return catpub.SortedKeys(set)
}

func contains(sorted []string, s string) bool {
	i := sort.SearchStrings(sorted, s)
	return i < len(sorted) && sorted[i] == s
}

func (r *Reader) filter(fn func(loc Location) bool) []catpub.Vector3d {
	var out []catpub.Vector3d
	for _, loc := range r.locs {
		if fn(loc) {
			out = append(out, loc.XYZ)
		}
	}
	return out
}

// LandmarkLocations returns the coordinates of a landmark's locations.
func (r *Reader) LandmarkLocations(name string) ([]catpub.Vector3d, error) {
	out := r.filter(func(loc Location) bool { return contains(loc.Landmarks, name) })
	if len(out) == 0 {
		return nil, fmt.Errorf("landmark %q: %w", name, catpub.ErrNotFound)
	}
	return out, nil
}

// GroupLocations returns the coordinates of a group's locations.
func (r *Reader) GroupLocations(name string) ([]catpub.Vector3d, error) {
	out := r.filter(func(loc Location) bool { return contains(loc.Groups, name) })
	if len(out) == 0 {
		return nil, fmt.Errorf("landmark group %q: %w", name, catpub.ErrNotFound)
	}
	return out, nil
}

// GroupLandmarkLocations returns the coordinates of locations belonging to both
// the group and the landmark, which may be none.
func (r *Reader) GroupLandmarkLocations(group, landmark string) []catpub.Vector3d {
	return r.filter(func(loc Location) bool {
		return contains(loc.Groups, group) && contains(loc.Landmarks, landmark)
	})
}
