package catmaid

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/janelia-flyem/catpub/catpub"
)

// VolumeInfo is an entry of the project's volume list.
type VolumeInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Volume is a triangle mesh.  Each face indexes three vertices.
type Volume struct {
	ID       int64
	Name     string
	Vertices []catpub.Vector3d
	Faces    [][3]int
}

// Volumes lists every volume of the project, sorted by ID.
func (c *Client) Volumes(ctx context.Context) ([]VolumeInfo, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "volumes/", nil, &raw); err != nil {
		return nil, fmt.Errorf("could not list volumes: %w", err)
	}
	vols, err := parseVolumeList(raw)
	if err != nil {
		return nil, err
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].ID < vols[j].ID })
	return vols, nil
}

// parseVolumeList handles both the {"columns": [...], "data": [[...]]} tabular
// form and the older array-of-objects form.
func parseVolumeList(raw json.RawMessage) ([]VolumeInfo, error) {
	var table struct {
		Columns []string            `json:"columns"`
		Data    [][]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &table); err == nil && table.Columns != nil {
		idCol, nameCol := -1, -1
		for i, col := range table.Columns {
			switch col {
			case "id":
				idCol = i
			case "name":
				nameCol = i
			}
		}
		if idCol < 0 || nameCol < 0 {
			return nil, fmt.Errorf("volume list lacks id or name column: %v", table.Columns)
		}
		vols := make([]VolumeInfo, 0, len(table.Data))
		for i, row := range table.Data {
			if len(row) <= idCol || len(row) <= nameCol {
				return nil, fmt.Errorf("volume list row %d is too short", i)
			}
			var v VolumeInfo
			if err := json.Unmarshal(row[idCol], &v.ID); err != nil {
				return nil, fmt.Errorf("bad volume ID in row %d: %w", i, err)
			}
			if err := json.Unmarshal(row[nameCol], &v.Name); err != nil {
				return nil, fmt.Errorf("bad volume name in row %d: %w", i, err)
			}
			vols = append(vols, v)
		}
		return vols, nil
	}
	var vols []VolumeInfo
	if err := json.Unmarshal(raw, &vols); err != nil {
		return nil, fmt.Errorf("unrecognized volume list: %w", err)
	}
	return vols, nil
}

// Volume fetches the mesh of a single volume.
func (c *Client) Volume(ctx context.Context, id int64) (*Volume, error) {
	var resp struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Mesh string `json:"mesh"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("volumes/%d/", id), nil, &resp); err != nil {
		return nil, fmt.Errorf("could not fetch volume %d: %w", id, err)
	}
	vertices, faces, err := ParseX3DTriangleSet(resp.Mesh)
	if err != nil {
		return nil, fmt.Errorf("volume %d (%q): %w", id, resp.Name, err)
	}
	return &Volume{ID: id, Name: resp.Name, Vertices: vertices, Faces: faces}, nil
}
