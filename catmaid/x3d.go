package catmaid

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/janelia-flyem/catpub/catpub"
)

type x3dTriangleSet struct {
	XMLName    xml.Name `xml:"IndexedTriangleSet"`
	Index      string   `xml:"index,attr"`
	Coordinate struct {
		Point string `xml:"point,attr"`
	} `xml:"Coordinate"`
}

// ParseX3DTriangleSet parses a mesh stored by CATMAID as an X3D
// IndexedTriangleSet into vertices and triangular faces.
func ParseX3DTriangleSet(mesh string) ([]catpub.Vector3d, [][3]int, error) {
	if strings.TrimSpace(mesh) == "" {
		return nil, nil, fmt.Errorf("empty mesh")
	}
	var ts x3dTriangleSet
	if err := xml.Unmarshal([]byte(mesh), &ts); err != nil {
		return nil, nil, fmt.Errorf("bad X3D mesh: %w", err)
	}

	coords := strings.Fields(strings.ReplaceAll(ts.Coordinate.Point, ",", " "))
	if len(coords)%3 != 0 {
		return nil, nil, fmt.Errorf("X3D mesh has %d coordinates, not a multiple of 3", len(coords))
	}
	vertices := make([]catpub.Vector3d, len(coords)/3)
	for i, s := range coords {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("bad X3D coordinate %q: %w", s, err)
		}
		vertices[i/3][i%3] = f
	}

	indices := strings.Fields(strings.ReplaceAll(ts.Index, ",", " "))
	if len(indices)%3 != 0 {
		return nil, nil, fmt.Errorf("X3D mesh has %d indices, not a multiple of 3", len(indices))
	}
	faces := make([][3]int, len(indices)/3)
	for i, s := range indices {
		idx, err := strconv.Atoi(s)
		if err != nil {
			return nil, nil, fmt.Errorf("bad X3D index %q: %w", s, err)
		}
		if idx < 0 || idx >= len(vertices) {
			return nil, nil, fmt.Errorf("X3D index %d out of range for %d vertices", idx, len(vertices))
		}
		faces[i/3][i%3] = idx
	}
	return vertices, faces, nil
}
