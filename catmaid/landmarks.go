package catmaid

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/janelia-flyem/catpub/catpub"
)

// Location is a point in space that landmarks and landmark groups refer to.
type Location struct {
	ID int64   `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

func (l Location) XYZ() catpub.Vector3d {
	return catpub.Vector3d{l.X, l.Y, l.Z}
}

// Landmark is a named set of locations.
type Landmark struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Locations []Location `json:"locations"`
}

// LandmarkGroup is a named set of locations, which need not include every
// location of the landmarks in the group.
type LandmarkGroup struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Locations []Location `json:"locations"`
}

// Landmarks returns every landmark of the project with its locations, sorted by ID.
func (c *Client) Landmarks(ctx context.Context) ([]Landmark, error) {
	query := url.Values{}
	query.Set("with_locations", "true")
	var lmarks []Landmark
	if err := c.getJSON(ctx, "landmarks/", query, &lmarks); err != nil {
		return nil, fmt.Errorf("could not list landmarks: %w", err)
	}
	sort.Slice(lmarks, func(i, j int) bool { return lmarks[i].ID < lmarks[j].ID })
	return lmarks, nil
}

// LandmarkGroups returns every landmark group of the project with its locations,
// sorted by ID.
func (c *Client) LandmarkGroups(ctx context.Context) ([]LandmarkGroup, error) {
	query := url.Values{}
	query.Set("with_locations", "true")
	var groups []LandmarkGroup
	if err := c.getJSON(ctx, "landmarks/groups/", query, &groups); err != nil {
		return nil, fmt.Errorf("could not list landmark groups: %w", err)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}
