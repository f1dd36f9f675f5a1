package world

import (
	"fmt"
	"sort"
)

// Grid holds every parcel in the world, keyed by parcel id.
type Grid struct {
	Parcels map[string]*Parcel `json:"parcels"`
	Radius  int                `json:"radius"`
}

// NewGrid creates an empty grid. A grid of radius R holds parcels whose
// cube coordinates satisfy max(|q|, |r|, |s|) <= R.
func NewGrid(radius int) *Grid {
	return &Grid{
		Parcels: make(map[string]*Parcel),
		Radius:  radius,
	}
}

// Get returns the parcel with the given id, or nil.
func (g *Grid) Get(id string) *Parcel {
	return g.Parcels[id]
}

// At returns the parcel at the given coordinate, or nil.
func (g *Grid) At(c HexCoord) *Parcel {
	return g.Parcels[ParcelID(c)]
}

// Add places a parcel into the grid.
func (g *Grid) Add(p *Parcel) {
	g.Parcels[p.ID] = p
}

// InBounds reports whether the coordinate lies within the grid radius.
func (g *Grid) InBounds(c HexCoord) bool {
	return Distance(c, HexCoord{}) <= g.Radius
}

// Count returns the number of parcels.
func (g *Grid) Count() int {
	return len(g.Parcels)
}

// SortedIDs returns all parcel ids in a stable order.
func (g *Grid) SortedIDs() []string {
	ids := make([]string, 0, len(g.Parcels))
	for id := range g.Parcels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// OwnedBy returns the parcels owned by the given player, unordered.
func (g *Grid) OwnedBy(playerID string) []*Parcel {
	var out []*Parcel
	for _, p := range g.Parcels {
		if p.OwnerID == playerID {
			out = append(out, p)
		}
	}
	return out
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(radius=%d, parcels=%d)", g.Radius, len(g.Parcels))
}
