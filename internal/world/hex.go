// Package world provides the parcel grid and its procedural generation.
// Positions use axial hex coordinates (q, r); the third cube coordinate
// is derived as s = -q - r.
package world

import (
	"fmt"
	"strconv"
	"strings"
)

// HexCoord is a position on the hex grid in axial coordinates.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// neighborDirections are the six axial offsets around a hex.
var neighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var out [6]HexCoord
	for i, d := range neighborDirections {
		out[i] = HexCoord{Q: h.Q + d.Q, R: h.R + d.R}
	}
	return out
}

// Distance returns the hex distance between two coordinates: the max
// absolute difference over the three cube axes.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// ParcelID renders a coordinate as the canonical parcel identifier "q,r".
func ParcelID(c HexCoord) string {
	return fmt.Sprintf("%d,%d", c.Q, c.R)
}

// ParseParcelID parses a "q,r" identifier back into a coordinate.
func ParseParcelID(id string) (HexCoord, error) {
	q, r, ok := strings.Cut(id, ",")
	if !ok {
		return HexCoord{}, fmt.Errorf("malformed parcel id %q", id)
	}
	qi, err := strconv.Atoi(q)
	if err != nil {
		return HexCoord{}, fmt.Errorf("malformed parcel id %q: %w", id, err)
	}
	ri, err := strconv.Atoi(r)
	if err != nil {
		return HexCoord{}, fmt.Errorf("malformed parcel id %q: %w", id, err)
	}
	return HexCoord{Q: qi, R: ri}, nil
}
