package nav

import (
	"math"

	"colonysim.ai/internal/sim/encoding"
	"colonysim.ai/internal/sim/geom"
)

// Cell is a grid coordinate. Y indexes the world Z axis.
type Cell struct{ X, Y int }

type node struct {
	walkable bool

	// Search state. Only meaningful when gen equals Grid.gen.
	gen     uint32
	g, h    int32
	parent  int32
	closed  bool
	heapIdx int32
}

// Grid is the shared walkability map. World origin sits at the grid center.
// It is not safe for concurrent use; Rebuild and FindPath run on the tick
// goroutine only.
type Grid struct {
	width, height int
	tile          float64

	nodes []node
	gen   uint32
	open  openSet
}

func NewGrid(width, height int, tile float64) *Grid {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	if tile <= 0 {
		tile = 1
	}
	g := &Grid{width: width, height: height, tile: tile, nodes: make([]node, width*height)}
	for i := range g.nodes {
		g.nodes[i].walkable = true
		g.nodes[i].parent = -1
		g.nodes[i].heapIdx = -1
	}
	g.open.g = g
	return g
}

func (g *Grid) Width() int        { return g.width }
func (g *Grid) Height() int       { return g.height }
func (g *Grid) TileSize() float64 { return g.tile }

// Generation is the current search stamp.
func (g *Grid) Generation() uint32 { return g.gen }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.width && y < g.height
}

func (g *Grid) index(x, y int) int32 { return int32(y*g.width + x) }

func (g *Grid) cellOf(idx int32) Cell {
	return Cell{X: int(idx) % g.width, Y: int(idx) / g.width}
}

func (g *Grid) SetWalkable(x, y int, walkable bool) {
	if g.InBounds(x, y) {
		g.nodes[g.index(x, y)].walkable = walkable
	}
}

// IsWalkable is false outside the grid.
func (g *Grid) IsWalkable(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.nodes[g.index(x, y)].walkable
}

func (g *Grid) halfExtents() (float64, float64) {
	return float64(g.width) * g.tile / 2, float64(g.height) * g.tile / 2
}

// ContainsWorld reports whether pos falls on the grid without clamping.
func (g *Grid) ContainsWorld(pos geom.Vec3) bool {
	hw, hh := g.halfExtents()
	ax, az := pos.X+hw, pos.Z+hh
	return ax >= 0 && az >= 0 && ax < 2*hw && az < 2*hh
}

// WorldToGrid maps a world position to its cell, clamped to the grid.
func (g *Grid) WorldToGrid(pos geom.Vec3) Cell {
	hw, hh := g.halfExtents()
	x := int(math.Floor((pos.X + hw) / g.tile))
	y := int(math.Floor((pos.Z + hh) / g.tile))
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= g.width {
		x = g.width - 1
	}
	if y >= g.height {
		y = g.height - 1
	}
	return Cell{X: x, Y: y}
}

// GridToWorld returns the center of a cell, clamping the coordinates first.
func (g *Grid) GridToWorld(x, y int) geom.Vec3 {
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	if x >= g.width {
		x = g.width - 1
	}
	if y >= g.height {
		y = g.height - 1
	}
	hw, hh := g.halfExtents()
	return geom.Vec3{
		X: float64(x)*g.tile + g.tile*0.5 - hw,
		Z: float64(y)*g.tile + g.tile*0.5 - hh,
	}
}

// WalkableCount is used by tests and diagnostics.
func (g *Grid) WalkableCount() int {
	n := 0
	for i := range g.nodes {
		if g.nodes[i].walkable {
			n++
		}
	}
	return n
}

// EncodeWalkable dumps the walkability mask row by row.
func (g *Grid) EncodeWalkable() string {
	mask := make([]bool, len(g.nodes))
	for i := range g.nodes {
		mask[i] = g.nodes[i].walkable
	}
	return encoding.EncodeMask(mask)
}

// LoadWalkable replaces walkability from an EncodeWalkable dump of a grid
// with the same dimensions.
func (g *Grid) LoadWalkable(dump string) error {
	mask, err := encoding.DecodeMask(dump, len(g.nodes))
	if err != nil {
		return err
	}
	for i, w := range mask {
		g.nodes[i].walkable = w
	}
	return nil
}

// ApproachPoint returns the center of the walkable cell nearest to target,
// searching at most maxRing rings around it. Ties go to the cell closer to
// from. A walkable target cell returns target itself.
func (g *Grid) ApproachPoint(target, from geom.Vec3, maxRing int) (geom.Vec3, bool) {
	c := g.WorldToGrid(target)
	if g.ContainsWorld(target) && g.IsWalkable(c.X, c.Y) {
		return target, true
	}
	for r := 1; r <= maxRing; r++ {
		best := geom.Vec3{}
		bestD, bestF := math.Inf(1), math.Inf(1)
		found := false
		for y := c.Y - r; y <= c.Y+r; y++ {
			for x := c.X - r; x <= c.X+r; x++ {
				if abs(x-c.X) != r && abs(y-c.Y) != r {
					continue
				}
				if !g.IsWalkable(x, y) {
					continue
				}
				p := g.GridToWorld(x, y)
				d, f := p.DistXZ(target), p.DistXZ(from)
				if d < bestD-1e-9 || (math.Abs(d-bestD) <= 1e-9 && f < bestF) {
					best, bestD, bestF, found = p, d, f, true
				}
			}
		}
		if found {
			best.Y = target.Y
			return best, true
		}
	}
	return geom.Vec3{}, false
}
