package nav

import "colonysim.ai/internal/sim/geom"

const (
	treeBlockRadius     = 0.8
	resourceBlockRadius = 0.4
	simpleBoxInset      = 0.1
	wallBoundsMargin    = 0.1
)

// BuildingFootprint is what a built structure contributes to walkability.
// Composite buildings list their wall segments; simple ones use Bounds.
type BuildingFootprint struct {
	Walkable bool
	Bounds   geom.AABB
	Walls    []geom.OBB
	Doors    []geom.Vec3
}

// Obstacles is the full input of a grid rebuild.
type Obstacles struct {
	Buildings []BuildingFootprint
	Trees     []geom.Vec3
	Resources []geom.Vec3
}

// Rebuild recomputes every cell from scratch.
func (g *Grid) Rebuild(obs Obstacles) {
	for i := range g.nodes {
		g.nodes[i].walkable = true
	}
	for _, b := range obs.Buildings {
		if b.Walkable {
			continue
		}
		if len(b.Walls) > 0 {
			for _, w := range b.Walls {
				g.blockWall(w)
			}
		} else {
			g.blockBox(b.Bounds.Shrink(simpleBoxInset))
		}
		for _, d := range b.Doors {
			c := g.WorldToGrid(d)
			g.SetWalkable(c.X, c.Y, true)
		}
	}
	for _, p := range obs.Trees {
		g.blockSquare(p, treeBlockRadius)
	}
	for _, p := range obs.Resources {
		g.blockSquare(p, resourceBlockRadius)
	}
}

func (g *Grid) blockBox(b geom.AABB) {
	lo := g.WorldToGrid(b.Min)
	hi := g.WorldToGrid(b.Max)
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			g.SetWalkable(x, y, false)
		}
	}
}

func (g *Grid) blockSquare(c geom.Vec3, r float64) {
	g.blockBox(geom.AABB{
		Min: geom.Vec3{X: c.X - r, Z: c.Z - r},
		Max: geom.Vec3{X: c.X + r, Z: c.Z + r},
	})
}

// blockWall blocks cells whose centers fall inside the wall, padded by a
// quarter tile.
func (g *Grid) blockWall(w geom.OBB) {
	pad := g.tile * 0.25
	padded := geom.OBB{Center: w.Center, HalfX: w.HalfX + pad, HalfZ: w.HalfZ + pad, Yaw: w.Yaw}
	bounds := w.Bounds()
	bounds.Min = bounds.Min.Sub(geom.Vec3{X: wallBoundsMargin + pad, Z: wallBoundsMargin + pad})
	bounds.Max = bounds.Max.Add(geom.Vec3{X: wallBoundsMargin + pad, Z: wallBoundsMargin + pad})
	lo := g.WorldToGrid(bounds.Min)
	hi := g.WorldToGrid(bounds.Max)
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			if padded.ContainsXZ(g.GridToWorld(x, y)) {
				g.SetWalkable(x, y, false)
			}
		}
	}
}
