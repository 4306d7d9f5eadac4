package nav

import (
	"container/heap"
	"sort"

	"colonysim.ai/internal/sim/geom"
)

const (
	costStraight = 10
	costDiagonal = 14
)

type neighbor struct {
	dx, dy   int
	diagonal bool
}

// Fixed expansion order keeps searches deterministic.
var neighborOffsets = [...]neighbor{
	{dx: -1, dy: -1, diagonal: true},
	{dx: -1, dy: 0},
	{dx: -1, dy: 1, diagonal: true},
	{dx: 0, dy: -1},
	{dx: 0, dy: 1},
	{dx: 1, dy: -1, diagonal: true},
	{dx: 1, dy: 0},
	{dx: 1, dy: 1, diagonal: true},
}

// Octile is the scaled octile distance between two cells.
func Octile(a, b Cell) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return costDiagonal*dy + costStraight*(dx-dy)
	}
	return costDiagonal*dx + costStraight*(dy-dx)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// neighbors lists in-bounds cells around c. Diagonals are dropped when
// either adjacent cardinal cell is blocked.
func (g *Grid) neighbors(c Cell, out []Cell) []Cell {
	out = out[:0]
	for _, d := range neighborOffsets {
		nx, ny := c.X+d.dx, c.Y+d.dy
		if !g.InBounds(nx, ny) {
			continue
		}
		if d.diagonal && (!g.IsWalkable(c.X+d.dx, c.Y) || !g.IsWalkable(c.X, c.Y+d.dy)) {
			continue
		}
		out = append(out, Cell{X: nx, Y: ny})
	}
	return out
}

// touch lazily resets a node left over from an earlier search.
func (g *Grid) touch(idx int32) *node {
	n := &g.nodes[idx]
	if n.gen != g.gen {
		n.gen = g.gen
		n.g, n.h = 0, 0
		n.parent = -1
		n.closed = false
		n.heapIdx = -1
	}
	return n
}

func (g *Grid) nextGeneration() {
	g.gen++
	if g.gen == 0 {
		for i := range g.nodes {
			g.nodes[i].gen = 0
		}
		g.gen = 1
	}
}

// FindPath returns world waypoints from start to end, excluding the start.
// An empty result means unreachable. A blocked goal is retargeted to its
// walkable neighbor nearest the start.
func (g *Grid) FindPath(start, end geom.Vec3) []geom.Vec3 {
	cells := g.FindCells(start, end)
	if len(cells) == 0 {
		return nil
	}
	out := make([]geom.Vec3, len(cells))
	for i, c := range cells {
		p := g.GridToWorld(c.X, c.Y)
		p.Y = end.Y
		out[i] = p
	}
	return out
}

// FindCells is FindPath in grid space.
func (g *Grid) FindCells(start, end geom.Vec3) []Cell {
	if !g.ContainsWorld(start) || !g.ContainsWorld(end) {
		return nil
	}
	s := g.WorldToGrid(start)
	e := g.WorldToGrid(end)

	if !g.IsWalkable(e.X, e.Y) {
		alt, ok := g.retarget(s, e)
		if !ok {
			return nil
		}
		e = alt
	}
	if s == e {
		return nil
	}

	g.nextGeneration()
	g.open.items = g.open.items[:0]

	si, ei := g.index(s.X, s.Y), g.index(e.X, e.Y)
	sn := g.touch(si)
	sn.h = int32(Octile(s, e))
	heap.Push(&g.open, si)

	var buf [8]Cell
	for g.open.Len() > 0 {
		ci := heap.Pop(&g.open).(int32)
		cur := &g.nodes[ci]
		cur.closed = true
		if ci == ei {
			return g.reconstruct(si, ei)
		}
		cc := g.cellOf(ci)
		for _, nc := range g.neighbors(cc, buf[:0]) {
			ni := g.index(nc.X, nc.Y)
			if !g.nodes[ni].walkable {
				continue
			}
			nn := g.touch(ni)
			if nn.closed {
				continue
			}
			step := costStraight
			if nc.X != cc.X && nc.Y != cc.Y {
				step = costDiagonal
			}
			tentative := cur.g + int32(step)
			inOpen := nn.heapIdx >= 0
			if inOpen && tentative >= nn.g {
				continue
			}
			nn.g = tentative
			nn.h = int32(Octile(nc, e))
			nn.parent = ci
			if inOpen {
				heap.Fix(&g.open, int(nn.heapIdx))
			} else {
				heap.Push(&g.open, ni)
			}
		}
	}
	return nil
}

// retarget picks the walkable cell around a blocked goal nearest the start.
// Diagonals count even when both orthogonals are blocked, since the goal
// itself is never entered.
func (g *Grid) retarget(s, e Cell) (Cell, bool) {
	cands := make([]Cell, 0, len(neighborOffsets))
	for _, d := range neighborOffsets {
		nx, ny := e.X+d.dx, e.Y+d.dy
		if g.InBounds(nx, ny) && g.IsWalkable(nx, ny) {
			cands = append(cands, Cell{X: nx, Y: ny})
		}
	}
	if len(cands) == 0 {
		return Cell{}, false
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return Octile(cands[i], s) < Octile(cands[j], s)
	})
	return cands[0], true
}

func (g *Grid) reconstruct(si, ei int32) []Cell {
	var out []Cell
	for i := ei; i != si && i >= 0; i = g.nodes[i].parent {
		out = append(out, g.cellOf(i))
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

// openSet is a binary heap of node indices ordered by f, then h.
type openSet struct {
	g     *Grid
	items []int32
}

func (o *openSet) Len() int { return len(o.items) }

func (o *openSet) Less(i, j int) bool {
	a, b := &o.g.nodes[o.items[i]], &o.g.nodes[o.items[j]]
	fa, fb := a.g+a.h, b.g+b.h
	if fa != fb {
		return fa < fb
	}
	return a.h < b.h
}

func (o *openSet) Swap(i, j int) {
	o.items[i], o.items[j] = o.items[j], o.items[i]
	o.g.nodes[o.items[i]].heapIdx = int32(i)
	o.g.nodes[o.items[j]].heapIdx = int32(j)
}

func (o *openSet) Push(x any) {
	idx := x.(int32)
	o.g.nodes[idx].heapIdx = int32(len(o.items))
	o.items = append(o.items, idx)
}

func (o *openSet) Pop() any {
	n := len(o.items)
	idx := o.items[n-1]
	o.items = o.items[:n-1]
	o.g.nodes[idx].heapIdx = -1
	return idx
}
