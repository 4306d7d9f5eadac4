package geom

import "math"

// AABB is an axis-aligned box in world space.
type AABB struct{ Min, Max Vec3 }

// BoxAround builds a box of the given half extents centred on c.
func BoxAround(c Vec3, hx, hy, hz float64) AABB {
	return AABB{
		Min: Vec3{c.X - hx, c.Y - hy, c.Z - hz},
		Max: Vec3{c.X + hx, c.Y + hy, c.Z + hz},
	}
}

func (b AABB) Center() Vec3 {
	return Vec3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}
}

// Shrink pulls every face inwards by m; faces never cross.
func (b AABB) Shrink(m float64) AABB {
	out := AABB{Min: b.Min.Add(Vec3{m, m, m}), Max: b.Max.Sub(Vec3{m, m, m})}
	c := b.Center()
	if out.Min.X > out.Max.X {
		out.Min.X, out.Max.X = c.X, c.X
	}
	if out.Min.Y > out.Max.Y {
		out.Min.Y, out.Max.Y = c.Y, c.Y
	}
	if out.Min.Z > out.Max.Z {
		out.Min.Z, out.Max.Z = c.Z, c.Z
	}
	return out
}

// ContainsXZ reports whether p lies within the box footprint.
func (b AABB) ContainsXZ(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// SegmentHitsXZ reports whether the segment a->b crosses the box footprint.
// Slab test on the ground plane.
func (b AABB) SegmentHitsXZ(a, c Vec3) bool {
	tmin, tmax := 0.0, 1.0
	d := c.Sub(a)
	origin := [2]float64{a.X, a.Z}
	delta := [2]float64{d.X, d.Z}
	lo := [2]float64{b.Min.X, b.Min.Z}
	hi := [2]float64{b.Max.X, b.Max.Z}
	for i := 0; i < 2; i++ {
		o, dir := origin[i], delta[i]
		if math.Abs(dir) < 1e-12 {
			if o < lo[i] || o > hi[i] {
				return false
			}
			continue
		}
		t1 := (lo[i] - o) / dir
		t2 := (hi[i] - o) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}

// OBB is a box on the ground plane rotated by Yaw degrees around Y.
type OBB struct {
	Center Vec3
	HalfX  float64
	HalfZ  float64
	Yaw    float64
}

// RotateYaw turns a local offset into world orientation for a body yawed
// by yaw degrees around +Y.
func RotateYaw(v Vec3, yaw float64) Vec3 {
	rad := yaw * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return Vec3{X: v.X*cos + v.Z*sin, Y: v.Y, Z: -v.X*sin + v.Z*cos}
}

// ContainsXZ reports whether p lies in the rotated footprint.
func (o OBB) ContainsXZ(p Vec3) bool {
	local := RotateYaw(p.Sub(o.Center), -o.Yaw)
	return math.Abs(local.X) <= o.HalfX+1e-9 && math.Abs(local.Z) <= o.HalfZ+1e-9
}

// Bounds returns the axis-aligned box enclosing the rotated footprint.
func (o OBB) Bounds() AABB {
	rad := o.Yaw * math.Pi / 180
	cos, sin := math.Abs(math.Cos(rad)), math.Abs(math.Sin(rad))
	ex := o.HalfX*cos + o.HalfZ*sin
	ez := o.HalfX*sin + o.HalfZ*cos
	return AABB{
		Min: Vec3{o.Center.X - ex, o.Center.Y, o.Center.Z - ez},
		Max: Vec3{o.Center.X + ex, o.Center.Y, o.Center.Z + ez},
	}
}
