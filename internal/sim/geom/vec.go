package geom

import "math"

// Vec3 is a world-space position. Y is up; the ground plane is XZ.
type Vec3 struct{ X, Y, Z float64 }

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func (a Vec3) Len() float64 { return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z) }

// LenXZ ignores the vertical component.
func (a Vec3) LenXZ() float64 { return math.Hypot(a.X, a.Z) }

func (a Vec3) Dist(b Vec3) float64   { return b.Sub(a).Len() }
func (a Vec3) DistXZ(b Vec3) float64 { return b.Sub(a).LenXZ() }

// FlatXZ returns a copy with Y zeroed.
func (a Vec3) FlatXZ() Vec3 { return Vec3{X: a.X, Z: a.Z} }

func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// Heading returns the yaw in degrees of a direction on the XZ plane.
// (0,0,1) is 0 degrees, (1,0,0) is 90.
func Heading(dir Vec3) float64 {
	return math.Atan2(dir.X, dir.Z) * 180 / math.Pi
}

// WrapDegrees maps an angle into (-180, 180].
func WrapDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a <= -180 {
		a += 360
	} else if a > 180 {
		a -= 360
	}
	return a
}

// ApproachAngle turns cur toward target by at most maxStep degrees along
// the shorter arc.
func ApproachAngle(cur, target, maxStep float64) float64 {
	diff := WrapDegrees(target - cur)
	if math.Abs(diff) <= maxStep {
		return WrapDegrees(target)
	}
	if diff > 0 {
		return WrapDegrees(cur + maxStep)
	}
	return WrapDegrees(cur - maxStep)
}

// MoveTowards steps from toward to by at most maxDist without overshooting.
func MoveTowards(from, to Vec3, maxDist float64) Vec3 {
	d := to.Sub(from)
	l := d.Len()
	if l <= maxDist || l == 0 {
		return to
	}
	return from.Add(d.Scale(maxDist / l))
}
