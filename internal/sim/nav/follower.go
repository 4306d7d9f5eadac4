package nav

import (
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/simerr"
)

// Pathfinder is the grid surface a Follower needs.
type Pathfinder interface {
	FindPath(start, end geom.Vec3) []geom.Vec3
	WorldToGrid(pos geom.Vec3) Cell
}

var _ Pathfinder = (*Grid)(nil)

type FollowerConfig struct {
	ReuseTolerance  float64 // cached destination reuse radius
	WaypointReached float64
	DirectFallback  float64 // max straight-line distance moved without a path
	TurnRate        float64 // degrees per second
}

func (c *FollowerConfig) applyDefaults() {
	if c.ReuseTolerance <= 0 {
		c.ReuseTolerance = 0.1
	}
	if c.WaypointReached <= 0 {
		c.WaypointReached = 0.3
	}
	if c.DirectFallback <= 0 {
		c.DirectFallback = 2
	}
	if c.TurnRate <= 0 {
		c.TurnRate = 360
	}
}

// Follower walks an agent along a cached path, one waypoint at a time.
type Follower struct {
	cfg FollowerConfig

	waypoints []geom.Vec3
	index     int
	dest      geom.Vec3
	valid     bool
	direct    bool
}

func NewFollower(cfg FollowerConfig) *Follower {
	cfg.applyDefaults()
	return &Follower{cfg: cfg}
}

// SetConfig swaps tunables without dropping the current path.
func (f *Follower) SetConfig(cfg FollowerConfig) {
	cfg.applyDefaults()
	f.cfg = cfg
}

// Active reports whether a destination is being pursued.
func (f *Follower) Active() bool { return f.valid }

func (f *Follower) Destination() geom.Vec3 { return f.dest }
func (f *Follower) Direct() bool           { return f.direct }

// Waypoints returns the remaining waypoints.
func (f *Follower) Waypoints() []geom.Vec3 {
	if f.index >= len(f.waypoints) {
		return nil
	}
	return f.waypoints[f.index:]
}

// Clear drops the cached path and destination.
func (f *Follower) Clear() {
	f.waypoints = f.waypoints[:0]
	f.index = 0
	f.valid = false
	f.direct = false
}

// Request sets a destination. A still-valid cached path to a destination
// within the reuse tolerance is kept as is. Without a path, destinations
// close enough are approached directly; farther ones fail with
// ErrPathNotFound and leave the follower cleared.
func (f *Follower) Request(pf Pathfinder, from, dest geom.Vec3) error {
	if f.valid && f.dest.DistXZ(dest) <= f.cfg.ReuseTolerance {
		return nil
	}
	path := pf.FindPath(from, dest)
	if len(path) > 0 {
		f.waypoints = append(f.waypoints[:0], path...)
		f.index = 0
		f.dest = dest
		f.valid = true
		f.direct = false
		return nil
	}
	if from.DistXZ(dest) <= f.cfg.DirectFallback || pf.WorldToGrid(from) == pf.WorldToGrid(dest) {
		f.waypoints = f.waypoints[:0]
		f.index = 0
		f.dest = dest
		f.valid = true
		f.direct = true
		return nil
	}
	f.Clear()
	return simerr.Wrap(simerr.ErrPathNotFound, "from (%.1f,%.1f) to (%.1f,%.1f)", from.X, from.Z, dest.X, dest.Z)
}

// Step moves pos toward the destination by at most speed*dt and turns rot
// toward the heading. It returns true exactly once, when pos comes within
// arrive of the destination; the follower is cleared at that point.
func (f *Follower) Step(pos *geom.Vec3, rot *float64, speed, dt, arrive float64) bool {
	if !f.valid {
		return false
	}
	if pos.DistXZ(f.dest) < arrive {
		f.Clear()
		return true
	}
	target := f.dest
	for f.index < len(f.waypoints) {
		wp := f.waypoints[f.index]
		if pos.DistXZ(wp) < f.cfg.WaypointReached {
			f.index++
			continue
		}
		target = wp
		break
	}
	target.Y = pos.Y
	dir := target.Sub(*pos)
	if dir.LenXZ() > 1e-9 {
		*rot = geom.ApproachAngle(*rot, geom.Heading(dir), f.cfg.TurnRate*dt)
	}
	*pos = geom.MoveTowards(*pos, target, speed*dt)
	if pos.DistXZ(f.dest) < arrive {
		f.Clear()
		return true
	}
	return false
}
