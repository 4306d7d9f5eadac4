package settler

import (
	"math"

	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
)

// approachRings bounds the search for a standable cell next to a blocked
// target such as a tree.
const approachRings = 3

func (a *Agent) moveTo(ctx *Context, dest geom.Vec3) error {
	return a.follower.Request(ctx.Grid, a.pos, dest)
}

// approach paths to the walkable cell nearest to target.
func (a *Agent) approach(ctx *Context, target geom.Vec3) error {
	p, ok := ctx.Grid.ApproachPoint(target, a.pos, approachRings)
	if !ok {
		return simerr.Wrap(simerr.ErrPathNotFound, "no standable cell near (%.1f,%.1f)", target.X, target.Z)
	}
	return a.moveTo(ctx, p)
}

// step advances along the current path and reports arrival once.
func (a *Agent) step(ctx *Context, dt, arrive float64) bool {
	return a.follower.Step(&a.pos, &a.rot, ctx.Tuning.Movement.Speed, dt, arrive)
}

func (a *Agent) face(p geom.Vec3) {
	d := p.Sub(a.pos)
	if d.LenXZ() > 1e-9 {
		a.rot = geom.Heading(d)
	}
}

func (a *Agent) inRange(p geom.Vec3, r float64) bool {
	return a.pos.DistXZ(p) <= r+1e-9
}

func (a *Agent) updateMoving(ctx *Context, dt float64) {
	if a.approaching {
		if front, ok := a.queue.Front(); ok {
			if _, err := a.resolveAction(ctx, *front); err != nil {
				a.follower.Clear()
				a.executeNext(ctx)
				return
			}
		}
	}
	if !a.follower.Active() {
		a.approaching = false
		a.setState(ctx, model.StateIdle, "no destination")
		return
	}
	if a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance) {
		approaching := a.approaching
		a.approaching = false
		a.setState(ctx, model.StateIdle, "arrived")
		if approaching {
			a.executeNext(ctx)
		}
	}
}

func (a *Agent) updateWaiting(ctx *Context, dt float64) {
	a.waitLeft -= dt
	if a.waitLeft <= 0 {
		a.waitLeft = 0
		a.setState(ctx, model.StateIdle, "wait over")
	}
}

// startWander picks a random reachable point near the agent.
func (a *Agent) startWander(ctx *Context) {
	radius := ctx.Tuning.Idle.WanderRadius
	for i := 0; i < 8; i++ {
		ang := a.rng.Float64() * 2 * math.Pi
		d := 1 + a.rng.Float64()*(radius-1)
		p := a.pos.Add(geom.Vec3{X: d * math.Cos(ang), Z: d * math.Sin(ang)})
		if !ctx.Grid.ContainsWorld(p) {
			continue
		}
		c := ctx.Grid.WorldToGrid(p)
		if !ctx.Grid.IsWalkable(c.X, c.Y) {
			continue
		}
		if a.moveTo(ctx, p) == nil {
			a.setState(ctx, model.StateWander, "idle too long")
			return
		}
	}
}

func (a *Agent) updateWander(ctx *Context, dt float64) {
	if !a.follower.Active() || a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance) {
		a.follower.Clear()
		a.setState(ctx, model.StateIdle, "wandered")
	}
}
