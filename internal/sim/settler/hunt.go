package settler

import (
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
)

func (a *Agent) quarry(ctx *Context) (*entities.Animal, bool) {
	if a.target.Kind != entities.KindAnimal {
		return nil, false
	}
	return ctx.World.Animals.Get(a.target.Handle)
}

func (a *Agent) weaponStats(ctx *Context) (reach, damage float64) {
	h := ctx.Tuning.Hunting
	if a.weapon == WeaponBow {
		return h.BowRange, h.BowDamage
	}
	return h.MeleeRange, h.MeleeDamage
}

// lineOfSight is only checked for ranged attacks; buildings block shots.
func (a *Agent) lineOfSight(ctx *Context, to geom.Vec3) bool {
	if a.weapon != WeaponBow {
		return true
	}
	for _, b := range ctx.Building.Bounds() {
		if b.SegmentHitsXZ(a.pos, to) {
			return false
		}
	}
	return true
}

// updateHunting chases the reserved animal, aims and strikes. Damage lands
// at the hit frame of the strike; a survivor flees and the chase resumes.
func (a *Agent) updateHunting(ctx *Context, dt float64) {
	an, ok := a.quarry(ctx)
	if !ok {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "animal gone"), "hunting")
		return
	}
	if an.Dead() {
		a.afterKill(ctx, an)
		return
	}
	h := ctx.Tuning.Hunting
	a.huntTimer += dt
	if a.huntTimer >= h.GiveUpSeconds {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "%s escaped after %.0fs", an.Species, a.huntTimer), "hunting")
		return
	}
	reach, damage := a.weaponStats(ctx)
	canHit := a.inRange(an.Pos, reach) && a.lineOfSight(ctx, an.Pos)

	switch a.hunt {
	case huntApproach:
		if a.stopAtBoundary(ctx, model.JobHuntAnimals) {
			return
		}
		if canHit {
			a.follower.Clear()
			a.hunt, a.phaseTimer = huntAim, 0
			return
		}
		if err := a.moveTo(ctx, an.Pos); err != nil {
			a.fail(ctx, err, "hunting")
			return
		}
		a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance)

	case huntAim:
		a.face(an.Pos)
		if !canHit {
			a.hunt, a.phaseTimer = huntApproach, 0
			return
		}
		a.phaseTimer += dt
		if a.phaseTimer+1e-9 >= h.AimTime {
			a.hunt, a.phaseTimer, a.struck = huntStrike, 0, false
		}

	case huntStrike:
		a.face(an.Pos)
		a.phaseTimer += dt
		if !a.struck && a.phaseTimer+1e-9 >= h.HitFrame {
			a.struck = true
			if canHit && an.TakeDamage(damage, a.rng, h.FleeDistance) {
				a.afterKill(ctx, an)
				return
			}
		}
		if a.phaseTimer+1e-9 >= h.StrikeTime {
			a.hunt, a.phaseTimer, a.struck = huntApproach, 0, false
			a.stopAtBoundary(ctx, model.JobHuntAnimals)
		}
	}
}

func (a *Agent) afterKill(ctx *Context, an *entities.Animal) {
	a.skills.AddXP(model.SkillHunting, ctx.Tuning.Work.XPPerCycle)
	a.hunt, a.phaseTimer, a.struck = huntApproach, 0, false
	a.follower.Clear()
	if a.inRange(an.Pos, ctx.Tuning.Hunting.SkinRange) {
		a.skinTimer = 0
		a.setState(ctx, model.StateSkinning, "killed "+an.Species.String())
		return
	}
	if err := a.moveTo(ctx, an.Pos); err != nil {
		a.fail(ctx, err, "carcass unreachable")
		return
	}
	a.setState(ctx, model.StateMovingToSkin, "killed "+an.Species.String())
}

func (a *Agent) carcass(ctx *Context) (*entities.Animal, bool) {
	an, ok := a.quarry(ctx)
	if !ok || !an.Dead() || an.Skinned {
		return nil, false
	}
	return an, true
}

func (a *Agent) updateMovingToSkin(ctx *Context, dt float64) {
	an, ok := a.carcass(ctx)
	if !ok {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "carcass gone"), "moving to skin")
		return
	}
	if a.inRange(an.Pos, ctx.Tuning.Hunting.SkinRange) {
		a.follower.Clear()
		a.skinTimer = 0
		a.setState(ctx, model.StateSkinning, "at carcass")
		return
	}
	if !a.follower.Active() {
		if err := a.moveTo(ctx, an.Pos); err != nil {
			a.fail(ctx, err, "moving to skin")
			return
		}
	}
	a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance)
}

// updateSkinning turns the carcass into meat and one hide, then removes it.
func (a *Agent) updateSkinning(ctx *Context, dt float64) {
	an, ok := a.carcass(ctx)
	if !ok {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "carcass gone"), "skinning")
		return
	}
	a.face(an.Pos)
	a.skinTimer += dt
	if a.skinTimer+1e-9 < ctx.Tuning.Hunting.SkinTime {
		return
	}
	for _, st := range []model.ItemStack{
		{Resource: model.ResourceMeat, Count: an.MeatYield()},
		{Resource: model.ResourceHide, Count: 1},
	} {
		if added := a.inv.Add(st.Resource, st.Count); added < st.Count {
			ctx.World.DropItem(model.ItemStack{Resource: st.Resource, Count: st.Count - added}, an.Pos, ctx.Tick)
		}
	}
	an.Skinned = true
	h := a.target.Handle
	a.releaseWork(ctx)
	ctx.World.Animals.Remove(h)
	if a.inv.IsFull() {
		a.goToStorage(ctx, "skinned")
		return
	}
	a.setState(ctx, model.StateIdle, "skinned")
}
