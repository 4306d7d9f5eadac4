package settler

import (
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/needs"
	"colonysim.ai/internal/sim/tasks"
)

type handler func(a *Agent, ctx *Context, dt float64)

// handlers has one entry per state; a missing entry is a bug caught by
// TestEveryStateHasHandler.
var handlers = map[model.State]handler{
	model.StateIdle:             (*Agent).updateIdle,
	model.StateMoving:           (*Agent).updateMoving,
	model.StateChopping:         (*Agent).updateHarvest,
	model.StateMining:           (*Agent).updateHarvest,
	model.StateGathering:        (*Agent).updateHarvest,
	model.StateBuilding:         (*Agent).updateBuilding,
	model.StateHauling:          (*Agent).updateHauling,
	model.StateMovingToStorage:  (*Agent).updateMovingToStorage,
	model.StateDepositing:       (*Agent).updateDepositing,
	model.StateSearchingForFood: (*Agent).updateSearchingForFood,
	model.StateMovingToFood:     (*Agent).updateMovingToFood,
	model.StateEating:           (*Agent).updateEating,
	model.StateMovingToBed:      (*Agent).updateMovingToBed,
	model.StateSleeping:         (*Agent).updateSleeping,
	model.StatePickingUp:        (*Agent).updatePickingUp,
	model.StateCrafting:         (*Agent).updateCrafting,
	model.StateHunting:          (*Agent).updateHunting,
	model.StateMovingToSkin:     (*Agent).updateMovingToSkin,
	model.StateSkinning:         (*Agent).updateSkinning,
	model.StateWaiting:          (*Agent).updateWaiting,
	model.StateWander:           (*Agent).updateWander,
}

// Update advances the agent by one fixed step: passive stats, job flag
// edges, survival needs, then the handler of the active state.
func (a *Agent) Update(ctx *Context, dt float64) {
	if !a.stats.Alive() {
		return
	}
	a.stats.Tick(dt, a.rates, a.state == model.StateSleeping, a.exerting())
	if !a.stats.Alive() {
		return
	}

	a.applyJobEdges(ctx)
	a.checkNeeds(ctx, dt)

	if a.pendingReeval && a.state != model.StateIdle && a.state.IsInterruptible(a.movingToCritical) {
		a.InterruptCurrentAction(ctx, "deferred job change")
	}

	h, ok := handlers[a.state]
	if !ok {
		a.setState(ctx, model.StateIdle, "no handler for "+a.state.String())
		return
	}
	h(a, ctx, dt)
}

func (a *Agent) exerting() bool {
	switch a.state {
	case model.StateIdle, model.StateWaiting, model.StateSleeping, model.StateEating:
		return false
	}
	return true
}

// applyJobEdges compares flags with last tick's snapshot. A flag turned off
// under the current activity, or any flag turned on while busy with
// something else, interrupts interruptible states and defers otherwise.
func (a *Agent) applyJobEdges(ctx *Context) {
	edges := a.jobs.Diff(a.prevJobs)
	a.prevJobs = a.jobs
	if edges.Empty() || a.state == model.StateIdle {
		return
	}
	current, hasJob := a.currentJob()
	affected := false
	for _, j := range edges.Falling {
		if hasJob && j == current {
			affected = true
		}
	}
	for _, j := range edges.Rising {
		if !hasJob || j != current {
			affected = true
		}
	}
	if !affected {
		return
	}
	if a.state.IsInterruptible(a.movingToCritical) {
		a.InterruptCurrentAction(ctx, "job flags changed")
		return
	}
	a.pendingReeval = true
}

// currentJob is the job driving the active state, or for MOVING the job
// of the action being approached.
func (a *Agent) currentJob() (model.Job, bool) {
	if a.state == model.StateMoving {
		if act, ok := a.queue.Front(); ok {
			switch act.Kind {
			case tasks.KindChopTree:
				return model.JobGatherWood, true
			case tasks.KindMineRock:
				return model.JobGatherStone, true
			case tasks.KindGather:
				return model.JobGatherFood, true
			case tasks.KindBuild:
				return model.JobPerformBuilding, true
			case tasks.KindMove, tasks.KindWait, tasks.KindPickup, tasks.KindDeposit:
			}
		}
		return 0, false
	}
	return model.JobForState(a.state)
}

// checkNeeds lets survival needs preempt anything but another survival
// state. The worked target is released; queued actions stay for later.
func (a *Agent) checkNeeds(ctx *Context, dt float64) {
	need := a.monitor.Check(dt, needs.Input{
		State:  a.state,
		Energy: a.stats.Energy,
		Hunger: a.stats.Hunger,
		HasBed: a.bed != nil,
	})
	switch need {
	case needs.NeedSleep:
		a.releaseWork(ctx)
		a.follower.Clear()
		a.movingToCritical = true
		a.sleepInPlace = false
		if err := a.moveTo(ctx, a.bed.Pos); err != nil {
			ctx.logf("%s: bed unreachable, sleeping in place: %v", a.name, err)
			a.sleepInPlace = true
			a.setState(ctx, model.StateSleeping, "energy low, bed unreachable")
			return
		}
		a.setState(ctx, model.StateMovingToBed, "energy low")
	case needs.NeedFood:
		a.releaseWork(ctx)
		a.follower.Clear()
		a.movingToCritical = true
		a.setState(ctx, model.StateSearchingForFood, "hunger low")
	case needs.NeedNone:
	}
}
